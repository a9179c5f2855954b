package outbox

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/veldmarket/farmcart-backend/pkg/db/models"
	"github.com/veldmarket/farmcart-backend/pkg/enums"
	"github.com/veldmarket/farmcart-backend/pkg/logger"
)

func setupOutboxTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func seedEvent(t *testing.T, db *gorm.DB, repo *Repository, createdAt time.Time) models.OutboxEvent {
	t.Helper()

	event := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderConfirmed,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{"version":1}`),
		CreatedAt:     createdAt,
	}
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return repo.Insert(tx, event)
	}))
	return event
}

func TestFetchUnpublishedOrderAndAttemptCap(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)

	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	first := seedEvent(t, db, repo, base)
	second := seedEvent(t, db, repo, base.Add(time.Minute))
	exhausted := seedEvent(t, db, repo, base.Add(2*time.Minute))

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.MarkFailed(exhausted.ID, assertError{}))
	}

	rows, err := repo.FetchUnpublished(10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, first.ID, rows[0].ID)
	assert.Equal(t, second.ID, rows[1].ID)
}

func TestMarkPublishedRemovesFromFetch(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)

	event := seedEvent(t, db, repo, time.Now())
	require.NoError(t, repo.MarkPublished(event.ID))

	rows, err := repo.FetchUnpublished(10, 10)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestMarkFailedIncrementsAttempts(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)

	event := seedEvent(t, db, repo, time.Now())
	require.NoError(t, repo.MarkFailed(event.ID, assertError{}))
	require.NoError(t, repo.MarkFailed(event.ID, assertError{}))

	var row models.OutboxEvent
	require.NoError(t, db.First(&row, "id = ?", event.ID).Error)
	assert.Equal(t, 2, row.AttemptCount)
	require.NotNil(t, row.LastError)
	assert.Equal(t, "publish rejected", *row.LastError)
}

func TestInsertRequiresTransaction(t *testing.T) {
	repo := NewRepository(setupOutboxTestDB(t))
	err := repo.Insert(nil, models.OutboxEvent{ID: uuid.New()})
	assert.Error(t, err)
}

func TestEmitWrapsPayloadInEnvelope(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)
	svc := NewService(repo, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))

	buyerID := uuid.New()
	orderID := uuid.New()
	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderConfirmed,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Actor:         &ActorRef{BuyerID: buyerID, Source: "reconciliation"},
			Data:          map[string]any{"totalCents": 25500},
			Version:       1,
		})
	})
	require.NoError(t, err)

	var row models.OutboxEvent
	require.NoError(t, db.First(&row, "aggregate_id = ?", orderID).Error)
	assert.Equal(t, enums.EventOrderConfirmed, row.EventType)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(row.Payload, &envelope))
	assert.Equal(t, 1, envelope.Version)
	assert.NotEmpty(t, envelope.EventID)
	require.NotNil(t, envelope.Actor)
	assert.Equal(t, buyerID, envelope.Actor.BuyerID)

	var data map[string]any
	require.NoError(t, json.Unmarshal(envelope.Data, &data))
	assert.Equal(t, float64(25500), data["totalCents"])
}

type assertError struct{}

func (assertError) Error() string { return "publish rejected" }
