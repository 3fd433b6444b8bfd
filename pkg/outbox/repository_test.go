package outbox

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/fuelpass/fuelpass-backend/pkg/db/models"
	"github.com/fuelpass/fuelpass-backend/pkg/enums"
	"github.com/fuelpass/fuelpass-backend/pkg/logger"
)

func newOutboxTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:outbox_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS outbox_events (
			id TEXT PRIMARY KEY,
			event_type TEXT NOT NULL,
			aggregate_type TEXT NOT NULL,
			aggregate_id TEXT NOT NULL,
			payload TEXT NOT NULL,
			created_at DATETIME,
			published_at DATETIME,
			attempt_count INTEGER NOT NULL DEFAULT 0,
			last_error TEXT,
			UNIQUE (event_type, aggregate_type, aggregate_id)
		)`,
		`CREATE TABLE IF NOT EXISTS outbox_dlq (
			id TEXT PRIMARY KEY,
			event_id TEXT NOT NULL,
			event_type TEXT NOT NULL,
			aggregate_type TEXT NOT NULL,
			aggregate_id TEXT NOT NULL,
			payload_json TEXT NOT NULL,
			error_reason TEXT NOT NULL,
			error_message TEXT,
			attempt_count INTEGER NOT NULL DEFAULT 0,
			failed_at DATETIME,
			created_at DATETIME
		)`,
	}
	for _, ddl := range statements {
		require.NoError(t, db.Exec(ddl).Error)
	}
	return db
}

func insertOutboxEvent(t *testing.T, db *gorm.DB, mutate func(*models.OutboxEvent)) models.OutboxEvent {
	t.Helper()

	event := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventCouponCompleted,
		AggregateType: enums.AggregateCoupon,
		AggregateID:   uuid.New(),
		Payload:       []byte(`{"version":1,"data":{}}`),
		CreatedAt:     time.Now().UTC(),
	}
	if mutate != nil {
		mutate(&event)
	}
	require.NoError(t, db.Create(&event).Error)
	return event
}

func TestRepositoryFetchUnpublishedForPublish(t *testing.T) {
	db := newOutboxTestDB(t)
	repo := NewRepository(db)

	pending := insertOutboxEvent(t, db, nil)
	insertOutboxEvent(t, db, func(e *models.OutboxEvent) {
		now := time.Now()
		e.PublishedAt = &now
	})
	insertOutboxEvent(t, db, func(e *models.OutboxEvent) {
		e.AttemptCount = 10
	})

	rows, err := repo.FetchUnpublishedForPublish(db, 10, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1, "published and exhausted rows are skipped")
	assert.Equal(t, pending.ID, rows[0].ID)

	_, err = repo.FetchUnpublishedForPublish(nil, 10, 10)
	assert.Error(t, err)
}

func TestRepositoryMarkPublished(t *testing.T) {
	db := newOutboxTestDB(t)
	repo := NewRepository(db)
	event := insertOutboxEvent(t, db, nil)

	require.NoError(t, repo.MarkPublishedTx(db, event.ID))

	var row models.OutboxEvent
	require.NoError(t, db.Where("id = ?", event.ID).First(&row).Error)
	require.NotNil(t, row.PublishedAt)

	rows, err := repo.FetchUnpublishedForPublish(db, 10, 10)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRepositoryMarkFailedIncrementsAttempts(t *testing.T) {
	db := newOutboxTestDB(t)
	repo := NewRepository(db)
	event := insertOutboxEvent(t, db, nil)

	require.NoError(t, repo.MarkFailedTx(db, event.ID, errors.New("broker timeout")))
	require.NoError(t, repo.MarkFailedTx(db, event.ID, errors.New("broker timeout again")))

	var row models.OutboxEvent
	require.NoError(t, db.Where("id = ?", event.ID).First(&row).Error)
	assert.Equal(t, 2, row.AttemptCount)
	require.NotNil(t, row.LastError)
	assert.Equal(t, "broker timeout again", *row.LastError)
}

func TestRepositoryMarkTerminalPinsAttempts(t *testing.T) {
	db := newOutboxTestDB(t)
	repo := NewRepository(db)
	event := insertOutboxEvent(t, db, nil)

	require.NoError(t, repo.MarkTerminalTx(db, event.ID, errors.New("poison"), 10))

	rows, err := repo.FetchUnpublishedForPublish(db, 10, 10)
	require.NoError(t, err)
	assert.Empty(t, rows, "terminal rows never qualify again")
}

func TestRepositoryDeletePublishedBefore(t *testing.T) {
	db := newOutboxTestDB(t)
	repo := NewRepository(db)

	old := time.Now().Add(-40 * 24 * time.Hour)
	insertOutboxEvent(t, db, func(e *models.OutboxEvent) {
		e.PublishedAt = &old
	})
	recent := time.Now().Add(-time.Hour)
	insertOutboxEvent(t, db, func(e *models.OutboxEvent) {
		e.PublishedAt = &recent
	})
	insertOutboxEvent(t, db, nil)

	cutoff := time.Now().Add(-30 * 24 * time.Hour)
	deleted, err := repo.DeletePublishedBefore(context.Background(), db, cutoff, 100)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	var count int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.EqualValues(t, 2, count, "unpublished and recent rows survive retention")
}

func TestServiceEmitWritesEnvelope(t *testing.T) {
	db := newOutboxTestDB(t)
	logg := logger.New(logger.Options{ServiceName: "outbox-test", Output: io.Discard})
	svc := NewService(NewRepository(db), logg)

	aggregateID := uuid.New()
	event := DomainEvent{
		EventType:     enums.EventCouponActivated,
		AggregateType: enums.AggregateCoupon,
		AggregateID:   aggregateID,
		Version:       1,
		Data:          map[string]any{"couponId": aggregateID.String()},
	}
	require.NoError(t, svc.Emit(context.Background(), db, event))

	var row models.OutboxEvent
	require.NoError(t, db.Where("aggregate_id = ?", aggregateID).First(&row).Error)
	assert.Equal(t, enums.EventCouponActivated, row.EventType)
	assert.Nil(t, row.PublishedAt)
	assert.Contains(t, string(row.Payload), `"eventId"`)
	assert.Contains(t, string(row.Payload), aggregateID.String())

	require.Error(t, svc.Emit(context.Background(), nil, event), "emit outside a transaction is refused")
}

func TestServiceEmitIfNotExists(t *testing.T) {
	db := newOutboxTestDB(t)
	logg := logger.New(logger.Options{ServiceName: "outbox-test", Output: io.Discard})
	svc := NewService(NewRepository(db), logg)

	event := DomainEvent{
		EventType:     enums.EventRaffleDrawn,
		AggregateType: enums.AggregateRaffle,
		AggregateID:   uuid.New(),
		Version:       1,
		Data:          map[string]any{},
	}
	require.NoError(t, svc.EmitIfNotExists(context.Background(), db, event))
	require.NoError(t, svc.EmitIfNotExists(context.Background(), db, event))

	var count int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).
		Where("aggregate_id = ?", event.AggregateID).
		Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestDLQRepositoryTruncatesLongErrors(t *testing.T) {
	db := newOutboxTestDB(t)
	repo := NewDLQRepository(db)

	long := strings.Repeat("x", maxDLQErrorLen+200)
	entry := models.OutboxDLQ{
		EventID:       uuid.New(),
		EventType:     enums.EventCouponCompleted,
		AggregateType: enums.AggregateCoupon,
		AggregateID:   uuid.New(),
		Payload:       []byte(`{}`),
		ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
		ErrorMessage:  &long,
		AttemptCount:  10,
	}
	require.NoError(t, repo.InsertTx(db, entry))

	stored, err := repo.FindByEventID(context.Background(), entry.EventID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.NotNil(t, stored.ErrorMessage)
	assert.Len(t, *stored.ErrorMessage, maxDLQErrorLen)

	missing, err := repo.FindByEventID(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDLQRepositoryList(t *testing.T) {
	db := newOutboxTestDB(t)
	repo := NewDLQRepository(db)

	for i := 0; i < 3; i++ {
		entry := models.OutboxDLQ{
			EventID:       uuid.New(),
			EventType:     enums.EventCouponCompleted,
			AggregateType: enums.AggregateCoupon,
			AggregateID:   uuid.New(),
			Payload:       []byte(`{}`),
			ErrorReason:   enums.OutboxDLQReasonNonRetryable,
			FailedAt:      time.Now().Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.InsertTx(db, entry))
	}

	rows, err := repo.List(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}
