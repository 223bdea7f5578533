package outbox_test

import (
	"context"
	"strings"
	"testing"

	"github.com/angelmondragon/branchpos-backend/pkg/db/dbtest"
	"github.com/angelmondragon/branchpos-backend/pkg/db/models"
	"github.com/angelmondragon/branchpos-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/branchpos-backend/pkg/errors"
	"github.com/angelmondragon/branchpos-backend/pkg/outbox"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDLQRequeueResetsAttempts(t *testing.T) {
	conn := dbtest.Open(t)
	ctx := context.Background()
	dlq := outbox.NewDLQRepository(conn)

	lastErr := "stream unavailable"
	event := models.OutboxEvent{
		EventType:     enums.EventSaleCompleted,
		AggregateType: enums.AggregateSale,
		AggregateID:   uuid.New(),
		Payload:       `{}`,
		AttemptCount:  10,
		LastError:     &lastErr,
	}
	require.NoError(t, conn.Create(&event).Error)
	require.NoError(t, dlq.InsertTx(conn, models.OutboxDLQ{
		EventID:       event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
		AttemptCount:  10,
	}))

	require.NoError(t, dlq.Requeue(ctx, event.ID))

	var reloaded models.OutboxEvent
	require.NoError(t, conn.First(&reloaded, "id = ?", event.ID).Error)
	assert.Zero(t, reloaded.AttemptCount)
	assert.Nil(t, reloaded.LastError)

	entry, err := dlq.FindByEventID(ctx, event.ID)
	require.NoError(t, err)
	assert.Nil(t, entry)

	err = dlq.Requeue(ctx, event.ID)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict), "got %v", err)
}

func TestDLQRequeueUnknownEvent(t *testing.T) {
	conn := dbtest.Open(t)
	err := outbox.NewDLQRepository(conn).Requeue(context.Background(), uuid.New())
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound), "got %v", err)
}

func TestDLQInsertKeepsRunesWhole(t *testing.T) {
	conn := dbtest.Open(t)
	dlq := outbox.NewDLQRepository(conn)
	eventID := uuid.New()
	msg := "x" + strings.Repeat("é", 600)

	require.NoError(t, dlq.InsertTx(conn, models.OutboxDLQ{
		EventID:       eventID,
		EventType:     enums.EventStockTransferCompleted,
		AggregateType: enums.AggregateStockTransfer,
		AggregateID:   uuid.New(),
		Payload:       `{}`,
		ErrorReason:   enums.OutboxDLQReasonNonRetryable,
		ErrorMessage:  &msg,
	}))

	entry, err := dlq.FindByEventID(context.Background(), eventID)
	require.NoError(t, err)
	require.NotNil(t, entry.ErrorMessage)
	assert.Len(t, *entry.ErrorMessage, 1023)
	assert.True(t, strings.HasSuffix(*entry.ErrorMessage, "é"))
}
