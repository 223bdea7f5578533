package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/branchpos-backend/pkg/config"
	"github.com/angelmondragon/branchpos-backend/pkg/db/models"
	"github.com/angelmondragon/branchpos-backend/pkg/enums"
	"github.com/angelmondragon/branchpos-backend/pkg/outbox"
	"github.com/angelmondragon/branchpos-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestEventRegistryResolveSuccess(t *testing.T) {
	reg := newTestEventRegistry(t)

	saleID := uuid.New()
	payloadBytes := mustMarshal(t, payloads.SaleCompletedEvent{
		SaleID:   saleID,
		BranchID: uuid.New(),
		Total:    decimal.NewFromInt(162),
	})

	event := models.OutboxEvent{
		EventType:     enums.EventSaleCompleted,
		AggregateType: enums.AggregateSale,
		AggregateID:   saleID,
		Payload:       mustEnvelope(t, 1, payloadBytes),
	}

	resolved, err := reg.Resolve(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Descriptor.Stream != "sales-stream" {
		t.Fatalf("unexpected stream %q", resolved.Descriptor.Stream)
	}
	payload, ok := resolved.Payload.(*payloads.SaleCompletedEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", resolved.Payload)
	}
	if payload.SaleID != saleID || !payload.Total.Equal(decimal.NewFromInt(162)) {
		t.Fatalf("payload mismatch %+v", payload)
	}
	if resolved.Envelope.EventID == uuid.Nil {
		t.Fatalf("envelope missing event id")
	}
	if resolved.Envelope.OccurredAt.IsZero() {
		t.Fatalf("envelope missing occurred_at")
	}
}

func TestEventRegistryTransferStream(t *testing.T) {
	reg := newTestEventRegistry(t)

	event := models.OutboxEvent{
		EventType:     enums.EventStockTransferCompleted,
		AggregateType: enums.AggregateStockTransfer,
		AggregateID:   uuid.New(),
		Payload:       mustEnvelope(t, 1, []byte(`{"transfer_id":"`+uuid.NewString()+`","lines":[]}`)),
	}
	resolved, err := reg.Resolve(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Descriptor.Stream != "transfers-stream" {
		t.Fatalf("unexpected stream %q", resolved.Descriptor.Stream)
	}
}

func TestEventRegistryResolveRejections(t *testing.T) {
	reg := newTestEventRegistry(t)

	cases := map[string]models.OutboxEvent{
		"unknown event": {
			EventType:     enums.OutboxEventType("order_created"),
			AggregateType: enums.AggregateSale,
			AggregateID:   uuid.New(),
			Payload:       mustEnvelope(t, 1, []byte(`{}`)),
		},
		"aggregate mismatch": {
			EventType:     enums.EventSaleCompleted,
			AggregateType: enums.AggregateStockTransfer,
			AggregateID:   uuid.New(),
			Payload:       mustEnvelope(t, 1, []byte(`{}`)),
		},
		"missing aggregate id": {
			EventType:     enums.EventSaleCompleted,
			AggregateType: enums.AggregateSale,
			AggregateID:   uuid.Nil,
			Payload:       mustEnvelope(t, 1, []byte(`{}`)),
		},
		"null payload": {
			EventType:     enums.EventSaleCompleted,
			AggregateType: enums.AggregateSale,
			AggregateID:   uuid.New(),
			Payload:       mustEnvelope(t, 1, []byte("null")),
		},
		"unknown version": {
			EventType:     enums.EventSaleCompleted,
			AggregateType: enums.AggregateSale,
			AggregateID:   uuid.New(),
			Payload:       mustEnvelope(t, 2, []byte(`{}`)),
		},
		"broken envelope": {
			EventType:     enums.EventSaleCompleted,
			AggregateType: enums.AggregateSale,
			AggregateID:   uuid.New(),
			Payload:       "{",
		},
	}

	for name, event := range cases {
		_, err := reg.Resolve(event)
		if err == nil {
			t.Fatalf("%s: expected error", name)
		}
		var nonRetry NonRetryableError
		if !errors.As(err, &nonRetry) {
			t.Fatalf("%s: expected non-retryable error, got %T", name, err)
		}
	}
}

func TestNewEventRegistryRequiresStreams(t *testing.T) {
	if _, err := NewEventRegistry(config.OutboxConfig{SalesStream: "sales"}); err == nil {
		t.Fatalf("expected missing transfers stream to fail")
	}
}

func newTestEventRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	reg, err := NewEventRegistry(config.OutboxConfig{
		SalesStream:     "sales-stream",
		TransfersStream: "transfers-stream",
	})
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	return reg
}

func mustMarshal(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return data
}

func mustEnvelope(t *testing.T, version int, payload []byte) string {
	t.Helper()
	envelope := outbox.PayloadEnvelope{
		Version:    version,
		EventID:    uuid.New(),
		OccurredAt: time.Now().UTC(),
		Data:       payload,
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return string(data)
}
