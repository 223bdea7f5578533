package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/angelmondragon/branchpos-backend/pkg/db/dbtest"
	"github.com/angelmondragon/branchpos-backend/pkg/db/models"
	"github.com/angelmondragon/branchpos-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "ux_outbox_events_event_aggregate"}
	wrapped := fmt.Errorf("insert: %w", pgErr)

	if !IsUniqueViolation(wrapped, "ux_outbox_events_event_aggregate", "outbox_events") {
		t.Fatalf("expected postgres violation to match its constraint")
	}
	if IsUniqueViolation(wrapped, "ux_sales_session_id", "sales") {
		t.Fatalf("expected a different constraint not to match")
	}

	if IsUniqueViolation(errors.New("connection reset"), "", "") {
		t.Fatalf("unrelated errors are not violations")
	}
	if IsUniqueViolation(nil, "", "") {
		t.Fatalf("nil is not a violation")
	}
}

func TestIsUniqueViolationSQLite(t *testing.T) {
	conn := dbtest.Open(t)
	event := models.OutboxEvent{
		EventType:     enums.EventSaleCompleted,
		AggregateType: enums.AggregateSale,
		AggregateID:   uuid.New(),
		Payload:       `{}`,
	}
	if err := conn.Create(&event).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	dup := event
	dup.ID = uuid.Nil
	err := conn.Create(&dup).Error
	if err == nil {
		t.Fatalf("expected duplicate insert to fail")
	}

	if !IsUniqueViolation(err, "ux_outbox_events_event_aggregate", "outbox_events") {
		t.Fatalf("expected sqlite violation to match its table: %v", err)
	}
	if IsUniqueViolation(err, "", "sales") {
		t.Fatalf("expected sqlite violation on another table not to match")
	}
}
