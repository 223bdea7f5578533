package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/branchpos-backend/pkg/db/models"
)

const dlqListLimit = 50

type dlqAdmin interface {
	FindByEventID(ctx context.Context, eventID uuid.UUID) (*models.OutboxDLQ, error)
	Recent(ctx context.Context, limit int) ([]models.OutboxDLQ, error)
	Requeue(ctx context.Context, eventID uuid.UUID) error
}

// runDLQCommand serves the -requeue and -dlq flags. Requeue runs first so a
// combined invocation lists the dead letters that remain.
func runDLQCommand(ctx context.Context, out io.Writer, repo dlqAdmin, list bool, requeue string) error {
	if requeue != "" {
		id, err := uuid.Parse(requeue)
		if err != nil {
			return fmt.Errorf("invalid event id %q: %w", requeue, err)
		}
		// A missing entry is left to Requeue, which reports why.
		entry, err := repo.FindByEventID(ctx, id)
		if err != nil {
			return err
		}
		if err := repo.Requeue(ctx, id); err != nil {
			return err
		}
		if entry != nil {
			fmt.Fprintf(out, "requeued %s (%s, %s after %d attempts)\n", id, entry.EventType, entry.ErrorReason, entry.AttemptCount)
		} else {
			fmt.Fprintln(out, "requeued", id)
		}
	}
	if !list {
		return nil
	}
	rows, err := repo.Recent(ctx, dlqListLimit)
	if err != nil {
		return err
	}
	for _, row := range rows {
		msg := ""
		if row.ErrorMessage != nil {
			msg = *row.ErrorMessage
		}
		fmt.Fprintf(out, "%s\t%s\t%s\t%d\t%s\t%s\n", row.FailedAt.Format(time.RFC3339), row.EventID, row.EventType, row.AttemptCount, row.ErrorReason, msg)
	}
	return nil
}
