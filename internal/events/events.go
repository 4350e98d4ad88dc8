// Package events carries ledger notifications from the service layer to
// whoever is listening: the log, admin dashboards, or nothing at all.
package events

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/assettrack/internal/model"
)

// Type names a domain event.
type Type string

// Event types.
const (
	AssetAssigned Type = "asset_assigned"
	AssetReturned Type = "asset_returned"
)

// Event describes one committed change to the assignment ledger.
type Event struct {
	ID           string    `json:"id"`
	Type         Type      `json:"type"`
	AssignmentID int64     `json:"assignment_id"`
	AssetID      int64     `json:"asset_id"`
	AssetName    string    `json:"asset_name"`
	SerialNumber string    `json:"serial_number"`
	HolderID     int64     `json:"holder_id"`
	HolderName   string    `json:"holder_name"`
	ActorID      int64     `json:"actor_id"`
	Status       string    `json:"status"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// FromAssignment builds an event for a ledger entry. Assigned events carry
// the assigned status, returned events the available status.
func FromAssignment(t Type, a *model.Assignment, actorID int64, at time.Time) Event {
	status := model.AssetStatusAssigned
	if t == AssetReturned {
		status = model.AssetStatusAvailable
	}
	return Event{
		ID:           uuid.NewString(),
		Type:         t,
		AssignmentID: a.ID,
		AssetID:      a.AssetID,
		AssetName:    a.AssetName,
		SerialNumber: a.SerialNumber,
		HolderID:     a.UserID,
		HolderName:   a.UserName,
		ActorID:      actorID,
		Status:       status,
		OccurredAt:   at,
	}
}

// Sink receives events after the change they describe has been committed.
// Publish must not block for long; a returned error is logged by the caller
// and otherwise ignored.
type Sink interface {
	Publish(ctx context.Context, e Event) error
}

// Discard drops every event.
var Discard Sink = discard{}

type discard struct{}

func (discard) Publish(context.Context, Event) error { return nil }

// LogSink writes every event to a structured logger.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Publish(ctx context.Context, e Event) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "ledger event",
		"event_id", e.ID,
		"type", string(e.Type),
		"assignment_id", e.AssignmentID,
		"asset_id", e.AssetID,
		"asset", e.AssetName,
		"holder", e.HolderName,
		"status", e.Status,
	)
	return nil
}

// Fanout publishes to every sink and reports all failures together. One
// failing sink does not stop delivery to the rest.
type Fanout []Sink

func (f Fanout) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, s := range f {
		if err := s.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
