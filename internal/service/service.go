// Package service holds the asset-tracking operations. Every operation takes
// the acting principal explicitly and checks its role before touching state.
package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/erazemk/assettrack/internal/events"
	"github.com/erazemk/assettrack/internal/model"
)

// BlobStore keeps uploaded images. *blob.Store implements it.
type BlobStore interface {
	Put(r io.Reader, ext string) (string, error)
	Open(key string) (io.ReadCloser, error)
	Delete(key string) error
}

// Service wires the store, event sink and blob storage together. Clock
// supplies "now" for every timestamp the service writes.
type Service struct {
	DB     *sql.DB
	Events events.Sink
	Blobs  BlobStore
	Clock  func() time.Time
	Logger *slog.Logger

	validate *validator.Validate
}

// New creates a service. A nil sink discards events.
func New(db *sql.DB, sink events.Sink, blobs BlobStore) *Service {
	if sink == nil {
		sink = events.Discard
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return &Service{
		DB:       db,
		Events:   sink,
		Blobs:    blobs,
		Clock:    time.Now,
		Logger:   slog.Default(),
		validate: v,
	}
}

func (s *Service) now() time.Time {
	return s.Clock().UTC()
}

func requireAdmin(p model.Principal) error {
	if !model.RoleAtLeast(p.Role, model.RoleAdmin) {
		return model.ErrForbidden
	}
	return nil
}

func requireUser(p model.Principal) error {
	if p.UserID == 0 || !model.RoleAtLeast(p.Role, model.RoleEmployee) {
		return model.ErrForbidden
	}
	return nil
}

// check validates struct tags and turns violations into a field-level
// validation error keyed by JSON field name.
func (s *Service) check(in any) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	return model.ValidationFailed(fields)
}

// outcome logs a failed mutation at a level matching its kind and returns err.
func (s *Service) outcome(op string, p model.Principal, err error) error {
	switch model.KindOf(err) {
	case model.KindInternal:
		s.Logger.Error(op+" failed", "actor", p.UserID, "error", err)
	default:
		s.Logger.Warn(op+" rejected", "actor", p.UserID, "reason", err.Error())
	}
	return err
}

// publish hands an event to the sink. The change it describes is already
// committed, so failures are only logged.
func (s *Service) publish(ctx context.Context, e events.Event) {
	defer func() {
		if r := recover(); r != nil {
			s.Logger.Error("event sink panicked", "event_id", e.ID, "panic", r)
		}
	}()
	if err := s.Events.Publish(context.WithoutCancel(ctx), e); err != nil {
		s.Logger.Warn("event delivery failed", "event_id", e.ID, "type", string(e.Type), "error", err)
	}
}

// discardBlob removes a stored image that is no longer referenced.
func (s *Service) discardBlob(key string) {
	if key == "" || s.Blobs == nil {
		return
	}
	if err := s.Blobs.Delete(key); err != nil {
		s.Logger.Warn("failed to delete image", "key", key, "error", err)
	}
}
