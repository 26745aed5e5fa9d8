// Package audit stamps created-by/updated-by fields on records.
package audit

import (
	"context"
	"time"

	"github.com/warp/stock-provider/document"
)

var _ document.AuditStamper = (*Stamper)(nil)

// Field names written by the stamper.
const (
	FieldCreatedAt = "createdate"
	FieldCreatedBy = "createdby"
	FieldUpdatedAt = "lastupdate"
	FieldUpdatedBy = "updatedby"
)

// SystemActor is used when the context carries no actor.
const SystemActor = "system"

type actorKey struct{}

// WithActor returns a context carrying the acting user's id.
func WithActor(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, actorKey{}, actorID)
}

// ActorFrom returns the acting user's id, or SystemActor.
func ActorFrom(ctx context.Context) string {
	if id, ok := ctx.Value(actorKey{}).(string); ok && id != "" {
		return id
	}
	return SystemActor
}

// Stamper adds audit fields. Create stamps both the created and updated
// pairs; update only the updated pair.
type Stamper struct {
	Now func() time.Time
}

func NewStamper() *Stamper {
	return &Stamper{Now: time.Now}
}

func (s *Stamper) Stamp(ctx context.Context, fields document.Fields, mode document.Mode) (document.Fields, error) {
	now := s.Now().UTC()
	actor := ActorFrom(ctx)

	out := fields.Clone()
	if mode == document.ModeCreate {
		out[FieldCreatedAt] = now
		out[FieldCreatedBy] = actor
	}
	out[FieldUpdatedAt] = now
	out[FieldUpdatedBy] = actor
	return out, nil
}
