/*
pipeline.go - Record transform stages shared by Create and Update

STAGES:
  1. ResolveResource:          resource name -> collection handle
  2. CheckIdentifierAvailable: create with caller id only (advisory)
  3. Process:                  payload processor (coercion, uploads)
  4. Normalize:                drop "id" and transient fields, stamp audit
  5. TransformForStorage:      resource-specific storage shape

  Every stage returns a new Fields map. The caller's payload is never
  modified, so the map handed back to the caller and the map persisted
  cannot alias.

IDENTIFIER PRE-CHECK:
  CheckIdentifierAvailable is a read before the write, not a lock. Two
  concurrent creates with the same id can both pass it. The store's
  create-only write is what actually rejects the loser.
*/
package document

import (
	"context"
)

// =============================================================================
// COLLABORATORS
// =============================================================================

// ResourceResolver maps a resource name to its collection handle.
// Unknown names must yield *ResourceNotFoundError.
type ResourceResolver interface {
	Resolve(ctx context.Context, name string) (Resource, error)
}

// PayloadProcessor parses and uploads raw payload data.
type PayloadProcessor interface {
	Process(ctx context.Context, r Resource, id string, data Fields) (Fields, error)
}

// AuditStamper adds created-by/updated-by fields.
type AuditStamper interface {
	Stamp(ctx context.Context, fields Fields, mode Mode) (Fields, error)
}

// StorageTransformer shapes a record into its stored representation.
type StorageTransformer interface {
	ToStorage(resourceName string, fields Fields, id string) Fields
}

type passthroughProcessor struct{}

func (passthroughProcessor) Process(_ context.Context, _ Resource, _ string, data Fields) (Fields, error) {
	return data.Clone(), nil
}

type noAudit struct{}

func (noAudit) Stamp(_ context.Context, fields Fields, _ Mode) (Fields, error) {
	return fields.Clone(), nil
}

type identityTransformer struct{}

func (identityTransformer) ToStorage(_ string, fields Fields, _ string) Fields {
	return fields.Clone()
}

// =============================================================================
// PIPELINE
// =============================================================================

// Pipeline runs the transform stages.
type Pipeline struct {
	Reader      Reader
	Resolver    ResourceResolver
	Processor   PayloadProcessor
	Stamper     AuditStamper
	Transformer StorageTransformer
}

// ResolveResource looks up the collection handle for name.
func (p *Pipeline) ResolveResource(ctx context.Context, name string) (Resource, error) {
	if name == "" {
		return Resource{}, &ResourceNotFoundError{Resource: name}
	}
	return p.Resolver.Resolve(ctx, name)
}

// CheckIdentifierAvailable fails with *IdentifierConflictError when a
// document already exists under r/id.
func (p *Pipeline) CheckIdentifierAvailable(ctx context.Context, r Resource, id string) error {
	exists, err := p.Reader.Exists(ctx, r.Collection, id)
	if err != nil {
		return err
	}
	if exists {
		return &IdentifierConflictError{Resource: r.Name, ID: id}
	}
	return nil
}

// Process runs the payload processor on a copy of raw.
func (p *Pipeline) Process(ctx context.Context, r Resource, id string, raw Fields) (Fields, error) {
	return p.Processor.Process(ctx, r, id, raw.Clone())
}

// Normalize strips the identifier and transient fields, then stamps audit
// fields for mode.
func (p *Pipeline) Normalize(ctx context.Context, fields Fields, transient []string, mode Mode) (Fields, error) {
	out := stripIdentifierField(fields).Without(transient...)
	return p.Stamper.Stamp(ctx, out, mode)
}

// TransformForStorage shapes the record for its resource.
func (p *Pipeline) TransformForStorage(resourceName string, fields Fields, id string) Fields {
	return p.Transformer.ToStorage(resourceName, fields, id)
}

// stripIdentifierField keeps the id as document key only, never as a field.
func stripIdentifierField(fields Fields) Fields {
	return fields.Without(IDField)
}
