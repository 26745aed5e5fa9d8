package document

import (
	"context"
	"errors"
)

// WriteRequest is everything the coordinator needs for one operation.
type WriteRequest struct {
	Mode     Mode
	Resource Resource
	ID       string
	Doc      Fields // storage representation

	// Aggregate is nil for a plain write.
	Aggregate *AggregateMutation
}

// Coordinator decides between a single write and an atomic batch.
type Coordinator struct {
	Store Store
}

// Write persists req and returns the written representation plus "id".
// Exactly one commit round-trip is made.
func (c *Coordinator) Write(ctx context.Context, req WriteRequest) (Fields, error) {
	var err error
	if req.Aggregate == nil {
		err = c.writeSingle(ctx, req)
	} else {
		err = c.Store.Commit(ctx, c.batch(req))
	}
	if err != nil {
		if req.Mode == ModeCreate && errors.Is(err, ErrDocumentExists) {
			// Lost the race after the advisory pre-check.
			return nil, &IdentifierConflictError{Resource: req.Resource.Name, ID: req.ID}
		}
		return nil, err
	}
	return req.Doc.With(IDField, req.ID), nil
}

func (c *Coordinator) writeSingle(ctx context.Context, req WriteRequest) error {
	if req.Mode == ModeCreate {
		return c.Store.Create(ctx, req.Resource.Collection, req.ID, req.Doc)
	}
	return c.Store.Update(ctx, req.Resource.Collection, req.ID, req.Doc)
}

// batch queues the product update first, then the record.
func (c *Coordinator) batch(req WriteRequest) *Batch {
	b := NewBatch().Apply(req.Aggregate)
	if req.Mode == ModeCreate {
		return b.Create(req.Resource.Collection, req.ID, req.Doc)
	}
	return b.Update(req.Resource.Collection, req.ID, req.Doc)
}
