/*
store.go - Persistence interface for records and product roll-ups

PURPOSE:
  Defines the boundary between the write path and the document database.
  The database owns concurrency control: the write path never locks and
  never computes a roll-up value from a read.

KEY INTERFACES:
  Reader: Point reads (Get, Exists)
  Store:  Reader + single-document writes + atomic batches

WRITE SEMANTICS:
  - Create(): create-only. Fails with ErrDocumentExists if the key is taken.
    This is the source of truth for id uniqueness.
  - Update(): overwrites only the given fields of an existing document.
    Fails with ErrNotFound if the document is missing.
  - Commit(): applies every write of a Batch or none of them. Increments are
    added by the store itself, inside the commit.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite documents table
  - document/store/memory.go: In-memory for testing

SEE ALSO:
  - coordinator.go: Builds batches from a record + roll-up mutation
*/
package document

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// =============================================================================
// STORE
// =============================================================================

// Reader performs point reads.
type Reader interface {
	// Get returns a copy of the document. ErrNotFound if missing.
	Get(ctx context.Context, collection, id string) (Fields, error)

	// Exists reports whether a document is stored under collection/id.
	Exists(ctx context.Context, collection, id string) (bool, error)
}

// Store persists documents.
type Store interface {
	Reader

	// Create writes a new document. ErrDocumentExists if the key is taken.
	Create(ctx context.Context, collection, id string, fields Fields) error

	// Update overwrites the given fields of an existing document.
	Update(ctx context.Context, collection, id string, fields Fields) error

	// Commit applies all writes of the batch atomically.
	Commit(ctx context.Context, batch *Batch) error
}

// =============================================================================
// BATCH
// =============================================================================

type WriteOp string

const (
	OpCreate WriteOp = "create"
	OpUpdate WriteOp = "update"
)

// Write is one document mutation inside a Batch.
type Write struct {
	Op         WriteOp
	Collection string
	ID         string

	Fields     Fields
	Increments map[string]decimal.Decimal // OpUpdate only
	Sets       map[string]decimal.Decimal // OpUpdate only
}

// Batch is an ordered set of writes committed all-or-nothing.
type Batch struct {
	Writes []Write
}

func NewBatch() *Batch { return &Batch{} }

// Create queues a create-only write.
func (b *Batch) Create(collection, id string, fields Fields) *Batch {
	b.Writes = append(b.Writes, Write{Op: OpCreate, Collection: collection, ID: id, Fields: fields})
	return b
}

// Update queues a field overwrite of an existing document.
func (b *Batch) Update(collection, id string, fields Fields) *Batch {
	b.Writes = append(b.Writes, Write{Op: OpUpdate, Collection: collection, ID: id, Fields: fields})
	return b
}

// Apply queues a roll-up mutation as an update of the product document.
func (b *Batch) Apply(m *AggregateMutation) *Batch {
	b.Writes = append(b.Writes, Write{
		Op:         OpUpdate,
		Collection: m.Collection,
		ID:         m.ID,
		Increments: m.Increments,
		Sets:       m.Sets,
	})
	return b
}

// NumberValue is the stored form of a decimal: a JSON number that keeps the
// exact decimal text.
func NumberValue(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}
