// Package store provides an in-memory document.Store.
package store

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/warp/stock-provider/document"
)

var _ document.Store = (*Memory)(nil)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	collections map[string]map[string]document.Fields
	commits     int
}

func NewMemory() *Memory {
	return &Memory{collections: make(map[string]map[string]document.Fields)}
}

func (m *Memory) Get(_ context.Context, collection, id string) (document.Fields, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.collections[collection][id]
	if !ok {
		return nil, document.ErrNotFound
	}
	return doc.Clone(), nil
}

func (m *Memory) Exists(_ context.Context, collection, id string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.collections[collection][id]
	return ok, nil
}

// Create adds a document. Fails if the key is taken.
func (m *Memory) Create(_ context.Context, collection, id string, fields document.Fields) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.commits++
	return m.createLocked(collection, id, fields)
}

// Update overwrites the given fields. Fails if the document is missing.
func (m *Memory) Update(_ context.Context, collection, id string, fields document.Fields) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.commits++
	return m.updateLocked(document.Write{Op: document.OpUpdate, Collection: collection, ID: id, Fields: fields})
}

// Commit applies the batch atomically: on any failure the pre-commit state
// is restored.
func (m *Memory) Commit(_ context.Context, batch *document.Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.commits++
	snapshot := m.snapshot()
	for _, w := range batch.Writes {
		var err error
		switch w.Op {
		case document.OpCreate:
			err = m.createLocked(w.Collection, w.ID, w.Fields)
		case document.OpUpdate:
			err = m.updateLocked(w)
		default:
			err = &document.StorageError{Op: "commit", Err: errUnknownOp(w.Op)}
		}
		if err != nil {
			m.collections = snapshot
			return err
		}
	}
	return nil
}

// Put seeds a document unconditionally. Test and scenario setup only.
func (m *Memory) Put(collection, id string, fields document.Fields) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collectionLocked(collection)[id] = fields.Clone()
}

// Commits counts write round-trips (single writes and batches).
func (m *Memory) Commits() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.commits
}

func (m *Memory) createLocked(collection, id string, fields document.Fields) error {
	c := m.collectionLocked(collection)
	if _, ok := c[id]; ok {
		return document.ErrDocumentExists
	}
	c[id] = fields.Clone()
	return nil
}

func (m *Memory) updateLocked(w document.Write) error {
	c := m.collectionLocked(w.Collection)
	existing, ok := c[w.ID]
	if !ok {
		return document.ErrNotFound
	}
	next := existing.Clone()
	for k, v := range w.Fields {
		next[k] = v
	}
	for k, inc := range w.Increments {
		next[k] = document.NumberValue(currentNumber(next[k]).Add(inc))
	}
	for k, v := range w.Sets {
		next[k] = document.NumberValue(v)
	}
	c[w.ID] = next
	return nil
}

func (m *Memory) collectionLocked(name string) map[string]document.Fields {
	c, ok := m.collections[name]
	if !ok {
		c = make(map[string]document.Fields)
		m.collections[name] = c
	}
	return c
}

func (m *Memory) snapshot() map[string]map[string]document.Fields {
	out := make(map[string]map[string]document.Fields, len(m.collections))
	for name, c := range m.collections {
		cp := make(map[string]document.Fields, len(c))
		for id, doc := range c {
			cp[id] = doc
		}
		out[name] = cp
	}
	return out
}

// currentNumber reads the value an increment starts from. Missing or
// non-numeric values count as zero, so the increment sets the field.
func currentNumber(v any) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	d, err := document.ToDecimal(v)
	if err != nil {
		return decimal.Zero
	}
	return d
}

type errUnknownOp document.WriteOp

func (e errUnknownOp) Error() string { return "unknown write op " + string(e) }
