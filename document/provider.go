/*
provider.go - Create and Update entry points

CREATE:
  Start -> ResourceResolved -> [IdentifierChecked] -> Processed
        -> AggregateBuilt (tagged writes only) -> Written -> Done

  - Caller supplied data.id: the id must be free (advisory pre-check), and
    the write itself is create-only.
  - No data.id: a new id comes from the IDGenerator.

UPDATE:
  Start -> ResourceResolved -> Processed
        -> AggregateBuilt (tagged writes only, deltas + transient strip)
        -> Written -> Done

  - The id is mandatory and never generated.
  - No existence pre-check: a missing document fails in the store with
    ErrNotFound.

CONCURRENCY:
  Provider holds no mutable state. Any number of operations may run at once;
  the store serializes what it must.
*/
package document

import (
	"context"
	"encoding/json"

	"github.com/warp/stock-provider/logger"
)

// Deps are the capabilities a Provider is built from. Store and Resolver are
// required; the rest default to pass-through implementations.
type Deps struct {
	Store       Store
	Resolver    ResourceResolver
	Processor   PayloadProcessor
	Stamper     AuditStamper
	Transformer StorageTransformer
	IDs         IDGenerator
	Log         *logger.Logger
}

// Provider serves create/update/read calls from the admin UI.
type Provider struct {
	store    Store
	pipeline *Pipeline
	writer   *Coordinator
	ids      IDGenerator
	log      *logger.Logger
}

func NewProvider(d Deps) *Provider {
	if d.Processor == nil {
		d.Processor = passthroughProcessor{}
	}
	if d.Stamper == nil {
		d.Stamper = noAudit{}
	}
	if d.Transformer == nil {
		d.Transformer = identityTransformer{}
	}
	if d.IDs == nil {
		d.IDs = UUIDGenerator{}
	}
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	return &Provider{
		store: d.Store,
		pipeline: &Pipeline{
			Reader:      d.Store,
			Resolver:    d.Resolver,
			Processor:   d.Processor,
			Stamper:     d.Stamper,
			Transformer: d.Transformer,
		},
		writer: &Coordinator{Store: d.Store},
		ids:    d.IDs,
		log:    d.Log,
	}
}

// Create writes a new record, adjusting the product roll-up when params.Meta
// names a workflow.
func (p *Provider) Create(ctx context.Context, resourceName string, params CreateParams) (Result, error) {
	kind, tagged, err := params.Meta.Workflow()
	if err != nil {
		return Result{}, err
	}
	r, err := p.pipeline.ResolveResource(ctx, resourceName)
	if err != nil {
		return Result{}, err
	}
	log := p.log.With("op", "create", "resource", resourceName, "collection", r.Collection)

	id := callerID(params.Data[IDField])
	if id != "" {
		log.Debug("caller supplied id", "id", id)
		if err := p.pipeline.CheckIdentifierAvailable(ctx, r, id); err != nil {
			return Result{}, err
		}
	} else {
		id = p.ids.NewID()
	}

	return p.write(ctx, log, ModeCreate, r, id, params.Data, kind, tagged)
}

// Update overwrites the provided fields of an existing record, adjusting the
// product roll-up by the previous -> current delta when params.Meta names a
// workflow.
func (p *Provider) Update(ctx context.Context, resourceName string, params UpdateParams) (Result, error) {
	id := FormatID(params.ID)
	if id == "" {
		return Result{}, &ValidationError{Field: IDField, Reason: "required for update"}
	}
	kind, tagged, err := params.Meta.Workflow()
	if err != nil {
		return Result{}, err
	}
	r, err := p.pipeline.ResolveResource(ctx, resourceName)
	if err != nil {
		return Result{}, err
	}
	log := p.log.With("op", "update", "resource", resourceName, "collection", r.Collection)

	return p.write(ctx, log, ModeUpdate, r, id, params.Data.Without(IDField), kind, tagged)
}

// GetOne reads a record back in the same shape Create and Update return.
func (p *Provider) GetOne(ctx context.Context, resourceName string, id any) (Result, error) {
	key := FormatID(id)
	if key == "" {
		return Result{}, &ValidationError{Field: IDField, Reason: "required"}
	}
	r, err := p.pipeline.ResolveResource(ctx, resourceName)
	if err != nil {
		return Result{}, err
	}
	fields, err := p.store.Get(ctx, r.Collection, key)
	if err != nil {
		return Result{}, err
	}
	return Result{Data: fields.With(IDField, key)}, nil
}

func (p *Provider) write(ctx context.Context, log *logger.Logger, mode Mode, r Resource, id string, raw Fields, kind WorkflowKind, tagged bool) (Result, error) {
	data, err := p.pipeline.Process(ctx, r, id, raw)
	if err != nil {
		return Result{}, err
	}

	var (
		agg       *AggregateMutation
		transient []string
	)
	if tagged {
		agg, transient, err = BuildAggregate(kind, data, mode)
		if err != nil {
			return Result{}, err
		}
		log.Debug("aggregate built", "workflow", kind, "product", agg.ID,
			"increments", agg.Increments, "sets", agg.Sets)
	}

	doc, err := p.pipeline.Normalize(ctx, data, transient, mode)
	if err != nil {
		return Result{}, err
	}
	stored := p.pipeline.TransformForStorage(r.Name, doc, id)

	written, err := p.writer.Write(ctx, WriteRequest{
		Mode:      mode,
		Resource:  r,
		ID:        id,
		Doc:       stored,
		Aggregate: agg,
	})
	if err != nil {
		log.Debug("write failed", "id", id, "error", err)
		return Result{}, err
	}
	log.Debug("written", "id", id, "batched", agg != nil)
	return Result{Data: written}, nil
}

// callerID reads the id a create call supplies. A zero number or false
// counts as no id, so one is generated.
func callerID(v any) string {
	switch t := v.(type) {
	case bool:
		if !t {
			return ""
		}
	case int, int32, int64, float32, float64, json.Number:
		if d, err := ToDecimal(t); err == nil && d.IsZero() {
			return ""
		}
	}
	return FormatID(v)
}
