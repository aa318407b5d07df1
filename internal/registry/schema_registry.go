package registry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/rzpsarthak13/dynatable/internal/core"
	"github.com/rzpsarthak13/dynatable/internal/schema"
)

const (
	defaultSweepConcurrency = 4
	syncBatchSize           = 100
)

// Options configures a SchemaRegistry. Every field is optional.
type Options struct {
	// Store is the shared L2 schema cache.
	Store core.KVStore

	// Events distributes schema changes to other registries.
	Events core.EventQueue

	// Namespace prefixes L2 keys.
	Namespace string

	// CacheTTL bounds how long a schema stays in L2. Zero means no expiry.
	CacheTTL time.Duration

	// Concurrency bounds the catalog probes EvictStale runs at once.
	Concurrency int

	// Rate limits EvictStale catalog probes per second. Zero means unlimited.
	Rate float64

	Logger *slog.Logger
}

// entry is one cached table. Its mutex serializes every resolve, create and
// drop of that table within the registry.
type entry struct {
	mu     sync.Mutex
	schema *core.TableSchema
}

// SchemaRegistry is an instance-scoped cache from table name to TableSchema.
// A schema is cached only while the physical table exists, and every Resolve
// re-checks existence before trusting the cache.
type SchemaRegistry struct {
	id        string
	lifecycle *LifecycleManager
	reflector *Reflector
	store     core.KVStore
	events    core.EventQueue
	keys      *KeyBuilder
	ttl       time.Duration

	concurrency int
	limiter     *rate.Limiter
	logger      *slog.Logger

	mu      sync.Mutex
	entries map[string]*entry
}

// NewSchemaRegistry creates a registry on db.
func NewSchemaRegistry(db core.Database, opts Options) *SchemaRegistry {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultSweepConcurrency
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.Rate > 0 {
		burst := int(opts.Rate)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.Rate), burst)
	}

	id := uuid.NewString()
	logger = logger.With(slog.String("registry", id))
	return &SchemaRegistry{
		id:          id,
		lifecycle:   NewLifecycleManager(db, logger),
		reflector:   NewReflector(db, logger),
		store:       opts.Store,
		events:      opts.Events,
		keys:        NewKeyBuilder(opts.Namespace),
		ttl:         opts.CacheTTL,
		concurrency: concurrency,
		limiter:     limiter,
		logger:      logger,
		entries:     make(map[string]*entry),
	}
}

// ID returns the instance id stamped on published events.
func (r *SchemaRegistry) ID() string {
	return r.id
}

// Lifecycle returns the lifecycle manager, for registering hooks.
func (r *SchemaRegistry) Lifecycle() *LifecycleManager {
	return r.lifecycle
}

// TableExists asks the catalog directly.
func (r *SchemaRegistry) TableExists(ctx context.Context, name string) (bool, error) {
	return r.lifecycle.TableExists(ctx, name)
}

func (r *SchemaRegistry) entryFor(name string) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[name]
	if !ok {
		e = &entry{}
		r.entries[name] = e
	}
	return e
}

// Resolve returns the schema of name.
//
//  1. cached and the table exists: the cached schema
//  2. the table exists: the shared L2 copy if its columns match the table, or
//     a fresh reflection
//  3. columns were given: the table is created
//  4. otherwise TableNotFoundError, and any stale local or shared entry is dropped
//
// Step 3 races with concurrent creators in other processes; the loser gets
// TableAlreadyExistsError.
func (r *SchemaRegistry) Resolve(ctx context.Context, name string, columns []core.ColumnDef) (*core.TableSchema, error) {
	ts, created, err := r.resolve(ctx, name, columns)
	if err != nil {
		return nil, err
	}
	if created {
		r.lifecycle.notifyCreate(ctx, ts)
	}
	return ts, nil
}

func (r *SchemaRegistry) resolve(ctx context.Context, name string, columns []core.ColumnDef) (*core.TableSchema, bool, error) {
	e := r.entryFor(name)
	e.mu.Lock()
	defer e.mu.Unlock()

	exists, err := r.lifecycle.TableExists(ctx, name)
	if err != nil {
		return nil, false, err
	}

	if exists {
		if e.schema != nil {
			return e.schema.Clone(), false, nil
		}
		ts, err := r.loadShared(ctx, name)
		if err != nil {
			return nil, false, err
		}
		if ts == nil {
			ts, err = r.reflector.Reflect(ctx, name)
			if err != nil {
				return nil, false, err
			}
			r.storeShared(ctx, ts)
		}
		e.schema = ts
		r.logger.Debug("schema cached", slog.String("table", name))
		return ts.Clone(), false, nil
	}

	if e.schema != nil {
		r.logger.Info("dropping stale schema", slog.String("table", name))
		e.schema = nil
	}
	r.deleteShared(ctx, name)
	if columns == nil {
		return nil, false, &core.TableNotFoundError{Table: name}
	}
	ts, err := r.createLocked(ctx, e, name, columns)
	if err != nil {
		return nil, false, err
	}
	return ts, true, nil
}

// CreateTable creates the table and caches its schema. It fails if the table exists.
func (r *SchemaRegistry) CreateTable(ctx context.Context, name string, columns []core.ColumnDef) (*core.TableSchema, error) {
	ts, err := r.create(ctx, name, columns)
	if err != nil {
		return nil, err
	}
	r.lifecycle.notifyCreate(ctx, ts)
	return ts, nil
}

func (r *SchemaRegistry) create(ctx context.Context, name string, columns []core.ColumnDef) (*core.TableSchema, error) {
	e := r.entryFor(name)
	e.mu.Lock()
	defer e.mu.Unlock()
	return r.createLocked(ctx, e, name, columns)
}

func (r *SchemaRegistry) createLocked(ctx context.Context, e *entry, name string, columns []core.ColumnDef) (*core.TableSchema, error) {
	ts, err := r.lifecycle.createTable(ctx, name, columns)
	if err != nil {
		return nil, err
	}
	e.schema = ts
	r.storeShared(ctx, ts)
	r.publish(ctx, name, core.EventCreated)
	return ts.Clone(), nil
}

// DropTable drops the table and invalidates its entry.
func (r *SchemaRegistry) DropTable(ctx context.Context, name string) (bool, error) {
	dropped, err := r.drop(ctx, name)
	if err != nil {
		return false, err
	}
	r.lifecycle.notifyDrop(ctx, name)
	return dropped, nil
}

func (r *SchemaRegistry) drop(ctx context.Context, name string) (bool, error) {
	e := r.entryFor(name)
	e.mu.Lock()
	defer e.mu.Unlock()

	dropped, err := r.lifecycle.dropTable(ctx, name)
	if err != nil {
		if errors.Is(err, core.ErrTableNotFound) {
			e.schema = nil
			r.deleteShared(ctx, name)
		}
		return false, err
	}
	e.schema = nil
	r.deleteShared(ctx, name)
	r.publish(ctx, name, core.EventDropped)
	return dropped, nil
}

// Invalidate forgets the local entry for name. The shared copy is kept.
func (r *SchemaRegistry) Invalidate(name string) {
	r.mu.Lock()
	e, ok := r.entries[name]
	r.mu.Unlock()
	if !ok {
		return
	}
	e.mu.Lock()
	e.schema = nil
	e.mu.Unlock()
}

// Forget drops the local entry and the shared copy of name and tells other
// registries to do the same. The table itself is left alone.
func (r *SchemaRegistry) Forget(ctx context.Context, name string) {
	e := r.entryFor(name)
	e.mu.Lock()
	defer e.mu.Unlock()

	e.schema = nil
	r.deleteShared(ctx, name)
	r.publish(ctx, name, core.EventEvicted)
}

// Lookup returns the cached schema without touching storage.
func (r *SchemaRegistry) Lookup(name string) (*core.TableSchema, bool) {
	r.mu.Lock()
	e, ok := r.entries[name]
	r.mu.Unlock()
	if !ok {
		return nil, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.schema == nil {
		return nil, false
	}
	return e.schema.Clone(), true
}

// Cached returns the sorted names of cached tables.
func (r *SchemaRegistry) Cached() []string {
	r.mu.Lock()
	entries := make(map[string]*entry, len(r.entries))
	for name, e := range r.entries {
		entries[name] = e
	}
	r.mu.Unlock()

	names := make([]string, 0, len(entries))
	for name, e := range entries {
		e.mu.Lock()
		if e.schema != nil {
			names = append(names, name)
		}
		e.mu.Unlock()
	}
	sort.Strings(names)
	return names
}

// EvictStale probes the catalog for every cached table and evicts the entries
// whose table is gone. It returns the sorted evicted names.
func (r *SchemaRegistry) EvictStale(ctx context.Context) ([]string, error) {
	names := r.Cached()

	var (
		mu      sync.Mutex
		evicted []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for _, name := range names {
		name := name
		g.Go(func() error {
			if err := r.limiter.Wait(gctx); err != nil {
				return err
			}
			ok, err := r.evictIfGone(gctx, name)
			if err != nil {
				return err
			}
			if ok {
				mu.Lock()
				evicted = append(evicted, name)
				mu.Unlock()
			}
			return nil
		})
	}
	err := g.Wait()

	sort.Strings(evicted)
	if len(evicted) > 0 {
		r.logger.Info("evicted stale schemas", slog.Int("count", len(evicted)), slog.Any("tables", evicted))
	}
	return evicted, err
}

func (r *SchemaRegistry) evictIfGone(ctx context.Context, name string) (bool, error) {
	e := r.entryFor(name)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.schema == nil {
		return false, nil
	}

	exists, err := r.lifecycle.TableExists(ctx, name)
	if err != nil || exists {
		return false, err
	}
	e.schema = nil
	r.deleteShared(ctx, name)
	r.publish(ctx, name, core.EventEvicted)
	return true, nil
}

// SyncEvents applies one batch of events published by other registries and
// returns how many entries it invalidated. Without an event queue it is a no-op.
func (r *SchemaRegistry) SyncEvents(ctx context.Context) (int, error) {
	if r.events == nil {
		return 0, nil
	}
	batch, err := r.events.Poll(ctx, syncBatchSize)
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, event := range batch {
		if event.Source == r.id {
			continue
		}
		r.Invalidate(event.Table)
		applied++
		r.logger.Debug("schema event applied",
			slog.String("table", event.Table),
			slog.String("kind", string(event.Kind)),
			slog.String("source", event.Source))
	}
	return applied, nil
}

func (r *SchemaRegistry) publish(ctx context.Context, table string, kind core.SchemaEventKind) {
	if r.events == nil {
		return
	}
	event := &core.SchemaEvent{Table: table, Kind: kind, Source: r.id}
	if err := r.events.Publish(ctx, event); err != nil {
		r.logger.Warn("failed to publish schema event",
			slog.String("table", table),
			slog.String("kind", string(kind)),
			slog.Any("error", err))
	}
}

// loadShared returns the L2 copy of name, or nil when there is none or when
// its columns no longer match the physical table.
func (r *SchemaRegistry) loadShared(ctx context.Context, name string) (*core.TableSchema, error) {
	if r.store == nil {
		return nil, nil
	}
	data, err := r.store.Get(ctx, r.keys.Schema(name))
	if err != nil {
		if !errors.Is(err, core.ErrKeyNotFound) {
			r.logger.Warn("schema cache read failed", slog.String("table", name), slog.Any("error", err))
		}
		return nil, nil
	}
	ts, err := schema.DecodeSchema(data)
	if err != nil || ts.Name != name {
		r.logger.Warn("ignoring malformed cached schema", slog.String("table", name), slog.Any("error", err))
		return nil, nil
	}
	same, err := r.reflector.SameColumns(ctx, ts)
	if err != nil {
		return nil, err
	}
	if !same {
		r.logger.Info("ignoring outdated cached schema", slog.String("table", name))
		return nil, nil
	}
	r.logger.Debug("schema loaded from shared cache", slog.String("table", name))
	return ts, nil
}

func (r *SchemaRegistry) storeShared(ctx context.Context, ts *core.TableSchema) {
	if r.store == nil {
		return
	}
	data, err := schema.EncodeSchema(ts)
	if err == nil {
		err = r.store.Set(ctx, r.keys.Schema(ts.Name), data, r.ttl)
	}
	if err != nil {
		r.logger.Warn("schema cache write failed", slog.String("table", ts.Name), slog.Any("error", err))
	}
}

func (r *SchemaRegistry) deleteShared(ctx context.Context, name string) {
	if r.store == nil {
		return
	}
	if err := r.store.Delete(ctx, r.keys.Schema(name)); err != nil {
		r.logger.Warn("schema cache delete failed", slog.String("table", name), slog.Any("error", err))
	}
}
