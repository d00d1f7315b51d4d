package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/cyberedpro/cybered/pkg/observability"
)

// Table is the gateway's response cache.
//
// All methods are safe for concurrent use. In-memory reads and writes of a
// slot happen under one lock, so a concurrent reader observes either a fresh
// entry or a miss, never a half-written one. Mirror I/O runs outside the
// lock; a generation counter keeps a mirror read or write that raced with an
// invalidation from resurrecting the cleared entry.
//
// Entries belong to the scope carried by the operation's context (see
// [WithScope]). Memory holds one scope at a time and mirror keys are
// prefixed with the scope.
type Table struct {
	mu      sync.Mutex
	routes  []Route
	rules   []Invalidation
	entries map[Slot]map[string]*Entry
	scope   string
	gen     uint64
	cleared map[Slot]uint64
	reset   uint64
	mirror  Cache
	now     func() time.Time
	logger  *log.Logger
}

// Option configures a Table.
type Option func(*Table)

// WithRoutes replaces the routing table.
func WithRoutes(routes []Route) Option {
	return func(t *Table) { t.routes = routes }
}

// WithInvalidations replaces the invalidation table.
func WithInvalidations(rules []Invalidation) Option {
	return func(t *Table) { t.rules = rules }
}

// WithMirror mirrors entries into c. Nil keeps the default [NullCache].
func WithMirror(c Cache) Option {
	return func(t *Table) {
		if c != nil {
			t.mirror = c
		}
	}
}

// WithClock sets the time source used for timestamps and freshness.
func WithClock(now func() time.Time) Option {
	return func(t *Table) { t.now = now }
}

// WithLogger sets the logger for debug events and mirror failures.
func WithLogger(l *log.Logger) Option {
	return func(t *Table) {
		if l != nil {
			t.logger = l
		}
	}
}

// NewTable creates an empty table with the default routes, TTLs and
// invalidation rules.
func NewTable(opts ...Option) *Table {
	t := &Table{
		routes:  DefaultRoutes(DefaultTTLs()),
		rules:   DefaultInvalidations(),
		entries: make(map[Slot]map[string]*Entry),
		scope:   AnonymousScope,
		cleared: make(map[Slot]uint64),
		mirror:  NewNullCache(),
		now:     time.Now,
		logger:  log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Route returns the route an endpoint is cached under and its id.
// ok is false for endpoints that are never cached.
func (t *Table) Route(endpoint string) (r Route, id string, ok bool) {
	for _, r := range t.routes {
		if id, ok := r.Match(endpoint); ok {
			return r, id, true
		}
	}
	return Route{}, "", false
}

// Lookup returns the cached data for endpoint if its slot holds a fresh
// entry. It never returns stale data.
func (t *Table) Lookup(ctx context.Context, endpoint string) (json.RawMessage, bool) {
	r, id, ok := t.Route(endpoint)
	if !ok {
		return nil, false
	}
	scope := scopeFrom(ctx)

	t.mu.Lock()
	t.enter(scope)
	now := t.now()
	if e := t.entries[r.Slot][id]; e != nil {
		if e.Fresh(now) {
			data := bytes.Clone(e.Data)
			t.mu.Unlock()
			observability.Cache().OnCacheHit(ctx, string(r.Slot))
			t.logger.Debug("cache hit", "slot", r.Slot, "id", id, "age", e.Age(now).Round(time.Millisecond))
			return data, true
		}
		delete(t.entries[r.Slot], id)
	}
	gen := t.gen
	t.mu.Unlock()

	e := t.loadMirror(ctx, mirrorKey(scope, r.Slot, id), r.TTL, now)
	if e != nil {
		t.mu.Lock()
		switch cur := t.entries[r.Slot][id]; {
		case t.scope != scope || t.staleSince(r.Slot, gen):
			e = nil
		case cur != nil && !cur.Timestamp.Before(e.Timestamp):
			e = cur
		default:
			t.put(r.Slot, id, e)
		}
		t.mu.Unlock()
	}
	if e != nil {
		observability.Cache().OnCacheHit(ctx, string(r.Slot))
		t.logger.Debug("cache hit (mirror)", "slot", r.Slot, "id", id)
		return bytes.Clone(e.Data), true
	}

	observability.Cache().OnCacheMiss(ctx, string(r.Slot))
	t.logger.Debug("cache miss", "slot", r.Slot, "id", id)
	return nil, false
}

// Store records data as the response for endpoint, timestamped now.
// It reports whether anything was stored: endpoints matching no route and
// null data are ignored.
func (t *Table) Store(ctx context.Context, endpoint string, data json.RawMessage) bool {
	r, id, ok := t.Route(endpoint)
	if !ok || isNull(data) {
		return false
	}
	scope := scopeFrom(ctx)

	t.mu.Lock()
	t.enter(scope)
	e := &Entry{Data: bytes.Clone(data), Timestamp: t.now(), TTL: r.TTL}
	t.put(r.Slot, id, e)
	gen := t.gen
	t.mu.Unlock()

	key := mirrorKey(scope, r.Slot, id)
	t.saveMirror(ctx, key, e)

	// An invalidation that ran while the mirror write was in flight may have
	// deleted the key before the write landed.
	t.mu.Lock()
	raced := t.staleSince(r.Slot, gen)
	t.mu.Unlock()
	if raced {
		t.deleteMirror(ctx, key)
	}

	observability.Cache().OnCacheSet(ctx, string(r.Slot), len(data))
	t.logger.Debug("cache store", "slot", r.Slot, "id", id, "bytes", len(data))
	return true
}

// Invalidate clears the slots a successful write to endpoint affects and
// returns the cleared slots. Mirror entries of other scopes are left to
// expire by TTL.
func (t *Table) Invalidate(ctx context.Context, endpoint string) []Slot {
	scope := scopeFrom(ctx)

	t.mu.Lock()
	t.enter(scope)
	var (
		cleared []Slot
		keys    []string
	)
	for _, rule := range t.rules {
		if !rule.Applies(endpoint) {
			continue
		}
		for _, slot := range rule.Slots {
			keys = append(keys, t.clearSlot(scope, slot)...)
			cleared = append(cleared, slot)
		}
		if rule.Item == nil {
			continue
		}
		if id, ok := rule.Item(endpoint); ok {
			keys = append(keys, t.clearItem(scope, rule.ItemSlot, id))
			cleared = append(cleared, rule.ItemSlot)
		}
	}
	if len(cleared) > 0 {
		t.gen++
		for _, slot := range cleared {
			t.cleared[slot] = t.gen
		}
	}
	t.mu.Unlock()

	for _, key := range keys {
		t.deleteMirror(ctx, key)
	}
	for _, slot := range cleared {
		observability.Cache().OnCacheInvalidate(ctx, string(slot))
	}
	if len(cleared) > 0 {
		t.logger.Debug("cache invalidate", "endpoint", endpoint, "slots", cleared)
	}
	return cleared
}

// InvalidateAll clears every slot, including every id-keyed entry, and the
// mirror across all scopes. The in-memory table is always cleared; the
// returned error reports a mirror failure.
func (t *Table) InvalidateAll(ctx context.Context) error {
	t.mu.Lock()
	t.dropAll()
	t.mu.Unlock()

	observability.Cache().OnCacheInvalidate(ctx, "*")
	t.logger.Debug("cache invalidate all")
	return t.mirror.Clear(ctx)
}

// SlotState describes one occupied cache entry.
type SlotState struct {
	Slot      Slot
	ID        string
	Timestamp time.Time
	TTL       time.Duration
	Size      int
	Fresh     bool
}

// Snapshot lists the occupied in-memory entries sorted by slot and id.
func (t *Table) Snapshot() []SlotState {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	var out []SlotState
	for slot, items := range t.entries {
		for id, e := range items {
			out = append(out, SlotState{
				Slot:      slot,
				ID:        id,
				Timestamp: e.Timestamp,
				TTL:       e.TTL,
				Size:      len(e.Data),
				Fresh:     e.Fresh(now),
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Slot != out[j].Slot {
			return out[i].Slot < out[j].Slot
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (t *Table) put(slot Slot, id string, e *Entry) {
	items := t.entries[slot]
	if items == nil {
		items = make(map[string]*Entry)
		t.entries[slot] = items
	}
	items[id] = e
}

// enter switches the table to scope, dropping entries held for another.
// Callers hold t.mu.
func (t *Table) enter(scope string) {
	if scope == t.scope {
		return
	}
	t.logger.Debug("cache scope changed", "from", t.scope, "to", scope)
	t.entries = make(map[Slot]map[string]*Entry)
	t.scope = scope
}

// dropAll empties memory and makes every in-flight mirror read or write
// stale. Callers hold t.mu.
func (t *Table) dropAll() {
	t.entries = make(map[Slot]map[string]*Entry)
	t.gen++
	t.reset = t.gen
}

// staleSince reports whether slot was cleared after generation gen.
// Callers hold t.mu.
func (t *Table) staleSince(slot Slot, gen uint64) bool {
	return t.reset > gen || t.cleared[slot] > gen
}

// clearSlot drops slot from memory and returns the mirror keys to delete.
func (t *Table) clearSlot(scope string, slot Slot) []string {
	items := t.entries[slot]
	delete(t.entries, slot)
	if len(items) == 0 {
		return []string{mirrorKey(scope, slot, "")}
	}
	keys := make([]string, 0, len(items))
	for id := range items {
		keys = append(keys, mirrorKey(scope, slot, id))
	}
	return keys
}

func (t *Table) clearItem(scope string, slot Slot, id string) string {
	delete(t.entries[slot], id)
	return mirrorKey(scope, slot, id)
}

// mirrorKey is "<scope>/<slot>" for singletons and "<scope>/<slot>:<id>" for
// keyed entries.
func mirrorKey(scope string, slot Slot, id string) string {
	key := scope + "/" + string(slot)
	if id == "" {
		return key
	}
	return key + ":" + id
}

func (t *Table) loadMirror(ctx context.Context, key string, ttl time.Duration, now time.Time) *Entry {
	data, ok, err := t.mirror.Get(ctx, key)
	if err != nil {
		t.logger.Warn("cache mirror read failed", "key", key, "err", err)
		return nil
	}
	if !ok {
		return nil
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		t.logger.Warn("cache mirror entry corrupt", "key", key, "err", err)
		t.deleteMirror(ctx, key)
		return nil
	}
	e.TTL = ttl
	if !e.Fresh(now) {
		return nil
	}
	return &e
}

func (t *Table) saveMirror(ctx context.Context, key string, e *Entry) {
	data, err := json.Marshal(e)
	if err != nil {
		t.logger.Warn("cache mirror encode failed", "key", key, "err", err)
		return
	}
	if err := t.mirror.Set(ctx, key, data, e.TTL); err != nil {
		t.logger.Warn("cache mirror write failed", "key", key, "err", err)
	}
}

func (t *Table) deleteMirror(ctx context.Context, key string) {
	if err := t.mirror.Delete(ctx, key); err != nil {
		t.logger.Warn("cache mirror delete failed", "key", key, "err", err)
	}
}
