package fields

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/fieldlens/fieldlens/geometry"
	"github.com/fieldlens/fieldlens/observability"
)

// Review holds one review's field set together with its change tracking:
// value edits mark a field dirty until saved, region edits persist
// immediately through the store.
type Review struct {
	store Store
	id    string
	log   observability.Logger

	mu     sync.Mutex
	fields []Field
	index  map[string]int
	dirty  map[string]bool
}

// ReviewOption configures a Review.
type ReviewOption func(*Review)

// WithLogger attaches a logger.
func WithLogger(l observability.Logger) ReviewOption {
	return func(r *Review) { r.log = l }
}

// LoadReview fetches the field set for reviewID from the store.
func LoadReview(ctx context.Context, store Store, reviewID string, opts ...ReviewOption) (*Review, error) {
	r := &Review{
		store: store,
		id:    reviewID,
		log:   observability.NopLogger{},
		dirty: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(r)
	}
	fs, err := store.Fetch(ctx, reviewID)
	if err != nil {
		return nil, fmt.Errorf("load review %s: %w", reviewID, err)
	}
	r.fields = fs
	r.index = make(map[string]int, len(fs))
	for i := range fs {
		r.index[fs[i].ID] = i
	}
	r.log.Info("review loaded",
		observability.String("review", reviewID),
		observability.String("metric", observability.MetricFieldCount),
		observability.Int("fields", len(fs)))
	return r, nil
}

// ID returns the review identifier.
func (r *Review) ID() string { return r.id }

// Fields returns a copy of the field set in store order.
func (r *Review) Fields() []Field {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Field(nil), r.fields...)
}

// Field returns the field with the given id.
func (r *Review) Field(id string) (Field, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.index[id]
	if !ok {
		return Field{}, false
	}
	return r.fields[i], true
}

// SetValue updates a field's value in memory and marks it changed. The edit
// reaches the store on the next Save.
func (r *Review) SetValue(id, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.index[id]
	if !ok {
		return fmt.Errorf("field %q not found", id)
	}
	if r.fields[i].Value == value {
		return nil
	}
	r.fields[i].Value = value
	r.dirty[id] = true
	return nil
}

// SetRegions replaces a field's region set, re-encodes it and persists it
// immediately.
func (r *Review) SetRegions(ctx context.Context, id string, rs geometry.RegionSet) error {
	r.mu.Lock()
	i, ok := r.index[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("field %q not found", id)
	}
	r.fields[i].SetRegions(rs)
	encoded := r.fields[i].EncodedRegions
	r.mu.Unlock()

	if err := r.store.SaveRegions(ctx, id, encoded); err != nil {
		return fmt.Errorf("save regions for %s: %w", id, err)
	}
	return nil
}

// Dirty returns the ids of fields with unsaved value edits, sorted.
func (r *Review) Dirty() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.dirty))
	for id := range r.dirty {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Save persists one field's value edit and clears its changed mark. Saving
// a clean field is a no-op.
func (r *Review) Save(ctx context.Context, id string) error {
	r.mu.Lock()
	if !r.dirty[id] {
		r.mu.Unlock()
		return nil
	}
	i, ok := r.index[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("field %q not found", id)
	}
	value := r.fields[i].Value
	r.mu.Unlock()

	if err := r.store.SaveValue(ctx, id, value); err != nil {
		return fmt.Errorf("save %s: %w", id, err)
	}
	r.mu.Lock()
	delete(r.dirty, id)
	r.mu.Unlock()
	r.log.Debug("field saved", observability.String("field", id))
	return nil
}

// SaveAll persists every dirty field, stopping at the first failure.
func (r *Review) SaveAll(ctx context.Context) error {
	for _, id := range r.Dirty() {
		if err := r.Save(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Stats summarizes the review's current field set.
func (r *Review) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Summarize(r.fields)
}
