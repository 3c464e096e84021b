package menu

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory Repository useful for tests and local runs.
// It is not intended for production use.
type MemoryRepo struct {
	mu      sync.RWMutex
	menus   map[string]Menu
	options map[string][]Option
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		menus:   make(map[string]Menu),
		options: make(map[string][]Option),
	}
}

// Put stores a menu and replaces its options.
func (r *MemoryRepo) Put(m Menu, opts ...Option) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.menus[m.ID] = m
	sorted := make([]Option, len(opts))
	copy(sorted, opts)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Position != sorted[j].Position {
			return sorted[i].Position < sorted[j].Position
		}
		return sorted[i].Digit < sorted[j].Digit
	})
	r.options[m.ID] = sorted
}

func (r *MemoryRepo) GetByNumber(ctx context.Context, dialedNumber string) (Menu, error) {
	if err := ctx.Err(); err != nil {
		return Menu{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.menus {
		if m.PhoneNumber == dialedNumber && m.Active {
			return m, nil
		}
	}
	return Menu{}, ErrNotFound
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Menu, error) {
	if err := ctx.Err(); err != nil {
		return Menu{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.menus[id]
	if !ok {
		return Menu{}, ErrNotFound
	}
	return m, nil
}

func (r *MemoryRepo) ListOptions(ctx context.Context, menuID string) ([]Option, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	opts := r.options[menuID]
	out := make([]Option, len(opts))
	copy(out, opts)
	return out, nil
}
