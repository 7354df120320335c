package tasks

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
)

var (
	ErrTitleRequired  = errors.New("title required")
	ErrDayFull        = errors.New("day already has the maximum number of tasks")
	ErrInvalidDate    = errors.New("invalid date")
	ErrDateOutOfRange = errors.New("date is more than one day in the future")
)

// dayKeyPrefix namespaces per-date records in the key-value store.
const dayKeyPrefix = "daily-tasks:"

// DayKey returns the storage key holding the DailyTasks for date.
func DayKey(date string) string {
	return dayKeyPrefix + date
}

// Repository is a local key-value store. The Store is its only writer.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// Keys lists keys with the given prefix in ascending order.
	Keys(ctx context.Context, prefix string) ([]string, error)
}

type InMemoryRepo struct {
	mu    sync.Mutex
	store map[string][]byte
}

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		store: make(map[string][]byte),
	}
}

func (r *InMemoryRepo) Get(_ context.Context, key string) ([]byte, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.store[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (r *InMemoryRepo) Put(_ context.Context, key string, value []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	v := make([]byte, len(value))
	copy(v, value)
	r.store[key] = v
	return nil
}

func (r *InMemoryRepo) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.store, key)
	return nil
}

func (r *InMemoryRepo) Keys(_ context.Context, prefix string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.store))
	for k := range r.store {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}
