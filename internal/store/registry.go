package store

import (
	"context"
	"sync"
	"time"

	"github.com/BruksfildServices01/medease/internal/backend"
)

const initTimeout = 30 * time.Second

// Registry owns every visitor's store. It is built once at startup and
// shared by all handlers.
type Registry struct {
	driver  backend.Driver
	opts    Options
	idleTTL time.Duration

	mu     sync.Mutex
	stores map[string]*Store
	closed bool

	quit chan struct{}
	wg   sync.WaitGroup
}

// NewRegistry starts an idle sweeper when idleTTL is positive.
func NewRegistry(driver backend.Driver, opts Options, idleTTL time.Duration) *Registry {
	r := &Registry{
		driver:  driver,
		opts:    opts,
		idleTTL: idleTTL,
		stores:  make(map[string]*Store),
		quit:    make(chan struct{}),
	}
	if idleTTL > 0 {
		r.wg.Add(1)
		go r.janitor()
	}
	return r
}

// Get returns the visitor's store, creating it and starting its session
// check on first use. It returns nil after Close.
func (r *Registry) Get(key string) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	if s, ok := r.stores[key]; ok {
		s.touch()
		return s
	}

	s := New(key, r.driver.NewClient(key), r.opts)
	r.stores[key] = s
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
		defer cancel()
		s.Initialize(ctx)
	}()
	return s
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}

// Sweep closes stores unused since before now minus the idle TTL and
// returns how many were evicted. The session itself stays in storage.
func (r *Registry) Sweep(now time.Time) int {
	cutoff := now.Add(-r.idleTTL)

	r.mu.Lock()
	var idle []*Store
	for key, s := range r.stores {
		if s.idleSince().Before(cutoff) {
			idle = append(idle, s)
			delete(r.stores, key)
		}
	}
	r.mu.Unlock()

	for _, s := range idle {
		s.Close()
	}
	return len(idle)
}

func (r *Registry) janitor() {
	defer r.wg.Done()

	interval := r.idleTTL / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			if n := r.Sweep(now); n > 0 {
				r.opts.Logger.Debug().Int("evicted", n).Msg("idle stores closed")
			}
		case <-r.quit:
			return
		}
	}
}

// Close releases every store. The driver is left open.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	stores := r.stores
	r.stores = map[string]*Store{}
	r.mu.Unlock()

	close(r.quit)
	r.wg.Wait()
	for _, s := range stores {
		s.Close()
	}
}
