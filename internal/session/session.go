// Package session owns the live connection to the platform's synthetic
// keyboard capability. A Handle is acquired once per run, injects one
// character at a time, and is released exactly once; Release is idempotent
// and safe from cleanup paths that race normal completion.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
)

// ErrUnavailable reports that no configured backend could provide an
// injection session.
var ErrUnavailable = errors.New("injection capability unavailable")

// live enforces the one-handle-per-process invariant.
var live atomic.Bool

// Handle is a single live injection session. The zero value is not usable;
// obtain one from Open.
type Handle struct {
	backend string
	conn    Conn
	lock    *runLock

	releaseOnce sync.Once
	released    atomic.Bool
}

// Open acquires an injection session from the first configured backend that
// is available, tried in order. It fails with an error wrapping
// ErrUnavailable when every backend is skipped or fails to acquire.
func Open(ctx context.Context, cfg Config) (*Handle, error) {
	if !live.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("injection session already live in this process: %w", ErrUnavailable)
	}

	lock, err := acquireRunLock()
	if err != nil {
		live.Store(false)
		return nil, fmt.Errorf("failed to take injector run lock: %w", errors.Join(err, ErrUnavailable))
	}

	var lastErr error
	for _, name := range cfg.Backends {
		b := newBackend(name, cfg)
		if b == nil {
			log.Printf("Session: unknown backend %q, skipping", name)
			continue
		}
		if err := b.Available(); err != nil {
			log.Printf("Session: backend %s unavailable: %v", b.Name(), err)
			lastErr = err
			continue
		}
		conn, err := b.Acquire(ctx)
		if err != nil {
			log.Printf("Session: backend %s failed to acquire: %v", b.Name(), err)
			lastErr = err
			continue
		}
		log.Printf("Session: acquired via %s", b.Name())
		return &Handle{backend: b.Name(), conn: conn, lock: lock}, nil
	}

	lock.release()
	live.Store(false)
	if lastErr != nil {
		return nil, fmt.Errorf("no injection backend could acquire (last error: %v): %w", lastErr, ErrUnavailable)
	}
	return nil, fmt.Errorf("no usable injection backend in %v: %w", cfg.Backends, ErrUnavailable)
}

// Backend names the backend serving this handle.
func (h *Handle) Backend() string {
	if h == nil {
		return ""
	}
	return h.backend
}

// Inject sends one character as a synthetic key event. A failed injection
// does not invalidate the handle.
func (h *Handle) Inject(ctx context.Context, r rune) error {
	if h == nil || h.released.Load() {
		return fmt.Errorf("inject %q: session not live", r)
	}
	return h.conn.InjectRune(ctx, r)
}

// Release tears the session down. It is safe to call multiple times, on a
// partially-initialized handle, and on a nil handle; only the first call
// does anything.
func (h *Handle) Release() {
	if h == nil {
		return
	}
	h.releaseOnce.Do(func() {
		h.released.Store(true)
		if h.conn != nil {
			if err := h.conn.Close(); err != nil {
				log.Printf("Session: error closing %s connection: %v", h.backend, err)
			}
		}
		if h.lock != nil {
			h.lock.release()
		}
		live.Store(false)
		log.Printf("Session: released (backend=%s)", h.backend)
	})
}

// BackendStatus reports one backend's availability for diagnostics.
type BackendStatus struct {
	Name       string
	Configured bool
	Err        error
}

// Backends probes every known backend and reports which are available and
// which of them the config selects.
func Backends(cfg Config) []BackendStatus {
	configured := make(map[string]bool, len(cfg.Backends))
	for _, name := range cfg.Backends {
		configured[name] = true
	}

	statuses := make([]BackendStatus, 0, len(knownBackends))
	for _, name := range knownBackends {
		b := newBackend(name, cfg)
		statuses = append(statuses, BackendStatus{
			Name:       name,
			Configured: configured[name],
			Err:        b.Available(),
		})
	}
	return statuses
}
