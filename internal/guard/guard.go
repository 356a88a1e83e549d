// Package guard wraps one engine run with signal handling and a hard
// release guarantee: the injection session is released exactly once no
// matter how the run ends. A stuck session leaves the user with a keyboard
// that ignores them, so every terminal path funnels into the same release.
package guard

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/google/uuid"

	"ghosttype/internal/config"
	"ghosttype/internal/engine"
	"ghosttype/internal/session"
)

type Status string

const (
	Idle        Status = "idle"
	Acquiring   Status = "acquiring"
	Running     Status = "running"
	Completing  Status = "completing"
	Interrupted Status = "interrupted"
	Released    Status = "released"
)

// Session is the slice of session.Handle the guard needs. Release must be
// idempotent.
type Session interface {
	Inject(ctx context.Context, r rune) error
	Release()
}

// Guard runs exactly one request. Build a fresh one per run.
type Guard struct {
	open    func(ctx context.Context) (Session, error)
	opts    engine.Options
	signals []os.Signal
	runID   string

	mu          sync.RWMutex
	status      Status
	releaseOnce sync.Once
}

func New(cfg *config.Config) *Guard {
	sessCfg := cfg.ToSessionConfig()
	return &Guard{
		open: func(ctx context.Context) (Session, error) {
			h, err := session.Open(ctx, sessCfg)
			if err != nil {
				return nil, err
			}
			return h, nil
		},
		opts: engine.Options{
			ProgressEvery: cfg.Typing.ProgressEvery,
			SettleDelay:   cfg.Typing.SettleDelay(),
			SentinelW:     os.Stdout,
		},
		signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		runID:   uuid.NewString(),
		status:  Idle,
	}
}

// RunID identifies this run on the log stream.
func (g *Guard) RunID() string {
	return g.runID
}

func (g *Guard) Status() Status {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.status
}

func (g *Guard) setStatus(s Status) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.status = s
}

// Run acquires a session, executes the request, and releases the session on
// the way out. The returned outcome is produced exactly once; the session
// is released exactly once, including on acquisition failure, interrupt,
// and panic.
func (g *Guard) Run(req engine.Request) (out engine.Outcome) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, g.signals...)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			log.Printf("Guard: run %s received signal %v, aborting", g.runID, sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	var sess Session
	release := func() {
		g.releaseOnce.Do(func() {
			if sess != nil {
				sess.Release()
			}
			g.setStatus(Released)
		})
	}
	defer release()

	defer func() {
		if r := recover(); r != nil {
			log.Printf("Guard: run %s aborted by panic: %v", g.runID, r)
			release()
			out = engine.Failure
		}
	}()

	log.Printf("Guard: run %s starting", g.runID)
	g.setStatus(Acquiring)

	sess, err := g.open(ctx)
	if err != nil {
		if ctx.Err() != nil {
			log.Printf("Guard: run %s interrupted during acquisition", g.runID)
			g.setStatus(Interrupted)
			return engine.Interrupted
		}
		log.Printf("Guard: run %s failed to acquire injection session: %v", g.runID, err)
		return engine.Failure
	}

	g.setStatus(Running)
	eng := engine.New(sess, g.opts)
	outcome := eng.Run(ctx, req)

	switch outcome {
	case engine.Success:
		g.setStatus(Completing)
		if p := eng.Progress(); p.LastErr != nil {
			log.Printf("Guard: run %s completed with %d/%d characters (last error: %v)",
				g.runID, p.Attempted, p.Total, p.LastErr)
		}
	case engine.Interrupted:
		g.setStatus(Interrupted)
	}

	return outcome
}
