// Package engine runs one paced typing request against a live injection
// session. Characters go out strictly in input order; per-character failures
// are recorded and skipped rather than aborting the run, because synthetic
// input delivery is best-effort and a dropped keystroke should not cost the
// rest of a credential string.
package engine

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"
)

// Sentinel is the single machine-checkable success token. It is written to
// the sentinel stream alone; diagnostics never share that stream.
const Sentinel = "SUCCESS"

// Injector sends one character as a synthetic key event.
type Injector interface {
	Inject(ctx context.Context, r rune) error
}

// Request describes one typing run. It is read-only to the engine.
type Request struct {
	Text      string
	CharDelay time.Duration
	PreDelay  time.Duration
}

// Outcome is the terminal result of a run, produced exactly once.
type Outcome string

const (
	Success     Outcome = "success"
	Failure     Outcome = "failure"
	Interrupted Outcome = "interrupted"
)

// ExitCode maps an outcome to the process exit status: 0 for success,
// 128+SIGINT for an interrupted run, 1 otherwise.
func (o Outcome) ExitCode() int {
	switch o {
	case Success:
		return 0
	case Interrupted:
		return 130
	default:
		return 1
	}
}

// Progress is the partial-failure accumulator for one run. LastErr holds the
// most recent per-character error; a non-nil value does not make the run a
// failure.
type Progress struct {
	Attempted int
	Total     int
	LastErr   error
}

// Options tune reporting and completion behavior.
type Options struct {
	ProgressEvery int           // progress log cadence in characters, default 10
	SettleDelay   time.Duration // wait before the sentinel is emitted
	SentinelW     io.Writer     // sentinel stream, default os.Stdout
	OnProgress    func(attempted, total int)
}

type Engine struct {
	inj  Injector
	opts Options

	mu       sync.RWMutex
	progress Progress
}

func New(inj Injector, opts Options) *Engine {
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = 10
	}
	if opts.SentinelW == nil {
		opts.SentinelW = os.Stdout
	}
	return &Engine{inj: inj, opts: opts}
}

// Run executes the request. It returns Success after every character has
// been attempted and the sentinel written, or Interrupted as soon as the
// run context is cancelled; the in-flight character is finished, nothing
// after it runs. Run never returns Failure on its own - acquisition-time
// errors are the caller's to classify.
func (e *Engine) Run(ctx context.Context, req Request) Outcome {
	runes := []rune(req.Text)
	e.setTotal(len(runes))

	log.Printf("Engine: preparing to type %d characters (pre-delay %v, char delay %v)",
		len(runes), req.PreDelay, req.CharDelay)

	// Initial delay so the caller can make sure focus is correct.
	if !e.wait(ctx, req.PreDelay) {
		log.Printf("Engine: interrupted during pre-delay")
		return Interrupted
	}

	log.Printf("Engine: starting to type")

	for i, r := range runes {
		if ctx.Err() != nil {
			log.Printf("Engine: interrupted at character %d/%d", i, len(runes))
			return Interrupted
		}

		if err := e.inj.Inject(ctx, r); err != nil {
			if ctx.Err() != nil {
				log.Printf("Engine: interrupted at character %d/%d", i+1, len(runes))
				return Interrupted
			}
			e.recordError(err)
			log.Printf("Engine: error typing character %q at index %d: %v", r, i, err)
			continue
		}
		attempted := e.bumpAttempted()

		if attempted%e.opts.ProgressEvery == 0 {
			log.Printf("Engine: progress %d/%d", attempted, len(runes))
			if e.opts.OnProgress != nil {
				e.opts.OnProgress(attempted, len(runes))
			}
		}

		// Delay between characters, not after the last one.
		if i < len(runes)-1 {
			if !e.wait(ctx, req.CharDelay) {
				log.Printf("Engine: interrupted at character %d/%d", i+1, len(runes))
				return Interrupted
			}
		}
	}

	log.Printf("Engine: typed %d characters", len(runes))

	if !e.wait(ctx, e.opts.SettleDelay) {
		log.Printf("Engine: interrupted during settle delay")
		return Interrupted
	}

	fmt.Fprintln(e.opts.SentinelW, Sentinel)
	return Success
}

// Progress reports the run's partial-failure state. Safe to call after Run
// returns or from an observer during the run.
func (e *Engine) Progress() Progress {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.progress
}

func (e *Engine) setTotal(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.progress = Progress{Total: n}
}

func (e *Engine) bumpAttempted() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.progress.Attempted++
	return e.progress.Attempted
}

func (e *Engine) recordError(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.progress.Attempted++
	e.progress.LastErr = err
}

// wait blocks for d or until the context is cancelled; it reports whether
// the full duration elapsed.
func (e *Engine) wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
