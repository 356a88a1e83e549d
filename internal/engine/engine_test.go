package engine

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// fakeInjector records every rune it is asked to inject and can fail at
// chosen indices.
type fakeInjector struct {
	injected []rune
	failAt   map[int]error
	onInject func(call int)
}

func (f *fakeInjector) Inject(ctx context.Context, r rune) error {
	call := len(f.injected)
	f.injected = append(f.injected, r)
	if f.onInject != nil {
		f.onInject(call)
	}
	if err, ok := f.failAt[call]; ok {
		return err
	}
	return nil
}

func TestRun_TypesAllCharactersInOrder(t *testing.T) {
	inj := &fakeInjector{}
	var out bytes.Buffer
	eng := New(inj, Options{SentinelW: &out})

	start := time.Now()
	outcome := eng.Run(context.Background(), Request{
		Text:      "ab1",
		CharDelay: 10 * time.Millisecond,
		PreDelay:  50 * time.Millisecond,
	})
	elapsed := time.Since(start)

	if outcome != Success {
		t.Fatalf("Run() = %v, want %v", outcome, Success)
	}
	if got := string(inj.injected); got != "ab1" {
		t.Errorf("injected %q, want %q in order", got, "ab1")
	}
	// One 50ms pre-delay plus two 10ms inter-character delays.
	if elapsed < 70*time.Millisecond {
		t.Errorf("run finished in %v, want >= 70ms of pacing", elapsed)
	}
	if got := out.String(); got != Sentinel+"\n" {
		t.Errorf("sentinel stream = %q, want single %q line", got, Sentinel)
	}

	p := eng.Progress()
	if p.Attempted != 3 || p.Total != 3 || p.LastErr != nil {
		t.Errorf("Progress() = %+v, want 3/3 with no error", p)
	}
}

func TestRun_EmptyText(t *testing.T) {
	inj := &fakeInjector{}
	var out bytes.Buffer
	eng := New(inj, Options{SentinelW: &out})

	outcome := eng.Run(context.Background(), Request{Text: "", PreDelay: 10 * time.Millisecond})

	if outcome != Success {
		t.Fatalf("Run() = %v, want %v", outcome, Success)
	}
	if len(inj.injected) != 0 {
		t.Errorf("injected %d characters, want 0", len(inj.injected))
	}
	if got := out.String(); got != Sentinel+"\n" {
		t.Errorf("sentinel stream = %q, want single %q line", got, Sentinel)
	}
}

func TestRun_ZeroDelays(t *testing.T) {
	inj := &fakeInjector{}
	var out bytes.Buffer
	eng := New(inj, Options{SentinelW: &out})

	outcome := eng.Run(context.Background(), Request{Text: "hello"})

	if outcome != Success {
		t.Fatalf("Run() = %v, want %v", outcome, Success)
	}
	if got := string(inj.injected); got != "hello" {
		t.Errorf("injected %q, want %q", got, "hello")
	}
}

func TestRun_CharacterErrorIsNotFatal(t *testing.T) {
	injectErr := errors.New("key event dropped")
	inj := &fakeInjector{failAt: map[int]error{5: injectErr}}
	var out bytes.Buffer
	eng := New(inj, Options{SentinelW: &out})

	outcome := eng.Run(context.Background(), Request{Text: "secret-pw"})

	if outcome != Success {
		t.Fatalf("Run() = %v, want %v despite one character error", outcome, Success)
	}
	if got := string(inj.injected); got != "secret-pw" {
		t.Errorf("injected %q, want all characters attempted", got)
	}
	if got := out.String(); got != Sentinel+"\n" {
		t.Errorf("sentinel stream = %q, want single %q line", got, Sentinel)
	}

	p := eng.Progress()
	if p.Attempted != 9 {
		t.Errorf("Progress().Attempted = %d, want 9 (failed character still counts)", p.Attempted)
	}
	if !errors.Is(p.LastErr, injectErr) {
		t.Errorf("Progress().LastErr = %v, want recorded %v", p.LastErr, injectErr)
	}
}

func TestRun_ProgressCadence(t *testing.T) {
	inj := &fakeInjector{}
	var out bytes.Buffer
	var events []int
	eng := New(inj, Options{
		SentinelW: &out,
		OnProgress: func(attempted, total int) {
			if total != 25 {
				t.Errorf("OnProgress total = %d, want 25", total)
			}
			events = append(events, attempted)
		},
	})

	outcome := eng.Run(context.Background(), Request{Text: strings.Repeat("x", 25)})

	if outcome != Success {
		t.Fatalf("Run() = %v, want %v", outcome, Success)
	}
	if len(events) != 2 || events[0] != 10 || events[1] != 20 {
		t.Errorf("progress events at %v, want [10 20] and nothing else", events)
	}
}

func TestRun_NoProgressBelowCadence(t *testing.T) {
	inj := &fakeInjector{}
	var out bytes.Buffer
	fired := 0
	eng := New(inj, Options{
		SentinelW:  &out,
		OnProgress: func(int, int) { fired++ },
	})

	eng.Run(context.Background(), Request{Text: "ab1"})

	if fired != 0 {
		t.Errorf("progress fired %d times for 3 characters, want 0", fired)
	}
}

func TestRun_InterruptMidLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	inj := &fakeInjector{}
	inj.onInject = func(call int) {
		if call == 6 {
			cancel()
		}
	}
	var out bytes.Buffer
	eng := New(inj, Options{SentinelW: &out})

	outcome := eng.Run(ctx, Request{
		Text:      strings.Repeat("k", 20),
		CharDelay: 5 * time.Millisecond,
	})

	if outcome != Interrupted {
		t.Fatalf("Run() = %v, want %v", outcome, Interrupted)
	}
	// The in-flight character is finished, nothing after it runs.
	if got := len(inj.injected); got != 7 {
		t.Errorf("injected %d characters before halting, want 7", got)
	}
	if out.Len() != 0 {
		t.Errorf("sentinel stream = %q, want empty on interrupt", out.String())
	}
}

func TestRun_InterruptDuringPreDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	inj := &fakeInjector{}
	var out bytes.Buffer
	eng := New(inj, Options{SentinelW: &out})

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	outcome := eng.Run(ctx, Request{Text: "never", PreDelay: 5 * time.Second})

	if outcome != Interrupted {
		t.Fatalf("Run() = %v, want %v", outcome, Interrupted)
	}
	if len(inj.injected) != 0 {
		t.Errorf("injected %d characters, want 0 when interrupted during pre-delay", len(inj.injected))
	}
	if out.Len() != 0 {
		t.Errorf("sentinel stream = %q, want empty on interrupt", out.String())
	}
}

func TestOutcome_ExitCode(t *testing.T) {
	cases := []struct {
		outcome Outcome
		want    int
	}{
		{Success, 0},
		{Failure, 1},
		{Interrupted, 130},
	}
	for _, c := range cases {
		if got := c.outcome.ExitCode(); got != c.want {
			t.Errorf("%v.ExitCode() = %d, want %d", c.outcome, got, c.want)
		}
	}
}
