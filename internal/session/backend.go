package session

import (
	"context"
	"time"
)

// Backend is one way of reaching the platform's synthetic-input capability.
type Backend interface {
	Name() string
	Available() error
	Acquire(ctx context.Context) (Conn, error)
}

// Conn is a live connection to a backend. It is owned by exactly one Handle
// and must tolerate Close being called more than once.
type Conn interface {
	InjectRune(ctx context.Context, r rune) error
	Close() error
}

// Config selects and tunes the backend chain.
type Config struct {
	Backends       []string      // Ordered list: "uinput", "ydotool", "wtype"
	UinputTimeout  time.Duration // Timeout for virtual device creation
	YdotoolTimeout time.Duration // Timeout for ydotool commands
	WtypeTimeout   time.Duration // Timeout for wtype commands
}

func newBackend(name string, cfg Config) Backend {
	switch name {
	case "uinput":
		return newUinputBackend(cfg.UinputTimeout)
	case "ydotool":
		return newYdotoolBackend(cfg.YdotoolTimeout)
	case "wtype":
		return newWtypeBackend(cfg.WtypeTimeout)
	default:
		return nil
	}
}

var knownBackends = []string{"uinput", "ydotool", "wtype"}
