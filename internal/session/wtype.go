package session

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"
)

type wtypeBackend struct {
	timeout time.Duration
}

func newWtypeBackend(timeout time.Duration) Backend {
	return &wtypeBackend{timeout: timeout}
}

func (w *wtypeBackend) Name() string {
	return "wtype"
}

func (w *wtypeBackend) Available() error {
	if _, err := exec.LookPath("wtype"); err != nil {
		return fmt.Errorf("wtype not found: %w (install wtype package)", err)
	}

	if os.Getenv("WAYLAND_DISPLAY") == "" {
		return fmt.Errorf("WAYLAND_DISPLAY not set - wtype requires Wayland session")
	}

	if os.Getenv("XDG_RUNTIME_DIR") == "" {
		return fmt.Errorf("XDG_RUNTIME_DIR not set - wtype requires proper session environment")
	}

	return nil
}

func (w *wtypeBackend) Acquire(ctx context.Context) (Conn, error) {
	if err := w.Available(); err != nil {
		return nil, err
	}
	return &wtypeConn{timeout: w.timeout}, nil
}

type wtypeConn struct {
	timeout time.Duration
}

func (c *wtypeConn) InjectRune(ctx context.Context, r rune) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "wtype", "--", string(r))
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("wtype failed: %w", err)
	}

	return nil
}

func (c *wtypeConn) Close() error {
	return nil
}
