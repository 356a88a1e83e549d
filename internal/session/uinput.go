package session

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

const uinputPath = "/dev/uinput"

// uinput ioctl requests and event constants, from linux/uinput.h and
// linux/input-event-codes.h.
const (
	uiSetEvBit   = 0x40045564
	uiSetKeyBit  = 0x40045565
	uiDevCreate  = 0x5501
	uiDevDestroy = 0x5502

	evSyn = 0x00
	evKey = 0x01

	synReport = 0

	busVirtual = 0x06

	uinputMaxNameSize = 80
	absCount          = 0x40
)

type inputID struct {
	Bustype uint16
	Vendor  uint16
	Product uint16
	Version uint16
}

// uinputUserDev is the legacy device descriptor written to the fd before
// UI_DEV_CREATE.
type uinputUserDev struct {
	Name         [uinputMaxNameSize]byte
	ID           inputID
	FFEffectsMax int32
	Absmax       [absCount]int32
	Absmin       [absCount]int32
	Absfuzz      [absCount]int32
	Absflat      [absCount]int32
}

// inputEvent mirrors struct input_event on 64-bit platforms.
type inputEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

type uinputBackend struct {
	timeout time.Duration
}

func newUinputBackend(timeout time.Duration) Backend {
	return &uinputBackend{timeout: timeout}
}

func (u *uinputBackend) Name() string {
	return "uinput"
}

func (u *uinputBackend) Available() error {
	if _, err := os.Stat(uinputPath); err != nil {
		return fmt.Errorf("%s not present: %w (load the uinput module)", uinputPath, err)
	}
	fd, err := unix.Open(uinputPath, unix.O_WRONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return fmt.Errorf("cannot open %s: %w (add user to the input group or run with device access)", uinputPath, err)
	}
	unix.Close(fd)
	return nil
}

// Acquire creates a virtual keyboard device. The kernel needs a moment to
// register the device with listeners before events are seen, hence the
// settle wait.
func (u *uinputBackend) Acquire(ctx context.Context) (Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	fd, err := unix.Open(uinputPath, unix.O_WRONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", uinputPath, err)
	}

	if err := configureUinput(fd); err != nil {
		unix.Close(fd)
		return nil, err
	}

	if err := ioctl(fd, uiDevCreate, 0); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("create uinput device: %w", err)
	}

	conn := &uinputConn{fd: fd}
	if err := settle(ctx, 200*time.Millisecond); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

func configureUinput(fd int) error {
	if err := ioctl(fd, uiSetEvBit, evKey); err != nil {
		return fmt.Errorf("enable key events: %w", err)
	}
	if err := ioctl(fd, uiSetEvBit, evSyn); err != nil {
		return fmt.Errorf("enable syn events: %w", err)
	}
	for _, code := range keymapCodes() {
		if err := ioctl(fd, uiSetKeyBit, uintptr(code)); err != nil {
			return fmt.Errorf("register keycode %d: %w", code, err)
		}
	}

	var dev uinputUserDev
	copy(dev.Name[:], "ghosttype virtual keyboard")
	dev.ID = inputID{Bustype: busVirtual, Vendor: 0x1, Product: 0x1, Version: 1}

	buf := (*[unsafe.Sizeof(dev)]byte)(unsafe.Pointer(&dev))[:]
	if _, err := unix.Write(fd, buf); err != nil {
		return fmt.Errorf("write device descriptor: %w", err)
	}
	return nil
}

func ioctl(fd int, req uintptr, arg uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, arg)
	if errno != 0 {
		return errno
	}
	return nil
}

func settle(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type uinputConn struct {
	mu     sync.Mutex
	fd     int
	closed bool
}

func (c *uinputConn) InjectRune(ctx context.Context, r rune) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ks, ok := lookupKey(r)
	if !ok {
		return fmt.Errorf("no key mapping for %q", r)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("inject %q: uinput device closed", r)
	}

	if ks.shift {
		if err := c.sendKey(keyLeftShift, 1); err != nil {
			return err
		}
	}
	if err := c.sendKey(ks.code, 1); err != nil {
		return err
	}
	if err := c.sendKey(ks.code, 0); err != nil {
		return err
	}
	if ks.shift {
		if err := c.sendKey(keyLeftShift, 0); err != nil {
			return err
		}
	}
	return nil
}

func (c *uinputConn) sendKey(code uint16, value int32) error {
	if err := c.emit(evKey, code, value); err != nil {
		return fmt.Errorf("key event (code=%d value=%d): %w", code, value, err)
	}
	if err := c.emit(evSyn, synReport, 0); err != nil {
		return fmt.Errorf("syn event: %w", err)
	}
	return nil
}

func (c *uinputConn) emit(typ, code uint16, value int32) error {
	ev := inputEvent{Type: typ, Code: code, Value: value}
	buf := (*[unsafe.Sizeof(ev)]byte)(unsafe.Pointer(&ev))[:]
	_, err := unix.Write(c.fd, buf)
	return err
}

func (c *uinputConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	// Destroy before close so the kernel drops the device even if close
	// itself fails.
	derr := ioctl(c.fd, uiDevDestroy, 0)
	cerr := unix.Close(c.fd)
	if derr != nil {
		return fmt.Errorf("destroy uinput device: %w", derr)
	}
	return cerr
}
