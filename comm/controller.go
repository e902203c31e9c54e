package comm

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/sirupsen/logrus"
)

type State int

const (
	StateUninitialized State = iota
	StateConnected
	// StateFailed is entered when Start hits a fatal condition. The
	// controller never leaves it except through Disable.
	StateFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

type ControllerOptions struct {
	ServiceID   ServiceID
	CacheMode   CacheMode
	ReadTimeout time.Duration
	Logger      logrus.FieldLogger
	// RandomByte produces the value written on each tick. Defaults to a
	// uniform pick over [0,255].
	RandomByte func() byte
}

// Controller drives the pick -> open -> exchange -> close lifecycle. It is
// meant to be called from a single goroutine: Start once, Tick repeatedly,
// Disable once.
type Controller struct {
	picker  Picker
	dir     Directory
	factory StreamFactory
	opts    ControllerOptions
	log     logrus.FieldLogger

	state  State
	stream *Stream
}

func NewController(picker Picker, dir Directory, factory StreamFactory, opts ControllerOptions) *Controller {
	if opts.RandomByte == nil {
		opts.RandomByte = func() byte { return byte(rand.IntN(256)) }
	}
	if opts.Logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		opts.Logger = l
	}
	return &Controller{
		picker:  picker,
		dir:     dir,
		factory: factory,
		opts:    opts,
		log:     opts.Logger,
		state:   StateUninitialized,
	}
}

func (c *Controller) State() State {
	return c.state
}

// Stream returns the open stream, if any.
func (c *Controller) Stream() (*Stream, bool) {
	return c.stream, c.stream != nil
}

// Start picks a device and opens the configured service on it.
func (c *Controller) Start(ctx context.Context) error {
	if c.state != StateUninitialized {
		return fmt.Errorf("%w: start in state %s", ErrInvalidState, c.state)
	}

	dev, ok, err := c.picker.PickDevice(ctx)
	if err != nil {
		c.state = StateFailed
		return fmt.Errorf("pick device: %w", err)
	}
	if !ok {
		c.state = StateFailed
		return ErrNoDeviceSelected
	}
	log := c.log.WithField("device", dev.Address)
	log.Infof("Picked %s", dev)

	stream, ok, err := OpenServiceStream(ctx, c.dir, c.factory, dev, c.opts.ServiceID, c.opts.CacheMode)
	if err != nil {
		c.state = StateFailed
		return err
	}
	if !ok {
		c.state = StateFailed
		return fmt.Errorf("%w: %s on %s", ErrRequiredServiceUnavailable, c.opts.ServiceID.Name(), dev)
	}

	c.stream = stream
	c.state = StateConnected
	log.WithField("service", c.opts.ServiceID.Name()).Info("Stream opened")
	return nil
}

// Tick performs one exchange while connected and does nothing otherwise.
// Only a failed write is reported; reads are best effort.
func (c *Controller) Tick() error {
	if c.state != StateConnected {
		return nil
	}
	return c.exchange()
}

func (c *Controller) exchange() error {
	if c.stream == nil {
		return ErrStreamNotReady
	}

	value := c.opts.RandomByte()
	if _, err := c.stream.Write([]byte{value}); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	c.log.Infof("Sent: %d", value)

	if c.opts.ReadTimeout > 0 {
		if err := c.stream.SetReadDeadline(time.Now().Add(c.opts.ReadTimeout)); err != nil && !errors.Is(err, ErrNotSupported) {
			c.log.WithError(err).Debug("Set read deadline failed")
		}
	}

	buf := make([]byte, 1)
	n, err := c.stream.Read(buf)
	if n != 0 {
		c.log.Infof("Received: %d", buf[0])
	}
	if err != nil {
		c.log.WithError(err).Debug("Read returned no data")
	}
	return nil
}

// Disable closes the stream if one is open. Calling it again is a no-op.
func (c *Controller) Disable() error {
	if c.state == StateClosed {
		return nil
	}
	c.state = StateClosed
	if c.stream == nil {
		return nil
	}
	stream := c.stream
	c.stream = nil
	c.log.Info("Closing stream")
	return stream.Close()
}

// Run starts the controller, ticks it every interval until ctx is done and
// disables it on the way out. interval must be positive.
func (c *Controller) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("%w: tick interval must be positive, got %s", ErrInvalidState, interval)
	}
	defer func() {
		if err := c.Disable(); err != nil {
			c.log.WithError(err).Warn("Close stream failed")
		}
	}()

	if err := c.Start(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := c.Tick(); err != nil {
				c.log.WithError(err).Warn("Exchange failed")
			}
		}
	}
}
