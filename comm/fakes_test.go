package comm

import (
	"context"
	"errors"
	"io"
	"os"
	"time"
)

type fakePicker struct {
	dev   DeviceHandle
	ok    bool
	err   error
	calls int
}

func (p *fakePicker) PickDevice(ctx context.Context) (DeviceHandle, bool, error) {
	p.calls++
	return p.dev, p.ok, p.err
}

type fakeDirectory struct {
	services []Service
	err      error
	calls    int
	mode     CacheMode
}

func (d *fakeDirectory) Services(ctx context.Context, dev DeviceHandle, mode CacheMode) ([]Service, error) {
	d.calls++
	d.mode = mode
	if d.err != nil {
		return nil, d.err
	}
	out := make([]Service, len(d.services))
	for i, svc := range d.services {
		svc.Device = dev
		out[i] = svc
	}
	return out, nil
}

type fakeFactory struct {
	conn   io.ReadWriteCloser
	err    error
	opened []Service
}

func (f *fakeFactory) OpenStream(ctx context.Context, svc Service) (io.ReadWriteCloser, error) {
	f.opened = append(f.opened, svc)
	if f.err != nil {
		return nil, f.err
	}
	return f.conn, nil
}

// fakeConn replays queued replies one byte per Read and times out once they
// run out.
type fakeConn struct {
	written   []byte
	replies   []byte
	writeErr  error
	readErr   error
	closes    int
	deadlines []time.Time
}

func (c *fakeConn) Write(p []byte) (int, error) {
	if c.writeErr != nil {
		return 0, c.writeErr
	}
	c.written = append(c.written, p...)
	return len(p), nil
}

func (c *fakeConn) Read(p []byte) (int, error) {
	if c.readErr != nil {
		return 0, c.readErr
	}
	if len(c.replies) == 0 {
		return 0, os.ErrDeadlineExceeded
	}
	n := copy(p, c.replies[:1])
	c.replies = c.replies[1:]
	return n, nil
}

func (c *fakeConn) Close() error {
	c.closes++
	if c.closes > 1 {
		return errors.New("closed twice")
	}
	return nil
}

func (c *fakeConn) SetReadDeadline(t time.Time) error {
	c.deadlines = append(c.deadlines, t)
	return nil
}

// plainConn hides the deadline support of the wrapped conn.
type plainConn struct {
	c *fakeConn
}

func (p plainConn) Read(b []byte) (int, error)  { return p.c.Read(b) }
func (p plainConn) Write(b []byte) (int, error) { return p.c.Write(b) }
func (p plainConn) Close() error                { return p.c.Close() }

var (
	serviceA = ServiceFrom16Bit(0x1105)
	serviceB = ServiceFrom16Bit(0x110b)
)

func services(ids ...ServiceID) []Service {
	out := make([]Service, 0, len(ids))
	for _, id := range ids {
		out = append(out, Service{ID: id, Name: id.Name()})
	}
	return out
}
