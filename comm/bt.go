package comm

import (
	"io"
	"sync"
	"time"
)

type ReadWriteCloseWithDeadline interface {
	io.ReadWriteCloser
	SetDeadline(t time.Time) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
}

type readDeadliner interface {
	SetReadDeadline(t time.Time) error
}

// Stream is the duplex byte channel opened on a device service. It owns the
// underlying connection: Close releases it exactly once and any later Read or
// Write fails with ErrStreamClosed.
type Stream struct {
	name   string
	conn   io.ReadWriteCloser
	mu     sync.Mutex
	closed bool
}

func NewStream(name string, conn io.ReadWriteCloser) *Stream {
	return &Stream{name: name, conn: conn}
}

// Name identifies the stream in log output, e.g. "AA:BB:CC:DD:EE:FF/SerialPort".
func (s *Stream) Name() string {
	return s.name
}

func (s *Stream) current() (io.ReadWriteCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStreamClosed
	}
	return s.conn, nil
}

func (s *Stream) Read(p []byte) (int, error) {
	conn, err := s.current()
	if err != nil {
		return 0, err
	}
	return conn.Read(p)
}

func (s *Stream) Write(p []byte) (int, error) {
	conn, err := s.current()
	if err != nil {
		return 0, err
	}
	return conn.Write(p)
}

// SetReadDeadline forwards to the connection when it supports deadlines and
// reports ErrNotSupported otherwise.
func (s *Stream) SetReadDeadline(t time.Time) error {
	conn, err := s.current()
	if err != nil {
		return err
	}
	d, ok := conn.(readDeadliner)
	if !ok {
		return ErrNotSupported
	}
	return d.SetReadDeadline(t)
}

func (s *Stream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close is idempotent.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Close()
}
