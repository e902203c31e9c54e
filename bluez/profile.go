package bluez

import (
	"context"
	"dosgo/btSerial/comm"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/sirupsen/logrus"
)

var profileSeq atomic.Uint64

func nextProfilePath() dbus.ObjectPath {
	return dbus.ObjectPath(fmt.Sprintf("%s/%d_%d", profileRootPath, os.Getpid(), profileSeq.Add(1)))
}

type incoming struct {
	device dbus.ObjectPath
	file   *os.File
}

// profile implements org.bluez.Profile1. BlueZ calls NewConnection with a
// connected RFCOMM socket once a connection on the registered UUID is up.
type profile struct {
	conns chan incoming
	log   logrus.FieldLogger
}

func newProfile(log logrus.FieldLogger) *profile {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &profile{conns: make(chan incoming, 1), log: log}
}

func (p *profile) NewConnection(device dbus.ObjectPath, fd dbus.UnixFD, fdProperties map[string]dbus.Variant) *dbus.Error {
	p.log.WithField("device", AddrFromPath(device)).Debug("Profile connection")

	file, err := comm.FileFromFD(int(fd), "rfcomm-"+AddrFromPath(device))
	if err != nil {
		return dbus.MakeFailedError(err)
	}

	select {
	case p.conns <- incoming{device: device, file: file}:
		return nil
	default:
		file.Close()
		return dbus.MakeFailedError(errors.New("connection already pending"))
	}
}

func (p *profile) RequestDisconnection(device dbus.ObjectPath) *dbus.Error {
	p.log.WithField("device", AddrFromPath(device)).Debug("Profile disconnection requested")
	return nil
}

func (p *profile) Release() *dbus.Error {
	return nil
}

// registration is an exported profile object plus its ProfileManager1
// registration.
type registration struct {
	conn *dbus.Conn
	path dbus.ObjectPath
	once sync.Once
}

func register(ctx context.Context, conn *dbus.Conn, p *profile, uuid string, options map[string]dbus.Variant) (*registration, error) {
	path := nextProfilePath()
	if err := conn.Export(p, path, profileIface); err != nil {
		return nil, fmt.Errorf("export profile: %w", err)
	}

	obj := conn.Object(busName, bluezManagerPath)
	if err := obj.CallWithContext(ctx, profileManager+".RegisterProfile", 0, path, uuid, options).Err; err != nil {
		conn.Export(nil, path, profileIface)
		return nil, fmt.Errorf("register profile: %w", err)
	}
	return &registration{conn: conn, path: path}, nil
}

func (r *registration) release() {
	r.once.Do(func() {
		r.conn.Object(busName, bluezManagerPath).Call(profileManager+".UnregisterProfile", 0, r.path)
		r.conn.Export(nil, r.path, profileIface)
	})
}

// ProfileOpener opens services by registering a client-role profile for the
// service UUID and asking BlueZ to connect it. BlueZ runs the SDP lookup and
// hands the connected socket back through Profile1.NewConnection.
type ProfileOpener struct {
	conn    *dbus.Conn
	timeout time.Duration
	log     logrus.FieldLogger
}

func (o *ProfileOpener) OpenStream(ctx context.Context, svc comm.Service) (io.ReadWriteCloser, error) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	p := newProfile(o.log)
	reg, err := register(ctx, o.conn, p, svc.ID.String(), map[string]dbus.Variant{
		"Name":        dbus.MakeVariant(svc.Name),
		"Role":        dbus.MakeVariant("client"),
		"AutoConnect": dbus.MakeVariant(false),
	})
	if err != nil {
		return nil, err
	}

	devicePath := dbus.ObjectPath(svc.Device.Path)
	if devicePath == "" {
		return nil, releaseWith(reg, fmt.Errorf("device %s has no object path", svc.Device.Address))
	}

	// NewConnection may land before or after ConnectProfile replies; conns
	// is buffered for that.
	device := o.conn.Object(busName, devicePath)
	if err := device.CallWithContext(ctx, deviceIface+".ConnectProfile", 0, svc.ID.String()).Err; err != nil {
		return nil, releaseWith(reg, fmt.Errorf("connect profile: %w", err))
	}

	select {
	case in := <-p.conns:
		if in.device != devicePath {
			in.file.Close()
			return nil, releaseWith(reg, fmt.Errorf("connection from unexpected device %s", AddrFromPath(in.device)))
		}
		return &profileConn{File: in.file, reg: reg}, nil
	case <-ctx.Done():
		return nil, releaseWith(reg, ctx.Err())
	}
}

func releaseWith(reg *registration, err error) error {
	reg.release()
	return err
}

// profileConn is the socket BlueZ handed over. Closing it also drops the
// profile registration.
type profileConn struct {
	*os.File
	reg *registration
}

func (c *profileConn) Close() error {
	err := c.File.Close()
	c.reg.release()
	return err
}

// Listener accepts RFCOMM connections for a server-role profile.
type Listener struct {
	uuid    string
	profile *profile
	reg     *registration
	done    chan struct{}
	once    sync.Once
}

// Listen registers a server-role profile for uuid on channel. BlueZ adds the
// SDP record and passes every incoming connection to Accept.
func Listen(ctx context.Context, conn *dbus.Conn, uuid, name string, channel uint16, log logrus.FieldLogger) (*Listener, error) {
	p := newProfile(log)
	reg, err := register(ctx, conn, p, uuid, map[string]dbus.Variant{
		"Name":    dbus.MakeVariant(name),
		"Role":    dbus.MakeVariant("server"),
		"Channel": dbus.MakeVariant(channel),
	})
	if err != nil {
		return nil, err
	}
	return &Listener{uuid: uuid, profile: p, reg: reg, done: make(chan struct{})}, nil
}

// Accept blocks until a connection arrives, ctx is done or the listener is
// closed. It returns the connected socket and the peer address.
func (l *Listener) Accept(ctx context.Context) (*os.File, string, error) {
	select {
	case in := <-l.profile.conns:
		return in.file, AddrFromPath(in.device), nil
	case <-ctx.Done():
		return nil, "", ctx.Err()
	case <-l.done:
		return nil, "", net.ErrClosed
	}
}

func (l *Listener) UUID() string {
	return l.uuid
}

func (l *Listener) Close() error {
	l.once.Do(func() {
		close(l.done)
		l.reg.release()
	})
	return nil
}
