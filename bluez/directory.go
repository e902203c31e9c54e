package bluez

import (
	"context"
	"dosgo/btSerial/comm"
	"errors"
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/sirupsen/logrus"
)

var ErrNoAdapter = errors.New("no bluetooth adapter found")

type Options struct {
	// Adapter selects an adapter by name (hci0); empty picks the first one.
	Adapter string
	// RefreshTime is how long discovery runs for an Uncached service lookup.
	RefreshTime time.Duration
	Logger      logrus.FieldLogger
}

// Directory lists devices known to BlueZ and the services they expose. It
// owns a private system bus connection.
type Directory struct {
	conn    *dbus.Conn
	adapter dbus.ObjectPath
	refresh time.Duration
	log     logrus.FieldLogger
}

func Open(ctx context.Context, opts Options) (*Directory, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("connect to system bus: %w", err)
	}

	d := &Directory{
		conn:    conn,
		refresh: opts.RefreshTime,
		log:     opts.Logger,
	}
	if d.log == nil {
		d.log = logrus.StandardLogger()
	}

	objects, err := d.objects(ctx)
	if err != nil {
		conn.Close()
		return nil, err
	}
	adapter, ok := defaultAdapter(objects, opts.Adapter)
	if !ok {
		conn.Close()
		return nil, ErrNoAdapter
	}
	d.adapter = adapter
	d.log.WithField("adapter", adapter).Debug("Using bluetooth adapter")
	return d, nil
}

func (d *Directory) Close() error {
	return d.conn.Close()
}

func (d *Directory) objects(ctx context.Context) (managedObjects, error) {
	objects := make(managedObjects)
	obj := d.conn.Object(busName, "/")
	if err := obj.CallWithContext(ctx, objectManager, 0).Store(&objects); err != nil {
		return nil, fmt.Errorf("get managed objects: %w", err)
	}
	return objects, nil
}

// Devices returns the devices on the adapter that BlueZ knows about: paired
// ones and any found by a recent discovery.
func (d *Directory) Devices(ctx context.Context) ([]comm.DeviceHandle, error) {
	objects, err := d.objects(ctx)
	if err != nil {
		return nil, err
	}
	records := devicesFromObjects(objects, d.adapter)
	devices := make([]comm.DeviceHandle, 0, len(records))
	for _, r := range records {
		devices = append(devices, r.handle)
	}
	return devices, nil
}

// DevicesWithService narrows Devices to those advertising id.
func (d *Directory) DevicesWithService(ctx context.Context, id comm.ServiceID) ([]comm.DeviceHandle, error) {
	objects, err := d.objects(ctx)
	if err != nil {
		return nil, err
	}
	var devices []comm.DeviceHandle
	for _, r := range devicesFromObjects(objects, d.adapter) {
		if r.has(id) {
			devices = append(devices, r.handle)
		}
	}
	return devices, nil
}

func (d *Directory) devicePath(dev comm.DeviceHandle) dbus.ObjectPath {
	if dev.Path != "" {
		return dbus.ObjectPath(dev.Path)
	}
	return PathFromAddr(d.adapter, dev.Address)
}

// Services reads the Device1 UUIDs property. Uncached runs a discovery pass
// first so BlueZ refreshes the record of a device in range.
func (d *Directory) Services(ctx context.Context, dev comm.DeviceHandle, mode comm.CacheMode) ([]comm.Service, error) {
	if mode == comm.Uncached {
		if err := d.discover(ctx); err != nil {
			return nil, err
		}
	}

	obj := d.conn.Object(busName, d.devicePath(dev))
	v, err := obj.GetProperty(deviceIface + ".UUIDs")
	if err != nil {
		return nil, fmt.Errorf("read services of %s: %w", dev.Address, err)
	}
	uuids, ok := v.Value().([]string)
	if !ok {
		return nil, fmt.Errorf("unexpected UUIDs type %s", v.Signature())
	}

	services := servicesFromUUIDs(dev, uuids)
	d.log.WithFields(logrus.Fields{
		"device":   dev.Address,
		"mode":     mode,
		"services": len(services),
	}).Debug("Listed services")
	return services, nil
}

func (d *Directory) discover(ctx context.Context) error {
	adapter := d.conn.Object(busName, d.adapter)
	if err := adapter.CallWithContext(ctx, adapterIface+".StartDiscovery", 0).Err; err != nil {
		return fmt.Errorf("start discovery: %w", err)
	}
	defer adapter.Call(adapterIface+".StopDiscovery", 0)

	timer := time.NewTimer(d.refresh)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Opener returns a StreamFactory that connects through BlueZ profiles on
// this directory's bus connection.
func (d *Directory) Opener(timeout time.Duration) *ProfileOpener {
	return &ProfileOpener{conn: d.conn, timeout: timeout, log: d.log}
}
