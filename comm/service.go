package comm

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// ServiceID identifies a remote Bluetooth service by its 128-bit UUID.
type ServiceID uuid.UUID

// bluetoothBaseUUID is 00000000-0000-1000-8000-00805F9B34FB; 16 and 32 bit
// short ids occupy its first four bytes.
var bluetoothBaseUUID = uuid.MustParse("00000000-0000-1000-8000-00805f9b34fb")

var SerialPortServiceID = ServiceFrom16Bit(0x1101)

func ServiceFrom16Bit(short uint16) ServiceID {
	return ServiceFrom32Bit(uint32(short))
}

func ServiceFrom32Bit(short uint32) ServiceID {
	id := bluetoothBaseUUID
	id[0] = byte(short >> 24)
	id[1] = byte(short >> 16)
	id[2] = byte(short >> 8)
	id[3] = byte(short)
	return ServiceID(id)
}

// ParseServiceID accepts a full UUID or a 16/32 bit short form such as
// "1101" or "0x1101".
func ParseServiceID(s string) (ServiceID, error) {
	s = strings.TrimSpace(s)
	short := strings.TrimPrefix(strings.ToLower(s), "0x")
	if len(short) == 4 || len(short) == 8 {
		v, err := strconv.ParseUint(short, 16, 32)
		if err != nil {
			return ServiceID{}, fmt.Errorf("invalid service id %q: %w", s, err)
		}
		return ServiceFrom32Bit(uint32(v)), nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return ServiceID{}, fmt.Errorf("invalid service id %q: %w", s, err)
	}
	return ServiceID(id), nil
}

func (id ServiceID) String() string {
	return uuid.UUID(id).String()
}

var knownServices = map[ServiceID]string{
	ServiceFrom16Bit(0x1101): "SerialPort",
	ServiceFrom16Bit(0x1103): "DialupNetworking",
	ServiceFrom16Bit(0x1105): "ObexObjectPush",
	ServiceFrom16Bit(0x1106): "ObexFileTransfer",
	ServiceFrom16Bit(0x1108): "Headset",
	ServiceFrom16Bit(0x110a): "AudioSource",
	ServiceFrom16Bit(0x110b): "AudioSink",
	ServiceFrom16Bit(0x110c): "AVRemoteControlTarget",
	ServiceFrom16Bit(0x110e): "AVRemoteControl",
	ServiceFrom16Bit(0x111e): "Handsfree",
	ServiceFrom16Bit(0x111f): "HandsfreeAudioGateway",
	ServiceFrom16Bit(0x1124): "HumanInterfaceDevice",
	ServiceFrom16Bit(0x112f): "PhonebookAccess",
	ServiceFrom16Bit(0x1200): "PnPInformation",
	ServiceFrom16Bit(0x1800): "GenericAccess",
	ServiceFrom16Bit(0x1801): "GenericAttribute",
}

// Name returns the well-known profile name, or the UUID when unknown.
func (id ServiceID) Name() string {
	if name, ok := knownServices[id]; ok {
		return name
	}
	return id.String()
}

// DeviceHandle identifies a discovered device. Path is the BlueZ object path
// and may be empty for directories that do not use D-Bus.
type DeviceHandle struct {
	Address   string
	Name      string
	Path      string
	Paired    bool
	Connected bool
}

func (d DeviceHandle) String() string {
	if d.Name == "" {
		return d.Address
	}
	return fmt.Sprintf("%s (%s)", d.Name, d.Address)
}

// Service is one service exposed by a device.
type Service struct {
	ID     ServiceID
	Name   string
	Device DeviceHandle
}

func (s Service) String() string {
	return s.Device.Address + "/" + s.Name
}

type CacheMode int

const (
	// Cached answers from what the system already knows about the device.
	Cached CacheMode = iota
	// Uncached refreshes the device record before listing its services.
	Uncached
)

func ParseCacheMode(s string) (CacheMode, error) {
	switch strings.ToLower(s) {
	case "", "cached":
		return Cached, nil
	case "uncached":
		return Uncached, nil
	}
	return Cached, fmt.Errorf("invalid cache mode %q (must be cached or uncached)", s)
}

func (m CacheMode) String() string {
	if m == Uncached {
		return "uncached"
	}
	return "cached"
}

// Picker presents the available devices and returns the one the user chose.
// ok is false when the user cancelled or there was nothing to choose from.
type Picker interface {
	PickDevice(ctx context.Context) (dev DeviceHandle, ok bool, err error)
}

// Directory lists the services a device exposes.
type Directory interface {
	Services(ctx context.Context, dev DeviceHandle, mode CacheMode) ([]Service, error)
}

// StreamFactory opens a byte stream on a resolved service.
type StreamFactory interface {
	OpenStream(ctx context.Context, svc Service) (io.ReadWriteCloser, error)
}

// FindService returns the first service whose id equals id. Services after
// the match are not inspected.
func FindService(services []Service, id ServiceID) (Service, bool) {
	for _, svc := range services {
		if svc.ID == id {
			return svc, true
		}
	}
	return Service{}, false
}

// OpenServiceStream resolves id on dev and opens a stream on it. A device
// without the service is not an error: ok is false and the caller decides.
func OpenServiceStream(ctx context.Context, dir Directory, factory StreamFactory, dev DeviceHandle, id ServiceID, mode CacheMode) (*Stream, bool, error) {
	services, err := dir.Services(ctx, dev, mode)
	if err != nil {
		return nil, false, fmt.Errorf("list services of %s: %w", dev.Address, err)
	}

	svc, ok := FindService(services, id)
	if !ok {
		return nil, false, nil
	}

	conn, err := factory.OpenStream(ctx, svc)
	if err != nil {
		return nil, false, fmt.Errorf("open %s: %w", svc, err)
	}
	return NewStream(svc.String(), conn), true, nil
}
