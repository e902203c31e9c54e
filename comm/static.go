package comm

import "context"

// StaticDirectory serves a fixed device list and claims a fixed service set
// for every device. It stands in for service discovery on hosts without
// BlueZ, where the OS has already paired the device (typically behind a COM
// port).
type StaticDirectory struct {
	Known    []DeviceHandle
	Provides []ServiceID
}

func (d StaticDirectory) Devices(ctx context.Context) ([]DeviceHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]DeviceHandle(nil), d.Known...), nil
}

func (d StaticDirectory) Services(ctx context.Context, dev DeviceHandle, _ CacheMode) ([]Service, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	services := make([]Service, 0, len(d.Provides))
	for _, id := range d.Provides {
		services = append(services, Service{ID: id, Name: id.Name(), Device: dev})
	}
	return services, nil
}
