package main

import (
	"context"
	"dosgo/btSerial/bluez"
	"dosgo/btSerial/comm"
	"dosgo/btSerial/picker"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// directory is what the commands need from a device directory: the device
// list for pickers and the service list for resolution.
type directory interface {
	picker.Source
	comm.Directory
}

type serviceFilter interface {
	DevicesWithService(ctx context.Context, id comm.ServiceID) ([]comm.DeviceHandle, error)
}

// openDirectory returns the configured directory and a function releasing it.
func openDirectory(ctx context.Context, cfg *comm.Config, log logrus.FieldLogger) (directory, func(), error) {
	switch cfg.Directory {
	case "bluez":
		dir, err := bluez.Open(ctx, bluez.Options{
			Adapter:     cfg.Adapter,
			RefreshTime: cfg.RefreshTime,
			Logger:      log,
		})
		if err != nil {
			return nil, nil, err
		}
		return dir, func() { dir.Close() }, nil
	case "static":
		id, err := cfg.ServiceID()
		if err != nil {
			return nil, nil, err
		}
		dir := comm.StaticDirectory{Provides: []comm.ServiceID{id}}
		if cfg.Address != "" {
			dir.Known = []comm.DeviceHandle{{Address: cfg.Address, Paired: true}}
		}
		return dir, func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown directory %q", cfg.Directory)
}

func newFactory(cfg *comm.Config, dir directory) (comm.StreamFactory, error) {
	switch cfg.Transport {
	case "profile":
		bz, ok := dir.(*bluez.Directory)
		if !ok {
			return nil, errors.New("the profile transport needs the bluez directory")
		}
		return bz.Opener(cfg.ConnectTimeout), nil
	case "socket":
		return comm.SocketOpener{Channel: cfg.Channel, ProbeChannels: cfg.ProbeChannels, Timeout: cfg.ConnectTimeout}, nil
	case "tty":
		return comm.TTYOpener{Path: cfg.TTY, Baud: cfg.Baud, ReadTimeout: cfg.ReadTimeout}, nil
	}
	return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
}

func newPicker(cfg *comm.Config, src picker.Source) (comm.Picker, error) {
	switch cfg.Picker {
	case "terminal":
		return &picker.Terminal{Source: src}, nil
	case "window":
		return &picker.Window{Source: src}, nil
	case "address":
		return &picker.Address{Source: src, Address: cfg.Address}, nil
	}
	return nil, fmt.Errorf("unknown picker %q", cfg.Picker)
}

// devicesWithService uses the directory's own filter when it has one and
// falls back to a cached service lookup per device.
func devicesWithService(ctx context.Context, dir directory, id comm.ServiceID) ([]comm.DeviceHandle, error) {
	if f, ok := dir.(serviceFilter); ok {
		return f.DevicesWithService(ctx, id)
	}
	devices, err := dir.Devices(ctx)
	if err != nil {
		return nil, err
	}
	var out []comm.DeviceHandle
	for _, dev := range devices {
		services, err := dir.Services(ctx, dev, comm.Cached)
		if err != nil {
			return nil, err
		}
		if _, ok := comm.FindService(services, id); ok {
			out = append(out, dev)
		}
	}
	return out, nil
}
