// Package picker lets the user choose the device to talk to. Every picker
// reports cancellation as ok == false with a nil error.
package picker

import (
	"context"
	"dosgo/btSerial/comm"
	"fmt"
	"strings"
)

// Source lists the devices a picker offers.
type Source interface {
	Devices(ctx context.Context) ([]comm.DeviceHandle, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([]comm.DeviceHandle, error)

func (f SourceFunc) Devices(ctx context.Context) ([]comm.DeviceHandle, error) {
	return f(ctx)
}

func describe(dev comm.DeviceHandle) string {
	var flags []string
	if dev.Paired {
		flags = append(flags, "paired")
	}
	if dev.Connected {
		flags = append(flags, "connected")
	}
	if len(flags) == 0 {
		return dev.Address
	}
	return fmt.Sprintf("%s (%s)", dev.Address, strings.Join(flags, ", "))
}

func title(dev comm.DeviceHandle) string {
	if dev.Name == "" {
		return dev.Address
	}
	return dev.Name
}
