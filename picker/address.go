package picker

import (
	"context"
	"dosgo/btSerial/comm"
	"fmt"
	"strings"
)

// Address picks the device whose address was configured up front. With no
// matching device in the source it reports a cancelled pick.
type Address struct {
	Source  Source
	Address string
}

func (p *Address) PickDevice(ctx context.Context) (comm.DeviceHandle, bool, error) {
	devices, err := p.Source.Devices(ctx)
	if err != nil {
		return comm.DeviceHandle{}, false, fmt.Errorf("list devices: %w", err)
	}
	for _, dev := range devices {
		if strings.EqualFold(dev.Address, p.Address) {
			return dev, true, nil
		}
	}
	return comm.DeviceHandle{}, false, nil
}
