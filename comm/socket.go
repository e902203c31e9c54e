package comm

import (
	"context"
	"io"
	"time"
)

// SocketOpener connects an RFCOMM socket straight to the device. Channel 0
// lets the platform pick: Winsock resolves it from the service id, Linux
// probes channels 1..ProbeChannels. Timeout bounds the whole connect,
// probing included.
type SocketOpener struct {
	Channel       int
	ProbeChannels int
	Timeout       time.Duration
}

func (o SocketOpener) OpenStream(ctx context.Context, svc Service) (io.ReadWriteCloser, error) {
	if o.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.Timeout)
		defer cancel()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return connectByAddr(ctx, svc.Device.Address, svc.ID, o.Channel, o.ProbeChannels)
}
