package comm

import (
	"context"
	"io"
	"time"

	"github.com/tarm/serial"
)

// TTYOpener opens a service that the OS already exposes as a serial port:
// an RFCOMM channel bound with `rfcomm bind` (/dev/rfcommN) on Linux or the
// outgoing COM port Windows creates for a paired SPP device.
type TTYOpener struct {
	Path        string
	Baud        int
	ReadTimeout time.Duration
}

func (o TTYOpener) OpenStream(ctx context.Context, _ Service) (io.ReadWriteCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return connectByCom(o.Path, o.Baud, o.ReadTimeout)
}

func connectByCom(comName string, baud int, readTimeout time.Duration) (io.ReadWriteCloser, error) {
	c := &serial.Config{Name: comName, Baud: baud, ReadTimeout: readTimeout}
	serialPort, err := serial.OpenPort(c)
	if err != nil {
		return nil, err
	}
	return serialPort, nil
}
