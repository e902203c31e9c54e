package comm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSocketOpener_ContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc := Service{ID: SerialPortServiceID, Name: "SerialPort", Device: hc05}

	_, err := SocketOpener{Timeout: time.Second}.OpenStream(ctx, svc)

	assert.ErrorIs(t, err, context.Canceled)
}
