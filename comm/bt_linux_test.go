package comm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestParseMAC(t *testing.T) {
	b, err := parseMAC("94:d3:31:d3:04:f3")
	require.NoError(t, err)
	assert.Equal(t, [6]byte{0xf3, 0x04, 0xd3, 0x31, 0xd3, 0x94}, b)

	_, err = parseMAC("94:d3:31")
	assert.Error(t, err)

	_, err = parseMAC("00:00:5e:00:53:01:02:03")
	assert.Error(t, err, "EUI-64 is not a bluetooth address")
}

func TestWaitWritable_Ready(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	require.NoError(t, waitWritable(context.Background(), fds[0]))
	assert.NoError(t, socketError(fds[0]))
}

func TestWaitWritable_HonorsContext(t *testing.T) {
	// the read end of a pipe never becomes writable
	var p [2]int
	require.NoError(t, unix.Pipe(p[:]))
	defer unix.Close(p[0])
	defer unix.Close(p[1])

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	start := time.Now()

	err := waitWritable(ctx, p[0])

	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestConnectByAddr_StopsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := connectByAddr(ctx, "98:D3:31:F5:1A:2B", SerialPortServiceID, 0, 5)

	assert.ErrorIs(t, err, context.Canceled)
}
