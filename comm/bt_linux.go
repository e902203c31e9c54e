package comm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// parseMAC converts "AA:BB:CC:DD:EE:FF" into the little-endian bdaddr_t
// layout the kernel expects.
func parseMAC(macStr string) ([6]byte, error) {
	var b [6]byte
	hw, err := net.ParseMAC(macStr)
	if err != nil {
		return b, err
	}
	if len(hw) != 6 {
		return b, fmt.Errorf("invalid bluetooth address %q", macStr)
	}
	for i := 0; i < 6; i++ {
		b[i] = hw[5-i]
	}
	return b, nil
}

// connectByAddr dials RFCOMM directly. Linux has no in-kernel SDP lookup, so
// the service id is not used here: channel picks the RFCOMM channel, and
// channel 0 probes 1..probe in order. Probing stops once ctx is done.
func connectByAddr(ctx context.Context, macAddrStr string, _ ServiceID, channel, probe int) (ReadWriteCloseWithDeadline, error) {
	addr, err := parseMAC(macAddrStr)
	if err != nil {
		return nil, err
	}

	channels := []int{channel}
	if channel == 0 {
		channels = channels[:0]
		for ch := 1; ch <= probe; ch++ {
			channels = append(channels, ch)
		}
	}

	lastErr := fmt.Errorf("no channel to try")
	for _, ch := range channels {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("connect to %s: %w", macAddrStr, err)
		}
		file, err := dialChannel(ctx, addr, ch, fmt.Sprintf("rfcomm-%s-%d", macAddrStr, ch))
		if err == nil {
			return file, nil
		}
		lastErr = fmt.Errorf("channel %d: %w", ch, err)
	}

	return nil, fmt.Errorf("connect to %s: %w", macAddrStr, lastErr)
}

// dialChannel runs a non-blocking connect and waits for it to complete.
func dialChannel(ctx context.Context, addr [6]byte, ch int, name string) (*os.File, error) {
	fd, err := unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_STREAM|unix.SOCK_CLOEXEC|unix.SOCK_NONBLOCK, unix.BTPROTO_RFCOMM)
	if err != nil {
		return nil, fmt.Errorf("create rfcomm socket: %w", err)
	}

	err = unix.Connect(fd, &unix.SockaddrRFCOMM{Addr: addr, Channel: uint8(ch)})
	if errors.Is(err, unix.EINPROGRESS) {
		err = waitWritable(ctx, fd)
		if err == nil {
			err = socketError(fd)
		}
	}
	if err != nil {
		unix.Close(fd)
		return nil, err
	}
	return FileFromFD(fd, name)
}

const connectPollSlice = 100 * time.Millisecond

// waitWritable blocks until fd reports writable (or an error condition) or
// ctx is done.
func waitWritable(ctx context.Context, fd int) error {
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLOUT}}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		slice := connectPollSlice
		if deadline, ok := ctx.Deadline(); ok {
			slice = min(slice, time.Until(deadline))
		}
		ms := max(int(slice/time.Millisecond), 1)

		n, err := unix.Poll(fds, ms)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return fmt.Errorf("poll: %w", err)
		}
		if n > 0 {
			return nil
		}
	}
}

// socketError reads the result of a completed non-blocking connect.
func socketError(fd int) error {
	v, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return err
	}
	if v != 0 {
		return unix.Errno(v)
	}
	return nil
}

// FileFromFD takes ownership of a connected socket and wraps it in an
// *os.File. The fd is switched to non-blocking mode first so the runtime
// poller serves it and read deadlines work.
func FileFromFD(fd int, name string) (*os.File, error) {
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("set nonblock: %w", err)
	}
	return os.NewFile(uintptr(fd), name), nil
}
