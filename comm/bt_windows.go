package comm

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	afBTH          = 32
	btProtoRFCOMM  = 3
	sockaddrBTHLen = 30

	soSndTimeo = 0x1005
	fionRead   = 0x4004667f
)

var modws2_32 = windows.NewLazySystemDLL("ws2_32.dll")
var procConnect = modws2_32.NewProc("connect")

func macToUint64(macStr string) (uint64, error) {
	hw, err := net.ParseMAC(macStr)
	if err != nil {
		return 0, err
	}

	var result uint64
	// hw[0] is the most significant byte of BTH_ADDR
	for i := 0; i < 6; i++ {
		result = (result << 8) | uint64(hw[i])
	}
	return result, nil
}

// connectByAddr lets Winsock resolve the RFCOMM channel from the service GUID
// when channel is 0. probe is unused: the SDP lookup makes probing pointless.
// The socket is closed when ctx is done, which aborts a pending connect.
func connectByAddr(ctx context.Context, macAddrStr string, id ServiceID, channel, _ int) (ReadWriteCloseWithDeadline, error) {
	macAddr, err := macToUint64(macAddrStr)
	if err != nil {
		return nil, err
	}
	guid, err := windows.GUIDFromString("{" + id.String() + "}")
	if err != nil {
		return nil, err
	}

	fd, err := windows.Socket(afBTH, windows.SOCK_STREAM, btProtoRFCOMM)
	if err != nil {
		return nil, fmt.Errorf("create rfcomm socket: %w", err)
	}

	// SOCKADDR_BTH is packed: Family(2) + Addr(8) + GUID(16) + Port(4).
	// Built by hand to avoid Go's struct alignment padding.
	rawSa := make([]byte, sockaddrBTHLen)
	*(*uint16)(unsafe.Pointer(&rawSa[0])) = afBTH
	*(*uint64)(unsafe.Pointer(&rawSa[2])) = macAddr
	*(*windows.GUID)(unsafe.Pointer(&rawSa[10])) = guid
	*(*uint32)(unsafe.Pointer(&rawSa[26])) = uint32(channel)

	stop := context.AfterFunc(ctx, func() { windows.Closesocket(fd) })
	r1, _, err := procConnect.Call(uintptr(fd), uintptr(unsafe.Pointer(&rawSa[0])), uintptr(sockaddrBTHLen))
	if !stop() {
		return nil, fmt.Errorf("winsock connect to %s: %w", macAddrStr, ctx.Err())
	}
	if r1 != 0 {
		windows.Closesocket(fd)
		return nil, fmt.Errorf("winsock connect to %s: %w", macAddrStr, err)
	}

	return &RawBtSocket{fd: fd}, nil
}

// FileFromFD is a Linux facility; BlueZ fd handoff does not exist here.
func FileFromFD(fd int, name string) (*os.File, error) {
	return nil, ErrNotSupported
}

// RawBtSocket is a connected AF_BTH socket. Read deadlines are enforced by
// waiting for FIONREAD to report data before WSARecv, not by SO_RCVTIMEO:
// Winsock leaves a socket in an indeterminate state after a receive timeout.
type RawBtSocket struct {
	fd           windows.Handle
	readDeadline time.Time
}

func (s *RawBtSocket) Read(p []byte) (int, error) {
	if s.fd == windows.InvalidHandle {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}

	if !s.readDeadline.IsZero() {
		if err := waitReadable(s.readDeadline, s.available); err != nil {
			return 0, err
		}
	}

	var buf windows.WSABuf
	buf.Len = uint32(len(p))
	buf.Buf = &p[0]

	var done uint32
	var flags uint32
	err := windows.WSARecv(s.fd, &buf, 1, &done, &flags, nil, nil)
	if err != nil {
		if err == windows.WSAEWOULDBLOCK {
			return 0, nil
		}
		return 0, err
	}
	// zero bytes without error means the peer closed the connection
	if done == 0 {
		return 0, io.EOF
	}
	return int(done), nil
}

func (s *RawBtSocket) Write(p []byte) (int, error) {
	if s.fd == windows.InvalidHandle {
		return 0, syscall.EINVAL
	}

	var totalSent int
	for totalSent < len(p) {
		var done uint32
		var buf windows.WSABuf
		remaining := p[totalSent:]
		buf.Len = uint32(len(remaining))
		buf.Buf = &remaining[0]

		err := windows.WSASend(s.fd, &buf, 1, &done, 0, nil, nil)
		if err != nil {
			if err == windows.WSAEWOULDBLOCK {
				continue
			}
			return totalSent, err
		}
		if done == 0 {
			return totalSent, io.ErrUnexpectedEOF
		}
		totalSent += int(done)
	}
	return totalSent, nil
}

func (s *RawBtSocket) Close() error {
	if s.fd != windows.InvalidHandle {
		windows.Closesocket(s.fd)
		s.fd = windows.InvalidHandle
	}
	return nil
}

// timeoutMillis converts a deadline into an SO_SNDTIMEO value.
// The zero time clears the timeout; a past deadline becomes 1ms.
func timeoutMillis(t time.Time) int {
	if t.IsZero() {
		return 0
	}
	ms := int(time.Until(t) / time.Millisecond)
	if ms < 1 {
		ms = 1
	}
	return ms
}

// available reports how many bytes can be read without blocking. A peer
// that closed shows up as 0, so with a read deadline set a hangup reads as a
// timeout until the deadline is cleared.
func (s *RawBtSocket) available() (int, error) {
	var n, returned uint32
	err := windows.WSAIoctl(s.fd, fionRead, nil, 0, (*byte)(unsafe.Pointer(&n)), uint32(unsafe.Sizeof(n)), &returned, nil, 0)
	return int(n), err
}

func (s *RawBtSocket) SetReadDeadline(t time.Time) error {
	if s.fd == windows.InvalidHandle {
		return syscall.EINVAL
	}
	s.readDeadline = t
	return nil
}

func (s *RawBtSocket) SetWriteDeadline(t time.Time) error {
	return windows.SetsockoptInt(s.fd, windows.SOL_SOCKET, soSndTimeo, timeoutMillis(t))
}

func (s *RawBtSocket) SetDeadline(t time.Time) error {
	if err := s.SetReadDeadline(t); err != nil {
		return err
	}
	return s.SetWriteDeadline(t)
}
