//go:build !linux && !windows

package comm

import (
	"context"
	"os"
)

func connectByAddr(_ context.Context, macAddrStr string, _ ServiceID, _, _ int) (ReadWriteCloseWithDeadline, error) {
	return nil, ErrNotSupported
}

func FileFromFD(fd int, name string) (*os.File, error) {
	return nil, ErrNotSupported
}
