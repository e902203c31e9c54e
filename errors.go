package main

import (
	"dosgo/btSerial/bluez"
	"dosgo/btSerial/comm"
	"errors"
)

// formatUserError adds a hint for the failures a user can fix themselves.
func formatUserError(err error) string {
	switch {
	case errors.Is(err, comm.ErrNoDeviceSelected):
		return err.Error() + " (pair the device in the OS Bluetooth settings first)"
	case errors.Is(err, comm.ErrRequiredServiceUnavailable):
		return err.Error() + " (retry with --uncached if the device was just switched on)"
	case errors.Is(err, bluez.ErrNoAdapter):
		return err.Error() + " (is the adapter powered and bluetoothd running?)"
	case errors.Is(err, comm.ErrNotSupported):
		return err.Error() + " (try --transport tty)"
	}
	return err.Error()
}
