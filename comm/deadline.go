package comm

import (
	"os"
	"time"
)

const readPollInterval = 2 * time.Millisecond

// waitReadable polls available until it reports pending bytes or deadline
// passes, in which case it returns os.ErrDeadlineExceeded.
func waitReadable(deadline time.Time, available func() (int, error)) error {
	for {
		n, err := available()
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
		left := time.Until(deadline)
		if left <= 0 {
			return os.ErrDeadlineExceeded
		}
		time.Sleep(min(readPollInterval, left))
	}
}
