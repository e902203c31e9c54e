package comm

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWaitReadable(t *testing.T) {
	tests := []struct {
		name    string
		counts  []int
		err     error
		wantErr error
	}{
		{name: "data pending", counts: []int{1}},
		{name: "data after a few polls", counts: []int{0, 0, 3}},
		{name: "never readable", counts: nil, wantErr: os.ErrDeadlineExceeded},
		{name: "query fails", err: errors.New("socket closed"), wantErr: errors.New("socket closed")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			polls := 0
			available := func() (int, error) {
				if tt.err != nil {
					return 0, tt.err
				}
				defer func() { polls++ }()
				if polls < len(tt.counts) {
					return tt.counts[polls], nil
				}
				return 0, nil
			}

			err := waitReadable(time.Now().Add(30*time.Millisecond), available)

			if tt.wantErr == nil {
				assert.NoError(t, err)
				assert.Equal(t, len(tt.counts), polls)
				return
			}
			assert.EqualError(t, err, tt.wantErr.Error())
		})
	}
}

func TestWaitReadable_PastDeadline(t *testing.T) {
	start := time.Now()

	err := waitReadable(start.Add(-time.Second), func() (int, error) { return 0, nil })

	assert.ErrorIs(t, err, os.ErrDeadlineExceeded)
	assert.Less(t, time.Since(start), 20*time.Millisecond)
}
