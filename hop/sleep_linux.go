//go:build linux

package hop

import (
	"errors"
	"time"

	"golang.org/x/sys/unix"
)

// sleepBlocking parks the calling thread in nanosleep, resuming after
// signal interruptions with the remaining time.
func sleepBlocking(d time.Duration) error {
	ts := unix.NsecToTimespec(d.Nanoseconds())
	for {
		var rem unix.Timespec
		err := unix.Nanosleep(&ts, &rem)
		if err == nil {
			return nil
		}
		if !errors.Is(err, unix.EINTR) {
			return err
		}
		ts = rem
	}
}
