//go:build !linux

package hop

import "time"

func sleepBlocking(d time.Duration) error {
	time.Sleep(d)
	return nil
}
