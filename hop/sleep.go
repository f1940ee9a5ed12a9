package hop

import (
	"math"
	"time"
)

// builtinSleep blocks the whole run. Integers are seconds; floats are
// fractional seconds converted to nanoseconds.
func builtinSleep(c *Context) error {
	arg, err := c.PopArgOf("sleep", KindInteger, KindFloat)
	if err != nil {
		return err
	}
	var d time.Duration
	switch arg.Kind() {
	case KindInteger:
		if arg.Integer() < 0 {
			return c.Errorf(ErrRange, "sleep: negative duration %d", arg.Integer())
		}
		d = time.Duration(arg.Integer()) * time.Second
	default:
		secs := arg.Float()
		if math.IsNaN(secs) || secs < 0 || secs > float64(math.MaxInt64)/float64(time.Second) {
			return c.Errorf(ErrRange, "sleep: invalid duration %f", secs)
		}
		d = time.Duration(secs * float64(time.Second))
	}
	if d == 0 {
		return nil
	}
	return sleepBlocking(d)
}
