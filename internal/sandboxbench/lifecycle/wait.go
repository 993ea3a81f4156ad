package lifecycle

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"k8s.io/utils/clock"
)

// ConditionFunc reports whether the condition being waited for holds.
// A non-nil error stops the wait.
type ConditionFunc func(ctx context.Context) (done bool, err error)

// Until evaluates condition immediately and then every interval until it returns true,
// returns an error, or ctx is done. The context error is returned in the last case.
func Until(ctx context.Context, c clock.Clock, interval time.Duration, condition ConditionFunc) error {
	for {
		done, err := condition(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		t := c.NewTimer(interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return errors.WithStack(ctx.Err())
		case <-t.C():
		}
	}
}
