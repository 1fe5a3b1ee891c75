package generation

import (
	"context"
	"time"

	"github.com/futig/design-agent/internal/entity"
)

type sleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// pacer separates consecutive calls to the same model. Switching models costs nothing.
type pacer struct {
	last  entity.ModelRef
	delay time.Duration
	sleep sleepFunc
}

func newPacer(delay time.Duration, sleep sleepFunc) *pacer {
	return &pacer{delay: delay, sleep: sleep}
}

func (p *pacer) before(ctx context.Context, model entity.ModelRef) error {
	if !p.last.IsZero() && p.last == model && p.delay > 0 {
		if err := p.sleep(ctx, p.delay); err != nil {
			return err
		}
	}
	p.last = model
	return nil
}
