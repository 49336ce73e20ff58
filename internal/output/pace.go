package output

import (
	"context"
	"time"

	"github.com/jaxxstorm/poolcheck/internal/model"
)

// Pace forwards events keeping at least delay between consecutive items.
// Pacing is a view concern; the producer is never slowed by it beyond the
// buffer it already owns. A zero delay forwards events unchanged.
func Pace(ctx context.Context, in <-chan model.Event, delay time.Duration) <-chan model.Event {
	if delay <= 0 {
		return in
	}
	out := make(chan model.Event)
	go func() {
		defer close(out)
		var last time.Time
		for event := range in {
			if !last.IsZero() {
				if wait := delay - time.Since(last); wait > 0 {
					timer := time.NewTimer(wait)
					select {
					case <-ctx.Done():
						timer.Stop()
					case <-timer.C:
					}
				}
			}
			if ctx.Err() != nil {
				return
			}
			select {
			case out <- event:
			case <-ctx.Done():
				return
			}
			last = time.Now()
		}
	}()
	return out
}
