package probe

import (
	"math"
	"time"
)

// NoSample marks min/max/avg when no attempt succeeded.
const NoSample = -1.0

type stats struct {
	min  float64
	max  float64
	avg  float64
	loss float64
}

// summarize computes latency statistics over successful samples and packet
// loss over all attempts. Loss is always failed/attempts, so a target with
// no successful sample reports 100.
func summarize(samples []float64, attempts int) stats {
	if attempts <= 0 {
		return stats{min: NoSample, max: NoSample, avg: NoSample, loss: 100}
	}
	failed := attempts - len(samples)
	if failed < 0 {
		failed = 0
	}
	loss := 100 * float64(failed) / float64(attempts)
	if len(samples) == 0 {
		return stats{min: NoSample, max: NoSample, avg: NoSample, loss: loss}
	}

	minRTT := math.MaxFloat64
	maxRTT := 0.0
	sum := 0.0
	for _, s := range samples {
		sum += s
		if s < minRTT {
			minRTT = s
		}
		if s > maxRTT {
			maxRTT = s
		}
	}
	avg := sum / float64(len(samples))
	avg = math.Min(math.Max(avg, minRTT), maxRTT)
	return stats{min: minRTT, max: maxRTT, avg: avg, loss: loss}
}

func milliseconds(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
