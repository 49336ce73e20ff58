package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/jaxxstorm/poolcheck/internal/dnsclient"
	"github.com/jaxxstorm/poolcheck/internal/model"
	"go.uber.org/zap"
)

const (
	DefaultTimeout = 2 * time.Second
	DefaultSamples = 3
)

// SRVResolver maps an SRV relay name to dialable services.
type SRVResolver interface {
	LookupSRV(ctx context.Context, name string) ([]dnsclient.Service, error)
}

type Config struct {
	Pinger Pinger
	SRV    SRVResolver
	Logger *zap.Logger
}

type Engine struct {
	config Config
}

func NewEngine(cfg Config) *Engine {
	if cfg.Pinger == nil {
		cfg.Pinger = &TCPPinger{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Engine{config: cfg}
}

// ProbeAll starts one probe per target without waiting for any other and
// delivers each result as soon as its probe finishes. The channel receives
// exactly len(targets) results and is then closed. Cancelling ctx fails the
// outstanding attempts; it does not drop results.
func (e *Engine) ProbeAll(ctx context.Context, targets []model.ProbeTarget, timeout time.Duration, samples int) <-chan model.ProbeResult {
	out := make(chan model.ProbeResult, len(targets))
	wg := sync.WaitGroup{}

	for _, target := range targets {
		wg.Add(1)
		go func(t model.ProbeTarget) {
			defer wg.Done()
			out <- e.Probe(ctx, t, timeout, samples)
		}(target)
	}

	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// Probe runs samples sequential attempts against target, each bounded by
// timeout. A failed or timed out attempt counts as one lost sample.
func (e *Engine) Probe(ctx context.Context, target model.ProbeTarget, timeout time.Duration, samples int) model.ProbeResult {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if samples < 1 {
		samples = DefaultSamples
	}
	logger := e.config.Logger.With(zap.String("host", target.Host), zap.Int("port", target.Port), zap.String("kind", string(target.Kind)))

	result := model.ProbeResult{
		Target:    target,
		Method:    e.config.Pinger.Name(),
		Samples:   []float64{},
		Attempts:  samples,
		Timestamp: time.Now(),
	}

	address, err := e.address(ctx, target, timeout)
	if err != nil {
		logger.Info("relay address unresolved", zap.Error(err))
		result.Error = err.Error()
		finish(&result)
		return result
	}
	result.Address = address

	var lastErr error
	for i := 0; i < samples; i++ {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		rtt, err := e.config.Pinger.Ping(attemptCtx, address)
		cancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				err = fmt.Errorf("timeout after %s", timeout)
			}
			logger.Debug("probe attempt failed", zap.Int("attempt", i), zap.String("address", address), zap.Error(err))
			lastErr = err
			continue
		}
		logger.Debug("probe attempt", zap.Int("attempt", i), zap.String("address", address), zap.Duration("rtt", rtt))
		result.Samples = append(result.Samples, milliseconds(rtt))
	}
	result.Method = e.config.Pinger.Name()
	if lastErr != nil && len(result.Samples) == 0 {
		result.Error = lastErr.Error()
	}

	finish(&result)
	logger.Info("relay probed",
		zap.String("address", address),
		zap.Bool("reachable", result.Reachable),
		zap.Float64("avg_ms", result.AvgMs),
		zap.Float64("packet_loss", result.PacketLoss),
	)
	return result
}

func finish(result *model.ProbeResult) {
	s := summarize(result.Samples, result.Attempts)
	result.Reachable = len(result.Samples) > 0
	result.MinMs = s.min
	result.MaxMs = s.max
	result.AvgMs = s.avg
	result.PacketLoss = s.loss
}

// address returns the dialable "host:port" for target. SRV names are looked
// up first; the service port is used unless it is zero.
func (e *Engine) address(ctx context.Context, target model.ProbeTarget, timeout time.Duration) (string, error) {
	if target.Kind != model.KindSRV {
		return net.JoinHostPort(target.Host, strconv.Itoa(target.Port)), nil
	}
	if e.config.SRV == nil {
		return "", fmt.Errorf("no SRV resolver configured for %s", target.Host)
	}

	lookupCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	services, err := e.config.SRV.LookupSRV(lookupCtx, target.Host)
	if err != nil {
		return "", err
	}
	if len(services) == 0 {
		return "", fmt.Errorf("%w for %s", dnsclient.ErrNoSRV, target.Host)
	}
	port := services[0].Port
	if port == 0 {
		port = target.Port
	}
	return net.JoinHostPort(services[0].Target, strconv.Itoa(port)), nil
}
