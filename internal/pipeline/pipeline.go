package pipeline

import (
	"context"
	"time"

	"github.com/jaxxstorm/poolcheck/internal/model"
	"github.com/jaxxstorm/poolcheck/internal/probe"
	"github.com/jaxxstorm/poolcheck/internal/resolve"
	"go.uber.org/zap"
)

type Verifier interface {
	Verify(ctx context.Context, metaURL string, expectedHash string) (model.VerificationResult, error)
}

type Prober interface {
	ProbeAll(ctx context.Context, targets []model.ProbeTarget, timeout time.Duration, samples int) <-chan model.ProbeResult
}

type Config struct {
	ProbeTimeout time.Duration
	Samples      int
	Logger       *zap.Logger
}

// Runner holds no per-run state; concurrent Run calls do not interact.
type Runner struct {
	verifier Verifier
	prober   Prober
	config   Config
}

func New(verifier Verifier, prober Prober, cfg Config) *Runner {
	if cfg.ProbeTimeout == 0 {
		cfg.ProbeTimeout = probe.DefaultTimeout
	}
	if cfg.Samples == 0 {
		cfg.Samples = probe.DefaultSamples
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Runner{verifier: verifier, prober: prober, config: cfg}
}

// Run verifies record's metadata and probes its relays. Probes start
// immediately, concurrently with verification. The returned channel yields
// the verification event first, then one probe event per valid relay in
// completion order, and is closed after the last one.
func (r *Runner) Run(ctx context.Context, record model.Record) <-chan model.Event {
	targets := resolve.Targets(record.Relays)
	logger := r.config.Logger.With(zap.String("pool", record.ID))
	if skipped := len(record.Relays) - len(targets); skipped > 0 {
		logger.Info("skipping relays without an address", zap.Int("skipped", skipped))
	}

	out := make(chan model.Event, len(targets)+1)
	probes := r.prober.ProbeAll(ctx, targets, r.config.ProbeTimeout, r.config.Samples)

	verified := make(chan model.VerificationResult, 1)
	go func() {
		result, err := r.verifier.Verify(ctx, record.MetaURL, record.MetaHash)
		if err != nil {
			logger.Warn("metadata verification incomplete", zap.Error(err))
		}
		verified <- result
	}()

	go func() {
		defer close(out)
		v := <-verified
		out <- model.Event{Kind: model.EventVerification, Verification: &v}
		for p := range probes {
			out <- model.Event{Kind: model.EventProbe, Probe: &p}
		}
		logger.Debug("run complete", zap.Int("probes", len(targets)))
	}()
	return out
}
