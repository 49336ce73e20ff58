package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"time"

	"github.com/alecthomas/kong"
	"github.com/jaxxstorm/poolcheck/internal/analyze"
	"github.com/jaxxstorm/poolcheck/internal/config"
	"github.com/jaxxstorm/poolcheck/internal/dnsclient"
	"github.com/jaxxstorm/poolcheck/internal/koios"
	"github.com/jaxxstorm/poolcheck/internal/model"
	"github.com/jaxxstorm/poolcheck/internal/output"
	"github.com/jaxxstorm/poolcheck/internal/pipeline"
	"github.com/jaxxstorm/poolcheck/internal/probe"
	"github.com/jaxxstorm/poolcheck/internal/resolvconf"
	"github.com/jaxxstorm/poolcheck/internal/resolve"
	"github.com/jaxxstorm/poolcheck/internal/verify"
	"go.uber.org/zap"
)

var Version = "dev"

type Globals struct {
	Config       string        `type:"path" help:"YAML config file."`
	ProbeTimeout time.Duration `help:"Timeout per probe attempt."`
	Samples      int           `help:"Probe attempts per relay."`
	Mode         string        `help:"Probe method: tcp, icmp or auto."`
	Resolvers    []string      `name:"resolver" help:"Resolver IPs for SRV relays (repeatable). If not set, uses system resolvers."`
	Output       string        `help:"Output format: pretty or json."`
	Verbose      bool          `help:"Enable verbose logging."`
	Debug        bool          `help:"Enable debug logging (includes raw DNS messages)."`
}

type CLI struct {
	Globals

	Check   CheckCmd   `cmd:"" default:"withargs" help:"Verify pool metadata and probe relays (default)."`
	Verify  VerifyCmd  `cmd:"" help:"Verify a metadata URL against a hash."`
	Ping    PingCmd    `cmd:"" help:"Probe a single relay."`
	Version VersionCmd `cmd:"" help:"Print version."`
}

type CheckCmd struct {
	PoolID    string        `arg:"" name:"pool-id" help:"Bech32 pool identifier."`
	Directory string        `help:"Pool directory API base URL."`
	RowDelay  time.Duration `help:"Minimum delay between displayed rows."`
}

type VerifyCmd struct {
	URL  string `arg:"" name:"url" help:"Metadata URL."`
	Hash string `arg:"" name:"hash" help:"Expected BLAKE2b-256 hash (hex)."`
}

type PingCmd struct {
	Host string `arg:"" name:"host" help:"Relay host name or IP."`
	Port int    `arg:"" name:"port" help:"Relay port."`
	SRV  bool   `help:"Treat host as an SRV name."`
}

type VersionCmd struct{}

// exitError carries a process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func main() {
	cli := CLI{}
	kctx := kong.Parse(&cli,
		kong.Name("poolcheck"),
		kong.Description("Verify stake pool metadata and probe its relays."),
		kong.UsageOnError(),
	)

	if kctx.Selected() != nil && kctx.Selected().Name == "version" {
		fmt.Println(Version)
		return
	}

	logger, err := newLogger(cli.Verbose, cli.Debug)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := settings(cli.Globals)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch kctx.Selected().Name {
	case "verify":
		err = runVerify(ctx, cli.Verify, cfg, logger)
	case "ping":
		err = runPing(ctx, cli.Ping, cfg, logger)
	default:
		err = runCheck(ctx, cli.Check, cfg, logger)
	}
	if err == nil {
		return
	}

	fmt.Fprintln(os.Stderr, err)
	code := 1
	var exit *exitError
	if errors.As(err, &exit) {
		code = exit.code
	}
	stop()
	_ = logger.Sync()
	os.Exit(code)
}

// settings layers explicitly set flags over the config file.
func settings(g Globals) (config.Config, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return config.Config{}, err
	}
	if g.ProbeTimeout > 0 {
		cfg.ProbeTimeout = g.ProbeTimeout
	}
	if g.Samples > 0 {
		cfg.Samples = g.Samples
	}
	if g.Mode != "" {
		cfg.ProbeMode = g.Mode
	}
	if len(g.Resolvers) > 0 {
		cfg.Resolvers = g.Resolvers
	}
	if g.Output != "" {
		cfg.Output = g.Output
	}
	return cfg, config.Validate(cfg)
}

func newEngine(cfg config.Config, logger *zap.Logger) (*probe.Engine, error) {
	pinger, err := probe.NewPinger(probe.Mode(cfg.ProbeMode))
	if err != nil {
		return nil, err
	}
	client := dnsclient.New(dnsclient.Options{
		Mode:    dnsclient.Mode(cfg.DNSTransport),
		Timeout: cfg.ProbeTimeout,
		Retries: 1,
		Logger:  logger,
	})
	return probe.NewEngine(probe.Config{
		Pinger: pinger,
		SRV:    dnsclient.NewResolver(client, resolvconf.Chain(cfg.Resolvers)),
		Logger: logger,
	}), nil
}

func runCheck(ctx context.Context, cmd CheckCmd, cfg config.Config, logger *zap.Logger) error {
	if cmd.Directory != "" {
		cfg.DirectoryURL = cmd.Directory
	}
	if cmd.RowDelay > 0 {
		cfg.RowDelay = cmd.RowDelay
	}

	directory := koios.New(koios.Options{
		BaseURL: cfg.DirectoryURL,
		Token:   cfg.DirectoryToken,
		Timeout: cfg.FetchTimeout,
		Logger:  logger,
	})
	record, err := directory.PoolRecord(ctx, cmd.PoolID)
	if err != nil {
		return err
	}

	engine, err := newEngine(cfg, logger)
	if err != nil {
		return err
	}
	runner := pipeline.New(
		verify.New(verify.Config{Timeout: cfg.FetchTimeout, Logger: logger}),
		engine,
		pipeline.Config{ProbeTimeout: cfg.ProbeTimeout, Samples: cfg.Samples, Logger: logger},
	)

	if err := emit(cfg.Output, record, output.RenderPool); err != nil {
		return err
	}

	collector := &analyze.Collector{}
	for event := range output.Pace(ctx, runner.Run(ctx, record), cfg.RowDelay) {
		collector.Add(event)
		if err := emit(cfg.Output, event, output.RenderEvent); err != nil {
			return err
		}
	}

	diagnosis := collector.Diagnose()
	if err := emit(cfg.Output, diagnosis, output.RenderDiagnosis); err != nil {
		return err
	}
	if diagnosis.Classification != string(analyze.OutcomeHealthy) {
		return &exitError{code: 2, err: errors.New(diagnosis.Summary)}
	}
	return nil
}

func runVerify(ctx context.Context, cmd VerifyCmd, cfg config.Config, logger *zap.Logger) error {
	v := verify.New(verify.Config{Timeout: cfg.FetchTimeout, Logger: logger})
	result, err := v.Verify(ctx, cmd.URL, cmd.Hash)
	if renderErr := emit(cfg.Output, result, output.RenderVerification); renderErr != nil {
		return renderErr
	}
	if err != nil {
		return &exitError{code: 2, err: err}
	}
	if !result.Match {
		return &exitError{code: 2, err: errors.New("metadata hash mismatch")}
	}
	return nil
}

func runPing(ctx context.Context, cmd PingCmd, cfg config.Config, logger *zap.Logger) error {
	target, ok := resolveTarget(cmd)
	if !ok {
		return fmt.Errorf("host is required")
	}
	engine, err := newEngine(cfg, logger)
	if err != nil {
		return err
	}
	result := engine.Probe(ctx, target, cfg.ProbeTimeout, cfg.Samples)
	if err := emit(cfg.Output, result, output.RenderProbe); err != nil {
		return err
	}
	if !result.Reachable {
		return &exitError{code: 2, err: fmt.Errorf("relay %s unreachable", target.Host)}
	}
	return nil
}

// resolveTarget builds the descriptor a directory would have published for
// the given host so ad-hoc probes go through the same resolver.
func resolveTarget(cmd PingCmd) (model.ProbeTarget, bool) {
	relay := model.RelayDescriptor{Port: cmd.Port}
	ip := net.ParseIP(cmd.Host)
	switch {
	case cmd.SRV:
		relay.SRV = cmd.Host
	case ip != nil && ip.To4() != nil:
		relay.IPv4 = cmd.Host
	case ip != nil:
		relay.IPv6 = cmd.Host
	default:
		relay.DNS = cmd.Host
	}
	return resolve.Target(relay)
}

func emit[T any](format string, v T, pretty func(T) string) error {
	if format == "json" {
		rendered, err := output.RenderJSON(v)
		if err != nil {
			return err
		}
		fmt.Println(rendered)
		return nil
	}
	fmt.Println(pretty(v))
	return nil
}

func newLogger(verbose bool, debug bool) (*zap.Logger, error) {
	if debug {
		cfg := zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		return cfg.Build()
	}
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	return cfg.Build()
}
