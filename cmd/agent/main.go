package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/latwatchhq/agent/internal/config"
	"github.com/latwatchhq/agent/internal/diag"
	"github.com/latwatchhq/agent/internal/health"
	"github.com/latwatchhq/agent/internal/identity"
	"github.com/latwatchhq/agent/internal/lockfile"
	"github.com/latwatchhq/agent/internal/logging"
	"github.com/latwatchhq/agent/internal/logsink"
	"github.com/latwatchhq/agent/internal/metrics"
	"github.com/latwatchhq/agent/internal/report"
	"github.com/latwatchhq/agent/internal/sampler"
	"github.com/latwatchhq/agent/pkg/types"
)

var version = "dev"

func main() {
	ctx := context.Background()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	var err error

	switch cmd {
	case "run":
		err = run(ctx, os.Args[2:])
	case "diag":
		err = diag.Run(ctx, os.Args[2:], diag.Dependencies{})
	case "version":
		fmt.Println(version)
		return
	case "-h", "--help", "help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "command %s failed: %v\n", cmd, err)
		os.Exit(1)
	}
}

// run performs one measurement pass over all configured targets,
// writes one report line per target, and exits. Targets are measured
// strictly one at a time.
func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", config.DefaultConfigPath, "Path to agent configuration file")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(ctx, *configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := logging.New()

	if cfg.Agent.LockFile != "" {
		lock, err := lockfile.Acquire(cfg.Agent.LockFile)
		if err != nil {
			return err
		}
		defer func() {
			if err := lock.Release(); err != nil {
				logger.Printf("release lock: %v", err)
			}
		}()
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	source := identity.Resolve(cfg.Agent.IdentityFile)

	sink, err := logsink.Open(cfg.Log.File, logsink.WithMaxBackups(cfg.Log.MaxBackups))
	if err != nil {
		return fmt.Errorf("open report log: %w", err)
	}
	defer func() {
		if err := sink.Close(); err != nil {
			logger.Printf("close report log: %v", err)
		}
	}()

	store := metrics.NewStore()
	runID := uuid.NewString()
	targets := cfg.TargetList()
	logger.Printf("run %s starting (source=%s, targets=%d, duration=%s, interval=%s)",
		runID, source, len(targets), cfg.Duration(), cfg.Interval())

	smp := sampler.New(
		sampler.WithConnectTimeout(cfg.ConnectTimeout()),
		sampler.WithMetrics(store.AttemptRecorder()),
	)

	results := make([]types.TargetResult, 0, len(targets))
	for _, target := range targets {
		result := smp.Measure(runCtx, target, cfg.Duration(), cfg.Interval())
		store.ObserveTarget()
		results = append(results, types.TargetResult{Target: target, Result: result})
		if runCtx.Err() != nil {
			logger.Printf("run %s interrupted; reporting partial results", runID)
			break
		}
	}

	for _, line := range report.Render(source, results) {
		if err := sink.WriteLine(line); err != nil {
			return fmt.Errorf("write report line: %w", err)
		}
	}

	for _, warning := range health.Evaluate(results) {
		logger.Printf("warning: %s", warning)
	}

	snap := store.Snapshot()
	logger.Printf("run %s complete (targets=%d, attempts=%d, successes=%d, failures=%d)",
		runID, snap.Targets, snap.Attempts, snap.Successes, snap.Failures)
	return nil
}

func printUsage() {
	fmt.Println("LatWatch Agent CLI")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  latwatch-agent run [--config /etc/latwatch/agent.yaml]")
	fmt.Println("  latwatch-agent diag [--config path] [--output file]")
	fmt.Println("  latwatch-agent version")
}
