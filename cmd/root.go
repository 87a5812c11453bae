/*
Copyright (c) 2026 moyaru <rbffo@icloud.com>
*/

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/MOYARU/a2ascan/internal/app/scan"
	"github.com/MOYARU/a2ascan/internal/app/ui"
	"github.com/MOYARU/a2ascan/internal/config"
	"github.com/MOYARU/a2ascan/internal/report"
	appver "github.com/MOYARU/a2ascan/internal/version"
)

const (
	exitFail  = 1
	exitError = 2
)

// ErrFailedTargets marks a completed batch in which at least one target failed.
var ErrFailedTargets = errors.New("one or more targets failed")

var (
	version = appver.Value

	targetsFile string
	configPath  string
	concurrency int
	timeout     time.Duration
	redirects   int
	jsonPath    string
	htmlPath    string
	sameSite    bool
	delay       int
	noColor     bool
	noBanner    bool
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:           "a2ascan [agent-url...]",
	Short:         "a2ascan inspects A2A agent cards for prompt injection, dangerous capabilities, exfiltration sinks and weak transport or authentication.",
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	ui.ConfigureColor(noColor)
	logger := newLogger(verbose)
	slog.SetDefault(logger)

	policy, err := config.LoadScanPolicy(configPath)
	if err != nil {
		return err
	}
	applyFlagOverrides(cmd, &policy)
	report.ConfigureRedaction(policy.RedactionPatterns)

	targets := append([]string(nil), args...)
	if targetsFile != "" {
		fromFile, err := scan.LoadTargets(targetsFile)
		if err != nil {
			return err
		}
		targets = append(targets, fromFile...)
	}
	if len(targets) == 0 {
		_ = cmd.Usage()
		return scan.ErrNoTargets
	}

	out := cmd.OutOrStdout()
	if jsonPath == "-" {
		// stdout carries the JSON document
		out = cmd.ErrOrStderr()
	}
	if !noBanner {
		ui.PrintBanner(out, version)
	}

	ctx, cancel := ui.WaitForCancel(context.Background())
	defer cancel()

	_, summary, err := scan.RunScan(ctx, scan.Options{
		Targets:      targets,
		Policy:       policy,
		JSONPath:     jsonPath,
		HTMLPath:     htmlPath,
		ShowProgress: !verbose && jsonPath != "-",
		Out:          out,
		Logger:       logger,
	})
	if err != nil {
		return err
	}
	if summary.Worst() == report.VerdictFail {
		return ErrFailedTargets
	}
	return nil
}

// applyFlagOverrides lets explicitly set flags win over file and environment.
func applyFlagOverrides(cmd *cobra.Command, p *config.ScanPolicy) {
	flags := cmd.Flags()
	if flags.Changed("concurrency") && concurrency > 0 {
		p.MaxConcurrency = concurrency
	}
	if flags.Changed("timeout") && timeout > 0 {
		p.PerTargetTimeout = timeout
	}
	if flags.Changed("max-redirects") && redirects >= 0 {
		p.MaxRedirects = redirects
	}
	if flags.Changed("same-site") {
		p.SameSiteRedirects = sameSite
	}
	if flags.Changed("delay") && delay >= 0 {
		p.DelayMS = delay
	}
}

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func Execute() {
	err := rootCmd.Execute()
	switch {
	case err == nil:
		return
	case errors.Is(err, ErrFailedTargets):
		os.Exit(exitFail)
	default:
		ui.Errorf(os.Stderr, "Scan failed: %v", err)
		os.Exit(exitError)
	}
}

func init() {
	rootCmd.Version = version

	rootCmd.Flags().StringVarP(&targetsFile, "targets-file", "f", "", "Read agent base URLs from a file, one per line (- for stdin)")
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPolicyFile, "Scan policy YAML file")
	rootCmd.Flags().IntVar(&concurrency, "concurrency", 5, "Number of targets scanned in parallel")
	rootCmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "Per-target fetch timeout")
	rootCmd.Flags().IntVar(&redirects, "max-redirects", 3, "Maximum redirects followed per request")
	rootCmd.Flags().StringVar(&jsonPath, "json", "", "Write a JSON report to this path (- for stdout)")
	rootCmd.Flags().StringVar(&htmlPath, "html", "", "Write an HTML report to this path")
	rootCmd.Flags().BoolVar(&sameSite, "same-site", false, "Refuse redirects that leave the target's registrable domain")
	rootCmd.Flags().IntVar(&delay, "delay", 0, "Delay between requests in milliseconds (e.g., 500)")
	rootCmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.Flags().BoolVar(&noBanner, "no-banner", false, "Do not print the banner")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging on stderr")

	rootCmd.Long = ui.Banner() + fmt.Sprintf(`
a2ascan fetches each agent's discovery document (/.well-known/agent-card.json,
falling back to /agent-card.json) and reports threats found in it.

Usage:
   a2ascan [agent_url...] [flags]

Example:
  a2ascan https://agent.example.com
  a2ascan http://localhost:8080 http://localhost:8081 --json report.json
  a2ascan --targets-file agents.txt --concurrency 10 --timeout 5s

Exit status is %d when any agent fails, %d on errors.

Only scan agents you own or have explicit permission to test.
`, exitFail, exitError)
}
