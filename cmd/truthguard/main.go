// Package main provides the truthguard CLI: simulated IoT sensors, the scripted
// demo and a live feed watcher for a running TruthGuard server.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/noah-isme/truthguard-go-api/internal/demo"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type globalOptions struct {
	server       string
	deviceSecret string
	timeout      time.Duration
	verbose      bool
}

func (o *globalOptions) client() *demo.Client {
	return demo.NewClient(o.server, demo.WithTimeout(o.timeout), demo.WithDeviceSecret(o.deviceSecret))
}

func (o *globalOptions) logger() zerolog.Logger {
	level := zerolog.InfoLevel
	if o.verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(level).With().Timestamp().Logger()
}

func rootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "truthguard",
		Short: "Drive a running TruthGuard AI server",
		Long: `Tools for exercising a TruthGuard AI server.

Examples:
  truthguard demo                          # Scripted walkthrough of every endpoint
  truthguard sensors --speedup 10          # Stream simulated IoT readings
  truthguard watch                         # Print live detection and sensor events
  truthguard --server http://host:5000 demo
`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.server, "server", "http://localhost:5000", "TruthGuard server URL")
	cmd.PersistentFlags().StringVar(&opts.deviceSecret, "device-secret", os.Getenv("TRUTHGUARD_SENSOR_SECRET"), "Secret used to sign device tokens")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "Per-request timeout")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log every reading")

	cmd.AddCommand(sensorsCmd(opts), demoCmd(opts), watchCmd(opts))

	return cmd
}

func sensorsCmd(opts *globalOptions) *cobra.Command {
	var (
		speedup float64
		seed    uint64
		retry   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "sensors",
		Short: "Stream simulated environmental, biometric and security readings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			managerOpts := []demo.ManagerOption{demo.WithSpeedup(speedup), demo.WithRetryDelay(retry)}
			if cmd.Flags().Changed("seed") {
				managerOpts = append(managerOpts, demo.WithSeed(seed))
			}

			logger := opts.logger()
			logger.Info().Str("server", opts.server).Msg("starting sensor simulation")
			manager := demo.NewManager(opts.client(), demo.DefaultSensors(), logger, managerOpts...)
			if err := manager.Run(ctx); err != nil {
				return err
			}
			logger.Info().Msg("sensor simulation stopped")
			return nil
		},
	}

	cmd.Flags().Float64Var(&speedup, "speedup", 1, "Divide every sensor interval by this factor")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Seed for reproducible readings")
	cmd.Flags().DurationVar(&retry, "retry", 5*time.Second, "Pause after a failed post")

	return cmd
}

func demoCmd(opts *globalOptions) *cobra.Command {
	var pause time.Duration

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the scripted detection walkthrough",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			report, err := demo.NewOrchestrator(opts.client(), cmd.OutOrStdout(), pause).Run(ctx)
			if err != nil {
				return err
			}
			if len(report.StepFailures) > 0 {
				return fmt.Errorf("%d demo step(s) failed", len(report.StepFailures))
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&pause, "pause", 3*time.Second, "Pause between steps")

	return cmd
}

func watchCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print live feed events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			feedURL, err := opts.client().FeedURL()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "watching %s\n", feedURL)
			return demo.Watch(ctx, feedURL, cmd.OutOrStdout())
		},
	}
}
