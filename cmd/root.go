// Package cmd implements the contactcrawler command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/contact-crawler/internal/config"
	"github.com/JakeFAU/contact-crawler/internal/logging"
)

type envKeyType struct{}

// env is what PersistentPreRunE hands to subcommands.
type env struct {
	cfg    config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "contactcrawler",
		Short: "Collects company contact emails from a business directory.",
		Long: `contactcrawler walks a business directory category in a real browser,
collects every company profile link, then resolves each profile to the
company website and a contact email. Results are written as CSV.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			logger, err := logging.New(logging.Options{
				Development: cfg.Logging.Development,
				Level:       cfg.Logging.Level,
			})
			if err != nil {
				return err
			}
			zap.ReplaceGlobals(logger)
			cmd.SetContext(context.WithValue(cmd.Context(), envKeyType{}, &env{cfg: cfg, logger: logger}))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if e, ok := cmd.Context().Value(envKeyType{}).(*env); ok {
				_ = e.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML); environment variables use the CONTACTS_ prefix")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newCollectCmd())
	cmd.AddCommand(newResolveCmd())
	return cmd
}

func envFrom(ctx context.Context) (*env, error) {
	e, ok := ctx.Value(envKeyType{}).(*env)
	if !ok || e == nil {
		return nil, errors.New("configuration not loaded")
	}
	return e, nil
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "contactcrawler:", err)
		stop()
		os.Exit(1)
	}
}
