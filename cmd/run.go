package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/contact-crawler/internal/app"
	"github.com/JakeFAU/contact-crawler/internal/sink"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Collect profile links and resolve them into contacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) (app.RunStatus, error) {
				return a.Run(ctx)
			})
		},
	}
}

func newCollectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "collect",
		Short: "Collect profile links and write the links checkpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) (app.RunStatus, error) {
				return a.Collect(ctx)
			})
		},
	}
}

func newResolveCmd() *cobra.Command {
	var linksPath string
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve a links checkpoint into contacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := envFrom(cmd.Context())
			if err != nil {
				return err
			}
			if linksPath == "" {
				linksPath = e.cfg.LinksPath()
			}
			links, err := sink.ReadLinks(linksPath)
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) (app.RunStatus, error) {
				return a.Resolve(ctx, links)
			})
		},
	}
	cmd.Flags().StringVar(&linksPath, "links", "", "links checkpoint CSV (default is the configured output links file)")
	return cmd
}

// withApp builds the services for one run, executes fn and tears them down.
func withApp(cmd *cobra.Command, fn func(context.Context, *app.App) (app.RunStatus, error)) error {
	ctx := cmd.Context()
	e, err := envFrom(ctx)
	if err != nil {
		return err
	}
	svc, err := buildServices(ctx, e.cfg, e.logger)
	if err != nil {
		return err
	}
	defer svc.Close(ctx)

	status, err := fn(ctx, svc.app)
	if err != nil {
		return err
	}
	cmd.Printf("run %s: %d links, %d processed, %d contacts\n",
		status.RunID, status.LinksCollected, status.Processed, status.ContactsWritten)
	return nil
}
