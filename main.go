package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"teamflow/app"
	"teamflow/common"
	"teamflow/domain"
	"teamflow/infra/tracing"
	"teamflow/servehttp"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &app.Options{}
	cmd := &cobra.Command{
		Use:          "teamflow",
		Short:        "Round-robin work assignment for a small team",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.RosterFile, "roster", "", "roster YAML file (overrides ROSTER_FILE)")
	cmd.PersistentFlags().StringVar(&opts.Backend, "backend", "", "ledger backend database|oss|memory (overrides LEDGER_BACKEND)")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newMigrateCmd(opts))
	cmd.AddCommand(newNextCmd(opts))
	return cmd
}

func newServeCmd(opts *app.Options) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the REST API",
		RunE: func(cmd *cobra.Command, args []string) error {
			logrus.Info("service start")

			closer, err := tracing.Bootstrap(common.GetServiceName())
			if err != nil {
				logrus.Warnf("tracing disabled: %v", err)
			} else {
				defer closer.Close()
			}

			a, err := app.Bootstrap(context.Background(), *opts)
			if err != nil {
				return err
			}
			defer a.Close()

			return servehttp.StartHTTPServer(addr, a.Engine())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	return cmd
}

func newMigrateCmd(opts *app.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the ledger tables of the database backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Migrate(context.Background(), *opts)
		},
	}
}

func newNextCmd(opts *app.Options) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "next",
		Short: "Print whose turn it is in every category",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.Bootstrap(context.Background(), *opts)
			if err != nil {
				return err
			}
			defer a.Close()

			upcoming, err := a.Assignments.Upcoming(context.Background())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				return json.NewEncoder(out).Encode(upcoming)
			}
			for _, c := range domain.Categories {
				fmt.Fprintf(out, "%-10s %s\n", c, upcoming[c])
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}
