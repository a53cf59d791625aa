package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"excelinsights/app"
	"excelinsights/domain/core"
	"excelinsights/internal/config"
	"excelinsights/internal/container"
	"excelinsights/internal/logger"
	"excelinsights/internal/preprocess"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	rootCmd := newRootCmd(config.Load)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type configLoader func() (*config.Config, error)

func newRootCmd(load configLoader) *cobra.Command {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:           "excelinsights",
		Short:         "Profile, chart and question spreadsheet data from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log to stderr")

	open := func(ctx context.Context, path string) (*app.InsightService, core.SessionID, func(), error) {
		return openFile(ctx, load, path, verbose)
	}

	rootCmd.AddCommand(
		newProfileCmd(open),
		newAskCmd(open),
		newInsightsCmd(open),
		newExportCmd(open),
	)
	return rootCmd
}

type opener func(ctx context.Context, path string) (*app.InsightService, core.SessionID, func(), error)

// openFile builds the application from configuration and uploads the file
// into a fresh session.
func openFile(ctx context.Context, load configLoader, path string, verbose bool) (*app.InsightService, core.SessionID, func(), error) {
	cfg, err := load()
	if err != nil {
		return nil, "", nil, err
	}
	log := zap.NewNop()
	if verbose {
		if log, err = logger.New(cfg.Log.Level, "console"); err != nil {
			return nil, "", nil, err
		}
	}

	c, err := container.New(ctx, cfg, log)
	if err != nil {
		return nil, "", nil, err
	}
	cleanup := func() { _ = c.Shutdown(context.Background()) }

	content, err := os.ReadFile(path)
	if err != nil {
		cleanup()
		return nil, "", nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	res, err := c.Service.Upload(ctx, filepath.Base(path), content)
	if err != nil {
		cleanup()
		return nil, "", nil, err
	}
	return c.Service, res.SessionID, cleanup, nil
}

func newProfileCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "profile <file>",
		Short: "Print basic statistics and per-column data quality",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, id, cleanup, err := open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer cleanup()

			overview, err := svc.Overview(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printProfile(cmd.OutOrStdout(), overview)
		},
	}
}

func printProfile(w io.Writer, o *app.Overview) error {
	b := o.Basic
	fmt.Fprintf(w, "%s: %d rows, %d columns, %d missing values, %d duplicate rows, %s\n\n",
		o.Filename, b.TotalRows, b.TotalColumns, b.MissingValues, b.DuplicateRows, b.MemoryUsage)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "COLUMN\tTYPE\tMISSING\tMISSING %\tUNIQUE\tMEAN\tMIN\tMAX")
	for _, q := range o.Quality {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.2f\t%d\t%s\t%s\t%s\n",
			q.Column, q.DataType, q.MissingValues, q.MissingPercentage, q.UniqueValues,
			number(q.Mean), number(q.Min), number(q.Max))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, warning := range o.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
	return nil
}

func number(n *preprocess.Number) string {
	if n == nil || !n.Valid() {
		return "-"
	}
	return preprocess.FormatNumber(float64(*n))
}

func newAskCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <file> <question>",
		Short: "Answer a question about the file",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, id, cleanup, err := open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer cleanup()

			answer, err := svc.Ask(cmd.Context(), id, strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, answer.Text)
			if answer.Warning != "" {
				fmt.Fprintf(out, "warning: %s\n", answer.Warning)
			}
			fmt.Fprintf(out, "(source: %s)\n", answer.Source)
			return nil
		},
	}
}

func newInsightsCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "insights <file>",
		Short: "Summarize patterns, correlations and outliers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, id, cleanup, err := open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer cleanup()

			report, err := svc.Insights(cmd.Context(), id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, report.Text)
			for _, h := range report.Highlights {
				fmt.Fprintf(out, "- %s\n", h)
			}
			return nil
		},
	}
}

func newExportCmd(open opener) *cobra.Command {
	var format, output string

	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Write an analysis report (xlsx, md, html or pdf)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, id, cleanup, err := open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := svc.Export(cmd.Context(), id, format)
			if err != nil {
				return err
			}
			if output == "" {
				output = filepath.Join(filepath.Dir(args[0]), res.Filename)
			}
			if err := os.WriteFile(output, res.Data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", output, len(res.Data))
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "xlsx", "Report format: xlsx, md, html or pdf")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output path (defaults next to the input file)")
	return cmd
}
