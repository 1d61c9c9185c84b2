package main

import (
	"fmt"
	"path"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"Agent311/internal/dialog"
	"Agent311/internal/session"
)

func reportsCmd(current func() *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "List and manage the report library",
		Long: `List reports (newest first), upload .pdf/.html files, download or delete them.

Examples:
  agent311 reports
  agent311 reports upload summary.pdf dashboard.html
  agent311 reports download reports/q1.pdf
  agent311 reports delete q1.pdf`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			if err := a.ctrl.RefreshReports(cmd.Context()); err != nil {
				return fmt.Errorf("failed to list reports: %w", err)
			}
			reports := a.ctrl.Snapshot().Reports
			out := cmd.OutOrStdout()
			if len(reports) == 0 {
				fmt.Fprintln(out, "No reports")
				return nil
			}

			fmt.Fprintln(out, headerStyle.Render("Reports"))
			w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
			for _, f := range reports {
				fmt.Fprintf(w, "%s\t%s\t%d bytes\t%s\n", f.Name, f.Type, f.SizeBytes, idStyle.Render(f.Path))
			}
			return w.Flush()
		},
	}

	cmd.AddCommand(
		reportsUploadCmd(current),
		reportsDownloadCmd(current),
		reportsDeleteCmd(current),
	)
	return cmd
}

func reportsUploadCmd(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload .pdf or .html files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uploaded, skipped, err := current().ctrl.Upload(cmd.Context(), args)
			out := cmd.OutOrStdout()
			for _, s := range skipped {
				fmt.Fprintf(out, "Skipped %s (only .pdf and .html)\n", s)
			}
			for _, f := range uploaded {
				fmt.Fprintf(out, "Uploaded %s\n", f.Name)
			}
			return err
		},
	}
}

func reportsDownloadCmd(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "download <path>",
		Short: "Download a report into the download directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := dialog.ReportRef{Name: path.Base(args[0]), Path: args[0]}
			dest, err := current().ctrl.Download(cmd.Context(), ref)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Downloaded %s\n", dest)
			return nil
		},
	}
}

func reportsDeleteCmd(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <name>",
		Aliases: []string{"rm"},
		Short:   "Delete a report",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file := session.ReportFile{Name: args[0]}
			if err := current().ctrl.DeleteReport(cmd.Context(), file); err != nil {
				return fmt.Errorf("failed to delete report: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}
