package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/welltrack/internal/config"
	"github.com/JonMunkholm/welltrack/internal/core"
	"github.com/JonMunkholm/welltrack/internal/logging"
)

type rootOptions struct {
	storePath string
	logLevel  string
	now       func() time.Time
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{now: time.Now}

	root := &cobra.Command{
		Use:           "wellctl",
		Short:         "Manage the well program workbook",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Setup(opts.logLevel, "text")
		},
	}
	root.PersistentFlags().StringVar(&opts.storePath, "store", "", "workbook path (default: STORE_PATH or data/well_program_data.xlsx)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	root.AddCommand(
		newValidateCmd(opts),
		newImportCmd(opts),
		newListCmd(opts),
		newDeleteCmd(opts),
		newRemindersCmd(opts),
		newReportCmd(opts),
		newExportCmd(opts),
		newTemplateCmd(opts),
	)
	return root
}

// service opens the record store named by --store, falling back to the
// server's configuration.
func (o *rootOptions) service() (*core.Service, error) {
	path := o.storePath
	if path == "" {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		path = cfg.Store.Path
	}
	return core.NewService(core.NewXLSXStore(path), core.WithClock(o.now)), nil
}

func cliContext(ctx context.Context) context.Context {
	return core.ContextWithRequestMeta(ctx, "local", "wellctl")
}

// warnReset prints the store-reset notice when err carries one and returns
// err only if the command itself failed.
func warnReset(w io.Writer, err error) error {
	if errors.Is(err, core.ErrStoreReset) {
		fmt.Fprintln(w, "warning:", core.FormatUserError(core.ErrStoreReset))
	}
	if core.Fatal(err) {
		return err
	}
	return nil
}

// userError rewrites errors the catalogue knows. Anything else keeps its
// technical text.
func userError(err error) error {
	if !core.IsUserFacing(err) {
		return err
	}
	return errors.New(core.FormatUserError(err))
}

func newValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Check an upload workbook against the store without changing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.service()
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			preview, err := svc.PreviewUpload(cliContext(cmd.Context()), filepath.Base(args[0]), f)
			if err := warnReset(cmd.ErrOrStderr(), err); err != nil {
				return userError(err)
			}
			out := cmd.OutOrStdout()
			if !preview.Accepted() {
				printViolations(out, preview.Violations)
				return fmt.Errorf("%d problems in %s", len(preview.Violations), preview.FileName)
			}
			fmt.Fprintf(out, "%s: %d rows ready to import\n", preview.FileName, len(preview.Records))
			return nil
		},
	}
}

func newImportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Validate an upload workbook and append its rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.service()
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			result, err := svc.Import(cliContext(cmd.Context()), filepath.Base(args[0]), f)
			err = warnReset(cmd.ErrOrStderr(), err)
			var ve core.ValidationErrors
			if errors.As(err, &ve) {
				printViolations(cmd.OutOrStdout(), ve)
				return fmt.Errorf("%d problems, nothing imported", len(ve))
			}
			if err != nil {
				return userError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d records, %d in store\n", result.Inserted, result.Total)
			return nil
		},
	}
}

func newListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print every record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.service()
			if err != nil {
				return err
			}
			records, err := svc.List(cliContext(cmd.Context()))
			if err := warnReset(cmd.ErrOrStderr(), err); err != nil {
				return err
			}
			printRecords(cmd.OutOrStdout(), records)
			return nil
		},
	}
}

func newDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete NO",
		Short: "Delete a record by its No and renumber the rest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			no, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("record number %q: %w", args[0], core.ErrInvalidIndex)
			}
			svc, err := opts.service()
			if err != nil {
				return err
			}
			removed, err := svc.Delete(cliContext(cmd.Context()), no)
			if err := warnReset(cmd.ErrOrStderr(), err); err != nil {
				return userError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted record %d (%s)\n", removed.No, removed.WellName)
			return nil
		},
	}
}

func newRemindersCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reminders",
		Short: "List pending approvals by due-date urgency",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.service()
			if err != nil {
				return err
			}
			reminders, err := svc.Reminders(cliContext(cmd.Context()))
			if err := warnReset(cmd.ErrOrStderr(), err); err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NO\tWELL\tPROGRAM NO\tAPPROVER\tDUE\tREMINDER")
			for _, r := range reminders {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", r.No, r.WellName, r.ProgramNo, r.Approver, r.DueDate, r.ReminderStatus)
			}
			return tw.Flush()
		},
	}
}

func newReportCmd(opts *rootOptions) *cobra.Command {
	var (
		status    string
		approvals [4]string
		month     string
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the report summary for the filtered records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var f core.Filter
			if status != "" {
				if st := core.Status(status); st.Valid() {
					f.Status = st
				} else {
					return fmt.Errorf("--status must be one of %v", core.ValidStatuses)
				}
			}
			for i, a := range approvals {
				f.Approvals[i] = core.ParseApprovalFilter(a)
			}

			svc, err := opts.service()
			if err != nil {
				return err
			}
			rep, err := svc.Report(cliContext(cmd.Context()), f, month)
			if err := warnReset(cmd.ErrOrStderr(), err); err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), rep)
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "COMPLETED or INPROGRESS (default: any)")
	for i := range approvals {
		name := "a" + strconv.Itoa(i+1)
		cmd.Flags().StringVar(&approvals[i], name, "all", "Approval "+strconv.Itoa(i+1)+" filter: all, unapproved, approved")
	}
	cmd.Flags().StringVar(&month, "month", "", `month for the approval counts, e.g. "Mar 2025" (default: earliest)`)
	return cmd
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export OUT",
		Short: "Write every record to a new workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.service()
			if err != nil {
				return err
			}
			return writeFile(args[0], func(w io.Writer) error {
				return svc.Export(cliContext(cmd.Context()), w)
			})
		},
	}
}

func newTemplateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "template OUT",
		Short: "Write an empty upload workbook with the required header",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.service()
			if err != nil {
				return err
			}
			return writeFile(args[0], svc.Template)
		},
	}
}

func writeFile(path string, fill func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fill(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

func printViolations(w io.Writer, vs []core.Violation) {
	for _, v := range vs {
		fmt.Fprintln(w, "  -", v.Error())
	}
}

func printRecords(w io.Writer, records []core.Record) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NO\tWELL\tPROGRAM\tPROGRAM NO\tCREATED\tDUE\tSTATUS\tINITIATOR")
	for _, r := range records {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.No, r.WellName, r.ProgramName, r.ProgramNo, r.CreationDate, r.DueDate, r.Status, r.Initiator)
	}
	tw.Flush()
}

func printReport(w io.Writer, rep core.Report) {
	fmt.Fprintf(w, "records: %d\n\nstatus:\n", len(rep.Records))
	for _, s := range rep.Distribution {
		fmt.Fprintf(w, "  %-11s %4d  %s%%\n", s.Status, s.Count, s.Percentage.StringFixed(2))
	}
	fmt.Fprintln(w, "\npending approvals:")
	for _, b := range rep.Backlog {
		fmt.Fprintf(w, "  %-18s %4d  %s%%\n", b.Approver, b.Pending, b.Share.StringFixed(1))
	}
	fmt.Fprintf(w, "\n%s progress (%s): %d unapproved, %d approved\n",
		rep.Progress.Slot.Column(), rep.Progress.Approver, rep.Progress.Unapproved, rep.Progress.Approved)
	fmt.Fprintln(w, "\ncreated per month:")
	for _, m := range rep.Monthly {
		fmt.Fprintf(w, "  %-8s %4d\n", m.Label, m.Count)
	}
	if ma := rep.MonthApprovals; ma != nil {
		fmt.Fprintf(w, "\napprovals in %s: %s %d, %s %d\n", ma.Label,
			core.Slot3.Approvers()[0], ma.Slot3, core.Slot4.Approvers()[0], ma.Slot4)
	}
}
