package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/sarchlab/pagesim/tracing"
	"github.com/spf13/cobra"
)

func newInspectCommand() *cobra.Command {
	inspectCmd := &cobra.Command{
		Use:   "inspect <file.sqlite3>",
		Short: "Summarize a recorded trace.",
		Long: "`inspect <file.sqlite3>` prints the sessions in a trace, the " +
			"number of recorded events of each kind, the latest admissions, " +
			"and the latest rejections.",
		Args: cobra.ExactArgs(1),
		RunE: runInspect,
	}

	flags := inspectCmd.Flags()
	flags.Int("limit", 10, "Number of admissions and rejections to list")
	flags.String("session", "", "Only read the events of this session")
	flags.Int("job", 0, "Only read the events of this job ID")
	flags.String("op", "",
		"Only read the rejections of this operation, "+
			"such as AdmitJob or RemoveJob")

	return inspectCmd
}

func runInspect(cmd *cobra.Command, args []string) error {
	reader, err := tracing.NewTraceReader(args[0])
	if err != nil {
		return fmt.Errorf("opening trace: %w", err)
	}
	defer reader.Close()

	query := traceQueryFromFlags(cmd)
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	sessions, err := reader.ListSessions(ctx)
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}

	fmt.Fprintf(out, "Sessions: %s\n", strings.Join(sessions, ", "))
	fmt.Fprintln(out, "Events:")

	counts := make(map[string]int, len(tracing.EventTables))

	for _, table := range tracing.EventTables {
		count, err := reader.CountEvents(ctx, table, query)
		if err != nil {
			return fmt.Errorf("counting %s: %w", table, err)
		}

		counts[table] = count
		fmt.Fprintf(out, "  %-26s%8d\n", table, count)
	}

	admissions, err := reader.ListAdmissions(ctx, query)
	if err != nil {
		return fmt.Errorf("reading admissions: %w", err)
	}

	printAdmissions(out, admissions, counts[tracing.AdmissionTable])

	rejections, err := reader.ListErrors(ctx, tracing.RejectionTable, query)
	if err != nil {
		return fmt.Errorf("reading rejections: %w", err)
	}

	printRejections(out, rejections, counts[tracing.RejectionTable])

	return nil
}

func traceQueryFromFlags(cmd *cobra.Command) tracing.TraceQuery {
	flags := cmd.Flags()

	limit, _ := flags.GetInt("limit")
	session, _ := flags.GetString("session")
	jobID, _ := flags.GetInt("job")
	op, _ := flags.GetString("op")

	return tracing.TraceQuery{
		Session:   session,
		JobID:     jobID,
		Operation: op,
		Limit:     limit,
	}
}

func printAdmissions(out io.Writer, rows []tracing.AdmissionEntry, total int) {
	fmt.Fprintf(out, "\nLatest admissions (%d of %d):\n", len(rows), total)
	fmt.Fprintf(out, "%6s%8s  %-15s%10s%8s  %s\n",
		"Seq", "Job ID", "Job Name", "Size", "Pages", "Frames")

	for _, a := range rows {
		frames, _ := tracing.SplitFrames(a.Frames)

		fmt.Fprintf(out, "%6d%8d  %-15s%10d%8d  %v\n",
			a.Seq, a.JobID, a.Name, a.Size, a.NumPages, frames)
	}
}

func printRejections(out io.Writer, rows []tracing.ErrorEntry, total int) {
	fmt.Fprintf(out, "\nLatest rejections (%d of %d):\n", len(rows), total)
	fmt.Fprintf(out, "%6s  %-18s%-22s%s\n",
		"Seq", "Operation", "Kind", "Message")

	for _, e := range rows {
		fmt.Fprintf(out, "%6d  %-18s%-22s%s\n",
			e.Seq, e.Operation, e.Kind, e.Message)
	}
}
