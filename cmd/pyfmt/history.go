package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/deixis/pyfmt/internal/config"
)

func newHistoryCmd(f *rootFlags, stdout, stderr io.Writer) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent runs from the run history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := setup(f, stderr)
			if err != nil {
				return err
			}
			defer e.Close()

			if e.history == nil {
				return errors.New("run history is disabled; set history in " + config.FileName)
			}
			runs, err := e.history.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN\tSTARTED\tMODE\tFILES\tSTATUS")
			for _, r := range runs {
				mode := "format"
				if r.DryRun {
					mode = "dry"
				}
				if r.Branch != "" {
					mode += " vs " + r.Branch
				}
				status := "ok"
				switch {
				case r.Skipped:
					status = "skipped"
				case r.ExitCode != 0:
					status = fmt.Sprintf("exit %d", r.ExitCode)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
					r.ID, r.StartedAt.Local().Format("2006-01-02 15:04:05"), mode, len(r.Files), status)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of runs to show")
	return cmd
}
