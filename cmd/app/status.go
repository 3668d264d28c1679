package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/local/pagepress/internal/pipeline"
)

var statusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Show the recorded status of a job",
	Long: `Show the recorded status of a job.

With the Redis store (USE_REDIS=1) this reads jobs submitted by any
process; the in-memory store only knows jobs from the current one.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		deps, _, cleanup, err := buildDependencies(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		st, ok, err := deps.Status.Get(ctx, args[0])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("unknown job %s", args[0])
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %d%%  %s\n", st.State, st.Progress, st.Message)
		if st.State == pipeline.StateCompleted {
			printReport(cmd.OutOrStdout(), st)
		}
		return nil
	},
}

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List known jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		deps, _, cleanup, err := buildDependencies(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		ids, err := deps.Status.List(ctx)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if len(ids) == 0 {
			fmt.Fprintln(w, "no jobs recorded")
			return nil
		}
		for _, id := range ids {
			st, ok, err := deps.Status.Get(ctx, id)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			fmt.Fprintf(w, "%s  %-10s %3d%%  %s\n", id, st.State, st.Progress, st.Message)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(jobsCmd)
}
