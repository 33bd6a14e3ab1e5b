package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	jobsDone  bool
	jobsCount int
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Administer server-side async jobs",
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending (or, with --done, finished) async job ids",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, closeFn, err := newDatabase(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		list := db.Jobs().ListPending
		if jobsDone {
			list = db.Jobs().ListDone
		}
		res, err := list(cmd.Context(), jobsCount)
		if err != nil {
			return err
		}
		ids, err := res.Value()
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	},
}

var jobsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every stored async job result",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, closeFn, err := newDatabase(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		res, err := db.Jobs().ClearAll(cmd.Context())
		if err != nil {
			return err
		}
		if _, err := res.Value(); err != nil {
			return err
		}
		fmt.Println("job results cleared")
		return nil
	},
}

func init() {
	jobsListCmd.Flags().BoolVar(&jobsDone, "done", false, "list finished jobs instead of pending ones")
	jobsListCmd.Flags().IntVar(&jobsCount, "count", 0, "maximum number of ids (0 = server default)")
	jobsCmd.AddCommand(jobsListCmd)
	jobsCmd.AddCommand(jobsClearCmd)
}
