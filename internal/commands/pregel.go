package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var pregelCmd = &cobra.Command{
	Use:   "pregel",
	Short: "Manage distributed graph-algorithm jobs",
}

var pregelRunCmd = &cobra.Command{
	Use:   "run GRAPH ALGORITHM",
	Short: "Start a graph-algorithm job and print its id",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, closeFn, err := newDatabase(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		res, err := db.Pregel().CreateJob(cmd.Context(), args[0], args[1], nil)
		if err != nil {
			return err
		}
		id, err := res.Value()
		if err != nil {
			return err
		}
		fmt.Println(id)
		return nil
	},
}

var pregelStatusCmd = &cobra.Command{
	Use:   "status JOB_ID",
	Short: "Print the state of a graph-algorithm job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, closeFn, err := newDatabase(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		res, err := db.Pregel().Job(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		job, err := res.Value()
		if err != nil {
			return err
		}
		return json.NewEncoder(os.Stdout).Encode(job)
	},
}

var pregelCancelCmd = &cobra.Command{
	Use:   "cancel JOB_ID",
	Short: "Cancel and remove a graph-algorithm job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, closeFn, err := newDatabase(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		res, err := db.Pregel().DeleteJob(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if _, err := res.Value(); err != nil {
			return err
		}
		fmt.Println("job", args[0], "deleted")
		return nil
	},
}

func init() {
	pregelCmd.AddCommand(pregelRunCmd)
	pregelCmd.AddCommand(pregelStatusCmd)
	pregelCmd.AddCommand(pregelCancelCmd)
}
