package commands

import (
	"github.com/spf13/cobra"

	"evalgo.org/strata/internal/mockdb"
)

var mockAddress string

var mockCmd = &cobra.Command{
	Use:   "mock",
	Short: "Serve an in-memory mock database for local development",
	RunE: func(cmd *cobra.Command, args []string) error {
		return mockdb.New().Start(mockAddress)
	},
}

func init() {
	mockCmd.Flags().StringVar(&mockAddress, "address", ":8529", "listen address")
}
