package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"evalgo.org/strata"
	"evalgo.org/strata/internal/config"
	"evalgo.org/strata/internal/version"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "strata",
	Short: "Command-line client for the Strata document/graph database",
	Long: `strata is the operator CLI of the Strata database driver. It runs
graph-algorithm jobs, inspects async jobs and serves a mock database
for local development.

Connection settings come from config.yaml, .env or STRATA_ environment
variables; see the config package documentation for precedence.`,
	Version: version.Version,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable per-call trace logging")

	rootCmd.AddCommand(pregelCmd)
	rootCmd.AddCommand(jobsCmd)
	rootCmd.AddCommand(mockCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "%s" .Version}}
`)
}

func initConfig() {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
}

// newDatabase builds a client and database handle from the loaded config.
// The returned close func releases the connection pool.
func newDatabase(cmd *cobra.Command) (*strata.Database, func(), error) {
	debug := cfg.Debug
	if cmd.Flag("debug").Changed {
		debug = true
	}
	client, err := strata.NewClient(strata.Config{
		Endpoints:     cfg.Endpoints.URLs,
		Username:      cfg.Auth.Username,
		Password:      cfg.Auth.Password,
		Token:         cfg.Auth.Token,
		Timeout:       cfg.Transport.Timeout,
		RetryAttempts: cfg.Transport.RetryAttempts,
		RateLimit:     cfg.Transport.RateLimit,
		Debug:         debug,
	})
	if err != nil {
		return nil, nil, err
	}
	db, err := client.Database(cfg.Database.Name)
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	return db, client.Close, nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		info := version.Get()
		fmt.Println(info.String())
	},
}
