// Package cmd provides the command-line interface of telepanel.
package cmd

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tebeka/atexit"
)

// The environment variables that provide flag defaults. A .env file in the
// working directory is loaded first.
const (
	envServerURL   = "TELEPANEL_SERVER_URL"
	envListen      = "TELEPANEL_LISTEN"
	envMonitorPort = "TELEPANEL_MONITOR_PORT"
	envDB          = "TELEPANEL_DB"
	envLayout      = "TELEPANEL_LAYOUT"
)

var flagEnv = map[string]string{
	"server":       envServerURL,
	"listen":       envListen,
	"monitor-port": envMonitorPort,
	"db":           envDB,
	"layout":       envLayout,
}

var verbose bool

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "telepanel",
	Short: "Telepanel runs a telemetry control panel and its service.",
	Long: `Telepanel runs a control panel whose widgets poll a telemetry ` +
		`service, animate their state, and send commands back. It can also ` +
		`serve a simulated telemetry service.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := loadDotEnv(".env"); err != nil {
			return err
		}

		return applyEnv(cmd.Flags())
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Log expected events such as foreign elevator updates.")
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	return err
}

// applyEnv sets the flags that were not given on the command line from
// their environment variables.
func applyEnv(flags *pflag.FlagSet) error {
	var err error

	flags.VisitAll(func(f *pflag.Flag) {
		name, ok := flagEnv[f.Name]
		if !ok || f.Changed || err != nil {
			return
		}

		value, set := os.LookupEnv(name)
		if !set {
			return
		}

		err = flags.Set(f.Name, value)
	})

	return err
}
