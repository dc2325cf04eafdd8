// civicgrid correlates EV charging stations with the capital-improvement
// project areas that contain them.
//
// Usage:
//
//	civicgrid serve --config civicgrid.yaml
//	civicgrid correlate --points ev_chargers.json --polygons cip_projects.json
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version  = "dev"
	logLevel string
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "civicgrid",
		Short:   "Correlate charging stations with project areas",
		Version: version,
		// Usage output is noise for data errors.
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the log level: debug, info, warn, error")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(correlateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
