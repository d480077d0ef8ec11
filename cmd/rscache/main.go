package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/skyline93/rscache/internal/errors"
)

var version = "0.3.0"

// cmdRoot is the base command when no other command has been specified.
var cmdRoot = &cobra.Command{
	Use:   "rscache",
	Short: "Inspect sector-chained game asset stores",
	Long: `
rscache reads the archives of a game asset store (a main_file_cache.dat2 file
plus its idx files, or a unified store), verifies their checksums and prints
the tables served by the update protocol.
`,
	Version:           version,
	SilenceErrors:     true,
	SilenceUsage:      true,
	DisableAutoGenTag: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return globalOptions.setupLogging()
	},
}

func main() {
	log.SetOutput(os.Stderr)

	err := cmdRoot.Execute()
	switch {
	case err == nil:
		return
	case errors.IsFatal(err):
		fmt.Fprintln(os.Stderr, err)
	default:
		fmt.Fprintf(os.Stderr, "%+v\n", err)
	}
	os.Exit(1)
}
