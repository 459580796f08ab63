// Command plbridge lists, defines and calls bridged functions against a
// configured host.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set via ldflags at build time.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:     "plbridge",
	Short:   "Call managed functions through the plbridge runtime",
	Long:    `Resolves functions from a catalog and calls them through the full bridge: type coercion, frames, savepoints and host statements.`,
	Version: Version,

	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "path to plbridge.toml (default: search upwards from the working directory)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log at debug level")
	rootCmd.SetVersionTemplate("plbridge version {{.Version}}\n")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
