// Command clashd runs the Consensus Clash game contract behind a JSON-RPC
// endpoint.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "clashd",
		Short:         "Consensus Clash game daemon",
		Long:          "Runs the debate game contract: players argue a weekly topic, an AI validator panel scores each argument and the community votes.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringP("config", "c", "", "path to JSON config file (defaults only when empty)")

	root.AddCommand(newServeCmd())
	root.AddCommand(newInitConfigCmd())
	root.AddCommand(newHashTokenCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
