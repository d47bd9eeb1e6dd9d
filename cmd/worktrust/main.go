// Command worktrust runs the WorkTrust API and its operator tooling.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "worktrust",
	Short: "Verifiable work-history credentials",
	Long: `WorkTrust scores imported freelance records, checks earnings and
reviews for fraud signals, and issues signed verifiable credentials
that relying parties can check offline.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
