package main

import (
	"os"

	"github.com/spf13/cobra"

	"synnergy-stablepool/cmd/cli"
)

func main() {
	rootCmd := &cobra.Command{Use: "stablepool"}
	cli.RegisterRoutes(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
