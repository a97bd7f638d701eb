package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cyberrag/cyberrag/ragservice"
)

var (
	apiFlag string
	rootCmd = &cobra.Command{
		Use:   "cyberrag",
		Short: "CVE retrieval-augmented answering service",
	}
)

func main() {
	rootCmd.PersistentFlags().StringVarP(&apiFlag, "api", "a", "http://localhost:8080", "CyberRAG service base URL")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ragservice.Run()
		},
	}
	rootCmd.AddCommand(serveCmd)

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one incremental feed refresh and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ragservice.RunSync()
		},
	}
	rootCmd.AddCommand(syncCmd)

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Rebuild the index from the full feed (destructive)",
		RunE: func(cmd *cobra.Command, args []string) error {
			yes, _ := cmd.Flags().GetBool("yes")
			if !yes {
				return fmt.Errorf("seed drops the existing index; re-run with --yes to confirm")
			}
			return ragservice.RunSeed()
		},
	}
	seedCmd.Flags().Bool("yes", false, "Confirm destructive rebuild")
	rootCmd.AddCommand(seedCmd)

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show index statistics from a running service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(apiFlag, os.Stdout)
		},
	}
	rootCmd.AddCommand(statsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
