// Package cmd provides the command-line interface for netsim.
package cmd

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "netsim",
	Short: "netsim runs message-passing experiments on simulated networks.",
	Long: `netsim runs message-passing experiments on simulated networks. ` +
		`Nodes exchange size-tagged messages through bounded buffers and ` +
		`one-way channels that report when they are busy.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	loadEnvFile()

	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

// loadEnvFile loads the NETSIM_* defaults from a .env file, if there is one.
// Variables already set in the environment win.
func loadEnvFile() {
	path := os.Getenv("NETSIM_ENV_FILE")
	if path == "" {
		path = ".env"
	}

	err := godotenv.Load(path)
	if err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: cannot load %s: %v", path, err)
	}
}
