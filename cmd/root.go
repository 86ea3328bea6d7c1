// Package cmd provides the command-line interface for cachereplay.
package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use: "cachereplay",
	Short: "Replay memory access traces against simulated CPU caches and " +
		"compare their hit, miss, and traffic counts.",
	Long: `Cachereplay replays a memory access trace against two identically ` +
		`configured cache models, one without and one with a next-block ` +
		`prefetcher, and reports the hit, miss, and memory traffic counters ` +
		`of both.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Exiting through atexit lets registered result recorders
// flush first.
func Execute() {
	// A .env file can supply defaults such as CACHEREPLAY_RECORD.
	_ = godotenv.Load()

	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}
}
