package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version is set by main.go
var Version = "dev"

// rootCmd is the base command when called without subcommands
var rootCmd = &cobra.Command{
	Use:   "zpaqng",
	Short: "Journaling, deduplicating ZPAQ-Level-2 archiver",
	Long: `zpaqng is an incremental, content-defined-chunking archiver built on
the ZPAQ Level 2 container format:
  - Self-describing per-block bytecode (no implicit decoder state)
  - Context-mixing compression with the stream bound to a VM+predictor chain
  - Crash-safe, append-only transactions with versioned file history
  - Optional AES-256-CTR envelope with a scrypt-derived key`,
	Version: Version,
}

// globalReporter lets the signal handler request cooperative
// cancellation of whatever operation is in flight.
var globalReporter *Reporter

// Execute runs the CLI application.
func Execute(version string) {
	Version = version
	rootCmd.Version = version

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		if globalReporter != nil {
			globalReporter.Cancel()
			fmt.Fprintln(os.Stderr, "\nCancelling operation...")
		} else {
			os.Exit(1)
		}
	}()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Disable default completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
