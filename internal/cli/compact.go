package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"zpaqng/internal/journal"
)

func init() {
	compactCmd.SilenceErrors = true
	compactCmd.SilenceUsage = true
}

var compactCmd = &cobra.Command{
	Use:   "compact <archive> <output>",
	Short: "Rewrite an archive keeping only fragments live at the tail",
	Long: `Compact is an out-of-core operation: it reads every path live at the
source archive's latest version, chunks and dedups them again into a
brand-new archive containing a single collapsed version, and writes
the result to output. The source archive is left untouched.`,
	Args: cobra.ExactArgs(2),
	RunE: runCompact,
}

var (
	compactPassword      string
	compactPasswordStdin bool
	compactNoPassword    bool
)

func init() {
	rootCmd.AddCommand(compactCmd)
	compactCmd.Flags().StringVarP(&compactPassword, "password", "p", "", "Password shared by source and output archive")
	compactCmd.Flags().BoolVarP(&compactPasswordStdin, "password-stdin", "P", false, "Read password from stdin")
	compactCmd.Flags().BoolVar(&compactNoPassword, "no-password", false, "Treat source and output as unencrypted")
}

func runCompact(cmd *cobra.Command, args []string) error {
	srcPath, dstPath := args[0], args[1]

	if _, err := os.Stat(dstPath); err == nil {
		return fmt.Errorf("output %s already exists", dstPath)
	}

	key, err := resolveKey(compactPassword, compactPasswordStdin, compactNoPassword, false)
	if err != nil {
		return err
	}

	src, err := journal.OpenArchive(srcPath, key)
	if err != nil {
		return fmt.Errorf("opening archive %s: %w", srcPath, err)
	}

	dst, err := journal.OpenBackingStore(dstPath, key)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dstPath, err)
	}

	if _, err := src.Compact(dst); err != nil {
		os.Remove(dstPath)
		return fmt.Errorf("compacting: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Compacted %s -> %s\n", srcPath, dstPath)
	return nil
}
