package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	removeCmd.SilenceErrors = true
	removeCmd.SilenceUsage = true
}

var removeCmd = &cobra.Command{
	Use:   "remove <archive> <path>...",
	Short: "Record deletions for paths, writing a new tombstone version",
	Long: `Remove commits one new version whose records tombstone each named path.
The bytes stay in the archive — earlier versions still extract them —
but the paths no longer appear in list output from this version on.

Examples:
  zpaqng remove backup.zpaq report.csv
  zpaqng remove -p "secret" backup.zpaq old/notes.txt old/draft.txt`,
	Args: cobra.MinimumNArgs(2),
	RunE: runRemove,
}

var (
	removePassword      string
	removePasswordStdin bool
	removeNoPassword    bool
)

func init() {
	rootCmd.AddCommand(removeCmd)
	removeCmd.Flags().StringVarP(&removePassword, "password", "p", "", "Archive password")
	removeCmd.Flags().BoolVarP(&removePasswordStdin, "password-stdin", "P", false, "Read password from stdin")
	removeCmd.Flags().BoolVar(&removeNoPassword, "no-password", false, "Open the archive as unencrypted")
}

func runRemove(cmd *cobra.Command, args []string) error {
	archivePath := args[0]
	targets := args[1:]

	a, err := openForCommand(archivePath, removePassword, removePasswordStdin, removeNoPassword, false)
	if err != nil {
		return err
	}

	live := make(map[string]bool)
	for _, rec := range a.List(0) {
		live[rec.Path] = true
	}
	for _, p := range targets {
		if !live[p] {
			return fmt.Errorf("path %q is not present in the latest version", p)
		}
	}

	version, err := a.Remove(targets, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("removing paths: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Removed %d path(s) as version %d: %s\n", len(targets), version, archivePath)
	return nil
}
