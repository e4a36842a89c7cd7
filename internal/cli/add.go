package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Picocrypt/zxcvbn-go"
	"github.com/spf13/cobra"

	"zpaqng/internal/journal"
	"zpaqng/internal/util"
	"zpaqng/internal/zpaqerr"
)

func init() {
	addCmd.SilenceErrors = true
	addCmd.SilenceUsage = true
}

var addCmd = &cobra.Command{
	Use:   "add <archive> <path>...",
	Short: "Add or update files in an archive, writing a new version",
	Long: `Add chunks each input path with content-defined splitting, storing only
the fragments not already present anywhere in the archive, then commits
one new version recording every path's current fragment list.

Examples:
  zpaqng add backup.zpaq report.csv
  zpaqng add -p "secret" backup.zpaq ./project/`,
	Args: cobra.MinimumNArgs(2),
	RunE: runAdd,
}

var (
	addPassword         string
	addPasswordStdin    bool
	addNoPassword       bool
	addQuiet            bool
	addGeneratePassword bool
)

func init() {
	rootCmd.AddCommand(addCmd)
	addCmd.Flags().StringVarP(&addPassword, "password", "p", "", "Archive password")
	addCmd.Flags().BoolVarP(&addPasswordStdin, "password-stdin", "P", false, "Read password from stdin")
	addCmd.Flags().BoolVar(&addNoPassword, "no-password", false, "Create/open the archive unencrypted")
	addCmd.Flags().BoolVarP(&addQuiet, "quiet", "q", false, "Suppress progress output")
	addCmd.Flags().BoolVar(&addGeneratePassword, "generate-password", false, "Generate a random password for a new archive and print it once")
}

func runAdd(cmd *cobra.Command, args []string) error {
	archivePath := args[0]
	inputs := args[1:]

	var paths []string
	var totalBytes int64
	for _, in := range inputs {
		matches, err := filepath.Glob(in)
		if err != nil {
			return fmt.Errorf("invalid glob pattern %q: %w", in, err)
		}
		if len(matches) == 0 {
			matches = []string{in}
		}
		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil {
				return fmt.Errorf("cannot access %s: %w", m, err)
			}
			if info.IsDir() {
				err := filepath.Walk(m, func(p string, fi os.FileInfo, err error) error {
					if err != nil {
						return err
					}
					if !fi.IsDir() {
						paths = append(paths, p)
						totalBytes += fi.Size()
					}
					return nil
				})
				if err != nil {
					return fmt.Errorf("walking %s: %w", m, err)
				}
			} else {
				paths = append(paths, m)
				totalBytes += info.Size()
			}
		}
	}
	if len(paths) == 0 {
		return fmt.Errorf("no files found to add")
	}

	reporter := NewReporter(addQuiet)
	globalReporter = reporter
	defer func() { globalReporter = nil }()

	_, statErr := os.Stat(archivePath)
	isNewArchive := statErr != nil

	if addGeneratePassword {
		if !isNewArchive {
			return fmt.Errorf("--generate-password only applies when creating a new archive")
		}
		generated, err := util.GenPassword(24)
		if err != nil {
			return fmt.Errorf("generating password: %w", err)
		}
		addPassword = generated
		fmt.Fprintf(os.Stderr, "Generated password (save this, it is never stored): %s\n", generated)
	}

	a, err := openForCommand(archivePath, addPassword, addPasswordStdin, addNoPassword, isNewArchive)
	if err != nil {
		return err
	}

	if !addNoPassword && addPassword != "" && !addQuiet {
		score := zxcvbn.PasswordStrength(addPassword, nil).Score
		fmt.Fprintf(os.Stderr, "Password strength: %d/4\n", score)
	}

	reporter.SetStatus("reading")
	start := time.Now()
	var doneBytes int64
	files := make([]journal.FileInput, 0, len(paths))
	for _, p := range paths {
		if reporter.IsCancelled() {
			return zpaqerr.Cancelled
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("reading %s: %w", p, err)
		}
		info, err := os.Stat(p)
		if err != nil {
			return fmt.Errorf("stat %s: %w", p, err)
		}
		rel := p
		if abs, err := filepath.Abs(p); err == nil {
			if wd, err := os.Getwd(); err == nil {
				if r, err := filepath.Rel(wd, abs); err == nil {
					rel = r
				}
			}
		}
		files = append(files, journal.FileInput{
			Path:    filepath.ToSlash(rel),
			Data:    data,
			ModTime: info.ModTime().Unix(),
			Attrs:   uint32(info.Mode().Perm()),
		})

		doneBytes += int64(len(data))
		progress, speed, eta := util.Statify(doneBytes, totalBytes, start)
		reporter.SetProgress(progress, fmt.Sprintf("%s read, %.2f MiB/s, ETA %s", util.Sizeify(doneBytes), speed, eta))
		reporter.Update()
	}

	if reporter.IsCancelled() {
		return zpaqerr.Cancelled
	}

	sizeBefore := archiveSize(archivePath)
	reporter.SetStatus("committing")
	version, err := a.Add(files, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("adding files: %w", err)
	}
	reporter.Finish()
	reporter.Summary(len(files), version, totalBytes, archiveSize(archivePath)-sizeBefore, time.Since(start))
	return nil
}

// archiveSize reports the archive's on-disk size, zero if it does not
// exist yet; the before/after delta is what the add actually stored
// once dedup and compression are through.
func archiveSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
