package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

var (
	errPasswordMismatch = errors.New("archive passwords do not match")
	errPasswordEmpty    = errors.New("archive password cannot be empty")
)

// promptPassword reads one password without echo when stdin is a
// terminal; piped input falls back to a plain line read so scripts can
// drive the prompt.
func promptPassword(label string) (string, error) {
	fmt.Fprint(os.Stderr, label)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		pw, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return string(pw), nil
	}
	return readPasswordLine()
}

func readPasswordLine() (string, error) {
	sc := bufio.NewScanner(os.Stdin)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return "", errPasswordEmpty
	}
	return strings.TrimRight(sc.Text(), "\r"), nil
}

// ReadPasswordInteractive prompts for the archive password. When
// confirm is set (add creating a brand-new encrypted archive) it asks
// twice: a typo here would leave the archive permanently undecryptable.
func ReadPasswordInteractive(confirm bool) (string, error) {
	pw, err := promptPassword("Archive password: ")
	if err != nil {
		return "", err
	}
	if pw == "" {
		return "", errPasswordEmpty
	}
	if confirm {
		again, err := promptPassword("Confirm archive password: ")
		if err != nil {
			return "", err
		}
		if pw != again {
			return "", errPasswordMismatch
		}
	}
	return pw, nil
}

// ReadPasswordFromStdin reads the password as the first line of stdin,
// for scripted use with the -P flag.
func ReadPasswordFromStdin() (string, error) {
	return readPasswordLine()
}
