package cli

import (
	"fmt"

	"zpaqng/internal/journal"
)

// resolveKey figures out the password to use for an archive without
// opening it: from the flag, from stdin, or by prompting interactively
// (with confirmation when confirm is set, which add uses so a brand-new
// archive's password is never a typo). Returns a nil key when noPassword
// is set.
func resolveKey(password string, passwordStdin, noPassword, confirm bool) ([]byte, error) {
	switch {
	case noPassword:
		return nil, nil
	case passwordStdin:
		pw, err := ReadPasswordFromStdin()
		if err != nil {
			return nil, err
		}
		return []byte(pw), nil
	case password != "":
		return []byte(password), nil
	default:
		pw, err := ReadPasswordInteractive(confirm)
		if err != nil {
			return nil, err
		}
		return []byte(pw), nil
	}
}

// openForCommand opens (creating if absent) the archive at path, resolving
// its password the same way resolveKey does.
func openForCommand(path, password string, passwordStdin, noPassword, confirm bool) (*journal.Archive, error) {
	key, err := resolveKey(password, passwordStdin, noPassword, confirm)
	if err != nil {
		return nil, err
	}
	a, err := journal.OpenArchive(path, key)
	if err != nil {
		return nil, fmt.Errorf("opening archive %s: %w", path, err)
	}
	return a, nil
}
