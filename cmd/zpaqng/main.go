// zpaqng is a journaling, deduplicating archiver built on the ZPAQ Level 2
// container format: self-describing per-block bytecode, context-mixing
// compression, crash-safe append-only transactions, and an optional
// AES-256-CTR envelope keyed by a scrypt-derived password.
package main

import (
	"zpaqng/internal/cli"
)

const version = "v0.1"

func main() {
	cli.Execute(version)
}
