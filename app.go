// Command repominer streams commits, modifications, diffs and code complexity
// out of a Git repository.
//
//	repominer log --repo . --since 2024-01-01 --stat --format ci
//	repominer show --commit HEAD
//	repominer memcheck --since 2024-01-01 --until 2024-03-01 --limit-mb 256
//
// A bare path argument is shorthand for "repominer log --repo <path>".
package main

import (
	"github.com/masmgr/repominer/cmd"
)

func main() {
	cmd.Run()
}
