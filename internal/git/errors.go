package git

import (
	"errors"
	"fmt"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

var (
	// ErrRepositoryNotFound is returned when the location does not hold a repository.
	ErrRepositoryNotFound = errors.New("repository not found")
	// ErrObjectNotFound is returned when a commit, tree or blob is missing.
	ErrObjectNotFound = errors.New("object not found")
	// ErrCorruptObject is returned when an object exists but cannot be decoded.
	ErrCorruptObject = errors.New("corrupt object")
	// ErrBranchNotFound is returned when a branch name does not resolve.
	ErrBranchNotFound = errors.New("branch not found")
)

// classify maps go-git errors onto the accessor error taxonomy.
func classify(err error, what string, id fmt.Stringer) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, plumbing.ErrObjectNotFound),
		errors.Is(err, plumbing.ErrReferenceNotFound),
		errors.Is(err, gogit.ErrBranchNotFound):
		return fmt.Errorf("%s %s: %w", what, id, ErrObjectNotFound)
	default:
		return fmt.Errorf("%s %s: %w: %v", what, id, ErrCorruptObject, err)
	}
}
