package git

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/sirupsen/logrus"
)

// Backend selects the Accessor implementation.
type Backend string

const (
	BackendGoGit  Backend = "go-git"
	BackendGitCLI Backend = "git"
)

// ParseBackend parses a backend name; the empty string selects go-git.
func ParseBackend(s string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "go-git", "gogit":
		return BackendGoGit, nil
	case "git", "cli", "git-cli":
		return BackendGitCLI, nil
	default:
		return "", fmt.Errorf("unknown backend %q (expected go-git or git)", s)
	}
}

// OpenOptions configures Open.
type OpenOptions struct {
	Backend Backend
	// CloneDir is the parent directory for clones of remote repositories (default: os.TempDir()).
	CloneDir string
	Logger   logrus.FieldLogger
}

// Repository is an opened repository. Remote locations are cloned into a temporary
// directory that Close removes.
type Repository struct {
	Accessor
	Location string
	Path     string
	Remote   bool

	cleanup func() error
}

// Close releases the local clone of a remote repository. It is a no-op for local repositories.
func (r *Repository) Close() error {
	if r.cleanup == nil {
		return nil
	}
	err := r.cleanup()
	r.cleanup = nil
	return err
}

// IsRemote reports whether location names a remote repository rather than a local path.
func IsRemote(location string) bool {
	if strings.Contains(location, "://") {
		return true
	}
	// scp-like syntax: user@host:path
	if at := strings.IndexByte(location, '@'); at > 0 {
		if colon := strings.IndexByte(location[at:], ':'); colon > 0 {
			return true
		}
	}
	return false
}

// Open opens a local repository or clones a remote one.
func Open(ctx context.Context, location string, opts OpenOptions) (*Repository, error) {
	logger := opts.Logger
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	if opts.Backend == "" {
		opts.Backend = BackendGoGit
	}

	if !IsRemote(location) {
		acc, err := openAccessor(ctx, opts.Backend, location, nil)
		if err != nil {
			return nil, err
		}
		return &Repository{Accessor: acc, Location: location, Path: location}, nil
	}

	dir, err := os.MkdirTemp(opts.CloneDir, "repominer-*")
	if err != nil {
		return nil, fmt.Errorf("create clone directory: %w", err)
	}
	cleanup := func() error { return os.RemoveAll(dir) }

	logger.WithFields(logrus.Fields{"url": location, "dir": dir}).Info("cloning remote repository")
	repo, err := gogit.PlainCloneContext(ctx, dir, true, &gogit.CloneOptions{URL: location})
	if err != nil {
		_ = cleanup()
		if errors.Is(err, transport.ErrRepositoryNotFound) {
			return nil, fmt.Errorf("%s: %w", location, ErrRepositoryNotFound)
		}
		return nil, fmt.Errorf("clone %s: %w", location, err)
	}

	acc, err := openAccessor(ctx, opts.Backend, dir, repo)
	if err != nil {
		_ = cleanup()
		return nil, err
	}
	return &Repository{Accessor: acc, Location: location, Path: dir, Remote: true, cleanup: cleanup}, nil
}

func openAccessor(ctx context.Context, backend Backend, path string, repo *gogit.Repository) (Accessor, error) {
	switch backend {
	case BackendGitCLI:
		return NewGitCLIAccessor(ctx, path)
	case BackendGoGit:
		if repo != nil {
			return NewGoGitAccessorFromRepository(repo), nil
		}
		return NewGoGitAccessor(path)
	default:
		return nil, fmt.Errorf("unknown backend %q", backend)
	}
}
