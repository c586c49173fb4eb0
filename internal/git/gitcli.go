package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
)

// GitCLIAccessor reads a repository by shelling out to the git binary.
// It keeps no state between calls, so concurrent use needs no locking.
type GitCLIAccessor struct {
	repoPath string
	gitPath  string
}

// NewGitCLIAccessor verifies that repoPath is a repository and that git is installed.
func NewGitCLIAccessor(ctx context.Context, repoPath string) (*GitCLIAccessor, error) {
	gitPath, err := exec.LookPath("git")
	if err != nil {
		return nil, fmt.Errorf("git binary: %w", err)
	}
	a := &GitCLIAccessor{repoPath: repoPath, gitPath: gitPath}
	if _, err := a.run(ctx, "rev-parse", "--git-dir"); err != nil {
		return nil, fmt.Errorf("%s: %w", repoPath, ErrRepositoryNotFound)
	}
	return a, nil
}

type gitCommandError struct {
	args   []string
	err    error
	stderr string
}

func (e *gitCommandError) Error() string {
	return fmt.Sprintf("git %s failed: %v: %s", strings.Join(e.args, " "), e.err, e.stderr)
}

func (e *gitCommandError) Unwrap() error {
	return e.err
}

func (a *GitCLIAccessor) run(ctx context.Context, args ...string) ([]byte, error) {
	full := append([]string{"-C", a.repoPath}, args...)
	cmd := exec.CommandContext(ctx, a.gitPath, full...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, &gitCommandError{args: args, err: err, stderr: strings.TrimSpace(stderr.String())}
	}
	return out, nil
}

// objectError maps a failed object lookup onto the accessor taxonomy.
func objectError(err error, what string, id fmt.Stringer) error {
	var cmdErr *gitCommandError
	if errors.As(err, &cmdErr) {
		msg := cmdErr.stderr
		if strings.Contains(msg, "Not a valid object name") ||
			strings.Contains(msg, "does not exist") ||
			strings.Contains(msg, "bad file") ||
			strings.Contains(msg, "could not get object info") ||
			msg == "" {
			return fmt.Errorf("%s %s: %w", what, id, ErrObjectNotFound)
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%s %s: %w: %v", what, id, ErrCorruptObject, err)
}

func (a *GitCLIAccessor) verifyCommit(ctx context.Context, rev string) (Hash, bool) {
	out, err := a.run(ctx, "rev-parse", "--verify", "--quiet", rev+"^{commit}")
	if err != nil {
		return ZeroHash, false
	}
	s := strings.TrimSpace(string(out))
	if !plumbing.IsHash(s) {
		return ZeroHash, false
	}
	return plumbing.NewHash(s), true
}

// DefaultBranch returns the branch HEAD points at, or "HEAD" when detached.
func (a *GitCLIAccessor) DefaultBranch(ctx context.Context) (string, error) {
	out, err := a.run(ctx, "symbolic-ref", "--short", "-q", "HEAD")
	if err != nil {
		return plumbing.HEAD.String(), nil
	}
	return strings.TrimSpace(string(out)), nil
}

// ResolveBranchTip resolves a local branch first, then origin's remote-tracking branch.
func (a *GitCLIAccessor) ResolveBranchTip(ctx context.Context, name string) (Hash, error) {
	if name == "" || name == plumbing.HEAD.String() {
		if h, ok := a.verifyCommit(ctx, "HEAD"); ok {
			return h, nil
		}
		return ZeroHash, fmt.Errorf("HEAD: %w", ErrObjectNotFound)
	}
	for _, ref := range []string{"refs/heads/" + name, "refs/remotes/origin/" + name} {
		if h, ok := a.verifyCommit(ctx, ref); ok {
			return h, nil
		}
	}
	return ZeroHash, fmt.Errorf("%s: %w", name, ErrBranchNotFound)
}

// ResolveRevision resolves any revision git rev-parse accepts.
func (a *GitCLIAccessor) ResolveRevision(ctx context.Context, rev string) (Hash, error) {
	if strings.HasPrefix(rev, "-") {
		return ZeroHash, fmt.Errorf("revision %q: %w", rev, ErrObjectNotFound)
	}
	if h, ok := a.verifyCommit(ctx, rev); ok {
		return h, nil
	}
	return ZeroHash, fmt.Errorf("revision %q: %w", rev, ErrObjectNotFound)
}

// ParentsOf returns the parent hashes of a commit.
func (a *GitCLIAccessor) ParentsOf(ctx context.Context, id Hash) ([]Hash, error) {
	md, err := a.MetadataOf(ctx, id)
	if err != nil {
		return nil, err
	}
	return md.Parents, nil
}

// MetadataOf reads and decodes the raw commit object.
func (a *GitCLIAccessor) MetadataOf(ctx context.Context, id Hash) (CommitMetadata, error) {
	out, err := a.run(ctx, "cat-file", "commit", id.String())
	if err != nil {
		return CommitMetadata{}, objectError(err, "commit", id)
	}
	md, err := parseRawCommit(out)
	if err != nil {
		return CommitMetadata{}, fmt.Errorf("commit %s: %w: %v", id, ErrCorruptObject, err)
	}
	md.Hash = id
	return md, nil
}

// TreeEntriesOf lists the commit tree recursively.
func (a *GitCLIAccessor) TreeEntriesOf(ctx context.Context, id Hash) (map[string]ContentRef, error) {
	out, err := a.run(ctx, "ls-tree", "-r", "-z", "--full-tree", id.String())
	if err != nil {
		return nil, objectError(err, "tree", id)
	}
	entries, err := parseLsTree(out)
	if err != nil {
		return nil, fmt.Errorf("tree %s: %w: %v", id, ErrCorruptObject, err)
	}
	return entries, nil
}

// ContentOf reads one blob.
func (a *GitCLIAccessor) ContentOf(ctx context.Context, ref ContentRef) ([]byte, error) {
	out, err := a.run(ctx, "cat-file", "blob", ref.Hash.String())
	if err != nil {
		return nil, objectError(err, "blob", ref.Hash)
	}
	return out, nil
}

// Refs lists branches and tags; annotated tags are peeled via %(*objectname).
func (a *GitCLIAccessor) Refs(ctx context.Context) ([]Ref, error) {
	out, err := a.run(ctx, "for-each-ref",
		"--format=%(refname)%00%(objectname)%00%(*objectname)",
		"refs/heads", "refs/tags")
	if err != nil {
		return nil, fmt.Errorf("list refs: %w", err)
	}
	return parseForEachRef(out)
}

func parseForEachRef(out []byte) ([]Ref, error) {
	var refs []Ref
	for _, line := range bytes.Split(out, []byte{'\n'}) {
		if len(line) == 0 {
			continue
		}
		fields := bytes.Split(line, []byte{0x00})
		if len(fields) != 3 {
			return nil, fmt.Errorf("unexpected for-each-ref line %q", line)
		}
		name := plumbing.ReferenceName(fields[0])
		target := string(fields[1])
		if peeled := string(fields[2]); peeled != "" {
			target = peeled
		}
		kind := RefBranch
		if name.IsTag() {
			kind = RefTag
		}
		refs = append(refs, Ref{Name: name.Short(), Kind: kind, Target: plumbing.NewHash(target)})
	}
	return refs, nil
}

// parseRawCommit decodes `git cat-file commit` output.
func parseRawCommit(raw []byte) (CommitMetadata, error) {
	var md CommitMetadata

	header, message, found := bytes.Cut(raw, []byte("\n\n"))
	if !found {
		header = bytes.TrimRight(raw, "\n")
	}
	md.Message = string(message)

	for _, line := range bytes.Split(header, []byte{'\n'}) {
		// Continuation lines of multi-line headers (gpgsig, mergetag) start with a space.
		if len(line) == 0 || line[0] == ' ' {
			continue
		}
		key, value, _ := bytes.Cut(line, []byte{' '})
		switch string(key) {
		case "tree":
			md.Tree = plumbing.NewHash(string(value))
		case "parent":
			md.Parents = append(md.Parents, plumbing.NewHash(string(value)))
		case "author":
			sig, err := parseRawSignature(string(value))
			if err != nil {
				return md, fmt.Errorf("author: %w", err)
			}
			md.Author = sig
		case "committer":
			sig, err := parseRawSignature(string(value))
			if err != nil {
				return md, fmt.Errorf("committer: %w", err)
			}
			md.Committer = sig
		}
	}
	if md.Tree.IsZero() {
		return md, fmt.Errorf("missing tree header")
	}
	return md, nil
}

// parseRawSignature decodes "Name <email> 1700000000 +0100".
func parseRawSignature(s string) (Signature, error) {
	open := strings.LastIndexByte(s, '<')
	closing := strings.LastIndexByte(s, '>')
	if open == -1 || closing < open {
		return Signature{}, fmt.Errorf("malformed signature %q", s)
	}
	sig := Signature{
		Name:  strings.TrimSpace(s[:open]),
		Email: s[open+1 : closing],
	}

	fields := strings.Fields(s[closing+1:])
	if len(fields) < 1 {
		return sig, nil
	}
	secs, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return Signature{}, fmt.Errorf("parse timestamp %q: %w", fields[0], err)
	}
	loc := time.UTC
	if len(fields) > 1 {
		offset, err := parseTimezoneOffset(fields[1])
		if err != nil {
			return Signature{}, err
		}
		loc = time.FixedZone("", offset)
	}
	sig.When = time.Unix(secs, 0).In(loc)
	return sig, nil
}

// parseTimezoneOffset converts "+0130" to seconds east of UTC.
func parseTimezoneOffset(tz string) (int, error) {
	if len(tz) != 5 || (tz[0] != '+' && tz[0] != '-') {
		return 0, fmt.Errorf("malformed timezone %q", tz)
	}
	hours, err := strconv.Atoi(tz[1:3])
	if err != nil {
		return 0, fmt.Errorf("malformed timezone %q: %w", tz, err)
	}
	minutes, err := strconv.Atoi(tz[3:5])
	if err != nil {
		return 0, fmt.Errorf("malformed timezone %q: %w", tz, err)
	}
	offset := hours*3600 + minutes*60
	if tz[0] == '-' {
		offset = -offset
	}
	return offset, nil
}

// parseLsTree parses NUL-terminated `git ls-tree -r -z` records:
// "<mode> SP <type> SP <hash> TAB <path> NUL".
func parseLsTree(out []byte) (map[string]ContentRef, error) {
	entries := make(map[string]ContentRef)
	i := 0
	for i < len(out) {
		rec, ok := readUntilNUL(out, &i)
		if !ok {
			return nil, fmt.Errorf("unexpected ls-tree format (missing NUL)")
		}
		meta, path, found := bytes.Cut(rec, []byte{'\t'})
		if !found {
			return nil, fmt.Errorf("unexpected ls-tree record %q", rec)
		}
		fields := strings.Fields(string(meta))
		if len(fields) != 3 {
			return nil, fmt.Errorf("unexpected ls-tree meta %q", meta)
		}
		if fields[1] != "blob" {
			continue
		}
		mode, err := parseGitFileMode(fields[0])
		if err != nil {
			return nil, err
		}
		if !isFileMode(mode) {
			continue
		}
		entries[string(path)] = ContentRef{Hash: plumbing.NewHash(fields[2]), Mode: mode}
	}
	return entries, nil
}

func readUntilNUL(b []byte, i *int) ([]byte, bool) {
	if *i >= len(b) {
		return nil, false
	}
	j := bytes.IndexByte(b[*i:], 0)
	if j == -1 {
		return nil, false
	}
	start := *i
	end := *i + j
	*i = end + 1
	return b[start:end], true
}
