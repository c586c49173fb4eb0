package git

import (
	"testing"
	"time"

	"github.com/go-git/go-git/v5/plumbing/filemode"
)

func TestSignature_ContributorKey(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		expected string
	}{
		{name: "Lowercase email", email: "user@example.com", expected: "user@example.com"},
		{name: "Uppercase email", email: "USER@EXAMPLE.COM", expected: "user@example.com"},
		{name: "Mixed case email", email: "User@Example.Com", expected: "user@example.com"},
		{name: "Empty email", email: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Signature{Name: "Test", Email: tt.email, When: time.Now()}
			result := s.ContributorKey()
			if result != tt.expected {
				t.Errorf("ContributorKey() = %q, expected %q", result, tt.expected)
			}
		})
	}
}

func TestRefKind_String(t *testing.T) {
	tests := []struct {
		name     string
		kind     RefKind
		expected string
	}{
		{name: "Branch", kind: RefBranch, expected: "branch"},
		{name: "Tag", kind: RefTag, expected: "tag"},
		{name: "Unknown", kind: RefKind(99), expected: "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.kind.String(); got != tt.expected {
				t.Errorf("String() = %q, expected %q", got, tt.expected)
			}
		})
	}
}

func TestContentRef_IsZero(t *testing.T) {
	if !(ContentRef{}).IsZero() {
		t.Error("empty ContentRef should be zero")
	}
	ref := ContentRef{Hash: BlobHash("x"), Mode: filemode.Regular}
	if ref.IsZero() {
		t.Error("ContentRef with a hash should not be zero")
	}
}

func TestIsFileMode(t *testing.T) {
	tests := []struct {
		mode filemode.FileMode
		want bool
	}{
		{filemode.Regular, true},
		{filemode.Executable, true},
		{filemode.Symlink, true},
		{filemode.Submodule, false},
		{filemode.Dir, false},
		{filemode.Empty, false},
	}
	for _, tt := range tests {
		if got := isFileMode(tt.mode); got != tt.want {
			t.Errorf("isFileMode(%v) = %v, want %v", tt.mode, got, tt.want)
		}
	}
}

func TestParseGitFileMode(t *testing.T) {
	m, err := parseGitFileMode("100755")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m != filemode.Executable {
		t.Errorf("mode = %v, want %v", m, filemode.Executable)
	}
	if m, err := parseGitFileMode(""); err != nil || m != filemode.Empty {
		t.Errorf("parseGitFileMode(\"\") = %v, %v", m, err)
	}
	if _, err := parseGitFileMode("zzz"); err == nil {
		t.Error("expected error for non-octal mode")
	}
}

func TestSignature_TimezoneOffset(t *testing.T) {
	sig := Signature{When: time.Date(2020, 1, 1, 0, 0, 0, 0, time.FixedZone("", -7*3600))}
	if got := sig.TimezoneOffset(); got != -25200 {
		t.Errorf("TimezoneOffset() = %d, want -25200", got)
	}
}
