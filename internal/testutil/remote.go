package testutil

import (
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// RequireGit skips the test when no git binary is available.
func RequireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
}

// NewRemote creates an empty bare repository whose HEAD points at main
// and returns its path, usable as a clone URL.
func NewRemote(t *testing.T) string {
	t.Helper()
	RequireGit(t)

	dir := filepath.Join(t.TempDir(), "remote.git")
	Git(t, "", "init", "--bare", dir)
	Git(t, dir, "symbolic-ref", "HEAD", "refs/heads/main")
	return dir
}

// Git runs git in dir (or the current directory when dir is empty) and
// returns trimmed stdout, failing the test on error.
func Git(t *testing.T, dir string, args ...string) string {
	t.Helper()
	if dir != "" {
		args = append([]string{"-C", dir}, args...)
	}
	cmd := exec.Command("git", args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return strings.TrimSpace(string(out))
}

// CommitCount returns the number of commits reachable from ref in dir.
func CommitCount(t *testing.T, dir, ref string) string {
	t.Helper()
	return Git(t, dir, "rev-list", "--count", ref)
}
