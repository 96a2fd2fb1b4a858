package git

import (
	"context"
	"os/exec"
	"strings"
	"testing"
)

func TestFormat_NotRepo(t *testing.T) {
	if got := Format(&Status{}); got != "" {
		t.Errorf("Format outside repo = %q, want empty", got)
	}
}

func TestFormat(t *testing.T) {
	status := &Status{
		IsRepo:    true,
		KeyFile:   "vault.key",
		Tracked:   []string{"passwords.log"},
		Unignored: []string{"passwords.log", "vault.key"},
		Ignored:   []string{"index.db"},
	}
	got := Format(status)

	for _, want := range []string{
		"error: 1 vault file(s) tracked by git",
		"git rm --cached passwords.log",
		"warning: vault.key not in .gitignore",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Format() missing %q in:\n%s", want, got)
		}
	}
	if strings.Contains(got, "warning: passwords.log") {
		t.Errorf("tracked file should not also get an ignore warning:\n%s", got)
	}
	if !status.KeyExposed() {
		t.Error("KeyExposed() = false, want true")
	}
}

func TestFormat_AllIgnored(t *testing.T) {
	status := &Status{
		IsRepo:  true,
		KeyFile: "vault.key",
		Ignored: []string{"vault.key", "passwords.log"},
	}
	got := Format(status)
	if !strings.Contains(got, "ok: no vault files tracked") || !strings.Contains(got, "ok: 2 vault file(s) in .gitignore") {
		t.Errorf("unexpected output:\n%s", got)
	}
	if status.KeyExposed() {
		t.Error("KeyExposed() = true, want false")
	}
}

func TestCheck_OutsideRepo(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	status := Check(context.Background(), dir, "vault.key", []string{"vault.key"})
	if status.IsRepo {
		t.Skip("temp dir is inside a git work tree")
	}
	if status.KeyExposed() {
		t.Error("KeyExposed() outside repo = true")
	}
}

func TestCheck_Repo(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	if out, err := exec.Command("git", "-C", dir, "init", "-q").CombinedOutput(); err != nil {
		t.Skipf("git init failed: %v: %s", err, out)
	}

	status := Check(context.Background(), dir, "vault.key", []string{"vault.key", "passwords.log"})
	if !status.IsRepo {
		t.Fatal("IsRepo = false after git init")
	}
	if len(status.Tracked) != 0 {
		t.Errorf("Tracked = %v, want none", status.Tracked)
	}
	if len(status.Unignored) != 2 {
		t.Errorf("Unignored = %v, want both files", status.Unignored)
	}
	if !status.KeyExposed() {
		t.Error("KeyExposed() = false for unignored key file")
	}
}
