package git

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Status describes how the vault files relate to an enclosing git repository
type Status struct {
	IsRepo    bool
	KeyFile   string
	Tracked   []string // vault files tracked by git (bad)
	Unignored []string // vault files not covered by .gitignore (warning)
	Ignored   []string // vault files in .gitignore (good)
}

// IsGitRepo checks if dir is inside a git work tree
func IsGitRepo(ctx context.Context, dir string) bool {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--is-inside-work-tree")
	cmd.Dir = dir
	return cmd.Run() == nil
}

// IsTracked checks if a file is tracked by git
func IsTracked(ctx context.Context, dir, path string) bool {
	cmd := exec.CommandContext(ctx, "git", "ls-files", "--", path)
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		return false
	}
	return len(strings.TrimSpace(string(output))) > 0
}

// IsIgnored checks if a file is ignored by git (handles all .gitignore files)
func IsIgnored(ctx context.Context, dir, path string) bool {
	cmd := exec.CommandContext(ctx, "git", "check-ignore", "-q", "--", path)
	cmd.Dir = dir
	// git check-ignore exits 0 if the file is ignored
	return cmd.Run() == nil
}

// Check reports the git status of files inside the vault directory dir.
// keyFile names the key file among them.
func Check(ctx context.Context, dir, keyFile string, files []string) *Status {
	status := &Status{KeyFile: keyFile}
	if !IsGitRepo(ctx, dir) {
		return status
	}
	status.IsRepo = true

	for _, file := range files {
		if IsTracked(ctx, dir, file) {
			status.Tracked = append(status.Tracked, file)
		}
		if IsIgnored(ctx, dir, file) {
			status.Ignored = append(status.Ignored, file)
		} else {
			status.Unignored = append(status.Unignored, file)
		}
	}
	return status
}

// KeyExposed reports whether the key file is tracked or could be committed.
func (s *Status) KeyExposed() bool {
	if !s.IsRepo {
		return false
	}
	for _, f := range append(append([]string{}, s.Tracked...), s.Unignored...) {
		if f == s.KeyFile {
			return true
		}
	}
	return false
}

// Format renders the status for display. It is empty outside a repository.
func Format(status *Status) string {
	if !status.IsRepo {
		return ""
	}

	var result strings.Builder
	result.WriteString("\nGit:\n")

	tracked := make(map[string]bool, len(status.Tracked))
	for _, f := range status.Tracked {
		tracked[f] = true
	}

	if len(status.Tracked) > 0 {
		result.WriteString(fmt.Sprintf("   error: %d vault file(s) tracked by git:\n", len(status.Tracked)))
		for _, file := range status.Tracked {
			result.WriteString(fmt.Sprintf("      - %s (run: git rm --cached %s)\n", file, file))
		}
	} else {
		result.WriteString("   ok: no vault files tracked by git\n")
	}

	for _, file := range status.Unignored {
		if tracked[file] {
			continue
		}
		if file == status.KeyFile {
			result.WriteString(fmt.Sprintf("   warning: %s not in .gitignore; it unlocks every entry\n", file))
		} else {
			result.WriteString(fmt.Sprintf("   warning: %s not in .gitignore\n", file))
		}
	}
	if len(status.Unignored) == 0 && len(status.Ignored) > 0 {
		result.WriteString(fmt.Sprintf("   ok: %d vault file(s) in .gitignore\n", len(status.Ignored)))
	}

	return result.String()
}
