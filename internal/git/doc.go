// Package git checks whether vault files sit inside a git work tree.
//
// Checks performed:
//   - Whether any vault file is tracked by git (should not be)
//   - Whether vault files are in .gitignore (should be)
//
// The key file together with the log is enough to read every entry, so a
// vault kept inside a repository should never be committed.
package git
