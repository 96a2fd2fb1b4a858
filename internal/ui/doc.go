// Package ui formats pwvault terminal output.
//
// Formatters color their text unless NO_COLOR is set or the output is not a
// terminal, in which case they fall back to plain decorations. Spinner shows
// progress while the master passphrase is being stretched.
package ui
