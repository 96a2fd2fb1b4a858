package core

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// EnvPassphrase supplies the master passphrase non-interactively.
const EnvPassphrase = "PWVAULT_PASSPHRASE"

// readPassword is swapped out in tests.
var readPassword = term.ReadPassword

// TerminalPrompter reads passphrases from the terminal without echo. When
// input is not a terminal it reads plain lines from In instead.
type TerminalPrompter struct {
	In  *bufio.Reader
	Out io.Writer
	fd  int
	tty bool
}

// NewTerminalPrompter creates a prompter on stdin. in is shared with the
// caller's own line reads so buffered input is not lost.
func NewTerminalPrompter(in *bufio.Reader, out io.Writer) *TerminalPrompter {
	fd := int(os.Stdin.Fd())
	return &TerminalPrompter{
		In:  in,
		Out: out,
		fd:  fd,
		tty: term.IsTerminal(fd),
	}
}

// NewLinePrompter creates a prompter that always reads plain lines from in.
func NewLinePrompter(in *bufio.Reader, out io.Writer) *TerminalPrompter {
	return &TerminalPrompter{In: in, Out: out}
}

func (t *TerminalPrompter) ReadNewPassphrase(ctx context.Context) ([]byte, []byte, error) {
	passphrase, err := t.read(ctx, "Create master passphrase: ")
	if err != nil {
		return nil, nil, err
	}
	confirm, err := t.read(ctx, "Confirm master passphrase: ")
	if err != nil {
		return nil, nil, err
	}
	return passphrase, confirm, nil
}

func (t *TerminalPrompter) ReadPassphrase(ctx context.Context, remaining int) ([]byte, error) {
	prompt := fmt.Sprintf("Master passphrase (%d attempt(s) left, %q to cancel): ", remaining, CancelWord)
	return t.read(ctx, prompt)
}

// Reject prints why the last entry was refused.
func (t *TerminalPrompter) Reject(err error) {
	msg := err.Error()
	if errors.Is(err, ErrWrongPassphrase) {
		msg = "Incorrect passphrase"
	}
	fmt.Fprintln(t.Out, msg)
}

func (t *TerminalPrompter) read(ctx context.Context, prompt string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fmt.Fprint(t.Out, prompt)

	if !t.tty {
		line, err := t.In.ReadString('\n')
		if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
			fmt.Fprintln(t.Out)
			if errors.Is(err, io.EOF) {
				return nil, ErrCancelled
			}
			return nil, fmt.Errorf("failed to read passphrase: %w", err)
		}
		return []byte(strings.TrimRight(line, "\r\n")), nil
	}

	passphrase, err := readPassword(t.fd)
	fmt.Fprintln(t.Out) // New line after password
	if err != nil {
		return nil, fmt.Errorf("failed to read passphrase: %w", err)
	}
	return passphrase, nil
}

// PassphraseFromEnv returns a copy of $PWVAULT_PASSPHRASE, or nil if unset.
func PassphraseFromEnv() []byte {
	passphrase := os.Getenv(EnvPassphrase)
	if passphrase == "" {
		return nil
	}
	return []byte(passphrase)
}
