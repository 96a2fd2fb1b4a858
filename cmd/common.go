package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/illarion/pwvault/internal/core"
	"github.com/illarion/pwvault/internal/crypto"
	"github.com/illarion/pwvault/internal/generator"
	"github.com/illarion/pwvault/internal/keyring"
	"github.com/illarion/pwvault/internal/ui"
)

// unlock returns a capability for v. $PWVAULT_PASSPHRASE and, when enabled,
// the keyring are tried once each before the interactive prompts; failures
// there do not use up interactive attempts.
func (a *app) unlock(ctx context.Context, v *core.Vault) (*core.Capability, error) {
	initialized, err := v.Initialized()
	if err != nil {
		return nil, err
	}

	if passphrase := core.PassphraseFromEnv(); passphrase != nil {
		defer crypto.ClearBytes(passphrase)
		if !initialized {
			return v.Authenticate(ctx, &staticPrompter{passphrase: passphrase})
		}
		c, err := v.Unlock(ctx, passphrase)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, core.ErrWrongPassphrase) {
			return nil, err
		}
		a.log.Warn(ctx, "passphrase from environment rejected", "env", core.EnvPassphrase)
	}

	if initialized && a.cfg.Keyring {
		if c := a.unlockFromKeyring(ctx, v); c != nil {
			return c, nil
		}
	}

	return v.Authenticate(ctx, a.prompter)
}

func (a *app) unlockFromKeyring(ctx context.Context, v *core.Vault) *core.Capability {
	vaultID, err := v.VaultID(ctx)
	if err != nil {
		a.log.Warn(ctx, "vault id unavailable", "error", err)
		return nil
	}
	passphrase, err := keyring.GetPassphrase(vaultID)
	if err != nil {
		if !errors.Is(err, keyring.ErrNotFound) {
			a.log.Warn(ctx, "keyring lookup failed", "error", err)
		}
		return nil
	}
	defer crypto.ClearBytes(passphrase)

	c, err := v.Unlock(ctx, passphrase)
	if err != nil {
		a.log.Warn(ctx, "keyring passphrase rejected", "error", err)
		return nil
	}
	a.log.Debug(ctx, "unlocked from keyring")
	return c
}

// staticPrompter answers setup once with a fixed passphrase.
type staticPrompter struct {
	passphrase []byte
	used       bool
}

func (s *staticPrompter) ReadNewPassphrase(ctx context.Context) ([]byte, []byte, error) {
	if s.used {
		return nil, nil, core.ErrCancelled
	}
	s.used = true
	return clone(s.passphrase), clone(s.passphrase), nil
}

func (s *staticPrompter) ReadPassphrase(ctx context.Context, remaining int) ([]byte, error) {
	return nil, core.ErrCancelled
}

// recordingPrompter keeps a copy of the last passphrase it handed out.
type recordingPrompter struct {
	core.Prompter
	last []byte
}

func (r *recordingPrompter) ReadNewPassphrase(ctx context.Context) ([]byte, []byte, error) {
	passphrase, confirm, err := r.Prompter.ReadNewPassphrase(ctx)
	r.remember(passphrase)
	return passphrase, confirm, err
}

func (r *recordingPrompter) ReadPassphrase(ctx context.Context, remaining int) ([]byte, error) {
	passphrase, err := r.Prompter.ReadPassphrase(ctx, remaining)
	r.remember(passphrase)
	return passphrase, err
}

func (r *recordingPrompter) Reject(err error) {
	if rej, ok := r.Prompter.(core.Rejecter); ok {
		rej.Reject(err)
	}
}

func (r *recordingPrompter) remember(passphrase []byte) {
	crypto.ClearBytes(r.last)
	r.last = clone(passphrase)
}

func clone(b []byte) []byte {
	return append([]byte(nil), b...)
}

// HandleError prints err for the user and returns the exit code.
func HandleError(w io.Writer, err error) int {
	fmt.Fprintln(w, errorMessage(err))
	return 1
}

func errorMessage(err error) string {
	prefix := ui.Error.Sprint("Error:")
	switch core.OutcomeOf(err) {
	case core.OutcomeInsufficientChars:
		return prefix + " too many characters excluded; keep at least one uppercase letter, lowercase letter, digit and symbol"
	case core.OutcomeCancelled:
		return "Cancelled"
	case core.OutcomeLockedOut:
		return prefix + fmt.Sprintf(" %d incorrect passphrases; vault stays locked", core.MaxAttempts)
	case core.OutcomeIOFault:
		return prefix + " vault file problem: " + err.Error()
	}

	switch {
	case errors.Is(err, core.ErrNotInitialized):
		return prefix + " vault not initialized\nRun " + ui.Code.Sprint("pwvault init") + " first"
	case errors.Is(err, core.ErrWrongPassphrase):
		return prefix + " wrong passphrase"
	default:
		return prefix + " " + err.Error()
	}
}

// readLine prompts and returns one trimmed line. io.EOF ends input.
func (a *app) readLine(prompt string) (string, error) {
	fmt.Fprint(a.out, prompt)
	line, err := a.in.ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// describe prints a generated password with its strength.
func (a *app) describe(pw generator.Password) {
	if pw.Adjusted() {
		a.printf("%s\n", ui.Muted.Sprintf("adjusted length from %d to minimum required %d", pw.Requested, generator.MinLength))
	}
	a.printf("Generated password (%d chars)\n", pw.Length())
	a.printf("Pool Size (N): %d characters | Entropy: %.2f bits\n", pw.PoolSize, pw.Entropy)
	if pw.Weak(a.cfg.StrengthThreshold) {
		a.printf("%s aim for at least %.0f bits of entropy; try a longer password\n", ui.Warning.Sprint("⚠"), a.cfg.StrengthThreshold)
	}
	a.printf("%s\n", ui.Secret.Sprint(pw.Text))
}
