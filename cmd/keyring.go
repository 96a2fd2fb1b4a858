package cmd

import (
	"errors"

	"github.com/illarion/pwvault/internal/core"
	"github.com/illarion/pwvault/internal/crypto"
	"github.com/illarion/pwvault/internal/keyring"
	"github.com/illarion/pwvault/internal/ui"
	"github.com/spf13/cobra"
)

func (a *app) keyringCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keyring",
		Short: "Manage the master passphrase in the OS keyring",
		Long: `Store the master passphrase in the OS keyring so later commands unlock
without prompting. Set "keyring: true" in the config file to use it.`,
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "save",
			Short: "Verify the passphrase and store it in the keyring",
			Args:  cobra.NoArgs,
			RunE:  a.keyringSave,
		},
		&cobra.Command{
			Use:   "delete",
			Short: "Remove the passphrase from the keyring",
			Args:  cobra.NoArgs,
			RunE:  a.keyringDelete,
		},
		&cobra.Command{
			Use:   "status",
			Short: "Report whether the keyring holds the passphrase",
			Args:  cobra.NoArgs,
			RunE:  a.keyringStatus,
		},
	)
	return cmd
}

func (a *app) keyringSave(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	v := a.vault()
	initialized, err := v.Initialized()
	if err != nil {
		return err
	}
	if !initialized {
		return core.ErrNotInitialized
	}

	var passphrase []byte
	if env := core.PassphraseFromEnv(); env != nil {
		passphrase = env
		c, err := v.Unlock(ctx, passphrase)
		if err != nil {
			crypto.ClearBytes(passphrase)
			return err
		}
		c.Close()
	} else {
		rec := &recordingPrompter{Prompter: a.prompter}
		c, err := v.Authenticate(ctx, rec)
		if err != nil {
			crypto.ClearBytes(rec.last)
			return err
		}
		c.Close()
		passphrase = rec.last
	}
	defer crypto.ClearBytes(passphrase)

	vaultID, err := v.VaultID(ctx)
	if err != nil {
		return err
	}
	if err := keyring.SavePassphrase(vaultID, passphrase); err != nil {
		return err
	}

	a.printf("%s Passphrase saved to keyring\n", ui.Success.Sprint("✓"))
	if !a.cfg.Keyring {
		a.printf("Set %s in the config file to unlock with it\n", ui.Code.Sprint("keyring: true"))
	}
	return nil
}

func (a *app) keyringDelete(cmd *cobra.Command, args []string) error {
	vaultID, err := a.vault().VaultID(cmd.Context())
	if err != nil {
		if errors.Is(err, core.ErrNotInitialized) {
			a.printf("No passphrase stored in keyring\n")
			return nil
		}
		return err
	}

	if err := keyring.DeletePassphrase(vaultID); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			a.printf("No passphrase stored in keyring\n")
			return nil
		}
		return err
	}
	a.printf("Passphrase removed from keyring\n")
	return nil
}

func (a *app) keyringStatus(cmd *cobra.Command, args []string) error {
	vaultID, err := a.vault().VaultID(cmd.Context())
	if err != nil && !errors.Is(err, core.ErrNotInitialized) {
		return err
	}

	if err == nil && keyring.HasPassphrase(vaultID) {
		a.printf("Passphrase is stored in keyring\n")
	} else {
		a.printf("No passphrase stored in keyring\n")
	}
	return nil
}
