package cmd

import (
	"time"

	"github.com/illarion/pwvault/internal/git"
	"github.com/illarion/pwvault/internal/keyring"
	"github.com/illarion/pwvault/internal/ui"
	"github.com/spf13/cobra"
)

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show vault state without asking for the passphrase",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			v := a.vault()
			st, err := v.Status(ctx)
			if err != nil {
				return err
			}

			a.printf("Vault: %s\n", ui.Path.Sprint(st.Dir))
			if !st.Initialized {
				a.printf("Not initialized. Run %s to create it\n", ui.Code.Sprint("pwvault init"))
				return nil
			}

			if st.VaultID != "" {
				a.printf("ID: %s\n", st.VaultID)
				a.printf("Created: %s\n", st.Created.Format(time.RFC3339))
			}
			a.printf("Entries: %d (%d bytes)\n", st.Entries, st.LogSize)
			if !st.LastSaved.IsZero() {
				a.printf("Last saved: %s\n", st.LastSaved.Format(time.RFC3339))
			}

			switch {
			case st.IndexMissing:
				a.printf("Index: %s\n", ui.Warning.Sprintf("missing, %d entries not indexed", st.Entries))
			case st.Consistent():
				a.printf("Index: %s\n", ui.Success.Sprintf("ok, %d entries", st.Indexed))
			case len(st.Mismatched) > 0:
				a.printf("Index: %s %v\n", ui.Error.Sprintf("%d entries changed since saved:", len(st.Mismatched)), st.Mismatched)
			default:
				a.printf("Index: %s\n", ui.Warning.Sprintf("%d indexed, %d in log", st.Indexed, st.Entries))
			}

			switch {
			case st.VaultID == "":
				a.printf("Keyring: %s\n", ui.Muted.Sprint("unknown without a vault ID"))
			case keyring.HasPassphrase(st.VaultID):
				a.printf("Keyring: passphrase stored\n")
			default:
				a.printf("Keyring: %s\n", ui.Muted.Sprint("not stored"))
			}

			files := []string{a.cfg.KeyFile, a.cfg.LogFile, a.cfg.IndexFile}
			gs := git.Check(ctx, st.Dir, a.cfg.KeyFile, files)
			a.printf("%s", git.Format(gs))
			if gs.KeyExposed() {
				a.log.Warn(ctx, "key file may be committed to git", "file", a.cfg.KeyFile)
			}
			return nil
		},
	}
}
