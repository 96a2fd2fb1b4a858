package cmd

import (
	"errors"

	"github.com/illarion/pwvault/internal/ui"
	"github.com/spf13/cobra"
)

var ErrAlreadyInitialized = errors.New("vault already initialized")

func (a *app) initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the vault and choose a master passphrase",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := a.vault()
			initialized, err := v.Initialized()
			if err != nil {
				return err
			}
			if initialized {
				a.printf("Use %s to see its state\n", ui.Code.Sprint("pwvault status"))
				return ErrAlreadyInitialized
			}

			c, err := a.unlock(cmd.Context(), v)
			if err != nil {
				return err
			}
			c.Close()

			a.printf("%s Initialized vault in %s\n", ui.Success.Sprint("✓"), ui.Path.Sprint(v.Paths().Dir))
			return nil
		},
	}
}
