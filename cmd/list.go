package cmd

import (
	"strings"

	"github.com/illarion/pwvault/internal/ui"
	"github.com/spf13/cobra"
)

func (a *app) listCmd() *cobra.Command {
	var (
		show    bool
		service string
	)
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List saved passwords",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			v := a.vault()
			c, err := a.unlock(ctx, v)
			if err != nil {
				return err
			}
			defer c.Close()

			records, err := v.Records(ctx, c)
			if err != nil {
				return err
			}

			shown := 0
			for i, rec := range records {
				if service != "" && !strings.Contains(strings.ToLower(rec.Service), strings.ToLower(service)) {
					continue
				}
				shown++
				a.printf("%3d. %s %s\n", i+1, ui.Highlight.Sprint(rec.Service),
					ui.Muted.Sprintf("%d chars, pool %d, %.2f bits", rec.Length, rec.PoolSize, rec.Entropy))
				if show {
					a.printf("     %s\n", ui.Secret.Sprint(rec.Password))
				}
			}
			if shown == 0 {
				a.printf("No saved passwords\n")
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&show, "show", "s", false, "print the passwords")
	cmd.Flags().StringVar(&service, "service", "", "only entries whose service contains this text")
	return cmd
}
