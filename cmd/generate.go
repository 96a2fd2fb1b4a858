package cmd

import (
	"errors"
	"fmt"

	"github.com/illarion/pwvault/internal/config"
	"github.com/illarion/pwvault/internal/core"
	"github.com/illarion/pwvault/internal/generator"
	"github.com/illarion/pwvault/internal/ui"
	"github.com/spf13/cobra"
)

const maxCount = 100

type generateOptions struct {
	length     int
	exclusions string
	count      int
	save       string
	quiet      bool
}

func (a *app) generateCmd() *cobra.Command {
	opts := &generateOptions{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate passwords without the interactive session",
		Long: `Generate passwords containing at least one uppercase letter, lowercase
letter, digit and symbol.

Examples:
  # One password of the configured default length
  pwvault generate

  # Three 24-character passwords without quotes or backslashes
  pwvault generate -l 24 -x "'\"\\" -n 3

  # Generate and save under a service label
  pwvault generate --save example.com`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("length") {
				opts.length = a.cfg.DefaultLength
			}
			if !cmd.Flags().Changed("exclude") {
				opts.exclusions = a.cfg.Exclusions
			}
			return a.runGenerate(cmd, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.length, "length", "l", 0, fmt.Sprintf("password length (raised to %d if shorter, at most %d)", generator.MinLength, config.MaxLength))
	cmd.Flags().StringVarP(&opts.exclusions, "exclude", "x", "", "characters to exclude")
	cmd.Flags().IntVarP(&opts.count, "count", "n", 1, fmt.Sprintf("number of passwords (1-%d)", maxCount))
	cmd.Flags().StringVar(&opts.save, "save", "", "save the password under this service label")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "print only the passwords")
	return cmd
}

func (o *generateOptions) validate() error {
	if o.length < 1 || o.length > config.MaxLength {
		return fmt.Errorf("length must be between 1 and %d, got %d", config.MaxLength, o.length)
	}
	if o.count < 1 || o.count > maxCount {
		return fmt.Errorf("count must be between 1 and %d, got %d", maxCount, o.count)
	}
	if o.save != "" && o.count != 1 {
		return errors.New("--save works with a single password")
	}
	return nil
}

func (a *app) runGenerate(cmd *cobra.Command, opts *generateOptions) error {
	if err := opts.validate(); err != nil {
		return err
	}

	// Checked before any randomness is drawn or the vault is touched.
	pool, err := generator.BuildPool(opts.exclusions)
	if err != nil {
		return err
	}

	gen := generator.New(nil)
	passwords := make([]generator.Password, 0, opts.count)
	for range opts.count {
		pw, err := gen.Generate(opts.length, pool)
		if err != nil {
			return fmt.Errorf("failed to generate password: %w", err)
		}
		passwords = append(passwords, pw)
	}

	for i, pw := range passwords {
		if opts.quiet {
			a.printf("%s\n", pw.Text)
			continue
		}
		if i > 0 {
			a.printf("\n")
		}
		a.describe(pw)
	}

	if opts.save == "" {
		return nil
	}

	rec := core.NewRecord(opts.save, passwords[0], opts.exclusions)
	if err := rec.Validate(); err != nil {
		return err
	}

	ctx := cmd.Context()
	v := a.vault()
	c, err := a.unlock(ctx, v)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := v.Save(ctx, c, rec); err != nil {
		return err
	}
	if !opts.quiet {
		a.printf("%s Saved password for %s\n", ui.Success.Sprint("✓"), ui.Highlight.Sprint(rec.Service))
	}
	return nil
}
