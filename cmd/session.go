package cmd

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/illarion/pwvault/internal/config"
	"github.com/illarion/pwvault/internal/core"
	"github.com/illarion/pwvault/internal/generator"
	"github.com/illarion/pwvault/internal/ui"
)

// runSession is the interactive generate-and-save loop.
func (a *app) runSession(ctx context.Context) error {
	ui.PrintBanner(a.out, "pwvault")
	a.printf("Every password holds at least one uppercase letter, lowercase letter, digit and symbol.\n")
	a.printf("%s\n", strings.Repeat("-", 40))

	v := a.vault()
	c, err := a.unlock(ctx, v)
	if err != nil {
		return err
	}
	defer c.Close()

	length, err := a.readLength()
	if err != nil {
		return a.endSession(err)
	}

	a.printf("\n--- Character Exclusion ---\n")
	a.printf("Some systems reject symbols like ' \" \\ < >\n")
	exclusions, err := a.readLine("Characters to EXCLUDE (Enter for " + exclusionsHint(a.cfg.Exclusions) + "): ")
	if err != nil {
		return a.endSession(err)
	}
	if exclusions == "" {
		exclusions = a.cfg.Exclusions
	}

	pool, err := generator.BuildPool(exclusions)
	if err != nil {
		a.printf("\n%s\n", errorMessage(err))
		return a.endSession(nil)
	}
	gen := generator.New(nil)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		pw, err := gen.Generate(length, pool)
		if err != nil {
			return err
		}
		a.printf("\n%s\n", strings.Repeat("=", 50))
		a.describe(pw)
		a.printf("%s\n", strings.Repeat("=", 50))

		again, err := a.chooseAction(ctx, v, c, core.NewRecord("", pw, exclusions))
		if err != nil || !again {
			return a.endSession(err)
		}
	}
}

// readLength asks for the password length until the answer is a number no
// larger than config.MaxLength.
func (a *app) readLength() (int, error) {
	prompt := "Password length (minimum " + strconv.Itoa(generator.MinLength) +
		", default " + strconv.Itoa(a.cfg.DefaultLength) + "): "
	for {
		answer, err := a.readLine(prompt)
		if err != nil {
			return 0, err
		}
		if answer == "" {
			return a.cfg.DefaultLength, nil
		}
		n, err := strconv.Atoi(answer)
		if err != nil {
			a.printf("Invalid input. Please enter a number.\n")
			continue
		}
		if n > config.MaxLength {
			a.printf("Length must be at most %d.\n", config.MaxLength)
			continue
		}
		if n < generator.MinLength {
			a.printf("Length must be at least %d to guarantee every character class. Using %d.\n", generator.MinLength, generator.MinLength)
			n = generator.MinLength
		}
		return n, nil
	}
}

// chooseAction runs the save/regenerate/exit menu for one password. It
// reports whether the session should generate another.
func (a *app) chooseAction(ctx context.Context, v *core.Vault, c *core.Capability, rec core.Record) (bool, error) {
	for {
		action, err := a.readLine("Options: (s)ave, (r)egenerate, or (e)xit? [s/r/e]: ")
		if err != nil {
			return false, err
		}

		switch strings.ToLower(action) {
		case "s", "save":
			if err := a.saveInteractive(ctx, v, c, rec); err != nil {
				return false, err
			}
			answer, err := a.readLine("Generate another password? [y/n]: ")
			if err != nil {
				return false, err
			}
			return !strings.EqualFold(answer, "n"), nil
		case "r", "regenerate":
			a.printf("%s Generating a new password with the same settings...\n", ui.Info.Sprint("→"))
			return true, nil
		case "e", "exit":
			return false, nil
		default:
			a.printf("Invalid choice. Please enter 's', 'r', or 'e'.\n")
		}
	}
}

// saveInteractive asks for the service label and appends the record. A
// failed write is reported and the session continues.
func (a *app) saveInteractive(ctx context.Context, v *core.Vault, c *core.Capability, rec core.Record) error {
	for {
		service, err := a.readLine("Login/website/service this is for: ")
		if err != nil {
			return err
		}
		rec.Service = service
		if err := rec.Validate(); err != nil {
			a.printf("%s\n", errorMessage(err))
			continue
		}
		break
	}

	err := v.Save(ctx, c, rec)
	switch {
	case err == nil:
		a.printf("\n%s Password for %s saved to %s\n", ui.Success.Sprint("✓"), ui.Highlight.Sprint(rec.Service), ui.Path.Sprint(v.Paths().Dir))
	case core.OutcomeOf(err) == core.OutcomeIOFault:
		a.printf("%s\n", errorMessage(err))
	default:
		return err
	}
	return nil
}

// endSession says goodbye. Running out of input ends the session normally.
func (a *app) endSession(err error) error {
	if errors.Is(err, io.EOF) {
		err = nil
	}
	if err == nil {
		a.printf("\nGoodbye!\n")
	}
	return err
}

func exclusionsHint(exclusions string) string {
	if exclusions == "" {
		return "none"
	}
	return strconv.Quote(exclusions)
}
