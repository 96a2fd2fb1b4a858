package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/illarion/pwvault/internal/config"
	"github.com/illarion/pwvault/internal/core"
	"github.com/illarion/pwvault/internal/logging"
	"github.com/illarion/pwvault/internal/ui"
	"github.com/spf13/cobra"
)

// app carries what every command needs once flags and config are resolved.
type app struct {
	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer

	configPath string
	dir        string
	verbose    bool

	cfg      *config.Config
	log      logging.Logger
	prompter core.Prompter

	// vaultOpts are appended when opening the vault; tests lower the KDF cost here.
	vaultOpts []core.Option
}

// NewRootCmd builds the pwvault command tree on the given streams.
func NewRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	a := &app{
		in:     bufio.NewReader(in),
		out:    out,
		errOut: errOut,
	}
	return a.rootCmd()
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pwvault",
		Short: "Generate strong passwords and keep them in an encrypted vault",
		Long: `pwvault generates random passwords that always contain an uppercase
letter, a lowercase letter, a digit and a symbol, and appends the ones you
keep to a log encrypted under a key derived from your master passphrase.

Run without a command for an interactive session.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSession(cmd.Context())
		},
	}
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/pwvault/config.yaml)")
	root.PersistentFlags().StringVarP(&a.dir, "dir", "d", "", "vault directory (overrides config and $"+config.EnvDir+")")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(
		a.initCmd(),
		a.generateCmd(),
		a.listCmd(),
		a.statusCmd(),
		a.keyringCmd(),
	)
	return root
}

// setup loads configuration and builds the logger and prompter.
func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.dir != "" {
		cfg.VaultDir = a.dir
	}
	if a.verbose {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	a.log = logging.New(a.errOut, level)

	if a.prompter == nil {
		a.prompter = core.NewTerminalPrompter(a.in, a.out)
	}
	a.log.Debug(context.Background(), "configuration loaded", "vault_dir", cfg.VaultDir, "level", level.String())
	return nil
}

// vault opens the configured vault.
func (a *app) vault() *core.Vault {
	opts := []core.Option{
		core.WithLogger(a.log),
		core.WithProgress(ui.NewSpinner(a.errOut, a.debugEnabled())),
	}
	opts = append(opts, a.vaultOpts...)
	return core.New(core.Paths{
		Dir:       a.cfg.VaultDir,
		KeyFile:   a.cfg.KeyFile,
		LogFile:   a.cfg.LogFile,
		IndexFile: a.cfg.IndexFile,
	}, opts...)
}

// Execute runs pwvault and returns the process exit code.
func Execute(ctx context.Context) int {
	root := NewRootCmd(os.Stdin, os.Stdout, os.Stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		return HandleError(os.Stderr, err)
	}
	return 0
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

// debugEnabled reports whether debug logs are on.
func (a *app) debugEnabled() bool {
	level, err := logging.ParseLevel(a.cfg.LogLevel)
	return err == nil && level <= slog.LevelDebug
}
