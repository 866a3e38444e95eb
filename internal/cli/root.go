// Package cli implements the prs command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/prs/internal/logger"
	"github.com/mesh-intelligence/prs/internal/metrics"
	"github.com/mesh-intelligence/prs/internal/paths"
	"github.com/mesh-intelligence/prs/internal/sqlite"
	"github.com/mesh-intelligence/prs/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// errUsage marks errors caused by the command line rather than the store.
var errUsage = errors.New("usage")

// app holds the global flag values and the state shared by subcommands.
type app struct {
	configDir  string
	dataDir    string
	stagingDir string
	logLevel   string
	pretty     bool
	dumpStats  bool
	jsonMode   bool

	cfg   *viper.Viper
	log   *logger.Logger
	stats *metrics.Metrics
}

// NewRootCmd creates the top-level "prs" command with global flags and all
// subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "prs",
		Short: "Versioned index of biological databanks",
		Long: "prs indexes databank flat files into generations. A build only becomes\n" +
			"visible once it has fully committed; older generations are then reclaimed.",
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: a.teardown,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	pf.StringVar(&a.dataDir, "data-dir", "", "data directory (default: $(CWD)/.prs-db)")
	pf.StringVar(&a.stagingDir, "staging-dir", "", "parent directory of build staging areas (default: system temp dir)")
	pf.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.BoolVar(&a.pretty, "pretty", false, "human-readable log output")
	pf.BoolVar(&a.dumpStats, "metrics", false, "print metrics to stderr on exit")
	pf.BoolVar(&a.jsonMode, "json", false, "output in JSON format")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInstallCmd(a))
	root.AddCommand(newIndexCmd(a))
	root.AddCommand(newGenerationsCmd(a))
	root.AddCommand(newShowCmd(a))

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "prs:", err)
		os.Exit(exitCode(err))
	}
	os.Exit(exitSuccess)
}

// exitCode maps an error to the process exit code.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitSuccess
	case errors.Is(err, errUsage),
		errors.Is(err, errEntryNotFound),
		errors.Is(err, types.ErrGenerationNotFound),
		errors.Is(err, types.ErrInvalidName):
		return exitUserError
	default:
		return exitSysError
	}
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	configDir, err := paths.ResolveConfigDir(a.configDir)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	a.cfg, err = loadConfig(configDir)
	if err != nil {
		return err
	}

	level := a.logLevel
	if level == "" {
		level = a.cfg.GetString(cfgKeyLogLevel)
	}
	a.log = logger.New(logger.Config{
		Level:  level,
		Pretty: a.pretty,
		Output: cmd.ErrOrStderr(),
	})
	a.stats = metrics.New()
	return nil
}

func (a *app) teardown(cmd *cobra.Command, _ []string) error {
	if !a.dumpStats {
		return nil
	}
	return a.stats.WriteText(cmd.ErrOrStderr())
}

// attach resolves the directories, creates a SQLite backend and attaches
// it. The caller must defer Detach.
func (a *app) attach() (*sqlite.Backend, error) {
	dataDir, err := paths.ResolveDataDir(a.dataDir, a.cfg.GetString(cfgKeyDataDir))
	if err != nil {
		return nil, fmt.Errorf("resolve data dir: %w", err)
	}
	stagingDir, err := paths.ResolveStagingDir(a.stagingDir, a.cfg.GetString(cfgKeyStagingDir))
	if err != nil {
		return nil, fmt.Errorf("resolve staging dir: %w", err)
	}

	backend := sqlite.NewBackend(
		sqlite.WithLogger(a.log.Component("store")),
		sqlite.WithMetrics(a.stats),
	)
	err = backend.Attach(types.Config{
		Backend:    a.cfg.GetString(cfgKeyBackend),
		DataDir:    dataDir,
		StagingDir: stagingDir,
	})
	if err != nil {
		return nil, fmt.Errorf("attach backend: %w", err)
	}
	return backend, nil
}
