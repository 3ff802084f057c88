// Package main provides the vibe-vcf command-line tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vibe-vcf/internal/config"
	"github.com/inodb/vibe-vcf/internal/duckdb"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitInvalid = 3
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// errInvalid is returned by commands whose input did not pass validation.
// Output has already been written when it is returned.
var errInvalid = errors.New("input is not valid")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := newApp()
	defer a.close()

	root := a.newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, errInvalid):
		return ExitInvalid
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitError
	}
}

// app carries the state shared by all commands of one invocation.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
	logger  *zap.Logger
	store   *duckdb.Store
}

func newApp() *app {
	v := viper.New()
	config.SetDefaults(v)
	return &app{
		v:      v,
		cfg:    config.Default(),
		logger: zap.NewNop(),
	}
}

func (a *app) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vibe-vcf",
		Short: "VCF validator and variant normalizer",
		Long: `vibe-vcf validates VCF files against the VCF 4.1-4.3 grammar, reporting every
error with its line and column, and normalizes variants into minimal
per-allele representations.`,
		Example: `  vibe-vcf validate input.vcf.gz
  vibe-vcf validate --warnings --max-errors 100 a.vcf b.vcf
  vibe-vcf normalize --alignment right -r GRCh38.fa input.vcf
  vibe-vcf check-ref -r GRCh38.fa input.vcf`,
		Version:           fmt.Sprintf("%s (%s) built %s", version, commit, date),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return a.init() },
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "Config file (default ~/"+config.FileName+")")
	flags.String("log-level", "", "Log level: debug, info, warn, error")
	flags.String("report-db", "", "DuckDB file recording runs and their results")
	a.bindFlag(flags, "log.level", "log-level")
	a.bindFlag(flags, "report.db", "report-db")

	cmd.AddCommand(a.newValidateCmd())
	cmd.AddCommand(a.newNormalizeCmd())
	cmd.AddCommand(a.newCheckRefCmd())
	cmd.AddCommand(a.newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func (a *app) bindFlag(flags *pflag.FlagSet, key, name string) {
	if err := a.v.BindPFlag(key, flags.Lookup(name)); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", name, err))
	}
}

// init reads the config file, validates the merged configuration and
// builds the logger.
func (a *app) init() error {
	if err := a.readConfig(); err != nil {
		return err
	}
	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger, err := cfg.Log.Build()
	if err != nil {
		return err
	}
	a.logger = logger
	return nil
}

func (a *app) readConfig() error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		a.v.SetConfigFile(filepath.Join(home, config.FileName))
	}

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading config %s: %w", a.v.ConfigFileUsed(), err)
	}
	a.logger.Debug("loaded config", zap.String("path", a.v.ConfigFileUsed()))
	return nil
}

// openStore opens the report database, or returns nil when reporting is
// disabled.
func (a *app) openStore() (*duckdb.Store, error) {
	if a.store != nil || a.cfg.Report.DB == "" {
		return a.store, nil
	}
	s, err := duckdb.Open(a.cfg.Report.DB)
	if err != nil {
		return nil, fmt.Errorf("opening report db: %w", err)
	}
	a.store = s
	a.logger.Info("recording runs", zap.String("db", s.Path()))
	return s, nil
}

func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("closing report db", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "vibe-vcf version %s (%s) built %s\n", version, commit, date)
		},
	}
}
