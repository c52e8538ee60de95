// stakepool runs the X1 Stake Pool program against a local account store.
//
// Accounts live in a BadgerDB directory. Every command opens the store,
// performs one action and closes it again, so a sequence of commands behaves
// like a sequence of transactions against the same ledger.
package main

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fortiblox/x1-stakepool/internal/config"
	"github.com/fortiblox/x1-stakepool/pkg/accounts"
	"github.com/fortiblox/x1-stakepool/pkg/metrics"
	"github.com/fortiblox/x1-stakepool/pkg/runtime"
	"github.com/fortiblox/x1-stakepool/pkg/svm/programs/stakepool"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "dev"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "stakepool",
		Short:        "X1 Stake Pool program runner",
		Version:      fmt.Sprintf("%s (%s)", Version, GitCommit),
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("data-dir", "./data/stakepool", "account store directory")
	root.PersistentFlags().String("program-id", "", "stake pool program id (base58)")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(
		newCreateStorageCmd(),
		newInitializeCmd(),
		newCreateUserCmd(),
		newAmountCmd("stake", "Stake tokens in the pool", stakepool.NewStakeInstruction),
		newAmountCmd("unstake", "Unstake tokens from the pool", stakepool.NewUnstakeInstruction),
		newClaimCmd(),
		newShowCmd(),
		newEncodeCmd(),
		newSnapshotCmd(),
		newKeygenCmd(),
		newServeCmd(),
	)

	return root
}

// env is what a command needs to talk to the ledger.
type env struct {
	cfg      config.Config
	logger   *zap.Logger
	db       accounts.AccountsDB
	runtime  *runtime.Runtime
	registry *prometheus.Registry
	metrics  *metrics.Metrics
}

// openEnv loads configuration and opens the account store and runtime.
func openEnv(cmd *cobra.Command) (*env, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	db, err := accounts.NewBadgerDB(cfg.DataDir)
	if err != nil {
		logger.Sync()
		return nil, fmt.Errorf("open account store: %w", err)
	}

	registry := runtime.NewProgramRegistry()
	registry.RegisterProgram(cfg.ProgramID, "stakepool", stakepool.New(cfg.ProgramID))

	promRegistry := prometheus.NewRegistry()
	m := metrics.New(promRegistry)
	rt := runtime.New(db, registry,
		runtime.WithLogger(logger),
		runtime.WithMetrics(m),
	)

	logger.Debug("account store opened",
		zap.String("data_dir", cfg.DataDir),
		zap.Stringer("program_id", cfg.ProgramID),
		zap.Uint64("accounts", db.GetAccountsCount()),
	)

	return &env{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		runtime:  rt,
		registry: promRegistry,
		metrics:  m,
	}, nil
}

func (e *env) Close() {
	if err := e.db.Close(); err != nil {
		e.logger.Warn("close account store", zap.Error(err))
	}
	_ = e.logger.Sync()
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
