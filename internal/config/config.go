package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/fortiblox/x1-stakepool/pkg/types"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	DataDir   string
	ProgramID types.Pubkey
	LogLevel  string
	Snapshot  string
	RPCAddr   string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("STAKEPOOL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("data-dir", "./data/stakepool")
	v.SetDefault("program-id", "")
	v.SetDefault("log-level", "info")
	v.SetDefault("snapshot", "./data/accounts.snap.zst")
	v.SetDefault("rpc-addr", "127.0.0.1:8899")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("stakepool")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	programID := types.DefaultStakePoolProgramID
	if raw := strings.TrimSpace(v.GetString("program-id")); raw != "" {
		pk, err := types.PubkeyFromBase58(raw)
		if err != nil {
			return Config{}, fmt.Errorf("program-id: %w", err)
		}
		programID = pk
	}

	cfg := Config{
		DataDir:   v.GetString("data-dir"),
		ProgramID: programID,
		LogLevel:  v.GetString("log-level"),
		Snapshot:  v.GetString("snapshot"),
		RPCAddr:   v.GetString("rpc-addr"),
	}

	if cfg.DataDir == "" {
		return Config{}, fmt.Errorf("data-dir is required")
	}

	return cfg, nil
}
