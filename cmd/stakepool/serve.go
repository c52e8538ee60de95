package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fortiblox/x1-stakepool/pkg/rpc"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the ledger over JSON-RPC",
		Long: `Serve the account store over JSON-RPC 2.0.

Methods: getHealth, getVersion, getAccountInfo, getBalance, getPoolState,
getProgramAccounts and sendTransaction. Prometheus metrics are served at
/metrics on the same address.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			rateLimit, _ := cmd.Flags().GetFloat64("rate-limit")
			trustedProxies, _ := cmd.Flags().GetStringSlice("trusted-proxy")

			config := rpc.DefaultServerConfig()
			config.Address = e.cfg.RPCAddr
			config.Logger = e.logger
			config.Metrics = e.metrics
			config.Gatherer = e.registry
			if rateLimit > 0 {
				config.EnableRateLimit = true
				config.RateLimitRPS = rateLimit
				config.RateLimitBurst = 2 * rateLimit
				config.TrustedProxies = trustedProxies
			}

			server := rpc.NewServer(config, rpc.Backend{
				DB:        e.db,
				Runtime:   e.runtime,
				ProgramID: e.cfg.ProgramID,
				Version:   Version,
			})

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			err = server.Start(ctx)
			e.logger.Info("rpc server stopped", zap.Error(err))
			return err
		},
	}
	cmd.Flags().String("rpc-addr", "127.0.0.1:8899", "JSON-RPC listen address")
	cmd.Flags().Float64("rate-limit", 0, "requests per second per client (0 disables)")
	cmd.Flags().StringSlice("trusted-proxy", nil, "proxy hosts whose X-Forwarded-For header is trusted for rate limiting")
	return cmd
}
