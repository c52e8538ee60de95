package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fortiblox/x1-stakepool/pkg/accounts"
)

func newSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Export or import the account store",
	}

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write every account to a zstd snapshot file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			path := snapshotPath(cmd, e)
			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("create snapshot: %w", err)
			}

			count, err := accounts.ExportSnapshot(e.db, f)
			if closeErr := f.Close(); err == nil {
				err = closeErr
			}
			if err != nil {
				return fmt.Errorf("export snapshot: %w", err)
			}

			e.logger.Info("snapshot exported", zap.String("file", path), zap.Uint64("accounts", count))
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d accounts to %s\n", count, path)
			return nil
		},
	}

	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Load accounts from a zstd snapshot file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			path := snapshotPath(cmd, e)
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open snapshot: %w", err)
			}
			defer f.Close()

			count, err := accounts.ImportSnapshot(e.db, f)
			if err != nil {
				return fmt.Errorf("import snapshot: %w", err)
			}

			e.logger.Info("snapshot imported", zap.String("file", path), zap.Uint64("accounts", count))
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d accounts from %s\n", count, path)
			return nil
		},
	}

	for _, c := range []*cobra.Command{exportCmd, importCmd} {
		c.Flags().String("file", "", "snapshot file (defaults to the configured snapshot path)")
		cmd.AddCommand(c)
	}
	return cmd
}

func snapshotPath(cmd *cobra.Command, e *env) string {
	if path, _ := cmd.Flags().GetString("file"); path != "" {
		return path
	}
	return e.cfg.Snapshot
}
