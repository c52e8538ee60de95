package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/fortiblox/x1-stakepool/pkg/crypto"
	"github.com/fortiblox/x1-stakepool/pkg/runtime"
	"github.com/fortiblox/x1-stakepool/pkg/svm/programs/stakepool"
	"github.com/fortiblox/x1-stakepool/pkg/types"
)

func newCreateStorageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-storage",
		Short: "Create a zeroed pool storage account owned by the program",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			storage, err := storageAddress(cmd, e.cfg.ProgramID)
			if err != nil {
				return err
			}

			size := stakepool.PoolStorageAccountSize
			lamports := types.RentExemptMinimum(uint64(size))
			if err := e.runtime.CreateAccount(storage, e.cfg.ProgramID, size, lamports); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "created %s (%d bytes, owner %s)\n", storage, size, e.cfg.ProgramID)
			return nil
		},
	}
	cmd.Flags().String("pubkey", "", "storage account pubkey (base58)")
	cmd.Flags().String("authority", "", "derive the storage address from this authority instead of --pubkey")
	return cmd
}

func newInitializeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "initialize",
		Short: "Initialize a pool (unsigned local run unless --keypair is set)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			authority, signer, err := signerFlag(cmd, "authority")
			if err != nil {
				return err
			}
			storage, err := pubkeyFlag(cmd, "storage")
			if err != nil {
				return err
			}
			rewards, _ := cmd.Flags().GetUint64("rewards-per-token")
			noSign, _ := cmd.Flags().GetBool("no-sign")

			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			ix := stakepool.NewInitializeInstruction(e.cfg.ProgramID, authority, storage, rewards)
			if noSign {
				ix.Accounts[0].IsSigner = false
			}
			return invoke(cmd.OutOrStdout(), e, ix, signer)
		},
	}
	addKeypairFlag(cmd)
	cmd.Flags().String("authority", "", "pool authority pubkey (base58)")
	cmd.Flags().String("storage", "", "pool storage account pubkey (base58)")
	cmd.Flags().Uint64("rewards-per-token", 0, "reward rate recorded in the pool")
	cmd.Flags().Bool("no-sign", false, "submit without the authority's signature")
	return cmd
}

func newCreateUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Register a user with a pool",
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, storage, signer, err := userAndStorage(cmd)
			if err != nil {
				return err
			}

			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			return invoke(cmd.OutOrStdout(), e, stakepool.NewCreateUserInstruction(e.cfg.ProgramID, user, storage), signer)
		},
	}
	addUserFlags(cmd)
	return cmd
}

func newAmountCmd(use, short string, build func(programID, user, storage types.Pubkey, amount uint64) types.Instruction) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, storage, signer, err := userAndStorage(cmd)
			if err != nil {
				return err
			}
			amount, _ := cmd.Flags().GetUint64("amount")

			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			return invoke(cmd.OutOrStdout(), e, build(e.cfg.ProgramID, user, storage, amount), signer)
		},
	}
	addUserFlags(cmd)
	cmd.Flags().Uint64("amount", 0, "token amount")
	return cmd
}

func newClaimCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "claim",
		Short: "Claim rewards from a pool",
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, storage, signer, err := userAndStorage(cmd)
			if err != nil {
				return err
			}

			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			return invoke(cmd.OutOrStdout(), e, stakepool.NewClaimInstruction(e.cfg.ProgramID, user, storage), signer)
		},
	}
	addUserFlags(cmd)
	return cmd
}

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print a pool storage account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			storage, err := pubkeyFlag(cmd, "storage")
			if err != nil {
				return err
			}

			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			account, err := e.runtime.GetAccount(storage)
			if err != nil {
				return err
			}
			if account == nil {
				return fmt.Errorf("account %s not found", storage)
			}

			var pool stakepool.PoolStorageAccount
			if err := pool.Decode(account.Data); err != nil {
				return fmt.Errorf("account %s: %w", storage, err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "account:  %s\n", storage)
			fmt.Fprintf(out, "owner:    %s\n", account.Owner)
			fmt.Fprintf(out, "lamports: %d\n", account.Lamports)
			fmt.Fprintf(out, "pool:     %s\n", pool.String())
			return nil
		},
	}
	cmd.Flags().String("storage", "", "pool storage account pubkey (base58)")
	return cmd
}

// invoke runs ix and prints its log. When signer is set ix is submitted as a
// transaction signed by it. A failed invocation is returned as an error
// carrying the program's custom code when there is one.
func invoke(out io.Writer, e *env, ix types.Instruction, signer *crypto.Keypair) error {
	var (
		result *runtime.Result
		err    error
	)
	if signer != nil {
		tx := types.NewTransaction(ix)
		if err := crypto.SignTransaction(tx, signer); err != nil {
			return err
		}
		result, err = e.runtime.InvokeTransaction(tx)
	} else {
		result, err = e.runtime.Invoke(ix)
	}
	if err != nil {
		return err
	}

	for _, line := range result.Logs {
		fmt.Fprintln(out, line)
	}

	if !result.Success {
		if result.HasCustomCode {
			return fmt.Errorf("invocation failed (custom program error %d): %w", result.CustomCode, result.Err)
		}
		return fmt.Errorf("invocation failed: %w", result.Err)
	}
	return nil
}

func addUserFlags(cmd *cobra.Command) {
	addKeypairFlag(cmd)
	cmd.Flags().String("user", "", "user pubkey (base58), signs the instruction")
	cmd.Flags().String("storage", "", "pool storage account pubkey (base58)")
}

func userAndStorage(cmd *cobra.Command) (user, storage types.Pubkey, signer *crypto.Keypair, err error) {
	if user, signer, err = signerFlag(cmd, "user"); err != nil {
		return
	}
	storage, err = pubkeyFlag(cmd, "storage")
	return
}

// storageAddress returns --pubkey, or the pool address derived from
// --authority when --pubkey is not given.
func storageAddress(cmd *cobra.Command, programID types.Pubkey) (types.Pubkey, error) {
	rawPubkey, _ := cmd.Flags().GetString("pubkey")
	rawAuthority, _ := cmd.Flags().GetString("authority")
	switch {
	case rawPubkey != "" && rawAuthority != "":
		return types.Pubkey{}, errors.New("--pubkey and --authority are mutually exclusive")
	case rawAuthority != "":
		authority, err := pubkeyFlag(cmd, "authority")
		if err != nil {
			return types.Pubkey{}, err
		}
		storage, bump, err := stakepool.FindPoolAddress(programID, authority)
		if err != nil {
			return types.Pubkey{}, err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "derived %s (bump %d)\n", storage, bump)
		return storage, nil
	default:
		return pubkeyFlag(cmd, "pubkey")
	}
}

func pubkeyFlag(cmd *cobra.Command, name string) (types.Pubkey, error) {
	raw, _ := cmd.Flags().GetString(name)
	if raw == "" {
		return types.Pubkey{}, fmt.Errorf("--%s is required", name)
	}
	pk, err := types.PubkeyFromBase58(raw)
	if err != nil {
		return types.Pubkey{}, fmt.Errorf("--%s: %w", name, err)
	}
	return pk, nil
}
