package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fortiblox/x1-stakepool/pkg/crypto"
	"github.com/fortiblox/x1-stakepool/pkg/types"
)

func newKeygenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a keypair file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			outfile, _ := cmd.Flags().GetString("outfile")
			force, _ := cmd.Flags().GetBool("force")
			if outfile == "" {
				return errors.New("--outfile is required")
			}
			if _, err := os.Stat(outfile); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite", outfile)
			}

			kp, err := crypto.GenerateKeypair()
			if err != nil {
				return err
			}
			if err := crypto.SaveKeypair(outfile, kp); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "pubkey: %s\n", kp.Pubkey())
			return nil
		},
	}
	cmd.Flags().String("outfile", "", "keypair file to write")
	cmd.Flags().Bool("force", false, "overwrite an existing file")
	return cmd
}

// signerFlag resolves the signing account of a command. With --keypair the
// pubkey comes from the keypair file and the instruction is submitted as a
// signed transaction; --<name> must then be empty or match it.
func signerFlag(cmd *cobra.Command, name string) (types.Pubkey, *crypto.Keypair, error) {
	path, _ := cmd.Flags().GetString("keypair")
	if path == "" {
		pk, err := pubkeyFlag(cmd, name)
		return pk, nil, err
	}

	kp, err := crypto.LoadKeypair(path)
	if err != nil {
		return types.Pubkey{}, nil, err
	}

	if raw, _ := cmd.Flags().GetString(name); raw != "" {
		pk, err := pubkeyFlag(cmd, name)
		if err != nil {
			return types.Pubkey{}, nil, err
		}
		if pk != kp.Pubkey() {
			return types.Pubkey{}, nil, fmt.Errorf("--%s %s does not match keypair %s", name, pk, kp.Pubkey())
		}
	}
	return kp.Pubkey(), kp, nil
}

const unsignedNote = `Without --keypair the signer flag is trusted as-is: the account is marked
as a signer but no signature is made or checked. That mode is a local
operator tool over the data directory and does not prove the authority
approved the instruction. Pass --keypair to sign and verify a transaction.`

// addKeypairFlag adds --keypair and the unsigned-mode note to the help text.
func addKeypairFlag(cmd *cobra.Command) {
	if cmd.Long == "" {
		cmd.Long = cmd.Short + "."
	}
	cmd.Long += "\n\n" + unsignedNote
	cmd.Flags().String("keypair", "", "keypair file that signs the instruction (unsigned local run when omitted)")
}
