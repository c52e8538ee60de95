package main

import (
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/fortiblox/x1-stakepool/pkg/svm/programs/stakepool"
)

func newEncodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "encode <initialize|create-user|stake|unstake|claim> [value]",
		Short:     "Print the wire encoding of an instruction as hex",
		Args:      cobra.RangeArgs(1, 2),
		ValidArgs: []string{"initialize", "create-user", "stake", "unstake", "claim"},
		RunE: func(cmd *cobra.Command, args []string) error {
			inst, err := buildInstruction(args[0], args[1:])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(inst.Encode()))
			return nil
		},
	}
}

// buildInstruction maps a variant name and its optional u64 argument to an
// instruction.
func buildInstruction(variant string, args []string) (stakepool.Instruction, error) {
	value := func() (uint64, error) {
		if len(args) != 1 {
			return 0, fmt.Errorf("%s takes exactly one numeric value", variant)
		}
		v, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%s value: %w", variant, err)
		}
		return v, nil
	}
	noValue := func() error {
		if len(args) != 0 {
			return fmt.Errorf("%s takes no value", variant)
		}
		return nil
	}

	switch variant {
	case "initialize":
		v, err := value()
		if err != nil {
			return nil, err
		}
		return &stakepool.InitializeInstruction{RewardsPerToken: v}, nil
	case "create-user":
		if err := noValue(); err != nil {
			return nil, err
		}
		return &stakepool.CreateUserInstruction{}, nil
	case "stake":
		v, err := value()
		if err != nil {
			return nil, err
		}
		return &stakepool.StakeInstruction{Amount: v}, nil
	case "unstake":
		v, err := value()
		if err != nil {
			return nil, err
		}
		return &stakepool.UnstakeInstruction{Amount: v}, nil
	case "claim":
		if err := noValue(); err != nil {
			return nil, err
		}
		return &stakepool.ClaimInstruction{}, nil
	default:
		return nil, fmt.Errorf("unknown instruction %q", variant)
	}
}
