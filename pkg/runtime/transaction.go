package runtime

import (
	"fmt"

	"github.com/fortiblox/x1-stakepool/pkg/crypto"
	"github.com/fortiblox/x1-stakepool/pkg/types"
)

// InvokeTransaction verifies the signatures on tx and then invokes its
// instruction. A transaction that fails verification never reaches the
// program and changes nothing.
func (r *Runtime) InvokeTransaction(tx *types.Transaction) (*Result, error) {
	if err := crypto.VerifyTransaction(tx); err != nil {
		result := &Result{Logs: make([]string, 0)}
		if tx == nil {
			result.fail(err)
			r.metrics.ObserveInvocation(false, 0)
			return result, nil
		}
		result.Logs = append(result.Logs, fmt.Sprintf("Program %s invoke [1]", tx.Instruction.ProgramID))
		return r.finish(tx.Instruction, result, err, 0), nil
	}
	return r.Invoke(tx.Instruction)
}
