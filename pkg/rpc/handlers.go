package rpc

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/fortiblox/x1-stakepool/pkg/accounts"
	"github.com/fortiblox/x1-stakepool/pkg/runtime"
	"github.com/fortiblox/x1-stakepool/pkg/svm/programs/stakepool"
	"github.com/fortiblox/x1-stakepool/pkg/types"
)

// Handler is the function signature for RPC method handlers.
type Handler func(params json.RawMessage) (interface{}, *RPCError)

// Backend is what the handlers read from and submit to.
type Backend struct {
	DB        accounts.AccountsDB
	Runtime   *runtime.Runtime
	ProgramID types.Pubkey
	Version   string
}

// Handlers manages RPC method handlers.
type Handlers struct {
	backend  Backend
	handlers map[string]Handler
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(backend Backend) *Handlers {
	h := &Handlers{
		backend:  backend,
		handlers: make(map[string]Handler),
	}
	h.registerHandlers()
	return h
}

// GetHandler returns the handler for a method, or nil if not found.
func (h *Handlers) GetHandler(method string) Handler {
	return h.handlers[method]
}

func (h *Handlers) registerHandlers() {
	h.handlers["getAccountInfo"] = h.handleGetAccountInfo
	h.handlers["getBalance"] = h.handleGetBalance
	h.handlers["getPoolState"] = h.handleGetPoolState
	h.handlers["getProgramAccounts"] = h.handleGetProgramAccounts
	h.handlers["getHealth"] = h.handleGetHealth
	h.handlers["getVersion"] = h.handleGetVersion
	h.handlers["sendTransaction"] = h.handleSendTransaction
}

// parseParams splits params into its array elements and requires at least
// min of them.
func parseParams(params json.RawMessage, min int) ([]json.RawMessage, *RPCError) {
	var rawParams []json.RawMessage
	if len(params) > 0 {
		if err := json.Unmarshal(params, &rawParams); err != nil {
			return nil, NewRPCError(InvalidParams, "invalid params: expected array")
		}
	}
	if len(rawParams) < min {
		return nil, NewRPCError(InvalidParams, fmt.Sprintf("expected at least %d params, got %d", min, len(rawParams)))
	}
	return rawParams, nil
}

func parsePubkeyParam(raw json.RawMessage) (types.Pubkey, *RPCError) {
	var pubkeyStr string
	if err := json.Unmarshal(raw, &pubkeyStr); err != nil {
		return types.Pubkey{}, NewRPCError(InvalidParams, "invalid pubkey parameter")
	}
	pubkey, err := DecodePubkey(pubkeyStr)
	if err != nil {
		return types.Pubkey{}, NewRPCError(InvalidParams, fmt.Sprintf("invalid pubkey: %v", err))
	}
	return pubkey, nil
}

func parseAccountOptions(rawParams []json.RawMessage, idx int) (AccountInfoOptions, *RPCError) {
	var options AccountInfoOptions
	if len(rawParams) <= idx {
		return options, nil
	}
	if err := json.Unmarshal(rawParams[idx], &options); err != nil {
		return options, NewRPCError(InvalidParams, fmt.Sprintf("invalid options: %v", err))
	}
	if err := ValidateEncoding(options.Encoding); err != nil {
		return options, NewRPCError(UnsupportedEncoding, err.Error())
	}
	return options, nil
}

// handleGetAccountInfo handles the getAccountInfo RPC method.
// Params: [pubkey, {encoding, dataSlice}]
func (h *Handlers) handleGetAccountInfo(params json.RawMessage) (interface{}, *RPCError) {
	rawParams, rpcErr := parseParams(params, 1)
	if rpcErr != nil {
		return nil, rpcErr
	}
	pubkey, rpcErr := parsePubkeyParam(rawParams[0])
	if rpcErr != nil {
		return nil, rpcErr
	}
	options, rpcErr := parseAccountOptions(rawParams, 1)
	if rpcErr != nil {
		return nil, rpcErr
	}

	account, err := h.backend.DB.GetAccount(pubkey)
	if err != nil {
		return nil, NewRPCError(InternalError, fmt.Sprintf("failed to get account: %v", err))
	}
	if account == nil {
		return nil, nil
	}

	result, err := h.accountInfo(account, options)
	if err != nil {
		return nil, NewRPCError(InternalError, fmt.Sprintf("failed to encode data: %v", err))
	}
	return result, nil
}

// accountInfo renders account in the requested encoding. jsonParsed decodes
// pool storage accounts owned by the program.
func (h *Handlers) accountInfo(account *types.Account, options AccountInfoOptions) (AccountInfoResult, error) {
	result := AccountInfoResult{
		Lamports:   uint64(account.Lamports),
		Owner:      account.Owner.String(),
		Executable: account.Executable,
		RentEpoch:  uint64(account.RentEpoch),
		Space:      uint64(len(account.Data)),
	}

	if options.Encoding == EncodingJSONParsed && account.Owner == h.backend.ProgramID {
		var pool stakepool.PoolStorageAccount
		if err := pool.Decode(account.Data); err == nil {
			result.Data = ParsedAccount{
				Program: "stakepool",
				Parsed:  poolStateResult(&pool),
				Space:   uint64(len(account.Data)),
			}
			return result, nil
		}
	}

	data, err := EncodeAccountData(SliceData(account.Data, options.DataSlice), options.Encoding)
	if err != nil {
		return AccountInfoResult{}, err
	}
	result.Data = data
	return result, nil
}

// handleGetBalance handles the getBalance RPC method.
// Params: [pubkey]
func (h *Handlers) handleGetBalance(params json.RawMessage) (interface{}, *RPCError) {
	rawParams, rpcErr := parseParams(params, 1)
	if rpcErr != nil {
		return nil, rpcErr
	}
	pubkey, rpcErr := parsePubkeyParam(rawParams[0])
	if rpcErr != nil {
		return nil, rpcErr
	}

	account, err := h.backend.DB.GetAccount(pubkey)
	if err != nil {
		return nil, NewRPCError(InternalError, fmt.Sprintf("failed to get account: %v", err))
	}

	var balance uint64
	if account != nil {
		balance = uint64(account.Lamports)
	}
	return balance, nil
}

// handleGetPoolState handles the getPoolState RPC method.
// Params: [storagePubkey]
func (h *Handlers) handleGetPoolState(params json.RawMessage) (interface{}, *RPCError) {
	rawParams, rpcErr := parseParams(params, 1)
	if rpcErr != nil {
		return nil, rpcErr
	}
	pubkey, rpcErr := parsePubkeyParam(rawParams[0])
	if rpcErr != nil {
		return nil, rpcErr
	}

	account, err := h.backend.DB.GetAccount(pubkey)
	if err != nil {
		return nil, NewRPCError(InternalError, fmt.Sprintf("failed to get account: %v", err))
	}
	if account == nil {
		return nil, NewRPCError(KeyNotFound, fmt.Sprintf("account %s not found", pubkey))
	}
	if account.Owner != h.backend.ProgramID {
		return nil, NewRPCError(InvalidParams, fmt.Sprintf("account %s is not owned by program %s", pubkey, h.backend.ProgramID))
	}

	var pool stakepool.PoolStorageAccount
	if err := pool.Decode(account.Data); err != nil {
		return nil, NewRPCError(InvalidParams, fmt.Sprintf("account %s: %v", pubkey, err))
	}
	return poolStateResult(&pool), nil
}

// handleGetProgramAccounts handles the getProgramAccounts RPC method.
// Params: [programId, {encoding, dataSlice}]
func (h *Handlers) handleGetProgramAccounts(params json.RawMessage) (interface{}, *RPCError) {
	rawParams, rpcErr := parseParams(params, 1)
	if rpcErr != nil {
		return nil, rpcErr
	}
	owner, rpcErr := parsePubkeyParam(rawParams[0])
	if rpcErr != nil {
		return nil, rpcErr
	}
	options, rpcErr := parseAccountOptions(rawParams, 1)
	if rpcErr != nil {
		return nil, rpcErr
	}

	keyed := make([]KeyedAccount, 0)
	err := h.backend.DB.ForEach(func(pubkey types.Pubkey, account *types.Account) error {
		if account.Owner != owner {
			return nil
		}
		info, err := h.accountInfo(account, options)
		if err != nil {
			return err
		}
		keyed = append(keyed, KeyedAccount{Pubkey: pubkey.String(), Account: info})
		return nil
	})
	if err != nil {
		return nil, NewRPCError(InternalError, fmt.Sprintf("failed to scan accounts: %v", err))
	}

	sort.Slice(keyed, func(i, j int) bool { return keyed[i].Pubkey < keyed[j].Pubkey })
	return keyed, nil
}

// handleGetHealth handles the getHealth RPC method.
func (h *Handlers) handleGetHealth(json.RawMessage) (interface{}, *RPCError) {
	return HealthResult("ok"), nil
}

// handleGetVersion handles the getVersion RPC method.
func (h *Handlers) handleGetVersion(json.RawMessage) (interface{}, *RPCError) {
	return VersionResult{
		Version:   h.backend.Version,
		ProgramID: h.backend.ProgramID.String(),
	}, nil
}

// handleSendTransaction handles the sendTransaction RPC method. The
// transaction is executed immediately; a failed transaction is reported as a
// SendTransactionError carrying the program logs.
// Params: [encodedTransaction, {encoding}]
func (h *Handlers) handleSendTransaction(params json.RawMessage) (interface{}, *RPCError) {
	rawParams, rpcErr := parseParams(params, 1)
	if rpcErr != nil {
		return nil, rpcErr
	}

	var encoded string
	if err := json.Unmarshal(rawParams[0], &encoded); err != nil {
		return nil, NewRPCError(InvalidParams, "invalid transaction parameter")
	}

	var options SendTransactionOptions
	if len(rawParams) > 1 {
		if err := json.Unmarshal(rawParams[1], &options); err != nil {
			return nil, NewRPCError(InvalidParams, fmt.Sprintf("invalid options: %v", err))
		}
	}

	var (
		raw []byte
		err error
	)
	switch options.Encoding {
	case EncodingBase64, "":
		raw, err = DecodeBase64(encoded)
	case EncodingBase58:
		raw, err = DecodeBase58(encoded)
	default:
		return nil, NewRPCError(UnsupportedEncoding, fmt.Sprintf("unsupported encoding: %s", options.Encoding))
	}
	if err != nil {
		return nil, NewRPCError(InvalidParams, fmt.Sprintf("failed to decode transaction: %v", err))
	}

	tx, err := types.DeserializeTransaction(raw)
	if err != nil {
		return nil, NewRPCError(InvalidParams, err.Error())
	}

	result, err := h.backend.Runtime.InvokeTransaction(tx)
	if err != nil {
		return nil, NewRPCError(InternalError, err.Error())
	}

	if !result.Success {
		data := TransactionErrorData{
			Err:  result.Err.Error(),
			Logs: result.Logs,
		}
		if result.HasCustomCode {
			code := result.CustomCode
			data.CustomCode = &code
		}
		return nil, NewRPCErrorWithData(SendTransactionError,
			fmt.Sprintf("transaction failed: %v", result.Err), data)
	}

	committed := make([]string, len(result.Committed))
	for i, pk := range result.Committed {
		committed[i] = pk.String()
	}
	sendResult := SendTransactionResult{
		Logs:      result.Logs,
		Committed: committed,
	}
	if len(tx.Signatures) > 0 {
		sendResult.Signature = tx.Signatures[0].String()
	}
	return sendResult, nil
}

func poolStateResult(pool *stakepool.PoolStorageAccount) PoolStateResult {
	return PoolStateResult{
		PoolAuthority:   pool.PoolAuthority.String(),
		TotalStaked:     pool.TotalStaked,
		UserCount:       pool.UserCount,
		RewardsPerToken: pool.RewardsPerToken,
		IsInitialized:   pool.IsInitialized,
	}
}
