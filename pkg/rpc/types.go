// Package rpc provides a JSON-RPC 2.0 server for the stake pool ledger.
package rpc

import (
	"encoding/json"
)

// JSON-RPC 2.0 constants
const (
	JSONRPCVersion = "2.0"
)

// Standard JSON-RPC 2.0 error codes
const (
	ParseError     = -32700
	InvalidRequest = -32600
	MethodNotFound = -32601
	InvalidParams  = -32602
	InternalError  = -32603

	// Server error codes, numbered as on Solana-compatible nodes
	SendTransactionError = -32002
	KeyNotFound          = -32010
	UnsupportedEncoding  = -32011
)

// RPCRequest represents a JSON-RPC 2.0 request.
type RPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      interface{}     `json:"id"`
}

// RPCResponse represents a JSON-RPC 2.0 response.
type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

// MarshalJSON emits exactly one of result and error, keeping a null result.
func (r RPCResponse) MarshalJSON() ([]byte, error) {
	if r.Error != nil {
		return json.Marshal(struct {
			JSONRPC string      `json:"jsonrpc"`
			Error   *RPCError   `json:"error"`
			ID      interface{} `json:"id"`
		}{r.JSONRPC, r.Error, r.ID})
	}
	return json.Marshal(struct {
		JSONRPC string      `json:"jsonrpc"`
		Result  interface{} `json:"result"`
		ID      interface{} `json:"id"`
	}{r.JSONRPC, r.Result, r.ID})
}

// RPCError represents a JSON-RPC 2.0 error.
type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Error implements the error interface.
func (e *RPCError) Error() string {
	return e.Message
}

// NewRPCError creates a new RPC error.
func NewRPCError(code int, message string) *RPCError {
	return &RPCError{
		Code:    code,
		Message: message,
	}
}

// NewRPCErrorWithData creates a new RPC error with additional data.
func NewRPCErrorWithData(code int, message string, data interface{}) *RPCError {
	return &RPCError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// AccountInfoResult represents the result of getAccountInfo.
type AccountInfoResult struct {
	Lamports   uint64      `json:"lamports"`
	Data       interface{} `json:"data"` // [data, encoding] or a ParsedAccount
	Owner      string      `json:"owner"`
	Executable bool        `json:"executable"`
	RentEpoch  uint64      `json:"rentEpoch"`
	Space      uint64      `json:"space"`
}

// ParsedAccount is the jsonParsed form of a pool storage account.
type ParsedAccount struct {
	Program string          `json:"program"`
	Parsed  PoolStateResult `json:"parsed"`
	Space   uint64          `json:"space"`
}

// PoolStateResult is a decoded pool record.
type PoolStateResult struct {
	PoolAuthority   string `json:"poolAuthority"`
	TotalStaked     uint64 `json:"totalStaked"`
	UserCount       uint64 `json:"userCount"`
	RewardsPerToken uint64 `json:"rewardsPerToken"`
	IsInitialized   bool   `json:"isInitialized"`
}

// KeyedAccount pairs an account with its pubkey for getProgramAccounts.
type KeyedAccount struct {
	Pubkey  string            `json:"pubkey"`
	Account AccountInfoResult `json:"account"`
}

// HealthResult represents the result of getHealth.
type HealthResult string

// VersionResult represents the result of getVersion.
type VersionResult struct {
	Version   string `json:"stakepool"`
	ProgramID string `json:"programId"`
}

// SendTransactionResult is returned when a transaction succeeded.
type SendTransactionResult struct {
	Signature string   `json:"signature,omitempty"`
	Logs      []string `json:"logs"`
	Committed []string `json:"committed"`
}

// TransactionErrorData is attached to SendTransactionError responses.
type TransactionErrorData struct {
	Err        string   `json:"err"`
	CustomCode *uint32  `json:"customCode,omitempty"`
	Logs       []string `json:"logs"`
}

// AccountInfoOptions represents optional parameters for getAccountInfo and
// getProgramAccounts.
type AccountInfoOptions struct {
	Encoding  string     `json:"encoding,omitempty"` // base58, base64, base64+zstd, jsonParsed
	DataSlice *DataSlice `json:"dataSlice,omitempty"`
}

// DataSlice represents a slice of account data.
type DataSlice struct {
	Offset uint64 `json:"offset"`
	Length uint64 `json:"length"`
}

// SendTransactionOptions represents optional parameters for sendTransaction.
type SendTransactionOptions struct {
	Encoding string `json:"encoding,omitempty"` // base58 or base64
}
