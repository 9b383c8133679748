// Package rpc exposes the game contract over a JSON-RPC 2.0 HTTP endpoint and
// streams committed events over a websocket.
package rpc

import (
	"encoding/json"

	"github.com/tolelom/consensusclash/core"
)

// Request is a JSON-RPC 2.0 request envelope.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// Response is a JSON-RPC 2.0 response envelope.
type Response struct {
	JSONRPC string `json:"jsonrpc"`
	ID      any    `json:"id"`
	Result  any    `json:"result,omitempty"`
	Error   *Error `json:"error,omitempty"`
}

// Error represents a JSON-RPC error object.
type Error struct {
	Code    int        `json:"code"`
	Message string     `json:"message"`
	Data    *ErrorData `json:"data,omitempty"`
}

// ErrorData carries the stable error kind of a rejected call.
type ErrorData struct {
	Kind string `json:"kind"`
}

// Standard JSON-RPC error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Contract rejection codes, one per error kind.
const (
	CodeUnauthorized   = -32000
	CodeStageMismatch  = -32001
	CodeNotRegistered  = -32002
	CodeAlreadyDone    = -32003
	CodeOutOfRange     = -32004
	CodeInvalidTarget  = -32005
	CodeOracleContract = -32006
	CodeNotReady       = -32007
	CodeNotFound       = -32008
)

var kindCodes = map[string]int{
	core.KindUnauthorized:   CodeUnauthorized,
	core.KindStageMismatch:  CodeStageMismatch,
	core.KindNotRegistered:  CodeNotRegistered,
	core.KindAlreadyDone:    CodeAlreadyDone,
	core.KindOutOfRange:     CodeOutOfRange,
	core.KindInvalidTarget:  CodeInvalidTarget,
	core.KindOracleContract: CodeOracleContract,
	core.KindNotReady:       CodeNotReady,
	core.KindNotFound:       CodeNotFound,
}

func errResponse(id any, code int, msg string) Response {
	return Response{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &Error{Code: code, Message: msg},
	}
}

// callError maps err to the code of its kind.
func callError(id any, err error) Response {
	kind := core.KindOf(err)
	code, ok := kindCodes[kind]
	if !ok {
		code = CodeInternalError
	}
	resp := errResponse(id, code, err.Error())
	resp.Error.Data = &ErrorData{Kind: kind}
	return resp
}

func okResponse(id, result any) Response {
	return Response{JSONRPC: "2.0", ID: id, Result: result}
}
