// internal/blockchain/errors.go
package blockchain

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
)

// Sentinel errors matched with errors.Is against *Error.
var (
	ErrNetwork  = errors.New("ledger network unreachable")
	ErrRejected = errors.New("transaction rejected by ledger")
	ErrReverted = errors.New("transaction reverted")
	ErrTimeout  = errors.New("transaction confirmation timed out")
	ErrClosed   = errors.New("gateway closed")
)

type Kind string

const (
	KindNetwork  Kind = "network"
	KindRejected Kind = "rejected"
	KindReverted Kind = "reverted"
	KindTimeout  Kind = "timeout"
)

func (k Kind) sentinel() error {
	switch k {
	case KindNetwork:
		return ErrNetwork
	case KindRejected:
		return ErrRejected
	case KindReverted:
		return ErrReverted
	case KindTimeout:
		return ErrTimeout
	}
	return nil
}

// Error is the structured failure returned by Gateway.Submit.
type Error struct {
	Kind   Kind
	Method string
	Nonce  uint64
	TxHash common.Hash
	// Reason is the revert reason or the ledger's rejection message, verbatim.
	Reason string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Method)
	if e.TxHash != (common.Hash{}) {
		fmt.Fprintf(&b, " [%s]", e.TxHash.Hex())
	}
	b.WriteString(": ")
	b.WriteString(e.Kind.sentinel().Error())
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

// Retryable reports whether the caller may safely resubmit. Resubmission
// always takes a fresh nonce.
func (e *Error) Retryable() bool {
	return e.Kind == KindNetwork || e.Kind == KindTimeout
}

// KindOf extracts the error kind, or "" for errors not produced by the gateway.
func KindOf(err error) Kind {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Kind
	}
	return ""
}

// classifySendError decides whether a failed RPC call is a transport problem
// or the node refusing the request.
func classifySendError(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	if isRevert(err) {
		return KindReverted
	}

	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.StatusCode >= http.StatusInternalServerError || httpErr.StatusCode == http.StatusTooManyRequests {
			return KindNetwork
		}
		return KindRejected
	}

	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return KindRejected
	}

	return KindNetwork
}

// isAlreadyKnown matches node responses to a resend of a transaction the pool
// already holds.
func isAlreadyKnown(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already known") || strings.Contains(msg, "known transaction")
}

// isRevert matches a node reporting that the contract reverted while it
// simulated the call.
func isRevert(err error) bool {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == 3 {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "execution reverted")
}
