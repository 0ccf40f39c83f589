// internal/blockchain/submit.go
package blockchain

import (
	"context"
	"errors"
	"math"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sirupsen/logrus"
)

// pendingTx is the single submitted-but-unconfirmed transaction. It is
// written by the executing goroutine and read by the worker, which may give
// up on it when the deadline passes.
type pendingTx struct {
	mu        sync.Mutex
	nonce     uint64
	hash      common.Hash
	signed    *types.Transaction
	assigned  bool
	abandoned bool
	resolved  bool
}

func (p *pendingTx) assign(nonce uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.abandoned {
		return false
	}
	p.nonce = nonce
	p.assigned = true
	return true
}

func (p *pendingTx) sending(tx *types.Transaction) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.abandoned {
		return false
	}
	p.hash = tx.Hash()
	p.signed = tx
	return true
}

// abandon is called by the worker when the deadline passes. Nothing is
// assigned or sent for p afterwards.
func (p *pendingTx) abandon() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.abandoned = true
}

// rejected records that the node refused the transaction, so it will never
// be included.
func (p *pendingTx) rejected() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.signed = nil
}

// resolve records that the outstanding transaction from an earlier timeout
// has been dealt with.
func (p *pendingTx) resolve() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resolved = true
}

func (p *pendingTx) snapshot() (nonce uint64, hash common.Hash, assigned bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.nonce, p.hash, p.assigned
}

func (p *pendingTx) settled() (signed *types.Transaction, resolved bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.signed, p.resolved
}

type nonceHint struct {
	value uint64
	valid bool
	// outstanding is a signed transaction whose submission timed out. The
	// node may or may not hold it.
	outstanding *types.Transaction
}

func (g *Gateway) execute(ctx context.Context, call ContractCall, hint nonceHint, p *pendingTx) (*Receipt, error) {
	fail := func(kind Kind, err error) *Error {
		nonce, hash, _ := p.snapshot()
		return &Error{Kind: kind, Method: call.Method, Nonce: nonce, TxHash: hash, Err: err}
	}

	data, err := g.contract.Pack(call)
	if err != nil {
		return nil, fail(KindRejected, err)
	}

	nonce := hint.value
	if !hint.valid {
		err := g.retry(ctx, "PendingNonceAt", func() error {
			n, err := g.backend.PendingNonceAt(ctx, g.from)
			nonce = n
			return err
		})
		if err != nil {
			return nil, fail(classifySendError(err), err)
		}
		if hint.outstanding != nil {
			next, err := g.resolveOutstanding(ctx, hint.outstanding, nonce)
			if err != nil {
				return nil, fail(classifySendError(err), err)
			}
			nonce = next
			p.resolve()
		}
	}
	if !p.assign(nonce) {
		return nil, fail(KindTimeout, context.DeadlineExceeded)
	}

	var gasPrice *big.Int
	if err := g.retry(ctx, "SuggestGasPrice", func() (err error) {
		gasPrice, err = g.backend.SuggestGasPrice(ctx)
		return err
	}); err != nil {
		return nil, fail(classifySendError(err), err)
	}

	to := g.contract.Address
	msg := ethereum.CallMsg{From: g.from, To: &to, GasPrice: gasPrice, Value: call.Value, Data: data}

	var gas uint64
	if err := g.retry(ctx, "EstimateGas", func() (err error) {
		gas, err = g.backend.EstimateGas(ctx, msg)
		return err
	}); err != nil {
		kind := classifySendError(err)
		gwErr := fail(kind, err)
		if kind == KindRejected || kind == KindReverted {
			gwErr.Reason = revertReason(err)
		}
		return nil, gwErr
	}
	if g.opts.GasMultiplier > 1 {
		gas = uint64(math.Ceil(float64(gas) * g.opts.GasMultiplier))
	}

	tx, err := types.SignTx(types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas,
		To:       &to,
		Value:    call.Value,
		Data:     data,
	}), g.signer, g.key)
	if err != nil {
		return nil, fail(KindRejected, err)
	}

	if !p.sending(tx) {
		return nil, fail(KindTimeout, context.DeadlineExceeded)
	}
	g.sent.Add(1)

	if err := g.send(ctx, tx); err != nil {
		kind := classifySendError(err)
		if kind == KindReverted {
			// A node that simulates on submit refused it; nothing was queued.
			kind = KindRejected
		}
		if kind == KindRejected {
			p.rejected()
		}
		gwErr := fail(kind, err)
		if kind == KindRejected {
			gwErr.Reason = err.Error()
		}
		return nil, gwErr
	}

	receipt, err := g.waitMined(ctx, tx.Hash())
	if err != nil {
		return nil, fail(KindTimeout, err)
	}

	out := toReceipt(receipt, nonce)
	if !out.Success {
		gwErr := fail(KindReverted, nil)
		gwErr.Reason = g.replayRevert(ctx, msg, receipt)
		return out, gwErr
	}
	return out, nil
}

func (g *Gateway) send(ctx context.Context, tx *types.Transaction) error {
	return g.retry(ctx, "SendTransaction", func() error {
		err := g.backend.SendTransaction(ctx, tx)
		if err != nil && isAlreadyKnown(err) {
			return nil
		}
		return err
	})
}

// resolveOutstanding settles a transaction left by a timed-out submission
// before the next nonce is chosen, and returns that nonce. When the node's
// pending nonce still points at the transaction, the same signed transaction
// is sent again so the sequence has no gap. Otherwise the node's view wins.
func (g *Gateway) resolveOutstanding(ctx context.Context, tx *types.Transaction, pending uint64) (uint64, error) {
	entry := g.log.WithFields(logrus.Fields{
		"nonce": tx.Nonce(),
		"tx":    tx.Hash().Hex(),
	})
	if pending != tx.Nonce() {
		entry.WithField("pending_nonce", pending).Debug("Outstanding transaction settled by the node")
		return pending, nil
	}

	err := g.send(ctx, tx)
	if err == nil {
		entry.Info("Resent timed-out transaction")
		return pending + 1, nil
	}
	if kind := classifySendError(err); kind == KindNetwork || kind == KindTimeout {
		return 0, err
	}
	entry.WithError(err).Warn("Node refused timed-out transaction, dropping it")
	return pending, nil
}

// waitMined polls for the receipt. It is the only place a submission waits
// on the ledger for an unbounded time, and ctx bounds it.
func (g *Gateway) waitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(g.opts.PollInterval)
	defer ticker.Stop()

	for {
		receipt, err := g.backend.TransactionReceipt(ctx, hash)
		switch {
		case err == nil && receipt != nil:
			if g.confirmed(ctx, receipt) {
				return receipt, nil
			}
		case err != nil && !errors.Is(err, ethereum.NotFound):
			g.log.WithError(err).WithField("tx", hash.Hex()).Debug("Receipt lookup failed, polling again")
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (g *Gateway) confirmed(ctx context.Context, receipt *types.Receipt) bool {
	if g.opts.Confirmations <= 1 || receipt.BlockNumber == nil {
		return true
	}
	head, err := g.backend.BlockNumber(ctx)
	if err != nil {
		return false
	}
	return head+1 >= receipt.BlockNumber.Uint64()+g.opts.Confirmations
}

// replayRevert re-executes the failed call against the block it was mined in
// to recover the revert reason.
func (g *Gateway) replayRevert(ctx context.Context, msg ethereum.CallMsg, receipt *types.Receipt) string {
	_, err := g.backend.CallContract(ctx, msg, receipt.BlockNumber)
	if err == nil {
		return "execution reverted"
	}
	return revertReason(err)
}

func revertReason(err error) string {
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if hexData, ok := dataErr.ErrorData().(string); ok {
			if data, derr := hexutil.Decode(hexData); derr == nil {
				if reason, uerr := abi.UnpackRevert(data); uerr == nil {
					return reason
				}
			}
		}
	}
	return strings.TrimPrefix(err.Error(), "execution reverted: ")
}

// retry runs fn with exponential backoff while it fails with transport
// errors. Anything else is returned immediately.
func (g *Gateway) retry(ctx context.Context, op string, fn func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = g.opts.InitialBackoff
	b.MaxInterval = g.opts.MaxBackoff

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := fn()
		if err != nil && classifySendError(err) != KindNetwork {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(g.opts.MaxAttempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			g.log.WithFields(logrus.Fields{
				"op":    op,
				"retry": next.String(),
			}).WithError(err).Warn("Ledger call failed, retrying")
		}),
	)
	return err
}
