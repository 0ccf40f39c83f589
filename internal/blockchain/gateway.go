// internal/blockchain/gateway.go
package blockchain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Submitter is what the registration and purchase services depend on.
type Submitter interface {
	Submit(ctx context.Context, call ContractCall) (*Receipt, error)
}

type Options struct {
	// SubmitTimeout bounds one submission from nonce assignment to confirmation.
	SubmitTimeout time.Duration
	PollInterval  time.Duration
	// Confirmations is the number of blocks, including the inclusion block,
	// required before a receipt is reported. 0 and 1 both mean inclusion.
	Confirmations uint64
	// GasMultiplier pads the node's gas estimate.
	GasMultiplier float64

	// Retry policy for transport failures.
	MaxAttempts    uint
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func DefaultOptions() Options {
	return Options{
		SubmitTimeout:  2 * time.Minute,
		PollInterval:   time.Second,
		Confirmations:  1,
		GasMultiplier:  1.2,
		MaxAttempts:    4,
		InitialBackoff: 250 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
	}
}

// Receipt is the confirmed outcome of a submission.
type Receipt struct {
	TxHash      common.Hash `json:"transactionHash"`
	Success     bool        `json:"success"`
	BlockNumber uint64      `json:"blockNumber"`
	BlockHash   common.Hash `json:"blockHash"`
	Nonce       uint64      `json:"nonce"`
	GasUsed     uint64      `json:"gasUsed"`
}

// Gateway owns the administrative signing key and is the only component
// that signs and sends ledger transactions. Submissions are executed one at
// a time by a single worker, in the order they were enqueued.
type Gateway struct {
	backend  Backend
	key      *ecdsa.PrivateKey
	from     common.Address
	contract *Contract
	chainID  *big.Int
	signer   types.Signer
	opts     Options
	log      *logrus.Entry
	tracer   trace.Tracer

	jobs      chan *job
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	// Owned by the worker goroutine.
	nonce       uint64
	nonceValid  bool
	outstanding *types.Transaction

	sent atomic.Uint64
}

type job struct {
	ctx    context.Context
	call   ContractCall
	result chan outcome
}

type outcome struct {
	receipt *Receipt
	err     error
}

// New resolves the chain id and starts the submission worker.
func New(ctx context.Context, backend Backend, key *ecdsa.PrivateKey, contract *Contract, opts Options, logger *logrus.Logger) (*Gateway, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if opts.SubmitTimeout <= 0 {
		return nil, fmt.Errorf("submit timeout must be positive")
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultOptions().PollInterval
	}
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = 1
	}

	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read chain id: %w", err)
	}

	from := crypto.PubkeyToAddress(key.PublicKey)
	g := &Gateway{
		backend:  backend,
		key:      key,
		from:     from,
		contract: contract,
		chainID:  chainID,
		signer:   types.LatestSignerForChainID(chainID),
		opts:     opts,
		log: logger.WithFields(logrus.Fields{
			"component": "gateway",
			"signer":    from.Hex(),
		}),
		tracer: otel.Tracer("github.com/farmchain/farmchain-backend/internal/blockchain"),
		jobs:   make(chan *job),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}

	go g.run()

	g.log.WithField("chain_id", chainID.String()).Info("Transaction gateway started")
	return g, nil
}

func (g *Gateway) Address() common.Address { return g.from }

func (g *Gateway) ChainID() *big.Int { return new(big.Int).Set(g.chainID) }

// Sent returns the number of signed transactions handed to the network.
func (g *Gateway) Sent() uint64 { return g.sent.Load() }

// Submit signs call with the administrative key, sends it and waits for the
// ledger to confirm or fail it.
//
// A caller whose context ends before the submission starts is skipped. Once
// a submission has started it always runs to completion so the nonce
// sequence stays consistent, even if the caller stops waiting.
func (g *Gateway) Submit(ctx context.Context, call ContractCall) (*Receipt, error) {
	j := &job{ctx: ctx, call: call, result: make(chan outcome, 1)}

	select {
	case g.jobs <- j:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-g.quit:
		return nil, ErrClosed
	}

	select {
	case out := <-j.result:
		return out.receipt, out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops accepting submissions and waits for the one in flight.
func (g *Gateway) Close() {
	g.closeOnce.Do(func() {
		close(g.quit)
		<-g.done
		g.log.Info("Transaction gateway stopped")
	})
}

func (g *Gateway) run() {
	defer close(g.done)
	for {
		select {
		case <-g.quit:
			return
		case j := <-g.jobs:
			if err := j.ctx.Err(); err != nil {
				j.result <- outcome{err: err}
				continue
			}
			j.result <- g.process(j)
		}
	}
}

// process holds the submission slot for one job. It returns when the job
// finishes or SubmitTimeout elapses, whichever comes first.
func (g *Gateway) process(j *job) outcome {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(j.ctx), g.opts.SubmitTimeout)
	defer cancel()

	ctx, span := g.tracer.Start(ctx, "blockchain.Submit",
		trace.WithAttributes(attribute.String("contract.method", j.call.Method)))
	defer span.End()

	p := &pendingTx{}
	hint := nonceHint{value: g.nonce, valid: g.nonceValid, outstanding: g.outstanding}

	done := make(chan outcome, 1)
	go func() {
		receipt, err := g.execute(ctx, j.call, hint, p)
		done <- outcome{receipt: receipt, err: err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-ctx.Done():
		p.abandon()
		out = outcome{err: g.timeoutError(j.call, p, ctx.Err())}
	}
	g.settleNonce(p, out.err)

	nonce, hash, _ := p.snapshot()
	span.SetAttributes(attribute.Int64("tx.nonce", int64(nonce)), attribute.String("tx.hash", hash.Hex()))
	entry := g.log.WithFields(logrus.Fields{
		"method": j.call.Method,
		"nonce":  nonce,
		"tx":     hash.Hex(),
	})
	if out.err != nil {
		span.RecordError(out.err)
		span.SetStatus(codes.Error, string(KindOf(out.err)))
		entry.WithError(out.err).Warn("Transaction failed")
	} else {
		entry.WithField("block", out.receipt.BlockNumber).Info("Transaction confirmed")
	}
	return out
}

func (g *Gateway) timeoutError(call ContractCall, p *pendingTx, cause error) error {
	nonce, hash, _ := p.snapshot()
	return &Error{Kind: KindTimeout, Method: call.Method, Nonce: nonce, TxHash: hash, Err: cause}
}

// settleNonce updates the nonce sequence after a job. A transaction that
// timed out after signing is kept as outstanding so the next job can resend
// it rather than skip or reuse its nonce.
func (g *Gateway) settleNonce(p *pendingTx, err error) {
	nonce, _, assigned := p.snapshot()
	signed, resolved := p.settled()
	if resolved {
		g.outstanding = nil
	}

	switch {
	case !assigned || signed == nil:
		// Nothing reached the node; its pending nonce is authoritative.
		g.nonceValid = false
	case err == nil, KindOf(err) == KindReverted:
		g.nonce = nonce + 1
		g.nonceValid = true
	case KindOf(err) == KindTimeout:
		g.outstanding = signed
		g.nonceValid = false
	default:
		g.nonceValid = false
	}
}

// TxState describes a transaction looked up out of band.
type TxState string

const (
	TxStatePending   TxState = "pending"
	TxStateConfirmed TxState = "confirmed"
	TxStateReverted  TxState = "reverted"
	TxStateUnknown   TxState = "unknown"
)

type TxStatus struct {
	TxHash  common.Hash `json:"transactionHash"`
	State   TxState     `json:"state"`
	Receipt *Receipt    `json:"receipt,omitempty"`
}

// TransactionStatus reports the state of a previously submitted transaction.
// It does not take the submission slot.
func (g *Gateway) TransactionStatus(ctx context.Context, hash common.Hash) (*TxStatus, error) {
	status := &TxStatus{TxHash: hash}

	receipt, err := g.backend.TransactionReceipt(ctx, hash)
	switch {
	case err == nil:
		status.Receipt = toReceipt(receipt, 0)
		if receipt.Status == types.ReceiptStatusSuccessful {
			status.State = TxStateConfirmed
		} else {
			status.State = TxStateReverted
		}
		if tx, _, err := g.backend.TransactionByHash(ctx, hash); err == nil {
			status.Receipt.Nonce = tx.Nonce()
		}
		return status, nil
	case !errors.Is(err, ethereum.NotFound):
		return nil, &Error{Kind: classifySendError(err), Method: "transactionStatus", TxHash: hash, Err: err}
	}

	_, pending, err := g.backend.TransactionByHash(ctx, hash)
	switch {
	case err == nil && pending:
		status.State = TxStatePending
	case err == nil, errors.Is(err, ethereum.NotFound):
		status.State = TxStateUnknown
	default:
		return nil, &Error{Kind: classifySendError(err), Method: "transactionStatus", TxHash: hash, Err: err}
	}
	return status, nil
}

func toReceipt(r *types.Receipt, nonce uint64) *Receipt {
	out := &Receipt{
		TxHash:    r.TxHash,
		Success:   r.Status == types.ReceiptStatusSuccessful,
		BlockHash: r.BlockHash,
		Nonce:     nonce,
		GasUsed:   r.GasUsed,
	}
	if r.BlockNumber != nil {
		out.BlockNumber = r.BlockNumber.Uint64()
	}
	return out
}
