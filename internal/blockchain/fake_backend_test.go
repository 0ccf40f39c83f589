package blockchain

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// fakeBackend is an in-memory ledger that mines every accepted transaction
// into its own block. Like a real node it only mines nonces in order; a
// transaction ahead of the account nonce waits in the queue.
type fakeBackend struct {
	mu sync.Mutex

	chainID      *big.Int
	pendingNonce uint64
	head         uint64

	txs      map[common.Hash]*types.Transaction
	queued   map[uint64]*types.Transaction
	receipts map[common.Hash]*types.Receipt
	byNonce  map[uint64]common.Hash
	reasons  map[common.Hash]string

	sendCalls   int
	sendErrs    []error
	estimateErr error
	nonceErr    error

	// revert returns a non-empty reason for transactions that should revert.
	revert func(tx *types.Transaction) string
	// onSend runs before a send is processed, outside the lock. A non-nil
	// error is returned to the caller and the transaction is dropped.
	onSend func(tx *types.Transaction) error
	// hold, while open, hides all receipts.
	hold chan struct{}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		chainID:  big.NewInt(31337),
		txs:      make(map[common.Hash]*types.Transaction),
		queued:   make(map[uint64]*types.Transaction),
		receipts: make(map[common.Hash]*types.Receipt),
		byNonce:  make(map[uint64]common.Hash),
		reasons:  make(map[common.Hash]string),
	}
}

type rpcError struct {
	code int
	msg  string
}

func (e *rpcError) Error() string  { return e.msg }
func (e *rpcError) ErrorCode() int { return e.code }

type revertDataError struct {
	reason string
	data   string
}

func (e *revertDataError) Error() string          { return "execution reverted: " + e.reason }
func (e *revertDataError) ErrorCode() int         { return 3 }
func (e *revertDataError) ErrorData() interface{} { return e.data }

func newRevertError(reason string) *revertDataError {
	stringType, _ := abi.NewType("string", "", nil)
	packed, _ := abi.Arguments{{Type: stringType}}.Pack(reason)
	data := append([]byte{0x08, 0xc3, 0x79, 0xa0}, packed...)
	return &revertDataError{reason: reason, data: hexutil.Encode(data)}
}

func (f *fakeBackend) ChainID(ctx context.Context) (*big.Int, error) {
	return new(big.Int).Set(f.chainID), nil
}

func (f *fakeBackend) BlockNumber(ctx context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.head, nil
}

func (f *fakeBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.nonceErr != nil {
		return 0, f.nonceErr
	}
	return f.pendingNonce, nil
}

func (f *fakeBackend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (f *fakeBackend) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.estimateErr != nil {
		return 0, f.estimateErr
	}
	return 50_000, nil
}

func (f *fakeBackend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	f.mu.Lock()
	hook := f.onSend
	f.mu.Unlock()
	if hook != nil {
		if err := hook(tx); err != nil {
			f.mu.Lock()
			f.sendCalls++
			f.mu.Unlock()
			return err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendCalls++
	if len(f.sendErrs) > 0 {
		err := f.sendErrs[0]
		f.sendErrs = f.sendErrs[1:]
		return err
	}
	if _, ok := f.txs[tx.Hash()]; ok {
		return errors.New("already known")
	}
	if q, ok := f.queued[tx.Nonce()]; ok && q.Hash() == tx.Hash() {
		return errors.New("already known")
	}
	if prev, ok := f.byNonce[tx.Nonce()]; ok {
		return &rpcError{code: -32000, msg: "nonce too low: already used by " + prev.Hex()}
	}

	f.queued[tx.Nonce()] = tx
	for {
		next, ok := f.queued[f.pendingNonce]
		if !ok {
			break
		}
		delete(f.queued, f.pendingNonce)
		f.mine(next)
	}
	return nil
}

func (f *fakeBackend) mine(tx *types.Transaction) {
	f.head++
	f.txs[tx.Hash()] = tx
	f.byNonce[tx.Nonce()] = tx.Hash()
	f.pendingNonce = tx.Nonce() + 1

	status := types.ReceiptStatusSuccessful
	if f.revert != nil {
		if reason := f.revert(tx); reason != "" {
			status = types.ReceiptStatusFailed
			f.reasons[tx.Hash()] = reason
		}
	}
	f.receipts[tx.Hash()] = &types.Receipt{
		Status:      status,
		TxHash:      tx.Hash(),
		BlockNumber: new(big.Int).SetUint64(f.head),
		BlockHash:   common.BigToHash(new(big.Int).SetUint64(f.head)),
		GasUsed:     42_000,
	}
}

func (f *fakeBackend) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	hold := f.hold
	f.mu.Unlock()
	if hold != nil {
		select {
		case <-hold:
		default:
			return nil, ethereum.NotFound
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.receipts[hash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return r, nil
}

func (f *fakeBackend) TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if tx, ok := f.txs[hash]; ok {
		return tx, false, nil
	}
	for _, tx := range f.queued {
		if tx.Hash() == hash {
			return tx, true, nil
		}
	}
	return nil, false, ethereum.NotFound
}

func (f *fakeBackend) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for hash, reason := range f.reasons {
		if tx := f.txs[hash]; tx != nil && f.receipts[hash].BlockNumber.Cmp(blockNumber) == 0 {
			return nil, newRevertError(reason)
		}
	}
	return nil, nil
}

func (f *fakeBackend) sendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sendCalls
}

func (f *fakeBackend) queuedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queued)
}

func (f *fakeBackend) mined() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.txs)
}
