package core

import (
	"time"

	"github.com/AltonMatrix/Raicoin/crypto"
	"github.com/AltonMatrix/Raicoin/ledger"
	"github.com/AltonMatrix/Raicoin/queue"
	"github.com/AltonMatrix/Raicoin/types"
)

// maxAllowedForks bounds info.forks before an account is rate-limited
// (spec.md §4.4 step 5: "if info.forks > MaxAllowedForks(timestamp) fail
// ACCOUNT_LIMITED"). The source leaves the exact curve unspecified; this
// core uses a fixed ceiling, resolved as an open question — see DESIGN.md.
func maxAllowedForks(_ int64) uint32 { return 10 }

// AuthorCallback is invoked exactly once per user-initiated authoring
// request, from the action-worker goroutine (spec.md §6 "Callbacks to host
// UI").
type AuthorCallback func(err error, block *types.Block)

// AccountChange authors a CHANGE block switching account's representative
// (spec.md §4.4).
func (w *Wallets) AccountChange(account types.Account, representative types.Account, cb AuthorCallback) {
	w.enqueueAuthor(account, false, func(ctx *authorContext) (*types.Block, error) {
		ctx.representative = representative
		ctx.opcode = types.Change
		ctx.credit = ctx.head.Credit
		ctx.balance = ctx.head.Balance
		return nil, nil
	}, cb)
}

// AccountCredit authors a CREDIT block purchasing delta additional credit
// (spec.md §4.4).
func (w *Wallets) AccountCredit(account types.Account, delta uint16, cb AuthorCallback) {
	w.enqueueAuthor(account, false, func(ctx *authorContext) (*types.Block, error) {
		if uint32(ctx.head.Credit)+uint32(delta) > types.MaxAccountCredit || delta >= types.MaxAccountCredit {
			return nil, types.NewError(types.AccountMaxCredit)
		}
		price := w.price(ctx.timestamp)
		cost := price.Mul64(uint64(delta))
		balance, ok := ctx.head.Balance.Sub(cost)
		if !ok {
			return nil, types.NewError(types.AccountActionBalance)
		}
		ctx.credit = ctx.head.Credit + delta
		ctx.balance = balance
		ctx.opcode = types.Credit
		ctx.representative = ctx.head.Representative
		return nil, nil
	}, cb)
}

// AccountSend authors a SEND block transferring amount to destination
// (spec.md §4.4).
func (w *Wallets) AccountSend(account types.Account, destination types.Account, amount types.Amount, cb AuthorCallback) {
	w.enqueueAuthor(account, false, func(ctx *authorContext) (*types.Block, error) {
		balance, ok := ctx.head.Balance.Sub(amount)
		if !ok {
			return nil, types.NewError(types.AccountActionBalance)
		}
		ctx.balance = balance
		ctx.opcode = types.Send
		ctx.representative = ctx.head.Representative
		ctx.credit = ctx.head.Credit
		ctx.link.SetLink(destination)
		return nil, nil
	}, cb)
}

// AccountReceive authors a RECEIVE block consuming the receivable
// identified by sourceHash, opening the account if it has no local head
// yet (spec.md §4.4 steps 2 and 7).
func (w *Wallets) AccountReceive(account types.Account, sourceHash types.Hash, cb AuthorCallback) {
	w.enqueueAuthor(account, true, func(ctx *authorContext) (*types.Block, error) {
		receivable, ok, err := ctx.txn.ReceivableGet(account, sourceHash)
		if err != nil {
			return nil, types.WrapError(types.LedgerReceivableInfoGet, err)
		}
		if !ok {
			return nil, types.NewError(types.LedgerReceivableInfoGet)
		}
		ctx.opcode = types.Receive
		ctx.link = linkValue{hash: sourceHash}

		if !ctx.hasAccount {
			if ctx.now <= receivable.Timestamp {
				ctx.timestamp = receivable.Timestamp + 1
			} else {
				ctx.timestamp = ctx.now
			}
			if ctx.timestamp > ctx.now+int64(types.MaxTimestampSkew/time.Second) {
				return nil, types.NewError(types.AccountActionTooQuickly)
			}
			price := w.price(ctx.timestamp)
			if receivable.Amount.Cmp(price) < 0 {
				return nil, types.NewError(types.WalletReceivableLessThanCredit)
			}
			balance, _ := receivable.Amount.Sub(price)
			ctx.balance = balance
			ctx.credit = 1
			ctx.counter = 1
			ctx.height = 0
			ctx.previous = types.Hash{}
			if len(w.config.PreconfiguredReps) == 0 {
				return nil, types.NewError(types.ConfigNoPreconfiguredReps)
			}
			ctx.representative = crypto.ChooseRepresentative(w.config.PreconfiguredReps)
			ctx.skipCounterStep = true
		} else {
			ctx.balance = ctx.head.Balance.Add(receivable.Amount)
			ctx.credit = ctx.head.Credit
			ctx.representative = ctx.head.Representative
		}
		return nil, nil
	}, cb)
}

// linkValue captures the opcode-specific meaning of Block.Link while it's
// being assembled (destination account for SEND, source hash for RECEIVE).
type linkValue struct {
	account types.Account
	hash    types.Hash
	isAcct  bool
}

func (l *linkValue) SetLink(a types.Account) { l.account = a; l.isAcct = true }

func (l linkValue) toHash() types.Hash {
	if l.isAcct {
		var h types.Hash
		copy(h[:], l.account[:])
		return h
	}
	return l.hash
}

// authorContext carries the in-progress state of one authoring attempt
// across the shared preamble and the opcode-specific builder function
// (spec.md §4.4 steps 1–7).
type authorContext struct {
	txn        *ledger.Txn
	account    types.Account
	hasAccount bool
	head       types.Block
	headHash   types.Hash
	now        int64

	timestamp       int64
	counter         uint32
	height          uint64
	previous        types.Hash
	balance         types.Amount
	credit          uint16
	representative  types.Account
	opcode          types.Opcode
	link            linkValue
	skipCounterStep bool
}

type authorBuilder func(ctx *authorContext) (*types.Block, error)

// enqueueAuthor performs the common authoring preamble (spec.md §4.4 steps
// 1–6), invokes build for the opcode-specific parts (step 7), then signs,
// locally applies, and publishes the resulting block (steps 8–10). Runs on
// the action-worker goroutine at High priority.
func (w *Wallets) enqueueAuthor(account types.Account, allowOpen bool, build authorBuilder, cb AuthorCallback) {
	if err := w.tg.Add(); err != nil {
		if cb != nil {
			cb(err, nil)
		}
		return
	}
	w.q.Enqueue(queue.High, func() {
		defer w.tg.Done()
		block, err := w.author(account, allowOpen, build)
		if cb != nil {
			cb(err, block)
		}
	})
}

func (w *Wallets) author(account types.Account, allowOpen bool, build authorBuilder) (*types.Block, error) {
	ww, err := w.findOwner(account)
	if err != nil {
		return nil, err
	}
	if _, aerr := ww.Seed(); aerr != nil {
		return nil, types.NewError(types.WalletLocked)
	}

	txn, err := w.store.Begin(true)
	if err != nil {
		return nil, types.WrapError(types.TransactionBegin, err)
	}
	block, err := w.authorInTxn(txn, ww, account, allowOpen, build)
	if err != nil {
		txn.Abort()
		return nil, err
	}
	if err := txn.Commit(); err != nil {
		return nil, err
	}

	if w.ws != nil {
		_ = w.ws.Send(map[string]interface{}{"action": "block_publish", "block": block})
	}
	return block, nil
}

func (w *Wallets) authorInTxn(txn *ledger.Txn, ww interface {
	PrivateKey(types.Account) (types.RawKey, error)
}, account types.Account, allowOpen bool, build authorBuilder) (*types.Block, error) {
	info, hasAccount, err := txn.AccountInfoGet(account)
	if err != nil {
		return nil, types.WrapError(types.LedgerAccountInfoGet, err)
	}

	ctx := &authorContext{txn: txn, account: account, hasAccount: hasAccount, now: time.Now().Unix()}
	if hasAccount {
		stored, ok, err := txn.BlockGet(info.HeadHash)
		if err != nil || !ok {
			return nil, types.WrapError(types.LedgerBlockGet, err)
		}
		ctx.head = stored.Block
		ctx.headHash = info.HeadHash
		if info.Forks > maxAllowedForks(ctx.now) {
			return nil, types.NewError(types.AccountLimited)
		}
	} else if !allowOpen {
		return nil, types.NewError(types.LedgerAccountInfoGet)
	}

	if hasAccount {
		ctx.timestamp = ctx.now
		if ctx.head.Timestamp > ctx.timestamp {
			ctx.timestamp = ctx.head.Timestamp
		}
		maxSkew := int64(types.MaxTimestampSkew / time.Second)
		if ctx.timestamp > ctx.now+maxSkew {
			return nil, types.NewError(types.BlockTimestamp)
		}
		ctx.height = ctx.head.Height + 1
		ctx.previous = ctx.headHash
		if sameCalendarDay(ctx.head.Timestamp, ctx.timestamp) {
			ctx.counter = ctx.head.Counter + 1
		} else {
			ctx.counter = 1
		}
	}

	if _, err := build(ctx); err != nil {
		return nil, err
	}

	if !ctx.skipCounterStep {
		if uint32(ctx.credit)*types.TransactionsPerCredit < ctx.counter {
			return nil, types.NewError(types.AccountActionCredit)
		}
	}

	block := types.Block{
		Type:           w.config.BlockType,
		Opcode:         ctx.opcode,
		Credit:         ctx.credit,
		Counter:        ctx.counter,
		Timestamp:      ctx.timestamp,
		Height:         ctx.height,
		Account:        account,
		Previous:       ctx.previous,
		Representative: ctx.representative,
		Balance:        ctx.balance,
		Link:           ctx.link.toHash(),
	}

	privateKey, err := ww.PrivateKey(account)
	if err != nil {
		return nil, err
	}
	crypto.SignBlock(&block, privateKey)

	// applyLocallyInTxn takes the !hasAccount / exact-successor branch of
	// spec.md §4.6 here, since this block is always our own new head; it
	// also clears the consumed receivable and marks it received for RECEIVE.
	if err := w.applyLocallyInTxn(txn, block, false); err != nil {
		return nil, err
	}

	return &block, nil
}

func sameCalendarDay(a, b int64) bool {
	const day = 24 * 60 * 60
	return a/day == b/day
}
