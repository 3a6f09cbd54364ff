package services

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/nimasrn/dues-ledger/internal/model"
	"github.com/nimasrn/dues-ledger/internal/repository"
	"github.com/nimasrn/dues-ledger/pkg/logger"
	"github.com/nimasrn/dues-ledger/pkg/pg"
	"github.com/nimasrn/dues-ledger/pkg/prom"
)

// ReferenceResolver confirms that the source document behind a ledger
// reference exists.
type ReferenceResolver func(ctx context.Context, id int64) error

// LedgerRecorder appends ledger entries and keeps account balances in step
// with them.
type LedgerRecorder struct {
	tx        Transactor
	entries   LedgerEntryRepository
	accounts  BankAccountRepository
	resolvers map[model.ReferenceKind]ReferenceResolver
}

func NewLedgerRecorder(
	tx Transactor,
	entries LedgerEntryRepository,
	accounts BankAccountRepository,
	payments PaymentRepository,
	donations DonationRepository,
	expenses ExpenseRepository,
	incomes IncomeRepository,
) *LedgerRecorder {
	return &LedgerRecorder{
		tx:       tx,
		entries:  entries,
		accounts: accounts,
		resolvers: map[model.ReferenceKind]ReferenceResolver{
			model.RefPayment: func(ctx context.Context, id int64) error {
				_, err := payments.Get(ctx, id)
				return err
			},
			model.RefDonation: func(ctx context.Context, id int64) error {
				_, err := donations.Get(ctx, id)
				return err
			},
			model.RefExpense: func(ctx context.Context, id int64) error {
				_, err := expenses.Get(ctx, id)
				return err
			},
			model.RefIncome: func(ctx context.Context, id int64) error {
				_, err := incomes.Get(ctx, id)
				return err
			},
		},
	}
}

func (r *LedgerRecorder) resolve(ctx context.Context, ref model.Reference) error {
	resolver, ok := r.resolvers[ref.Kind]
	if !ok {
		return model.NewValidationError("reference_type", "is not a known reference kind")
	}
	if err := resolver(ctx, ref.ID); err != nil {
		return errors.Wrapf(mapRepoErr(err), "resolve %s", ref)
	}
	return nil
}

// Record appends an entry for p and applies its balance effect. Inside an
// outer transaction the caller counts the entry once that commits.
func (r *LedgerRecorder) Record(ctx context.Context, p model.LedgerPosting) (*model.LedgerEntry, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	owned := !pg.InTransaction(ctx)
	var entry *model.LedgerEntry
	err := r.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := r.resolve(ctx, p.Reference); err != nil {
			return err
		}
		created, err := r.entries.Create(ctx, &p)
		if err != nil {
			return errors.Wrap(err, "create ledger entry")
		}
		if err := r.apply(ctx, p.BankAccountID, p.Type.Signed(p.Amount)); err != nil {
			return err
		}
		entry = created
		return nil
	})
	if err != nil {
		return nil, txFailed(err)
	}
	if owned {
		prom.IncLedgerEntry(string(p.Type))
	}
	return entry, nil
}

// Reconcile rewrites the entry posted for ref so it reflects p. The old
// balance effect is reversed before the new one is applied.
func (r *LedgerRecorder) Reconcile(ctx context.Context, ref model.Reference, p model.LedgerPosting) (*model.LedgerEntry, error) {
	p.Reference = ref
	if err := p.Validate(); err != nil {
		return nil, err
	}
	var entry *model.LedgerEntry
	err := r.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		old, err := r.entries.FindByReference(ctx, ref)
		if err != nil {
			return errors.Wrapf(mapRepoErr(err), "find entry for %s", ref)
		}
		if err := r.apply(ctx, old.BankAccountID, old.Type.Signed(old.Amount).Neg()); err != nil {
			return err
		}
		updated, err := r.entries.Rewrite(ctx, old.ID, &p)
		if err != nil {
			return errors.Wrap(err, "rewrite ledger entry")
		}
		if err := r.apply(ctx, p.BankAccountID, p.Type.Signed(p.Amount)); err != nil {
			return err
		}
		entry = updated
		return nil
	})
	if err != nil {
		return nil, txFailed(err)
	}
	logger.Debug("ledger entry reconciled", "reference", ref.String(), "entry_id", entry.ID)
	return entry, nil
}

// Void reverses the balance effect of the entry posted for ref and
// tombstones it.
func (r *LedgerRecorder) Void(ctx context.Context, ref model.Reference) error {
	err := r.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		old, err := r.entries.FindByReference(ctx, ref)
		if err != nil {
			return errors.Wrapf(mapRepoErr(err), "find entry for %s", ref)
		}
		if err := r.apply(ctx, old.BankAccountID, old.Type.Signed(old.Amount).Neg()); err != nil {
			return err
		}
		return r.entries.Delete(ctx, old.ID)
	})
	return txFailed(err)
}

func (r *LedgerRecorder) apply(ctx context.Context, accountID *int64, delta decimal.Decimal) error {
	if accountID == nil {
		return nil
	}
	if err := r.accounts.AdjustBalance(ctx, *accountID, delta); err != nil {
		return errors.Wrapf(mapRepoErr(err), "adjust balance of account %d", *accountID)
	}
	return nil
}

// ResolveAccount picks the account money moves through. An explicit id must
// name a live, open account. Cash without an id falls back to the default
// Cash account; with no Cash account the money is untracked and nil is
// returned.
func (r *LedgerRecorder) ResolveAccount(ctx context.Context, method model.PaymentMethod, accountID *int64) (*int64, error) {
	if accountID != nil {
		acct, err := r.accounts.Get(ctx, *accountID)
		if err != nil {
			return nil, errors.Wrapf(mapRepoErr(err), "bank account %d", *accountID)
		}
		if acct.Status != model.AccountActive {
			return nil, classify(ErrInvalidState, errors.Errorf("bank account %d is %s", acct.ID, acct.Status))
		}
		id := acct.ID
		return &id, nil
	}
	if method != model.MethodCash {
		return nil, nil
	}
	cash, err := r.accounts.FindDefaultCash(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrBankAccountNotFound) {
			return nil, nil
		}
		return nil, err
	}
	id := cash.ID
	return &id, nil
}
