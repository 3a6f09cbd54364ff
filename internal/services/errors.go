package services

import (
	"context"

	"github.com/pkg/errors"

	"github.com/nimasrn/dues-ledger/internal/model"
	"github.com/nimasrn/dues-ledger/internal/repository"
)

var (
	ErrValidation        = model.ErrValidation
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrAlreadyExists     = &kindError{kind: ErrConflict, err: errors.New("already exists")}
	ErrTransactionFailed = errors.New("transaction failed")
	ErrInvalidState      = errors.New("invalid state")
)

type ValidationError = model.ValidationError

// kindError tags err with one of the taxonomy sentinels while keeping the
// original chain reachable.
type kindError struct {
	kind error
	err  error
}

func (e *kindError) Error() string { return e.err.Error() }

func (e *kindError) Unwrap() []error { return []error{e.kind, e.err} }

func classify(kind, err error) error {
	if err == nil {
		return nil
	}
	return &kindError{kind: kind, err: err}
}

var notFoundErrors = []error{
	repository.ErrMemberNotFound,
	repository.ErrInvoiceNotFound,
	repository.ErrPaymentNotFound,
	repository.ErrBankAccountNotFound,
	repository.ErrLedgerEntryNotFound,
	repository.ErrDonationNotFound,
	repository.ErrExpenseNotFound,
	repository.ErrIncomeNotFound,
	repository.ErrCategoryNotFound,
	repository.ErrResetNotFound,
}

var duplicateErrors = []error{
	repository.ErrDuplicateInvoice,
	repository.ErrDuplicateCategory,
}

// mapRepoErr places a repository sentinel in the taxonomy. Unknown errors
// pass through untouched.
func mapRepoErr(err error) error {
	if err == nil || isClassified(err) {
		return err
	}
	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			return classify(ErrNotFound, err)
		}
	}
	for _, target := range duplicateErrors {
		if errors.Is(err, target) {
			return classify(ErrAlreadyExists, err)
		}
	}
	if errors.Is(err, repository.ErrRestoreConflict) {
		return classify(ErrConflict, err)
	}
	if errors.Is(err, repository.ErrResetNotPending) {
		return classify(ErrInvalidState, err)
	}
	return err
}

func isClassified(err error) bool {
	for _, kind := range []error{ErrValidation, ErrNotFound, ErrConflict, ErrInvalidState, ErrTransactionFailed} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

// txFailed maps whatever escaped a unit of work. Anything outside the
// taxonomy becomes ErrTransactionFailed; the store already rolled back.
func txFailed(err error) error {
	if err == nil {
		return nil
	}
	err = mapRepoErr(err)
	if isClassified(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return classify(ErrTransactionFailed, err)
}
