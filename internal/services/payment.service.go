package services

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/nimasrn/dues-ledger/internal/model"
	"github.com/nimasrn/dues-ledger/pkg/logger"
	"github.com/nimasrn/dues-ledger/pkg/prom"
)

type PaymentService struct {
	tx             Transactor
	members        MemberRepository
	invoices       InvoiceRepository
	payments       PaymentRepository
	ledger         *LedgerRecorder
	invoiceService *InvoiceService
	maxBulk        int
	now            func() time.Time
}

func NewPaymentService(
	tx Transactor,
	members MemberRepository,
	invoices InvoiceRepository,
	payments PaymentRepository,
	ledger *LedgerRecorder,
	invoiceService *InvoiceService,
	maxBulk int,
) *PaymentService {
	return &PaymentService{
		tx:             tx,
		members:        members,
		invoices:       invoices,
		payments:       payments,
		ledger:         ledger,
		invoiceService: invoiceService,
		maxBulk:        maxBulk,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// ApplyPayment records a payment against an invoice. The payment row, the
// invoice update, the balance adjustment and the ledger entry commit
// together or not at all.
func (s *PaymentService) ApplyPayment(ctx context.Context, req model.ApplyPaymentRequest) (*model.Payment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var payment *model.Payment
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		inv, err := s.invoices.GetForUpdate(ctx, req.InvoiceID)
		if err != nil {
			return errors.Wrapf(mapRepoErr(err), "invoice %d", req.InvoiceID)
		}
		p, _, err := s.apply(ctx, inv, req.Amount, req.Method, req.BankAccountID)
		payment = p
		return err
	})
	if err != nil {
		return nil, txFailed(err)
	}

	prom.AddPaymentApplied("single", req.Amount.InexactFloat64())
	prom.IncLedgerEntry(string(model.Credit))
	logger.Info("payment applied",
		"payment_id", payment.ID,
		"invoice_id", payment.InvoiceID,
		"amount", payment.Amount.String(),
		"method", string(payment.Method))
	return payment, nil
}

// apply runs steps two to six of a payment against an invoice the caller has
// locked. It returns the invoice status after the payment.
func (s *PaymentService) apply(ctx context.Context, inv *model.Invoice, amount decimal.Decimal, method model.PaymentMethod, accountID *int64) (*model.Payment, model.InvoiceStatus, error) {
	account, err := s.ledger.ResolveAccount(ctx, method, accountID)
	if err != nil {
		return nil, "", err
	}

	payment, err := s.payments.Create(ctx, &model.Payment{
		InvoiceID:     inv.ID,
		Amount:        amount,
		Method:        method,
		BankAccountID: account,
		PaidAt:        s.now(),
	})
	if err != nil {
		return nil, "", errors.Wrap(err, "create payment")
	}

	status := model.DeriveStatus(inv.Amount, inv.PaidAmount.Add(amount))
	if err := s.invoices.AddPayment(ctx, inv.ID, amount, status); err != nil {
		return nil, "", errors.Wrap(mapRepoErr(err), "update invoice")
	}

	_, err = s.ledger.Record(ctx, model.LedgerPosting{
		Date:          payment.PaidAt,
		Description:   fmt.Sprintf("Payment %s for %s", payment.ReceiptNo, inv.InvoiceNo),
		Amount:        amount,
		Type:          model.Credit,
		Category:      "Membership Dues",
		BankAccountID: account,
		Reference:     model.Reference{Kind: model.RefPayment, ID: payment.ID},
	})
	if err != nil {
		return nil, "", err
	}
	return payment, status, nil
}

// ApplyBulkPayments applies one period's payments for many members in a
// single transaction. Every entry is validated before anything is written,
// and any failure rolls back the whole batch.
func (s *PaymentService) ApplyBulkPayments(ctx context.Context, req model.BulkPaymentRequest) ([]model.BulkPaymentResult, error) {
	if err := req.Validate(s.maxBulk); err != nil {
		return nil, err
	}

	results := make([]model.BulkPaymentResult, 0, len(req.Payments))
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		for i, entry := range req.Payments {
			res, err := s.applyBulkEntry(ctx, req.Period, entry)
			if err != nil {
				return errors.Wrapf(err, "payments[%d]", i)
			}
			results = append(results, *res)
		}
		return nil
	})
	if err != nil {
		logger.Warn("bulk payment batch rolled back", "period", req.Period, "entries", len(req.Payments), "error", err)
		return nil, txFailed(err)
	}

	for _, entry := range req.Payments {
		prom.AddPaymentApplied("bulk", entry.Amount.InexactFloat64())
		prom.IncLedgerEntry(string(model.Credit))
	}
	logger.Info("bulk payments applied", "period", req.Period, "entries", len(results))
	return results, nil
}

func (s *PaymentService) applyBulkEntry(ctx context.Context, period string, entry model.BulkPaymentEntry) (*model.BulkPaymentResult, error) {
	member, err := s.members.Get(ctx, entry.MemberID)
	if err != nil {
		return nil, errors.Wrapf(mapRepoErr(err), "member %d", entry.MemberID)
	}

	var inv *model.Invoice
	if entry.InvoiceID != nil {
		inv, err = s.invoices.GetForUpdate(ctx, *entry.InvoiceID)
		if err != nil {
			return nil, errors.Wrapf(mapRepoErr(err), "invoice %d", *entry.InvoiceID)
		}
		if inv.MemberID != member.ID || inv.Period != period {
			return nil, model.NewValidationError("invoice_id", "does not belong to the member and period")
		}
	} else {
		ensured, err := s.invoiceService.EnsureInvoice(ctx, member, period)
		if err != nil {
			return nil, err
		}
		if inv, err = s.invoices.GetForUpdate(ctx, ensured.ID); err != nil {
			return nil, errors.Wrapf(mapRepoErr(err), "invoice %d", ensured.ID)
		}
	}

	payment, status, err := s.apply(ctx, inv, entry.Amount, entry.Method, entry.BankAccountID)
	if err != nil {
		return nil, err
	}
	return &model.BulkPaymentResult{
		MemberID:   member.ID,
		MemberName: member.Name,
		Amount:     payment.Amount,
		Period:     period,
		ReceiptNo:  payment.ReceiptNo,
		Status:     status,
		InvoiceID:  inv.ID,
		PaymentID:  payment.ID,
	}, nil
}
