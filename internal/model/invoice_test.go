package model

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestParsePeriod(t *testing.T) {
	got, err := ParsePeriod("2025-03")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), got)

	for _, bad := range []string{"", "2025-3", "2025-13", "25-03", "2025/03", "2025-03-01"} {
		_, err := ParsePeriod(bad)
		assert.ErrorIs(t, err, ErrValidation, bad)
	}
}

func TestInvoiceNo(t *testing.T) {
	assert.Equal(t, "INV-202503-000042", InvoiceNo("2025-03", 42))
	assert.Equal(t, InvoiceNo("2025-03", 42), InvoiceNo("2025-03", 42))
	assert.NotEqual(t, InvoiceNo("2025-03", 42), InvoiceNo("2025-04", 42))
}

func TestDueDate(t *testing.T) {
	due, err := DueDate("2025-03", 10)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), due)

	due, err = DueDate("2025-02", 31)
	require.NoError(t, err)
	assert.Equal(t, 28, due.Day())

	due, err = DueDate("2024-02", 31)
	require.NoError(t, err)
	assert.Equal(t, 29, due.Day())
}

func TestDeriveStatus(t *testing.T) {
	amount := d("5000")
	assert.Equal(t, InvoicePending, DeriveStatus(amount, decimal.Zero))
	assert.Equal(t, InvoicePartial, DeriveStatus(amount, d("2000")))
	assert.Equal(t, InvoicePaid, DeriveStatus(amount, d("5000")))
	assert.Equal(t, InvoicePaid, DeriveStatus(amount, d("7000")))
}

func TestInvoice_EffectiveStatus(t *testing.T) {
	inv := &Invoice{Status: InvoicePartial, DueDate: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)}
	assert.Equal(t, InvoicePartial, inv.EffectiveStatus(time.Date(2025, 3, 10, 23, 0, 0, 0, time.UTC)))
	assert.Equal(t, InvoiceOverdue, inv.EffectiveStatus(time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)))

	inv.Status = InvoicePaid
	assert.Equal(t, InvoicePaid, inv.EffectiveStatus(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestInvoice_OverpaymentCredit(t *testing.T) {
	inv := &Invoice{Amount: d("1000"), PaidAmount: d("1200")}
	assert.True(t, inv.Outstanding().IsZero())
	assert.True(t, d("200").Equal(inv.Credit()))
}

func TestBulkPaymentRequest_Validate(t *testing.T) {
	req := &BulkPaymentRequest{
		Period: "2025-03",
		Payments: []BulkPaymentEntry{
			{MemberID: 1, Amount: d("100"), Method: MethodCash},
			{MemberID: 2, Amount: decimal.Zero, Method: MethodCash},
			{MemberID: 3, Amount: d("100"), Method: "Barter"},
		},
	}
	err := req.Validate(10)
	require.ErrorIs(t, err, ErrValidation)

	fields := Fields(err)
	require.Len(t, fields, 2)
	assert.Equal(t, "payments[1].amount", fields[0].Field)
	assert.Equal(t, "payments[2].method", fields[1].Field)

	req.Payments = req.Payments[:1]
	assert.NoError(t, req.Validate(10))
}

func TestBulkPaymentRequest_MaxEntries(t *testing.T) {
	req := &BulkPaymentRequest{Period: "2025-03"}
	for i := 1; i <= 3; i++ {
		req.Payments = append(req.Payments, BulkPaymentEntry{MemberID: int64(i), Amount: d("1"), Method: MethodCash})
	}
	assert.NoError(t, req.Validate(3))
	assert.ErrorIs(t, req.Validate(2), ErrValidation)
}

func TestRecordDonationRequest_Validate(t *testing.T) {
	req := &RecordDonationRequest{Amount: d("50"), Purpose: "roof", PaymentMethod: MethodCash, DonorType: DonorMember}
	err := req.Validate()
	require.Error(t, err)
	assert.Equal(t, "member_id", Fields(err)[0].Field)

	req.DonorType = DonorAnonymous
	assert.NoError(t, req.Validate())
}

func TestFactoryResetRequest_Validate(t *testing.T) {
	req := &FactoryResetRequest{ConfirmationPhrase: "RESET-A", ExpectedPhrase: "RESET-B", Reason: "year end"}
	err := req.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))

	req.ConfirmationPhrase = "RESET-B"
	require.NoError(t, req.Validate())
	assert.Equal(t, "system", req.RequestedBy)
}
