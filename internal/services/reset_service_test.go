package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nimasrn/dues-ledger/internal/model"
)

type resetFixture struct {
	*fixture
	phrases  *mockPhraseStore
	notifier *mockNotifier
	service  *ResetService
}

func newResetFixture(t *testing.T) *resetFixture {
	f := newFixture(t)
	rf := &resetFixture{
		fixture:  f,
		phrases:  &mockPhraseStore{},
		notifier: &mockNotifier{},
	}
	rf.service = NewResetService(f.db, f.resets, rf.phrases, f.audit, rf.notifier, ResetConfig{
		RecoveryWindow: time.Hour,
		PhraseTTL:      time.Minute,
	})
	return rf
}

// seed leaves one member, one invoice, one payment and a cash balance of 400.
func (rf *resetFixture) seed(t *testing.T) (*model.Member, *model.BankAccount) {
	cash := rf.account(t, "Cash box", model.AccountCash)
	m := rf.member(t, "Alice", "1000")
	inv := rf.invoice(t, m, "2025-06")
	_, err := rf.payer.ApplyPayment(context.Background(), model.ApplyPaymentRequest{InvoiceID: inv.ID, Amount: dec("400"), Method: model.MethodCash})
	require.NoError(t, err)
	return m, cash
}

func (rf *resetFixture) reset(t *testing.T) *model.ResetTicket {
	rf.phrases.On("Consume", mock.Anything, "RESET-0A1B2C3D").Return(true, nil).Once()
	rf.notifier.On("Notify", mock.Anything, notificationOf(model.NotifyResetRequested)).Return(nil).Once()
	ticket, err := rf.service.FactoryReset(context.Background(), model.FactoryResetRequest{
		ConfirmationPhrase: "RESET-0A1B2C3D",
		ExpectedPhrase:     "RESET-0A1B2C3D",
		Reason:             "year end",
		RequestedBy:        "treasurer",
	})
	require.NoError(t, err)
	return ticket
}

func TestIssuePhrase(t *testing.T) {
	rf := newResetFixture(t)
	rf.phrases.On("Issue", mock.Anything, mock.AnythingOfType("string"), time.Minute).Return(true, nil).Once()

	phrase, err := rf.service.IssuePhrase(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(phrase.Phrase, "RESET-"))
	assert.Len(t, phrase.Phrase, len("RESET-")+8)
	assert.Equal(t, strings.ToUpper(phrase.Phrase), phrase.Phrase)
	rf.phrases.AssertExpectations(t)
}

func TestIssuePhrase_StoreFailure(t *testing.T) {
	rf := newResetFixture(t)
	rf.phrases.On("Issue", mock.Anything, mock.Anything, mock.Anything).Return(false, errors.New("redis down"))

	_, err := rf.service.IssuePhrase(context.Background())
	assert.ErrorIs(t, err, ErrTransactionFailed)
}

func TestFactoryReset_RejectsUnissuedPhrase(t *testing.T) {
	rf := newResetFixture(t)
	rf.phrases.On("Consume", mock.Anything, "RESET-FFFFFFFF").Return(false, nil).Once()

	_, err := rf.service.FactoryReset(context.Background(), model.FactoryResetRequest{
		ConfirmationPhrase: "RESET-FFFFFFFF",
		ExpectedPhrase:     "RESET-FFFFFFFF",
		Reason:             "cleanup",
	})
	require.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "expected_phrase", model.Fields(err)[0].Field)
	rf.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
}

func TestFactoryReset_RejectsMismatchBeforeConsuming(t *testing.T) {
	rf := newResetFixture(t)

	_, err := rf.service.FactoryReset(context.Background(), model.FactoryResetRequest{
		ConfirmationPhrase: "RESET-11111111",
		ExpectedPhrase:     "RESET-22222222",
		Reason:             "cleanup",
	})
	assert.ErrorIs(t, err, ErrValidation)
	rf.phrases.AssertNotCalled(t, "Consume", mock.Anything, mock.Anything)
}

func TestFactoryReset_RestoreRoundTrip(t *testing.T) {
	rf := newResetFixture(t)
	ctx := context.Background()
	m, cash := rf.seed(t)

	ticket := rf.reset(t)
	assert.Equal(t, int64(5), ticket.AffectedRows, "member, account, invoice, payment, ledger entry")

	members, err := rf.registry.ListMembers(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, members)
	_, err = rf.accounts.Get(ctx, cash.ID)
	assert.Error(t, err)

	req, err := rf.service.Get(ctx, ticket.ResetRequestID)
	require.NoError(t, err)
	assert.Equal(t, model.ResetPending, req.Status)
	assert.Equal(t, int64(5), req.AffectedRows)

	rf.notifier.On("Notify", mock.Anything, notificationOf(model.NotifyResetRestored)).Return(nil).Once()
	require.NoError(t, rf.service.Act(ctx, ticket.ResetRequestID, model.ActionRestore))

	members, err = rf.registry.ListMembers(ctx, "")
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, m.ID, members[0].ID)
	rf.requireBalanced(t, cash.ID, "400")

	req, err = rf.service.Get(ctx, ticket.ResetRequestID)
	require.NoError(t, err)
	assert.Equal(t, model.ResetRestored, req.Status)
	assert.NotNil(t, req.ResolvedAt)

	assert.ErrorIs(t, rf.service.Restore(ctx, ticket.ResetRequestID), ErrInvalidState)
	assert.ErrorIs(t, rf.service.PurgeNow(ctx, ticket.ResetRequestID), ErrInvalidState)

	trail, err := rf.audit.ListByEntity(ctx, auditEntityReset, ticket.ResetRequestID)
	require.NoError(t, err)
	assert.Len(t, trail, 2)
	rf.notifier.AssertExpectations(t)
	rf.phrases.AssertExpectations(t)
}

func TestFactoryReset_PurgeNow(t *testing.T) {
	rf := newResetFixture(t)
	ctx := context.Background()
	rf.seed(t)
	ticket := rf.reset(t)

	rf.notifier.On("Notify", mock.Anything, notificationOf(model.NotifyResetPurged)).Return(nil).Once()
	require.NoError(t, rf.service.Act(ctx, ticket.ResetRequestID, model.ActionDelete))

	n, err := rf.resets.CountTombstoned(ctx, ticket.ResetRequestID)
	require.NoError(t, err)
	assert.Zero(t, n)

	req, err := rf.service.Get(ctx, ticket.ResetRequestID)
	require.NoError(t, err)
	assert.Equal(t, model.ResetDeleted, req.Status)

	assert.ErrorIs(t, rf.service.Restore(ctx, ticket.ResetRequestID), ErrInvalidState)
	rf.notifier.AssertExpectations(t)
}

func TestFactoryReset_DataEnteredAfterResetSurvivesRestore(t *testing.T) {
	rf := newResetFixture(t)
	ctx := context.Background()
	rf.seed(t)
	ticket := rf.reset(t)

	rf.member(t, "Zed", "200")

	rf.notifier.On("Notify", mock.Anything, mock.Anything).Return(nil)
	require.NoError(t, rf.service.Restore(ctx, ticket.ResetRequestID))

	members, err := rf.registry.ListMembers(ctx, "")
	require.NoError(t, err)
	assert.Len(t, members, 2)
}

func TestFactoryReset_RestoreConflictRollsBack(t *testing.T) {
	rf := newResetFixture(t)
	ctx := context.Background()
	rf.seed(t)
	ticket := rf.reset(t)

	// A live category takes the name of one tombstoned by the reset.
	_, err := rf.categories.Create(ctx, &model.Category{Name: "Dup", Kind: model.CategoryIncome})
	require.NoError(t, err)
	require.NoError(t, rf.db.Write(ctx).Exec(
		"UPDATE categories SET deleted_at = ?, deleted_by_reset_id = ? WHERE name = ?",
		time.Now().UTC(), ticket.ResetRequestID, "Dup").Error)
	_, err = rf.categories.Create(ctx, &model.Category{Name: "Dup", Kind: model.CategoryIncome})
	require.NoError(t, err)

	err = rf.service.Restore(ctx, ticket.ResetRequestID)
	require.ErrorIs(t, err, ErrConflict)

	req, err := rf.service.Get(ctx, ticket.ResetRequestID)
	require.NoError(t, err)
	assert.Equal(t, model.ResetPending, req.Status, "a failed restore leaves the request pending")
	members, err := rf.registry.ListMembers(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, members, "rows restored before the conflict are rolled back")
}

func TestPurgeExpired(t *testing.T) {
	rf := newResetFixture(t)
	ctx := context.Background()
	rf.seed(t)
	ticket := rf.reset(t)
	rf.notifier.On("Notify", mock.Anything, notificationOf(model.NotifyResetPurged)).Return(nil).Once()

	purged, err := rf.service.PurgeExpired(ctx, time.Now().UTC())
	require.NoError(t, err)
	assert.Zero(t, purged, "still inside the recovery window")

	purged, err = rf.service.PurgeExpired(ctx, time.Now().UTC().Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, purged)

	req, err := rf.service.Get(ctx, ticket.ResetRequestID)
	require.NoError(t, err)
	assert.Equal(t, model.ResetDeleted, req.Status)
}

func TestFactoryReset_NotifierFailureIsNotFatal(t *testing.T) {
	rf := newResetFixture(t)
	rf.phrases.On("Consume", mock.Anything, "RESET-0A1B2C3D").Return(true, nil).Once()
	rf.notifier.On("Notify", mock.Anything, mock.Anything).Return(errors.New("queue unavailable"))

	ticket, err := rf.service.FactoryReset(context.Background(), model.FactoryResetRequest{
		ConfirmationPhrase: "RESET-0A1B2C3D",
		ExpectedPhrase:     "RESET-0A1B2C3D",
		Reason:             "year end",
	})
	require.NoError(t, err)
	assert.NotZero(t, ticket.ResetRequestID)
}

func TestAct_UnknownAction(t *testing.T) {
	rf := newResetFixture(t)
	assert.ErrorIs(t, rf.service.Act(context.Background(), 1, "archive"), ErrValidation)
	assert.ErrorIs(t, rf.service.Restore(context.Background(), 9999), ErrNotFound)
}
