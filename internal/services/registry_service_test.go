package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimasrn/dues-ledger/internal/model"
)

func TestRegisterMember_Defaults(t *testing.T) {
	f := newFixture(t)

	m, err := f.registry.RegisterMember(context.Background(), model.RegisterMemberRequest{
		Name:           "  Alice  ",
		AmountPerCycle: dec("1000"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Alice", m.Name)
	assert.Equal(t, model.FrequencyMonthly, m.PaymentFrequency)
	assert.Equal(t, model.MemberActive, m.Status)
	assert.False(t, m.StartDate.IsZero())

	_, err = f.registry.RegisterMember(context.Background(), model.RegisterMemberRequest{AmountPerCycle: dec("-1")})
	require.ErrorIs(t, err, ErrValidation)
	assert.Len(t, model.Fields(err), 2)
}

func TestListMembers_FilterByStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.member(t, "Alice", "1000")
	_, err := f.registry.RegisterMember(ctx, model.RegisterMemberRequest{Name: "Bob", AmountPerCycle: dec("1"), Status: model.MemberInactive})
	require.NoError(t, err)

	all, err := f.registry.ListMembers(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	inactive, err := f.registry.ListMembers(ctx, model.MemberInactive)
	require.NoError(t, err)
	require.Len(t, inactive, 1)
	assert.Equal(t, "Bob", inactive[0].Name)

	_, err = f.registry.ListMembers(ctx, "gone")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestOpenBankAccount_OpeningBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.registry.OpenBankAccount(ctx, model.OpenBankAccountRequest{
		Name:           "Savings",
		Type:           model.AccountSavings,
		OpeningBalance: dec("1500.25"),
	})
	require.NoError(t, err)
	assert.Equal(t, model.AccountActive, a.Status)
	assert.True(t, dec("1500.25").Equal(f.balance(t, a.ID)))

	_, err = f.registry.OpenBankAccount(ctx, model.OpenBankAccountRequest{Name: "Vault", Type: "Gold"})
	assert.ErrorIs(t, err, ErrValidation)

	list, err := f.registry.ListBankAccounts(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCreateCategory_Duplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.registry.CreateCategory(ctx, model.CreateCategoryRequest{Name: "Utilities", Kind: model.CategoryExpense})
	require.NoError(t, err)
	_, err = f.registry.CreateCategory(ctx, model.CreateCategoryRequest{Name: "Utilities", Kind: model.CategoryIncome})
	require.NoError(t, err, "names are unique per kind")

	_, err = f.registry.CreateCategory(ctx, model.CreateCategoryRequest{Name: "Utilities", Kind: model.CategoryExpense})
	assert.ErrorIs(t, err, ErrAlreadyExists)
	assert.ErrorIs(t, err, ErrConflict)

	expense, err := f.registry.ListCategories(ctx, model.CategoryExpense)
	require.NoError(t, err)
	assert.Len(t, expense, 1)
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthService(t *testing.T) {
	ok := pingerFunc(func(context.Context) error { return nil })
	down := pingerFunc(func(context.Context) error { return errors.New("connection refused") })

	status := NewHealthService(map[string]Pinger{"postgres": ok, "redis": ok}).Check(context.Background())
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, "ok", status.Checks["redis"])

	status = NewHealthService(map[string]Pinger{"postgres": ok, "redis": down}).Check(context.Background())
	assert.Equal(t, "degraded", status.Status)
	assert.Equal(t, "connection refused", status.Checks["redis"])
}
