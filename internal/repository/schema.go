package repository

import (
	"context"

	"github.com/nimasrn/dues-ledger/pkg/pg"
)

// Entities lists every table in creation order.
func Entities() []interface{} {
	return []interface{}{
		&BankAccountEntity{},
		&CategoryEntity{},
		&MemberEntity{},
		&InvoiceEntity{},
		&PaymentEntity{},
		&LedgerEntryEntity{},
		&DonationEntity{},
		&ExpenseEntity{},
		&IncomeEntity{},
		&ResetRequestEntity{},
		&AuditLogEntity{},
	}
}

// AutoMigrate creates the schema from the entities. Production databases
// are migrated with the SQL files under migrations/ instead.
func AutoMigrate(ctx context.Context, db *pg.DB) error {
	return db.Write(ctx).AutoMigrate(Entities()...)
}
