package repository

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/nimasrn/dues-ledger/internal/model"
	"github.com/nimasrn/dues-ledger/pkg/pg"
)

type MemberEntity struct {
	pg.Model
	Name             string          `gorm:"column:name;not null"`
	Contact          string          `gorm:"column:contact"`
	AmountPerCycle   decimal.Decimal `gorm:"column:amount_per_cycle;type:numeric(14,2);not null;check:amount_per_cycle > 0"`
	PaymentFrequency string          `gorm:"column:payment_frequency;not null;default:Monthly"`
	Status           string          `gorm:"column:status;not null;default:active;index"`
	StartDate        time.Time       `gorm:"column:start_date;not null"`
}

func (MemberEntity) TableName() string {
	return "members"
}

func toMemberEntity(m *model.Member) *MemberEntity {
	if m == nil {
		return nil
	}
	e := &MemberEntity{
		Name:             m.Name,
		Contact:          m.Contact,
		AmountPerCycle:   m.AmountPerCycle,
		PaymentFrequency: string(m.PaymentFrequency),
		Status:           string(m.Status),
		StartDate:        m.StartDate,
	}
	e.ID = m.ID
	return e
}

func toMemberModel(e *MemberEntity) *model.Member {
	if e == nil {
		return nil
	}
	return &model.Member{
		ID:               e.ID,
		Name:             e.Name,
		Contact:          e.Contact,
		AmountPerCycle:   e.AmountPerCycle,
		PaymentFrequency: model.PaymentFrequency(e.PaymentFrequency),
		Status:           model.MemberStatus(e.Status),
		StartDate:        e.StartDate,
		CreatedAt:        e.CreatedAt,
	}
}

func toMemberModels(entities []*MemberEntity) []*model.Member {
	models := make([]*model.Member, len(entities))
	for i, e := range entities {
		models[i] = toMemberModel(e)
	}
	return models
}
