package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentFrequency string

const (
	FrequencyMonthly   PaymentFrequency = "Monthly"
	FrequencyQuarterly PaymentFrequency = "Quarterly"
	FrequencyYearly    PaymentFrequency = "Yearly"
)

func (f PaymentFrequency) Valid() bool {
	switch f {
	case FrequencyMonthly, FrequencyQuarterly, FrequencyYearly:
		return true
	}
	return false
}

type MemberStatus string

const (
	MemberActive   MemberStatus = "active"
	MemberInactive MemberStatus = "inactive"
	MemberDeceased MemberStatus = "deceased"
	MemberMoved    MemberStatus = "moved"
)

func (s MemberStatus) Valid() bool {
	switch s {
	case MemberActive, MemberInactive, MemberDeceased, MemberMoved:
		return true
	}
	return false
}

type Member struct {
	ID               int64            `json:"id"`
	Name             string           `json:"name"`
	Contact          string           `json:"contact,omitempty"`
	AmountPerCycle   decimal.Decimal  `json:"amount_per_cycle"`
	PaymentFrequency PaymentFrequency `json:"payment_frequency"`
	Status           MemberStatus     `json:"status"`
	StartDate        time.Time        `json:"start_date"`
	CreatedAt        time.Time        `json:"created_at"`
}

type RegisterMemberRequest struct {
	Name             string           `json:"name"`
	Contact          string           `json:"contact"`
	AmountPerCycle   decimal.Decimal  `json:"amount_per_cycle"`
	PaymentFrequency PaymentFrequency `json:"payment_frequency"`
	Status           MemberStatus     `json:"status"`
	StartDate        *time.Time       `json:"start_date"`
}

func (r *RegisterMemberRequest) Validate() error {
	var errs ValidationErrors
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		errs.Add("name", "is required")
	}
	validateAmount(&errs, "amount_per_cycle", r.AmountPerCycle)
	if r.PaymentFrequency == "" {
		r.PaymentFrequency = FrequencyMonthly
	} else if !r.PaymentFrequency.Valid() {
		errs.Add("payment_frequency", "must be one of Monthly, Quarterly, Yearly")
	}
	if r.Status == "" {
		r.Status = MemberActive
	} else if !r.Status.Valid() {
		errs.Add("status", "must be one of active, inactive, deceased, moved")
	}
	return errs.Err()
}
