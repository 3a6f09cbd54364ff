package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/nimasrn/dues-ledger/internal/model"
	"github.com/nimasrn/dues-ledger/pkg/pg"
)

var ErrMemberNotFound = errors.New("member not found")

type MemberRepository struct {
	*pg.DB
}

func NewMemberRepository(db *pg.DB) *MemberRepository {
	return &MemberRepository{db}
}

func (r *MemberRepository) Create(ctx context.Context, m *model.Member) (*model.Member, error) {
	e := toMemberEntity(m)
	if err := r.Write(ctx).Create(e).Error; err != nil {
		return nil, err
	}
	return toMemberModel(e), nil
}

func (r *MemberRepository) Get(ctx context.Context, id int64) (*model.Member, error) {
	var e MemberEntity
	err := r.Read(ctx).Where("id = ?", id).First(&e).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	return toMemberModel(&e), nil
}

// List returns live members ordered by id. An empty status lists all.
func (r *MemberRepository) List(ctx context.Context, status model.MemberStatus) ([]*model.Member, error) {
	var entities []*MemberEntity
	q := r.Read(ctx).Order("id ASC")
	if status != "" {
		q = q.Where("status = ?", string(status))
	}
	if err := q.Find(&entities).Error; err != nil {
		return nil, err
	}
	return toMemberModels(entities), nil
}

func (r *MemberRepository) ListActive(ctx context.Context) ([]*model.Member, error) {
	return r.List(ctx, model.MemberActive)
}
