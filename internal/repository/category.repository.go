package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/nimasrn/dues-ledger/internal/model"
	"github.com/nimasrn/dues-ledger/pkg/pg"
)

var (
	ErrCategoryNotFound  = errors.New("category not found")
	ErrDuplicateCategory = errors.New("category already exists")
)

type CategoryRepository struct {
	*pg.DB
}

func NewCategoryRepository(db *pg.DB) *CategoryRepository {
	return &CategoryRepository{db}
}

func (r *CategoryRepository) Create(ctx context.Context, c *model.Category) (*model.Category, error) {
	e := &CategoryEntity{Name: c.Name, Kind: string(c.Kind)}
	if err := r.Write(ctx).Create(e).Error; err != nil {
		if pg.IsDuplicate(err) {
			return nil, ErrDuplicateCategory
		}
		return nil, err
	}
	return toCategoryModel(e), nil
}

func (r *CategoryRepository) Get(ctx context.Context, id int64) (*model.Category, error) {
	var e CategoryEntity
	if err := r.Read(ctx).Where("id = ?", id).First(&e).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	return toCategoryModel(&e), nil
}

// List returns live categories by name. An empty kind lists all.
func (r *CategoryRepository) List(ctx context.Context, kind model.CategoryKind) ([]*model.Category, error) {
	var entities []*CategoryEntity
	q := r.Read(ctx).Order("kind ASC, name ASC")
	if kind != "" {
		q = q.Where("kind = ?", string(kind))
	}
	if err := q.Find(&entities).Error; err != nil {
		return nil, err
	}
	out := make([]*model.Category, len(entities))
	for i, e := range entities {
		out[i] = toCategoryModel(e)
	}
	return out, nil
}
