package services

import (
	"context"
	"strings"

	"github.com/nimasrn/xpensemate/internal/model"
	"github.com/nimasrn/xpensemate/pkg/prom"
	"github.com/shopspring/decimal"
)

type CategoryService struct {
	tx           Transactor
	categories   CategoryRepository
	transactions TransactionRepository
	images       *ImageStore
}

func NewCategoryService(tx Transactor, categories CategoryRepository, transactions TransactionRepository, images *ImageStore) *CategoryService {
	return &CategoryService{
		tx:           tx,
		categories:   categories,
		transactions: transactions,
		images:       images,
	}
}

// budgetFor returns the budget to store. Income categories never carry one.
func budgetFor(typ model.CategoryType, raw *string) (*decimal.Decimal, error) {
	if typ == model.CategoryIncome || raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	d, err := model.ParseAmount("budget", *raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *CategoryService) importImage(path *string) (*string, error) {
	if path == nil || strings.TrimSpace(*path) == "" {
		return nil, nil
	}
	if s.images == nil {
		p := strings.TrimSpace(*path)
		return &p, nil
	}
	stored, err := s.images.Import(strings.TrimSpace(*path))
	if err != nil {
		return nil, model.NewValidationError("image", err.Error())
	}
	return &stored, nil
}

func (s *CategoryService) removeImage(path *string) {
	if s.images != nil {
		s.images.Remove(path)
	}
}

func (s *CategoryService) Add(ctx context.Context, p model.CategoryCreateRequest) (*model.Category, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	typ, _ := model.ParseCategoryType(p.Type)
	budget, err := budgetFor(typ, p.Budget)
	if err != nil {
		return nil, err
	}

	image, err := s.importImage(p.ImagePath)
	if err != nil {
		return nil, err
	}

	c := &model.Category{
		Name:        strings.TrimSpace(p.Name),
		Type:        typ,
		Budget:      budget,
		Description: strings.TrimSpace(p.Description),
		Image:       image,
		Status:      model.StatusActive,
	}

	var created *model.Category
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		exists, err := s.categories.ExistsActive(ctx, c.Name, c.Type, 0)
		if err != nil {
			return err
		}
		if exists {
			return model.ErrDuplicateCategory
		}
		created, err = s.categories.Create(ctx, c)
		return err
	})
	if err != nil {
		s.removeImage(image)
		return nil, fail("add category", err)
	}

	prom.IncLedgerWrite("category", "create")
	return created, nil
}

// Update applies the set fields of p. Renaming carries the active transactions
// of the category along; changing the type of a category in use is rejected.
func (s *CategoryService) Update(ctx context.Context, id int64, p model.CategoryUpdateRequest) (*model.Category, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.Empty() {
		return nil, model.NewValidationError("", "no fields to update")
	}

	var newImage *string
	if p.ImagePath != nil {
		var err error
		if newImage, err = s.importImage(p.ImagePath); err != nil {
			return nil, err
		}
	}

	var updated, previous *model.Category
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		current, err := s.categories.Get(ctx, id)
		if err != nil {
			return err
		}
		if current.Status != model.StatusActive {
			return model.ErrCategoryNotFound
		}
		before := *current
		previous = &before

		next := *current
		if p.Name != nil {
			next.Name = strings.TrimSpace(*p.Name)
		}
		if p.Type != nil {
			next.Type, _ = model.ParseCategoryType(*p.Type)
		}
		if p.Description != nil {
			next.Description = strings.TrimSpace(*p.Description)
		}
		if p.Budget != nil {
			if next.Budget, err = budgetFor(next.Type, p.Budget); err != nil {
				return err
			}
		} else if next.Type == model.CategoryIncome {
			next.Budget = nil
		}
		if p.ImagePath != nil {
			next.Image = newImage
		}

		renamed := !strings.EqualFold(next.Name, current.Name) || next.Type != current.Type
		if renamed {
			exists, err := s.categories.ExistsActive(ctx, next.Name, next.Type, id)
			if err != nil {
				return err
			}
			if exists {
				return model.ErrDuplicateCategory
			}
		}

		if next.Type != current.Type {
			inUse, err := s.transactions.CountActiveByCategory(ctx, current.Name, current.Type.TransactionType())
			if err != nil {
				return err
			}
			if inUse > 0 {
				return model.ErrCategoryInUse
			}
		} else if next.Name != current.Name {
			if _, err := s.transactions.RenameCategory(ctx, current.Name, next.Name, current.Type.TransactionType()); err != nil {
				return err
			}
		}

		if err := s.categories.Update(ctx, &next); err != nil {
			return err
		}
		updated, err = s.categories.Get(ctx, id)
		return err
	})
	if err != nil {
		s.removeImage(newImage)
		return nil, fail("update category", err)
	}

	if p.ImagePath != nil && !samePath(previous.Image, updated.Image) {
		s.removeImage(previous.Image)
	}
	prom.IncLedgerWrite("category", "update")
	return updated, nil
}

// SoftDelete marks the category deleted. Categories referenced by active
// transactions cannot be deleted.
func (s *CategoryService) SoftDelete(ctx context.Context, id int64) error {
	var deleted *model.Category
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		c, err := s.categories.Get(ctx, id)
		if err != nil {
			return err
		}
		if c.Status != model.StatusActive {
			return model.ErrCategoryNotFound
		}
		inUse, err := s.transactions.CountActiveByCategory(ctx, c.Name, c.Type.TransactionType())
		if err != nil {
			return err
		}
		if inUse > 0 {
			return model.ErrCategoryInUse
		}
		deleted = c
		return s.categories.SetStatus(ctx, id, model.StatusDeleted)
	})
	if err != nil {
		return fail("delete category", err)
	}

	s.removeImage(deleted.Image)
	prom.IncLedgerWrite("category", "delete")
	return nil
}

// List returns active categories newest first. A nil typ lists both types.
func (s *CategoryService) List(ctx context.Context, typ *model.CategoryType) ([]*model.Category, error) {
	categories, err := s.categories.ListActive(ctx, typ)
	if err != nil {
		return nil, fail("list categories", err)
	}
	return categories, nil
}

func (s *CategoryService) Get(ctx context.Context, id int64) (*model.Category, error) {
	c, err := s.categories.Get(ctx, id)
	if err != nil {
		return nil, fail("get category", err)
	}
	if c.Status != model.StatusActive {
		return nil, model.ErrCategoryNotFound
	}
	return c, nil
}

func samePath(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
