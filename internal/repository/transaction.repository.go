package repository

import (
	"context"
	"errors"
	"time"

	"github.com/nimasrn/xpensemate/internal/model"
	"github.com/nimasrn/xpensemate/pkg/db"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TransactionRepository struct {
	*db.DB
}

func NewTransactionRepository(db *db.DB) *TransactionRepository {
	return &TransactionRepository{
		db,
	}
}

func (r *TransactionRepository) Create(ctx context.Context, txn *model.Transaction) (*model.Transaction, error) {
	entity := toTransactionEntity(txn)

	if err := r.Write(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toTransactionModel(entity), nil
}

func (r *TransactionRepository) Get(ctx context.Context, id int64) (*model.Transaction, error) {
	var entity TransactionEntity
	err := r.Read(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrTransactionNotFound
		}
		return nil, err
	}
	return toTransactionModel(&entity), nil
}

func (r *TransactionRepository) Update(ctx context.Context, txn *model.Transaction) error {
	entity := toTransactionEntity(txn)
	result := r.Write(ctx).
		Model(&TransactionEntity{}).
		Where("id = ? AND status = ?", txn.ID, model.StatusActive).
		Select("amount", "category_type", "category", "description", "date", "updated_at").
		Updates(entity)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return model.ErrTransactionNotFound
	}
	return nil
}

func (r *TransactionRepository) SetStatus(ctx context.Context, id int64, status model.RecordStatus) error {
	result := r.Write(ctx).
		Model(&TransactionEntity{}).
		Where("id = ?", id).
		Update("status", string(status))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return model.ErrTransactionNotFound
	}
	return nil
}

// ListActive returns active transactions newest id first, each carrying the
// image of the active category it references.
func (r *TransactionRepository) ListActive(ctx context.Context) ([]*model.Transaction, error) {
	var rows []*transactionRow
	err := r.Read(ctx).
		Table("transactions AS t").
		Select("t.*, c.image AS category_image").
		Joins("LEFT JOIN categories AS c ON c.name = t.category AND LOWER(c.type) = t.category_type AND c.status = ?", model.StatusActive).
		Where("t.status = ?", model.StatusActive).
		Order("t.id DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rowsToTransactionModels(rows), nil
}

// ListAll returns every transaction, deleted ones included, oldest first.
func (r *TransactionRepository) ListAll(ctx context.Context) ([]*model.Transaction, error) {
	var entities []*TransactionEntity
	if err := r.Read(ctx).Order("id ASC").Find(&entities).Error; err != nil {
		return nil, err
	}
	return toTransactionModels(entities), nil
}

// CountActiveByCategory counts active transactions referencing the category.
func (r *TransactionRepository) CountActiveByCategory(ctx context.Context, name string, typ model.TransactionType) (int64, error) {
	var count int64
	err := r.Read(ctx).
		Model(&TransactionEntity{}).
		Where("category = ? AND category_type = ? AND status = ?", name, string(typ), model.StatusActive).
		Count(&count).Error
	return count, err
}

// RenameCategory points active transactions of typ at the category's new name.
func (r *TransactionRepository) RenameCategory(ctx context.Context, oldName, newName string, typ model.TransactionType) (int64, error) {
	result := r.Write(ctx).
		Model(&TransactionEntity{}).
		Where("category = ? AND category_type = ? AND status = ?", oldName, string(typ), model.StatusActive).
		Update("category", newName)
	return result.RowsAffected, result.Error
}

// SumInRange adds up active transactions of typ dated in [from, to). An empty
// category matches every category.
func (r *TransactionRepository) SumInRange(ctx context.Context, typ model.TransactionType, category string, from, to time.Time) (decimal.Decimal, error) {
	var amounts []decimal.Decimal
	q := r.Read(ctx).
		Model(&TransactionEntity{}).
		Where("category_type = ? AND status = ? AND date >= ? AND date < ?", string(typ), model.StatusActive, from.UTC(), to.UTC())
	if category != "" {
		q = q.Where("category = ?", category)
	}
	if err := q.Pluck("amount", &amounts).Error; err != nil {
		return decimal.Zero, err
	}
	return decimal.Sum(decimal.Zero, amounts...), nil
}

// InsertIgnore inserts transactions keeping their ids; existing ids are skipped.
func (r *TransactionRepository) InsertIgnore(ctx context.Context, txns []*model.Transaction) (int64, error) {
	if len(txns) == 0 {
		return 0, nil
	}
	entities := make([]*TransactionEntity, len(txns))
	for i, t := range txns {
		entities[i] = toTransactionEntity(t)
	}
	result := r.Write(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		CreateInBatches(&entities, insertBatchSize)
	if result.Error != nil {
		return 0, result.Error
	}
	if err := resyncSequence(ctx, r.DB, TransactionEntity{}.TableName()); err != nil {
		return 0, err
	}
	return result.RowsAffected, nil
}
