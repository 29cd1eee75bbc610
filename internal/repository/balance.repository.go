package repository

import (
	"context"
	"errors"
	"time"

	"github.com/nimasrn/xpensemate/internal/model"
	"github.com/nimasrn/xpensemate/pkg/db"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OpeningBalanceRepository manages the opening_balance and adjustments tables,
// which always change together.
type OpeningBalanceRepository struct {
	*db.DB
}

func NewOpeningBalanceRepository(db *db.DB) *OpeningBalanceRepository {
	return &OpeningBalanceRepository{
		db,
	}
}

func (r *OpeningBalanceRepository) Current(ctx context.Context) (*model.OpeningBalance, error) {
	var entity OpeningBalanceEntity
	err := r.Read(ctx).
		Where("status = ?", model.BalanceCurrent).
		Order("id DESC").
		First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrOpeningBalanceNotFound
		}
		return nil, err
	}
	return toOpeningBalanceModel(&entity), nil
}

func (r *OpeningBalanceRepository) CurrentAdjustment(ctx context.Context) (*model.Adjustment, error) {
	var entity AdjustmentEntity
	err := r.Read(ctx).
		Where("status = ?", model.BalanceCurrent).
		Order("id DESC").
		First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrOpeningBalanceNotFound
		}
		return nil, err
	}
	return toAdjustmentModel(&entity), nil
}

// SupersedeCurrent demotes every current opening balance and adjustment row.
func (r *OpeningBalanceRepository) SupersedeCurrent(ctx context.Context) error {
	err := r.Write(ctx).
		Model(&OpeningBalanceEntity{}).
		Where("status = ?", model.BalanceCurrent).
		Update("status", string(model.BalanceSuperseded)).Error
	if err != nil {
		return err
	}
	return r.Write(ctx).
		Model(&AdjustmentEntity{}).
		Where("status = ?", model.BalanceCurrent).
		Update("status", string(model.BalanceSuperseded)).Error
}

// CreatePair inserts a current opening balance with its adjustment.
func (r *OpeningBalanceRepository) CreatePair(ctx context.Context, amount decimal.Decimal, date time.Time) (*model.OpeningBalance, *model.Adjustment, error) {
	date = model.NormalizeTime(date)
	ob := &OpeningBalanceEntity{Amount: amount, Date: date, Status: string(model.BalanceCurrent)}
	if err := r.Write(ctx).Create(ob).Error; err != nil {
		return nil, nil, err
	}
	adj := &AdjustmentEntity{Amount: amount, Date: date, Status: string(model.BalanceCurrent)}
	if err := r.Write(ctx).Create(adj).Error; err != nil {
		return nil, nil, err
	}
	return toOpeningBalanceModel(ob), toAdjustmentModel(adj), nil
}

// History returns every opening balance, the current one first.
func (r *OpeningBalanceRepository) History(ctx context.Context) ([]*model.OpeningBalance, error) {
	var entities []*OpeningBalanceEntity
	if err := r.Read(ctx).Order("id DESC").Find(&entities).Error; err != nil {
		return nil, err
	}
	return toOpeningBalanceModels(entities), nil
}
