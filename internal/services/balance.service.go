package services

import (
	"context"
	"errors"

	"github.com/nimasrn/xpensemate/internal/model"
	"github.com/nimasrn/xpensemate/pkg/prom"
)

// OpeningBalanceService keeps exactly one current opening balance and adjustment pair.
type OpeningBalanceService struct {
	tx       Transactor
	balances OpeningBalanceRepository
}

func NewOpeningBalanceService(tx Transactor, balances OpeningBalanceRepository) *OpeningBalanceService {
	return &OpeningBalanceService{tx: tx, balances: balances}
}

// SetOpeningBalance demotes the current pair, if any, and records a new one.
func (s *OpeningBalanceService) SetOpeningBalance(ctx context.Context, p model.OpeningBalanceRequest) (*model.OpeningBalance, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	amount, _ := model.ParseAmount("amount", p.Amount)
	date, _ := model.ParseDate("date", p.Date)

	var ob *model.OpeningBalance
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.balances.SupersedeCurrent(ctx); err != nil {
			return err
		}
		var err error
		ob, _, err = s.balances.CreatePair(ctx, amount, date)
		return err
	})
	if err != nil {
		return nil, fail("set opening balance", err)
	}
	prom.IncLedgerWrite("opening_balance", "set")
	return ob, nil
}

// CreateOpeningBalanceOnce records the first opening balance and refuses to
// replace an existing one.
func (s *OpeningBalanceService) CreateOpeningBalanceOnce(ctx context.Context, p model.OpeningBalanceRequest) (*model.OpeningBalance, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	amount, _ := model.ParseAmount("amount", p.Amount)
	date, _ := model.ParseDate("date", p.Date)

	var ob *model.OpeningBalance
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		_, err := s.balances.Current(ctx)
		switch {
		case err == nil:
			return model.ErrOpeningBalanceExists
		case !errors.Is(err, model.ErrNotFound):
			return err
		}
		ob, _, err = s.balances.CreatePair(ctx, amount, date)
		return err
	})
	if err != nil {
		return nil, fail("create opening balance", err)
	}
	prom.IncLedgerWrite("opening_balance", "create")
	return ob, nil
}

func (s *OpeningBalanceService) Current(ctx context.Context) (*model.OpeningBalance, error) {
	ob, err := s.balances.Current(ctx)
	if err != nil {
		return nil, fail("get opening balance", err)
	}
	return ob, nil
}

func (s *OpeningBalanceService) History(ctx context.Context) ([]*model.OpeningBalance, error) {
	history, err := s.balances.History(ctx)
	if err != nil {
		return nil, fail("opening balance history", err)
	}
	return history, nil
}
