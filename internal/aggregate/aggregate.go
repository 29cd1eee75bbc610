// Package aggregate computes dashboard, chart and report figures from an
// in-memory list of transactions. Every function is pure.
package aggregate

import (
	"github.com/nimasrn/xpensemate/internal/model"
	"github.com/shopspring/decimal"
)

func TotalByType(txs []model.Transaction, typ model.TransactionType) decimal.Decimal {
	total := decimal.Zero
	for _, t := range txs {
		if t.Type == typ {
			total = total.Add(t.Amount)
		}
	}
	return total
}

// Balance is total income minus total expense.
func Balance(txs []model.Transaction) decimal.Decimal {
	return TotalByType(txs, model.TransactionIncome).Sub(TotalByType(txs, model.TransactionExpense))
}

type Summary struct {
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Savings decimal.Decimal `json:"savings"`
}

func Summarize(txs []model.Transaction) Summary {
	income := TotalByType(txs, model.TransactionIncome)
	expense := TotalByType(txs, model.TransactionExpense)
	return Summary{Income: income, Expense: expense, Savings: income.Sub(expense)}
}

type WalletSummary struct {
	Opening decimal.Decimal `json:"opening"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Current decimal.Decimal `json:"current"`
}

// Wallet adds the transaction balance to the opening balance.
func Wallet(opening decimal.Decimal, txs []model.Transaction) WalletSummary {
	s := Summarize(txs)
	return WalletSummary{
		Opening: opening,
		Income:  s.Income,
		Expense: s.Expense,
		Current: opening.Add(s.Savings),
	}
}

type Share struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// CategoryShares sums expenses per category, in order of first occurrence.
func CategoryShares(txs []model.Transaction) []Share {
	index := make(map[string]int)
	var shares []Share
	for _, t := range txs {
		if t.Type != model.TransactionExpense {
			continue
		}
		i, ok := index[t.Category]
		if !ok {
			i = len(shares)
			index[t.Category] = i
			shares = append(shares, Share{Category: t.Category, Amount: decimal.Zero})
		}
		shares[i].Amount = shares[i].Amount.Add(t.Amount)
	}
	return shares
}
