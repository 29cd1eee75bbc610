package model

import "fmt"

// RecordStatus is the soft-delete flag of categories, transactions and monthly budgets.
type RecordStatus string

const (
	StatusActive  RecordStatus = "Y"
	StatusDeleted RecordStatus = "N"
)

func (s RecordStatus) Valid() bool {
	return s == StatusActive || s == StatusDeleted
}

func (s RecordStatus) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusDeleted:
		return "deleted"
	}
	return fmt.Sprintf("RecordStatus(%q)", string(s))
}

// BalanceStatus marks which opening balance and adjustment pair is in effect.
type BalanceStatus string

const (
	BalanceCurrent    BalanceStatus = "OB"
	BalanceSuperseded BalanceStatus = "N"
)

func (s BalanceStatus) Valid() bool {
	return s == BalanceCurrent || s == BalanceSuperseded
}

func (s BalanceStatus) String() string {
	switch s {
	case BalanceCurrent:
		return "current"
	case BalanceSuperseded:
		return "superseded"
	}
	return fmt.Sprintf("BalanceStatus(%q)", string(s))
}
