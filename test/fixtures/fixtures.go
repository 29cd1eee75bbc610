package fixtures

import (
	"time"

	"github.com/nimasrn/xpensemate/internal/model"
)

func ptr(s string) *string {
	return &s
}

func NewExpenseCategoryRequest(name, budget string) model.CategoryCreateRequest {
	req := model.CategoryCreateRequest{
		Type: string(model.CategoryExpense),
		Name: name,
	}
	if budget != "" {
		req.Budget = ptr(budget)
	}
	return req
}

func NewIncomeCategoryRequest(name string) model.CategoryCreateRequest {
	return model.CategoryCreateRequest{
		Type: string(model.CategoryIncome),
		Name: name,
	}
}

func NewExpenseRequest(category, amount string, date time.Time) model.TransactionCreateRequest {
	return model.TransactionCreateRequest{
		Type:     string(model.TransactionExpense),
		Category: category,
		Amount:   amount,
		Date:     date.Format(model.DateLayout),
	}
}

func NewIncomeRequest(category, amount string, date time.Time) model.TransactionCreateRequest {
	return model.TransactionCreateRequest{
		Type:     string(model.TransactionIncome),
		Category: category,
		Amount:   amount,
		Date:     date.Format(model.DateLayout),
	}
}

func MonthlyBudgetRequest(month time.Month, year int, amount string) model.MonthlyBudgetRequest {
	return model.MonthlyBudgetRequest{Month: int(month), Year: year, Amount: amount}
}

var (
	ExpenseCategories = []model.CategoryCreateRequest{
		NewExpenseCategoryRequest("Food", "100"),
		NewExpenseCategoryRequest("Rent", "1200"),
		NewExpenseCategoryRequest("Travel", ""),
	}

	IncomeCategories = []model.CategoryCreateRequest{
		NewIncomeCategoryRequest("Salary"),
		NewIncomeCategoryRequest("Freelance"),
	}

	InvalidAmounts = []string{
		"",
		"0",
		"-5",
		"abc",
		"1.234",
	}
)
