package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nimasrn/xpensemate/internal/aggregate"
	"github.com/nimasrn/xpensemate/internal/config"
	"github.com/nimasrn/xpensemate/internal/migrations"
	"github.com/nimasrn/xpensemate/internal/model"
	"github.com/nimasrn/xpensemate/internal/repository"
	"github.com/nimasrn/xpensemate/internal/services"
	"github.com/nimasrn/xpensemate/internal/state"
	"github.com/nimasrn/xpensemate/pkg/db"
	"github.com/nimasrn/xpensemate/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// app is built once per invocation by the root command's PersistentPreRunE
// and closed by execute.
type app struct {
	cfg      *config.Config
	db       *db.DB
	ledger   *state.Store
	balances *services.OpeningBalanceService
	budgets  *services.MonthlyBudgetService
	reports  *services.ReportService
	exchange *services.ExchangeService
}

// execute runs one command line against a and closes its database whatever
// the outcome. Cobra skips post-run hooks when a command fails.
func execute(a *app, args []string, stdout, stderr io.Writer) error {
	cmd := newRootCommand(a)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	if cerr := a.close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

func newRootCommand(a *app) *cobra.Command {
	var envPath string

	rootCmd := &cobra.Command{
		Use:     "xpensemate",
		Short:   "Personal income and expense ledger",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(envPath)
		},
	}
	rootCmd.PersistentFlags().StringVar(&envPath, "env", "", "path of an optional .env file")

	rootCmd.AddCommand(
		newMigrateCommand(a),
		newExportCommand(a),
		newImportCommand(a),
		newReportCommand(a),
		newSummaryCommand(a),
	)
	return rootCmd
}

func (a *app) open(envPath string) error {
	cfg, err := config.Parse(envPath)
	if err != nil {
		return err
	}
	if err = logger.Configure(cfg.AppEnv, cfg.LogLevel); err != nil {
		return err
	}
	a.cfg = cfg

	dbConf := cfg.Database()
	if dbConf.Driver == db.DriverSQLite {
		if err = os.MkdirAll(filepath.Dir(dbConf.SQLitePath), 0o755); err != nil {
			return fmt.Errorf("create data directory: %w", err)
		}
	}
	a.db, err = db.Open(dbConf)
	if err != nil {
		return err
	}
	if err = db.Migrate(a.db, migrations.FS); err != nil {
		return err
	}

	categoryRepo := repository.NewCategoryRepository(a.db)
	transactionRepo := repository.NewTransactionRepository(a.db)

	categories := services.NewCategoryService(a.db, categoryRepo, transactionRepo, services.NewImageStore(cfg.ImageDir))
	transactions := services.NewTransactionService(a.db, transactionRepo, categoryRepo, repository.NewMonthlyBudgetRepository(a.db))
	a.ledger = state.NewStore(categories, transactions)
	a.balances = services.NewOpeningBalanceService(a.db, repository.NewOpeningBalanceRepository(a.db))
	a.budgets = services.NewMonthlyBudgetService(a.db, repository.NewMonthlyBudgetRepository(a.db), transactionRepo)
	a.reports = services.NewReportService(transactionRepo, cfg.CurrencySymbol)
	a.exchange = services.NewExchangeService(a.db, categoryRepo, transactionRepo)
	return nil
}

func (a *app) close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

func newMigrateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// open already migrated
			fmt.Fprintf(cmd.OutOrStdout(), "%s database is up to date\n", a.db.Driver())
			return nil
		},
	}
}

func newExportCommand(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every category and transaction to an xlsx workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if out == "" {
				out = fmt.Sprintf("xpensemate-%s.xlsx", time.Now().Format("20060102"))
			}
			return writeFile(out, func(w io.Writer) error {
				return a.exchange.Export(cmd.Context(), w)
			}, func() {
				fmt.Fprintf(cmd.OutOrStdout(), "exported to %s\n", out)
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default xpensemate-YYYYMMDD.xlsx)")
	return cmd
}

func newImportCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.xlsx>",
		Short: "Insert the rows of an exported workbook, skipping ids that already exist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			res, err := a.exchange.Import(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "categories: %d inserted, %d skipped\n", res.Categories.Inserted, res.Categories.Skipped)
			fmt.Fprintf(cmd.OutOrStdout(), "transactions: %d inserted, %d skipped\n", res.Transactions.Inserted, res.Transactions.Skipped)
			return nil
		},
	}
}

func newReportCommand(a *app) *cobra.Command {
	var (
		out        string
		typ        string
		from, to   string
		categories []string
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render an HTML report of the selected transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := aggregate.ReportFilter{Type: typ, Categories: categories}
			var err error
			if f.StartDate, err = parseDate("from", from); err != nil {
				return err
			}
			if f.EndDate, err = parseDate("to", to); err != nil {
				return err
			}
			if out == "" || out == "-" {
				return a.reports.Render(cmd.Context(), cmd.OutOrStdout(), f)
			}
			return writeFile(out, func(w io.Writer) error {
				return a.reports.Render(cmd.Context(), w, f)
			}, func() {
				fmt.Fprintf(cmd.OutOrStdout(), "report written to %s\n", out)
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file, stdout when empty")
	cmd.Flags().StringVar(&typ, "type", "all", "all, income or expense")
	cmd.Flags().StringVar(&from, "from", "", "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last day, YYYY-MM-DD")
	cmd.Flags().StringSliceVarP(&categories, "category", "c", nil, "category name, repeatable")
	return cmd
}

func newSummaryCommand(a *app) *cobra.Command {
	var month, year int
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print totals, the wallet and the budget status of a month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			now := time.Now()
			if month == 0 {
				month = int(now.Month())
			}
			if year == 0 {
				year = now.Year()
			}
			return a.printSummary(ctx, cmd.OutOrStdout(), month, year)
		},
	}
	cmd.Flags().IntVar(&month, "month", 0, "month 1-12 (default current)")
	cmd.Flags().IntVar(&year, "year", 0, "year (default current)")
	return cmd
}

func (a *app) printSummary(ctx context.Context, w io.Writer, month, year int) error {
	if err := a.ledger.Refresh(ctx); err != nil {
		return err
	}
	txs := a.ledger.Snapshot().Transactions
	symbol := a.cfg.CurrencySymbol

	opening := decimal.Zero
	current, err := a.balances.Current(ctx)
	switch {
	case err == nil:
		opening = current.Amount
	case !errors.Is(err, model.ErrNotFound):
		return err
	}
	wallet := aggregate.Wallet(opening, txs)

	fmt.Fprintf(w, "income:   %s %s\n", symbol, wallet.Income.StringFixed(2))
	fmt.Fprintf(w, "expense:  %s %s\n", symbol, wallet.Expense.StringFixed(2))
	fmt.Fprintf(w, "opening:  %s %s\n", symbol, wallet.Opening.StringFixed(2))
	fmt.Fprintf(w, "wallet:   %s %s\n", symbol, wallet.Current.StringFixed(2))

	status, err := a.budgets.Status(ctx, month, year)
	switch {
	case errors.Is(err, model.ErrNotFound):
		fmt.Fprintf(w, "budget:   none for %04d-%02d\n", year, month)
		return nil
	case err != nil:
		return err
	}
	label := "within budget"
	if status.Exceeded {
		label = "exceeded"
	}
	fmt.Fprintf(w, "budget:   %s %s spent of %s %s for %04d-%02d (%s)\n",
		symbol, status.Spent.StringFixed(2), symbol, status.Budget.StringFixed(2), year, month, label)
	return nil
}

func parseDate(field, s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := model.ParseDate(field, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// writeFile removes a partially written file when render fails.
func writeFile(path string, render func(io.Writer) error, done func()) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err = render(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	done()
	return nil
}
