package renderer

import (
	"github.com/etnz/moneymanager"
)

// Summary renders the aggregates of a set of transactions.
func Summary(s moneymanager.Summary, currency string) string {
	data := struct {
		Income, Expenses, Balance string
		Count                     int
	}{
		Income:   s.Income.Format(currency),
		Expenses: s.Expenses.Format(currency),
		Balance:  s.Balance().Format(currency),
		Count:    s.Count,
	}
	return renderTemplate("summary", "summary.md", nil, data)
}
