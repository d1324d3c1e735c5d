package renderer

import (
	"time"

	"github.com/etnz/moneymanager"
)

type transactionRow struct {
	Date, Title, Kind, Amount, ID string
}

// Transactions renders txs as a table, amounts signed in currency. Undated
// transactions are shown at now.
func Transactions(txs []moneymanager.Transaction, currency string, now time.Time) string {
	rows := make([]transactionRow, 0, len(txs))
	for _, tx := range txs {
		rows = append(rows, transactionRow{
			Date:   tx.When(now).Format("2006-01-02 15:04"),
			Title:  cell(tx.Title),
			Kind:   tx.Kind.String(),
			Amount: tx.Signed().Format(currency),
			ID:     tx.ID,
		})
	}
	partials := map[string]string{"transaction_row": "transaction_row.md"}
	return renderTemplate("transactions", "transactions.md", partials, rows)
}
