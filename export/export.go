// Package export writes a snapshot of transactions to files and databases.
//
// Exporters never talk to the backend: they are given the records the
// client already holds. Every exporter lays out the same columns.
package export

import (
	"errors"
	"time"

	"github.com/etnz/moneymanager"
)

// ErrNoData is returned when there is nothing to export.
var ErrNoData = errors.New("no data to export")

// Header is the first row of every export.
var Header = []string{"Title", "Amount", "Type", "Date", "Time"}

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04:05"
)

// row is a transaction laid out as export columns.
type row struct {
	Title  string
	Amount moneymanager.Amount
	Type   moneymanager.Kind
	When   time.Time
}

func (r row) strings() []string {
	return []string{r.Title, r.Amount.String(), r.Type.String(), r.When.Format(dateLayout), r.When.Format(timeLayout)}
}

// rows lays out txs, dating the undated ones at now.
func rows(txs []moneymanager.Transaction, now time.Time) ([]row, error) {
	if len(txs) == 0 {
		return nil, ErrNoData
	}
	out := make([]row, 0, len(txs))
	for _, tx := range txs {
		out = append(out, row{Title: tx.Title, Amount: tx.Amount, Type: tx.Kind, When: tx.When(now)})
	}
	return out, nil
}
