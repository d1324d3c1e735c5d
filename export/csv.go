package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/etnz/moneymanager"
)

// CSV writes txs as comma separated values, header first.
func CSV(w io.Writer, txs []moneymanager.Transaction, now time.Time) error {
	rs, err := rows(txs, now)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("cannot write csv header: %w", err)
	}
	for _, r := range rs {
		if err := cw.Write(r.strings()); err != nil {
			return fmt.Errorf("cannot write csv row %q: %w", r.Title, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
