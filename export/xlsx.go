package export

import (
	"fmt"
	"io"
	"time"

	"github.com/etnz/moneymanager"
	"github.com/xuri/excelize/v2"
)

// Sheet is the name of the worksheet written by XLSX.
const Sheet = "Transactions"

// XLSX writes txs as an Excel workbook with a single sheet. Amounts are
// stored as numbers so that the sheet can compute with them.
func XLSX(w io.Writer, txs []moneymanager.Transaction, now time.Time) error {
	rs, err := rows(txs, now)
	if err != nil {
		return err
	}
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", Sheet); err != nil {
		return fmt.Errorf("cannot name sheet: %w", err)
	}

	set := func(col, line int, v any) error {
		cell, err := excelize.CoordinatesToCellName(col, line)
		if err != nil {
			return err
		}
		return f.SetCellValue(Sheet, cell, v)
	}
	for i, h := range Header {
		if err := set(i+1, 1, h); err != nil {
			return fmt.Errorf("cannot write header: %w", err)
		}
	}
	for i, r := range rs {
		values := []any{r.Title, r.Amount.InexactFloat64(), r.Type.String(), r.When.Format(dateLayout), r.When.Format(timeLayout)}
		for j, v := range values {
			if err := set(j+1, i+2, v); err != nil {
				return fmt.Errorf("cannot write row %q: %w", r.Title, err)
			}
		}
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("cannot write workbook: %w", err)
	}
	return nil
}
