package moneymanager

// Summary holds the aggregates derived from a set of transactions.
type Summary struct {
	Income   Amount
	Expenses Amount
	Count    int
}

// Balance is what is left: income minus expenses.
func (s Summary) Balance() Amount { return s.Income.Sub(s.Expenses) }

// Summarize computes the aggregates of txs.
func Summarize(txs []Transaction) Summary {
	var s Summary
	for _, tx := range txs {
		switch tx.Kind {
		case Income:
			s.Income = s.Income.Add(tx.Amount)
		case Expense:
			s.Expenses = s.Expenses.Add(tx.Amount)
		}
		s.Count++
	}
	return s
}
