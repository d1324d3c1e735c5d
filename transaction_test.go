package moneymanager

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestTransaction_UnmarshalJSON(t *testing.T) {
	created := time.Date(2025, 6, 4, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		json string
		want Transaction
	}{
		{
			"canonical",
			`{"id":"a1","title":"Coffee","amount":150,"kind":"EXPENSE","createdAt":"2025-06-04T12:00:00Z"}`,
			Transaction{ID: "a1", Title: "Coffee", Amount: A(150), Kind: Expense, CreatedAt: created},
		},
		{
			"mongo style",
			`{"_id":"65f0","title":"Salary","amount":"2500.75","type":"income","created_at":"2025-06-04 12:00:00"}`,
			Transaction{ID: "65f0", Title: "Salary", Amount: A(2500.75), Kind: Income, CreatedAt: created},
		},
		{
			"numeric id and legacy kind",
			`{"id":12,"title":"Rent","amount":800,"kind":"EXPENSES"}`,
			Transaction{ID: "12", Title: "Rent", Amount: A(800), Kind: Expense},
		},
		{
			"unreadable date",
			`{"id":"x","title":"Tea","amount":2,"kind":"EXPENSE","createdAt":"yesterday","updatedAt":"2025-06-04"}`,
			Transaction{ID: "x", Title: "Tea", Amount: A(2), Kind: Expense, UpdatedAt: time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC)},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var got Transaction
			if err := json.Unmarshal([]byte(test.json), &got); err != nil {
				t.Fatalf("Unmarshal() failed: %v", err)
			}
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Errorf("Unmarshal() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTransaction_UnmarshalJSONErrors(t *testing.T) {
	for _, input := range []string{
		`{"id":"a","title":"x","amount":1}`,
		`{"id":"a","title":"x","amount":1,"kind":"TRANSFER"}`,
		`{"id":"a","title":"x","amount":"abc","kind":"INCOME"}`,
		`{"id":true,"title":"x","amount":1,"kind":"INCOME"}`,
	} {
		var tx Transaction
		if err := json.Unmarshal([]byte(input), &tx); err == nil {
			t.Errorf("Unmarshal(%s) = nil, want an error", input)
		}
	}
}

func TestTransaction_MarshalJSON(t *testing.T) {
	tx := Transaction{ID: "a1", Title: "Coffee", Amount: A(12.5), Kind: Expense}
	data, err := json.Marshal(tx)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"id":"a1","title":"Coffee","amount":12.5,"kind":"EXPENSE"}`
	if string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}
}

func TestTransaction_When(t *testing.T) {
	now := time.Date(2025, 6, 5, 9, 0, 0, 0, time.UTC)
	created := now.Add(-24 * time.Hour)
	if got := (Transaction{CreatedAt: created}).When(now); !got.Equal(created) {
		t.Errorf("When() = %v, want %v", got, created)
	}
	if got := (Transaction{}).When(now); !got.Equal(now) {
		t.Errorf("When() = %v, want %v", got, now)
	}
}

func TestSummarize(t *testing.T) {
	txs := []Transaction{
		{ID: "1", Amount: A(1000), Kind: Income},
		{ID: "2", Amount: A(150), Kind: Expense},
		{ID: "3", Amount: A(0.1), Kind: Expense},
		{ID: "4", Amount: A(0.2), Kind: Expense},
	}
	s := Summarize(txs)
	if !s.Income.Equal(A(1000)) || !s.Expenses.Equal(A(150.3)) || s.Count != 4 {
		t.Errorf("Summarize() = %+v", s)
	}
	if got, want := s.Balance(), A(849.7); !got.Equal(want) {
		t.Errorf("Balance() = %v, want %v", got, want)
	}
	if got := Summarize(nil).Balance(); !got.IsZero() {
		t.Errorf("Summarize(nil).Balance() = %v, want 0", got)
	}
	if got, want := txs[1].Signed(), A(-150); !got.Equal(want) {
		t.Errorf("Signed() = %v, want %v", got, want)
	}
}
