package moneymanager

import (
	"errors"
	"testing"
)

func TestDecodeList(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		ids     []string
		skipped int
		fails   bool
	}{
		{"bare", `[{"id":"a","title":"x","amount":1,"kind":"INCOME"}]`, []string{"a"}, 0, false},
		{"data", `{"data":[{"_id":"b","title":"x","amount":"2.5","type":"EXPENSES"}]}`, []string{"b"}, 0, false},
		{"success data", `{"success":true,"data":[{"id":7,"title":"x","amount":3,"kind":"expense"}]}`, []string{"7"}, 0, false},
		{"empty", `[]`, nil, 0, false},
		{"object", `{"success":true}`, nil, 0, true},
		{"data not a list", `{"data":{"id":"a"}}`, nil, 0, true},
		{"garbage", `<html>`, nil, 0, true},
		{"no kind", `[{"id":"a","title":"x","amount":1},{"id":"b","title":"y","amount":2,"kind":"INCOME"}]`, []string{"b"}, 1, false},
		{"unknown kind", `[{"id":"a","title":"x","amount":1,"kind":"INCOME"},{"id":"b","title":"y","amount":2,"type":"TRANSFER"}]`, []string{"a"}, 1, false},
		{"not an object", `[42,{"id":"a","title":"x","amount":1,"kind":"INCOME"}]`, []string{"a"}, 1, false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			txs, skipped, err := decodeList([]byte(test.body))
			if test.fails {
				if !errors.Is(err, errFormat) {
					t.Errorf("decodeList() = %v, want errFormat", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("decodeList() failed: %v", err)
			}
			if len(skipped) != test.skipped {
				t.Errorf("decodeList() skipped %v, want %d records", skipped, test.skipped)
			}
			var ids []string
			for _, tx := range txs {
				ids = append(ids, tx.ID)
			}
			if len(ids) != len(test.ids) {
				t.Fatalf("decodeList() ids = %v, want %v", ids, test.ids)
			}
			for i := range ids {
				if ids[i] != test.ids[i] {
					t.Errorf("decodeList() ids = %v, want %v", ids, test.ids)
				}
			}
		})
	}
}

func TestDecodeRecord(t *testing.T) {
	tests := []struct {
		body string
		id   string
		ok   bool
	}{
		{`{"id":"a","title":"x","amount":1,"kind":"INCOME"}`, "a", true},
		{`{"data":{"_id":"b","title":"x","amount":1,"type":"INCOME"}}`, "b", true},
		{`{"success":true,"message":"created"}`, "", false},
		{`{"title":"x","amount":1,"kind":"INCOME"}`, "", false},
		{``, "", false},
	}
	for _, test := range tests {
		tx, ok := decodeRecord([]byte(test.body))
		if ok != test.ok || tx.ID != test.id {
			t.Errorf("decodeRecord(%s) = %q, %v, want %q, %v", test.body, tx.ID, ok, test.id, test.ok)
		}
	}
}
