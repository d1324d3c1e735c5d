package moneymanager

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/PaesslerAG/jsonpath"
)

// errFormat reports a payload that is neither a bare value nor a {data}
// envelope.
var errFormat = errors.New("received unexpected data format from server")

// decodeLoose parses JSON keeping numbers exact.
func decodeLoose(body []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// unwrap returns the payload under "data" when body is an envelope
// ({data} or {success, data}), or body itself.
func unwrap(v any) any {
	obj, ok := v.(map[string]any)
	if !ok {
		return v
	}
	data, err := jsonpath.Get("$.data", obj)
	if err != nil || data == nil {
		return v
	}
	return data
}

// decodeList decodes the transaction collection from a list response.
// Records that cannot be decoded are left out and reported in skipped: only
// a payload that is not a list fails.
func decodeList(body []byte) (txs []Transaction, skipped []error, err error) {
	v, err := decodeLoose(body)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errFormat, err)
	}
	list, ok := unwrap(v).([]any)
	if !ok {
		return nil, nil, errFormat
	}
	txs = make([]Transaction, 0, len(list))
	for i, item := range list {
		// reencode each record so that it uses its own decoder.
		data, err := json.Marshal(item)
		if err != nil {
			return nil, nil, err
		}
		var tx Transaction
		if err := json.Unmarshal(data, &tx); err != nil {
			skipped = append(skipped, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		txs = append(txs, tx)
	}
	return txs, skipped, nil
}

// decodeRecord decodes the record echoed by a create or update. ok is
// false when the server did not echo a usable record.
func decodeRecord(body []byte) (tx Transaction, ok bool) {
	v, err := decodeLoose(body)
	if err != nil {
		return tx, false
	}
	obj, isObj := unwrap(v).(map[string]any)
	if !isObj {
		return tx, false
	}
	data, err := json.Marshal(obj)
	if err != nil {
		return tx, false
	}
	if err := json.Unmarshal(data, &tx); err != nil || tx.ID == "" {
		return tx, false
	}
	return tx, true
}
