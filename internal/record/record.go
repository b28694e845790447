// Package record decodes raw topic payloads into column-addressable
// micro-batches and binds them to the pipeline's record type.
package record

import (
	"encoding/json"
	"sort"

	apperrors "github.com/Adithya-Monish-Kumar-K/Stream-Sentiment-Pipeline/pkg/errors"
)

// FieldText is the one column the pipeline consumes.
const FieldText = "text"

// RawRecord is the static shape of an incoming post. The text is nullable on
// the wire; an absent or null value binds to the empty string.
type RawRecord struct {
	Text string `json:"text"`
}

// Batch is a decoded micro-batch. Columns holds the union of keys observed
// across rows, sorted; Rows keep their values raw until Bind.
type Batch struct {
	Columns []string
	Rows    []map[string]json.RawMessage
}

// Decode parses each payload as a JSON object. Any payload that is not an
// object fails the whole batch; the stream has no skip lane for corrupt
// input.
func Decode(payloads [][]byte) (Batch, error) {
	rows := make([]map[string]json.RawMessage, 0, len(payloads))
	seen := make(map[string]struct{})
	for i, payload := range payloads {
		var row map[string]json.RawMessage
		if err := json.Unmarshal(payload, &row); err != nil {
			return Batch{}, apperrors.Newf(apperrors.ErrDecode, "decode",
				"payload %d is not a JSON object: %v", i, err)
		}
		if row == nil {
			return Batch{}, apperrors.Newf(apperrors.ErrDecode, "decode",
				"payload %d is null", i)
		}
		for key := range row {
			seen[key] = struct{}{}
		}
		rows = append(rows, row)
	}

	columns := make([]string, 0, len(seen))
	for key := range seen {
		columns = append(columns, key)
	}
	sort.Strings(columns)
	return Batch{Columns: columns, Rows: rows}, nil
}

// Project returns a copy of the batch restricted to the given columns. Rows
// lose any value whose key is not listed; listed columns absent from a row
// stay absent.
func (b Batch) Project(columns []string) Batch {
	keep := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		keep[c] = struct{}{}
	}
	rows := make([]map[string]json.RawMessage, len(b.Rows))
	for i, row := range b.Rows {
		projected := make(map[string]json.RawMessage, len(columns))
		for key, val := range row {
			if _, ok := keep[key]; ok {
				projected[key] = val
			}
		}
		rows[i] = projected
	}
	return Batch{Columns: append([]string(nil), columns...), Rows: rows}
}

// Bind converts reconciled rows to RawRecords, in row order. Absent or null
// text binds to the empty string and contributes no tokens downstream; text
// of any other JSON type fails the batch.
func Bind(b Batch) ([]RawRecord, error) {
	records := make([]RawRecord, len(b.Rows))
	for i, row := range b.Rows {
		raw, ok := row[FieldText]
		if !ok || string(raw) == "null" {
			continue
		}
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return nil, apperrors.Newf(apperrors.ErrDecode, "decode",
				"row %d: %s is not a string: %v", i, FieldText, err)
		}
		records[i] = RawRecord{Text: text}
	}
	return records, nil
}
