package schema

import (
	"reflect"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Stream-Sentiment-Pipeline/internal/record"
)

func TestExpected(t *testing.T) {
	s := Expected()
	if want := []string{"text"}; !reflect.DeepEqual(s.FieldNames(), want) {
		t.Errorf("FieldNames = %v, want %v", s.FieldNames(), want)
	}
	if !s.Contains("text") {
		t.Error("expected schema to contain text")
	}
	if s.Contains("user") {
		t.Error("schema should not contain user")
	}
}

func TestReconcile(t *testing.T) {
	t.Run("undeclared columns dropped", func(t *testing.T) {
		batch, err := record.Decode([][]byte{
			[]byte(`{"text":"hi","user":"bob","lang":"en"}`),
		})
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		got := Reconcile(batch, Expected())
		if want := []string{"text"}; !reflect.DeepEqual(got.Columns, want) {
			t.Errorf("Columns = %v, want %v", got.Columns, want)
		}
		if len(got.Rows[0]) != 1 {
			t.Errorf("row should keep exactly the text column, got %v", got.Rows[0])
		}
	})

	t.Run("declared column missing stays missing", func(t *testing.T) {
		batch, err := record.Decode([][]byte{
			[]byte(`{"user":"bob"}`),
			[]byte(`{"user":"eve"}`),
		})
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		got := Reconcile(batch, Expected())
		if len(got.Columns) != 0 {
			t.Errorf("Columns = %v, want none", got.Columns)
		}
		if len(got.Rows) != 2 {
			t.Errorf("reconciliation changed the row count: %d", len(got.Rows))
		}

		// Binding the empty projection must still succeed: absent text is
		// an empty record, not an error.
		records, err := record.Bind(got)
		if err != nil {
			t.Fatalf("Bind failed: %v", err)
		}
		for i, r := range records {
			if r.Text != "" {
				t.Errorf("records[%d].Text = %q, want empty", i, r.Text)
			}
		}
	})

	t.Run("no coercion of declared column values", func(t *testing.T) {
		batch, err := record.Decode([][]byte{[]byte(`{"text":123}`)})
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		got := Reconcile(batch, Expected())
		if string(got.Rows[0]["text"]) != "123" {
			t.Errorf("reconcile altered a raw value: %s", got.Rows[0]["text"])
		}
	})
}
