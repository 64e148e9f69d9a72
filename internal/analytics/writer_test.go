package analytics

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"google.golang.org/api/googleapi"

	pkgbigquery "github.com/adsparkhq/adspark-backend/pkg/bigquery"
)

func TestNewWriterValidation(t *testing.T) {
	if _, err := NewWriter(nil, Config{GenerationEventsTable: "generation_events"}); err == nil {
		t.Fatal("expected error when client missing")
	}
	if _, err := NewWriter(&pkgbigquery.Client{}, Config{GenerationEventsTable: " "}); err == nil {
		t.Fatal("expected error when table missing")
	}
}

func TestWriterRetriesOnTransientError(t *testing.T) {
	writer, fake := newWriterWithFakeInserter(t)
	fake.responses = []error{
		&googleapi.Error{Code: http.StatusServiceUnavailable},
		nil,
	}

	if err := writer.Insert(context.Background(), GenerationEventRow{EventID: "1"}); err != nil {
		t.Fatalf("unexpected error writing row: %v", err)
	}
	if len(fake.calls) != 2 {
		t.Fatalf("expected two insert attempts, got %d", len(fake.calls))
	}
	if fake.calls[1].table != "generation_events" {
		t.Fatalf("expected generation_events table on retry, got %s", fake.calls[1].table)
	}
}

func TestWriterDoesNotRetryPermanentError(t *testing.T) {
	writer, fake := newWriterWithFakeInserter(t)
	fake.responses = []error{
		&googleapi.Error{Code: http.StatusBadRequest},
		nil,
	}

	if err := writer.Insert(context.Background(), GenerationEventRow{EventID: "1"}); err == nil {
		t.Fatal("expected permanent error to surface")
	}
	if len(fake.calls) != 1 {
		t.Fatalf("expected single attempt, got %d", len(fake.calls))
	}
}

func TestEncodeJSON(t *testing.T) {
	nj, err := EncodeJSON(map[string]any{"foo": "bar"})
	if err != nil {
		t.Fatalf("unexpected error encoding json: %v", err)
	}
	if !nj.Valid {
		t.Fatal("expected json to be marked valid")
	}

	nj, err = EncodeJSON(nil)
	if err != nil {
		t.Fatalf("unexpected error for nil json: %v", err)
	}
	if nj.Valid {
		t.Fatal("expected nil json to be invalid")
	}

	rawMessage := json.RawMessage(`{"foo":"baz"}`)
	nj, err = EncodeJSON(rawMessage)
	if err != nil {
		t.Fatalf("unexpected error encoding raw json: %v", err)
	}
	if nj.JSONVal != string(rawMessage) {
		t.Fatalf("expected raw json passed through, got %s", nj.JSONVal)
	}
}

func TestRecorderNilIsNoop(t *testing.T) {
	var recorder *Recorder
	recorder.JobCreated(context.Background(), "1700000000001", "a@example.com", "image")
	recorder.CreditsDebited(context.Background(), "1700000000001", "a@example.com", "image", 2)
}

func TestRecorderPopulatesRow(t *testing.T) {
	fake := &fakeInserter{table: "generation_events"}
	recorder := &Recorder{writer: recorderInserter{fake}, now: time.Now}

	recorder.CreditsDebited(context.Background(), "1700000000001", "a@example.com", "avatar", 5)

	if len(fake.calls) != 1 {
		t.Fatalf("expected one insert, got %d", len(fake.calls))
	}
	row := fake.rows[0]
	if row.EventType != EventCreditsDebited {
		t.Fatalf("unexpected event type %q", row.EventType)
	}
	if row.EventID == "" || row.OccurredAt.IsZero() {
		t.Fatal("expected event id and timestamp to be set")
	}
	if row.CreditsDelta == nil || *row.CreditsDelta != -5 {
		t.Fatalf("expected delta -5, got %v", row.CreditsDelta)
	}
}

type insertCall struct {
	table    string
	rowCount int
}

type fakeInserter struct {
	table     string
	responses []error
	calls     []insertCall
	rows      []GenerationEventRow
	index     int
}

func (f *fakeInserter) InsertRows(_ context.Context, table string, rows []any) error {
	f.calls = append(f.calls, insertCall{table: table, rowCount: len(rows)})
	for _, raw := range rows {
		if row, ok := raw.(*GenerationEventRow); ok {
			f.rows = append(f.rows, *row)
		}
	}
	var err error
	if f.index < len(f.responses) {
		err = f.responses[f.index]
	}
	f.index++
	return err
}

// recorderInserter adapts the fake inserter to the recorder's row interface.
type recorderInserter struct {
	fake *fakeInserter
}

func (r recorderInserter) Insert(ctx context.Context, row GenerationEventRow) error {
	return r.fake.InsertRows(ctx, r.fake.table, []any{&row})
}

func newWriterWithFakeInserter(t *testing.T) (*BigQueryWriter, *fakeInserter) {
	t.Helper()
	writer, err := NewWriter(&pkgbigquery.Client{}, Config{GenerationEventsTable: "generation_events"})
	if err != nil {
		t.Fatalf("construct writer: %v", err)
	}

	fake := &fakeInserter{}
	writer.client = fake
	return writer, fake
}
