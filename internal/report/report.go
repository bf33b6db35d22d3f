// internal/report/report.go
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Akcje raportu. Format jest stabilny między przebiegami (dla zewnętrznego diffa),
// więc nowe akcje tylko dopisujemy, nigdy nie zmieniamy istniejących.
const (
	ActionCreated       = "created"
	ActionUpdated       = "updated"
	ActionUnchanged     = "unchanged"
	ActionSkip          = "skip"
	ActionParseSkip     = "parse_skip"
	ActionAmbiguous     = "ambiguous_grouping"
	ActionLowConfidence = "low_confidence"
	ActionUnmatched     = "unmatched"
	ActionRefused       = "overwrite_refused"
	ActionDupSkipped    = "duplicate_skipped"
	ActionFailed        = "persist_failed"
)

// Akcje traktowane jako ostrzeżenia (run kończy się "success-with-warnings")
var warnActions = map[string]bool{
	ActionParseSkip:     true,
	ActionAmbiguous:     true,
	ActionLowConfidence: true,
	ActionUnmatched:     true,
	ActionRefused:       true,
	ActionDupSkipped:    true,
	ActionFailed:        true,
}

type Row struct {
	Subject string
	Action  string
	Before  string
	After   string
	Reason  string
}

type Report struct {
	RunID     string
	Op        string
	StartedAt time.Time
	Rows      []Row
}

func New(op string) *Report {
	return &Report{
		RunID:     uuid.NewString(),
		Op:        op,
		StartedAt: time.Now(),
	}
}

func (r *Report) Add(subject, action, before, after, reason string) {
	r.Rows = append(r.Rows, Row{Subject: subject, Action: action, Before: before, After: after, Reason: reason})
}

// Count zlicza wiersze o podanych akcjach (bez argumentów = wszystkie)
func (r *Report) Count(actions ...string) int {
	if len(actions) == 0 {
		return len(r.Rows)
	}
	want := map[string]bool{}
	for _, a := range actions {
		want[a] = true
	}
	n := 0
	for _, row := range r.Rows {
		if want[row.Action] {
			n++
		}
	}
	return n
}

func (r *Report) Warnings() int {
	n := 0
	for _, row := range r.Rows {
		if warnActions[row.Action] {
			n++
		}
	}
	return n
}

// Mutations — liczba wierszy, które oznaczają (proponowaną) zmianę w katalogu.
// Drugi przebieg na niezmienionych danych musi dać tu zero.
func (r *Report) Mutations() int {
	return r.Count(ActionCreated, ActionUpdated)
}

// WriteCSV zapisuje raport w stałym układzie kolumn:
// subject,action,before,after,reason — kolejność wierszy = kolejność wejścia.
func (r *Report) WriteCSV(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("katalog raportu: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("zapis raportu: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"subject", "action", "before", "after", "reason"}); err != nil {
		return err
	}
	for _, row := range r.Rows {
		if err := w.Write([]string{row.Subject, row.Action, row.Before, row.After, row.Reason}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
