// internal/ops/types.go
package ops

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/bartek5186/assets2shop/internal/catalog"
	"github.com/bartek5186/assets2shop/internal/media"
	"github.com/bartek5186/assets2shop/internal/report"
	"github.com/rs/zerolog"
)

// Błędy fatalne — przerywają cały przebieg przed jakąkolwiek mutacją.
// Wszystko inne (pojedyncze pliki, niskie score, odmowy nadpisu) ląduje
// w raporcie jako wiersz i przebieg leci dalej.
var (
	ErrUnreadableSource = errors.New("źródło nieosiągalne")
	ErrSystemicStore    = errors.New("błąd systemowy bazy katalogu")
)

// Options — przełączniki per wywołanie (z CLI). Nil = weź z configa operacji.
type Options struct {
	DryRun       bool
	Overwrite    bool
	OnlyEmpty    bool
	Source       string // override źródła dla scan-assets
	Threshold    *float64
	DiscountRate *float64
}

// Deps — zależności wstrzykiwane do operacji
type Deps struct {
	Store catalog.Store
	Media media.Store
}

// Operation — pojedyncza operacja batchowa pipeline'u.
// Run jest idempotentny: ten sam stan wejścia + drugi commit = zero mutacji.
type Operation interface {
	Name() string
	Run(ctx context.Context, deps Deps, opts Options) (*report.Report, error)
}

type Factory func(log zerolog.Logger, raw json.RawMessage) (Operation, error)
