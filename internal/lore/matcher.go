// internal/lore/matcher.go
package lore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/bartek5186/assets2shop/internal/catalog"
	"github.com/bartek5186/assets2shop/internal/db"
	"github.com/bartek5186/assets2shop/internal/ops"
	"github.com/bartek5186/assets2shop/internal/report"
	"github.com/rs/zerolog"
)

type Config struct {
	Path      string  `json:"path"`
	Encoding  string  `json:"encoding"`
	Threshold float64 `json:"threshold"`
	HardFloor float64 `json:"hard_floor"`
}

type loreOp struct {
	log zerolog.Logger
	cfg Config
}

func (o *loreOp) Name() string { return "import-lore" }

// Run dopasowuje bloki lore do produktów po podobieństwie nazw i dopina
// tekst powyżej progu pewności. Nic poniżej progu nie jest dopinane na siłę,
// istniejące lore nie jest nadpisywane bez flagi overwrite.
func (o *loreOp) Run(ctx context.Context, deps ops.Deps, opts ops.Options) (*report.Report, error) {
	rep := report.New(o.Name())

	threshold := o.cfg.Threshold
	if opts.Threshold != nil {
		threshold = *opts.Threshold
	}
	if threshold <= 0 || threshold > 1 {
		threshold = 0.93
	}
	floor := o.cfg.HardFloor
	if floor <= 0 {
		floor = 0.75
	}

	entries, orphans, err := ParseFile(deps.Media, o.cfg.Path, o.cfg.Encoding)
	if err != nil {
		return rep, err
	}
	if orphans > 0 {
		rep.Add(o.cfg.Path, report.ActionParseSkip, "", "", fmt.Sprintf("%d linii bez nagłówka", orphans))
	}
	if len(entries) == 0 {
		o.log.Warn().Str("path", o.cfg.Path).Msg("lore: zero wpisów — sprawdź format pliku")
		return rep, nil
	}

	products, err := deps.Store.ListProducts(catalog.ProductFilter{})
	if err != nil {
		return rep, fmt.Errorf("%w: %v", ops.ErrSystemicStore, err)
	}
	if len(products) == 0 {
		o.log.Warn().Msg("lore: pusty katalog — najpierw scan-assets")
		return rep, nil
	}

	// prekomputacja znormalizowanych nazw — jedna na produkt, nie na parę
	norms := make([]string, len(products))
	for i := range products {
		norms[i] = NormName(products[i].Name)
	}

	updated, unmatched, lowConf, refused := 0, 0, 0, 0
	attachedThisRun := map[uint]bool{}

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return rep, err
		}

		idx, score := bestMatch(NormName(e.Name), products, norms)
		scoreTxt := fmt.Sprintf("score=%.3f", score)

		if idx < 0 || score < floor {
			unmatched++
			rep.Add(e.SourceKey, report.ActionUnmatched, "", "", scoreTxt+" name="+e.Name)
			continue
		}

		p := &products[idx]
		detail := scoreTxt + " sku=" + p.SKU

		if score < threshold {
			lowConf++
			rep.Add(e.SourceKey, report.ActionLowConfidence, "", "", detail)
			continue
		}

		if attachedThisRun[p.ID] {
			rep.Add(e.SourceKey, report.ActionDupSkipped, "", "", detail)
			continue
		}

		if p.LoreText == e.Text {
			attachedThisRun[p.ID] = true
			rep.Add(e.SourceKey, report.ActionUnchanged, "", "", detail)
			continue
		}

		if p.LoreText != "" && !opts.Overwrite {
			refused++
			// poprzednia wartość zostaje nietknięta i trafia do raportu
			rep.Add(e.SourceKey, report.ActionRefused, p.LoreText, "", detail+" — istniejące lore, brak flagi overwrite")
			continue
		}

		before := p.LoreText
		if !opts.DryRun {
			p.LoreShort = shortDesc(e.Text)
			p.LoreText = e.Text
			if err := deps.Store.UpsertProduct(p); err != nil {
				rep.Add(e.SourceKey, report.ActionFailed, before, "", err.Error())
				continue
			}
		}
		attachedThisRun[p.ID] = true
		updated++
		rep.Add(e.SourceKey, report.ActionUpdated, before, e.Text, detail)
	}

	o.log.Info().
		Int("entries", len(entries)).
		Int("updated", updated).
		Int("low_confidence", lowConf).
		Int("unmatched", unmatched).
		Int("refused", refused).
		Float64("threshold", threshold).
		Bool("dry_run", opts.DryRun).
		Msg("lore: finished")
	return rep, nil
}

// bestMatch — najwyższy Ratio; remisy: mniejszy dystans edycyjny,
// potem kolejność wstawienia do katalogu (niższe ID).
func bestMatch(target string, products []db.Product, norms []string) (int, float64) {
	best := -1
	bestScore := 0.0
	bestDist := 0
	for i := range products {
		s := Ratio(target, norms[i])
		switch {
		case best < 0 || s > bestScore:
			best, bestScore, bestDist = i, s, levenshtein.ComputeDistance(target, norms[i])
		case s == bestScore:
			if d := levenshtein.ComputeDistance(target, norms[i]); d < bestDist {
				best, bestDist = i, d
			}
			// d >= bestDist: zostaje wcześniejszy (niższe ID)
		}
	}
	return best, bestScore
}

// shortDesc — pierwsza linia opisu przycięta do 200 znaków.
// Cięcie po runach, nie bajtach — opisy bywają z diakrytykami.
func shortDesc(text string) string {
	first := strings.TrimSpace(strings.SplitN(text, "\n", 2)[0])
	if runes := []rune(first); len(runes) > 200 {
		return string(runes[:197]) + "..."
	}
	return first
}

func factory(log zerolog.Logger, raw json.RawMessage) (ops.Operation, error) {
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}
	return &loreOp{log: log, cfg: cfg}, nil
}

func init() {
	ops.Register("import-lore", factory)
}
