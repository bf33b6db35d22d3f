// internal/classify/classify.go
package classify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bartek5186/assets2shop/internal/catalog"
	"github.com/bartek5186/assets2shop/internal/db"
	"github.com/bartek5186/assets2shop/internal/ops"
	"github.com/bartek5186/assets2shop/internal/report"
	"github.com/rs/zerolog"
)

type Config struct {
	Rules     []Rule `json:"rules"`
	OnlyEmpty bool   `json:"only_empty"`
}

type classifyOp struct {
	log zerolog.Logger
	cfg Config
}

func (o *classifyOp) Name() string { return "classify-subtypes" }

// Run przechodzi cały katalog i nadaje podtyp wg tabeli reguł kategorii
// produktu: materiał dla pancerza, typ broni dla broni i tarcz. Kategorie
// bez tabeli zostają unclassified. Idempotentne: zapis tylko gdy wynik
// różni się od stanu w katalogu.
func (o *classifyOp) Run(ctx context.Context, deps ops.Deps, opts ops.Options) (*report.Report, error) {
	rep := report.New(o.Name())

	filter := catalog.ProductFilter{}
	if opts.OnlyEmpty || o.cfg.OnlyEmpty {
		filter.Subtype = db.SubtypeUnclassified
	}

	products, err := deps.Store.ListProducts(filter)
	if err != nil {
		return rep, fmt.Errorf("%w: %v", ops.ErrSystemicStore, err)
	}
	if len(products) == 0 {
		o.log.Warn().Msg("classify: pusty katalog — nic do roboty")
		return rep, nil
	}

	updated, unchanged := 0, 0

	for i := range products {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		p := &products[i]

		// blob tylko z tekstów — kategoria wybiera tabelę, nie wpada do dopasowań
		blob := NormBlob(p.Name, p.LoreShort, p.LoreText)
		subtype, ruleID := Classify(blob, p.Category, o.cfg.Rules)

		if subtype == p.Subtype {
			unchanged++
			rep.Add(p.SKU, report.ActionUnchanged, p.Subtype, subtype, ruleID)
			continue
		}

		before := p.Subtype
		if !opts.DryRun {
			p.Subtype = subtype
			if err := deps.Store.UpsertProduct(p); err != nil {
				rep.Add(p.SKU, report.ActionFailed, before, subtype, err.Error())
				continue
			}
		}
		updated++
		rep.Add(p.SKU, report.ActionUpdated, before, subtype, ruleID)
	}

	o.log.Info().
		Int("processed", len(products)).
		Int("updated", updated).
		Int("unchanged", unchanged).
		Bool("dry_run", opts.DryRun).
		Msg("classify: finished")
	return rep, nil
}

func factory(log zerolog.Logger, raw json.RawMessage) (ops.Operation, error) {
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Rules) == 0 {
		cfg.Rules = DefaultRules()
	}
	return &classifyOp{log: log, cfg: cfg}, nil
}

func init() {
	ops.Register("classify-subtypes", factory)
}
