// internal/scanner/scanner.go
package scanner

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bartek5186/assets2shop/internal/db"
	"github.com/bartek5186/assets2shop/internal/media"
	"github.com/bartek5186/assets2shop/internal/ops"
	"github.com/bartek5186/assets2shop/internal/report"
	"github.com/rs/zerolog"
)

type Config struct {
	SourceDir         string   `json:"source_dir"`
	Extensions        []string `json:"extensions"`
	NoiseTokens       []string `json:"noise_tokens"`
	VariantTokens     []string `json:"variant_tokens"`
	DefaultPricePence uint     `json:"default_price_pence"`
	DefaultStock      uint     `json:"default_stock"`
	Publish           bool     `json:"publish"`
}

// Scanner — przejście po bibliotece assetów i tokenizacja nazw plików.
type Scanner struct {
	log   zerolog.Logger
	cfg   Config
	media media.Store
}

func New(log zerolog.Logger, cfg Config, m media.Store) *Scanner {
	return &Scanner{log: log, cfg: cfg, media: m}
}

// Each woła fn dla każdego rozpoznanego assetu pod root. Restartowalne —
// każde wywołanie zaczyna od nowa. Zwraca liczbę pominiętych nazw.
// Nieczytelny root = błąd fatalny; pojedyncza zła nazwa = skip + licznik.
func (s *Scanner) Each(root string, fn func(rec AssetRecord) error) (skipped int, err error) {
	files, err := s.media.ListFiles(root)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ops.ErrUnreadableSource, root, err)
	}

	allow := toSet(s.cfg.Extensions)
	rootAbs := media.ExpandHome(root)

	for _, path := range files {
		ext := strings.ToLower(filepath.Ext(path))
		if !allow[ext] {
			continue
		}
		rel, relErr := filepath.Rel(rootAbs, path)
		if relErr != nil {
			rel = filepath.Base(path)
		}

		rec, ok := Tokenize(path, rel, s.cfg.NoiseTokens, s.cfg.VariantTokens)
		if !ok {
			skipped++
			s.log.Warn().Str("file", rel).Msg("scan: nazwa nie do sparsowania — pomijam")
			continue
		}
		if err := fn(rec); err != nil {
			return skipped, err
		}
	}
	return skipped, nil
}

// --- operacja scan-assets ---

type scanOp struct {
	log zerolog.Logger
	cfg Config
}

func (o *scanOp) Name() string { return "scan-assets" }

func (o *scanOp) Run(ctx context.Context, deps ops.Deps, opts ops.Options) (*report.Report, error) {
	root := o.cfg.SourceDir
	if opts.Source != "" {
		root = opts.Source
	}

	rep := report.New(o.Name())
	sc := New(o.log, o.cfg, deps.Media)

	created, updated, unchanged := 0, 0, 0

	skipped, err := sc.Each(root, func(rec AssetRecord) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		existing, err := deps.Store.FindProductBySKU(rec.SKU)
		if err != nil {
			return fmt.Errorf("%w: %v", ops.ErrSystemicStore, err)
		}

		if existing == nil {
			if !opts.DryRun {
				p := &db.Product{
					SKU:        rec.SKU,
					Name:       displayName(rec),
					Category:   categoryFromFolder(rec.TopFolder),
					Subtype:    db.SubtypeUnclassified,
					PricePence: o.cfg.DefaultPricePence,
					StockQty:   o.cfg.DefaultStock,
					Published:  o.cfg.Publish,
					ImageRef:   rec.RelPath,
				}
				if err := deps.Store.UpsertProduct(p); err != nil {
					rep.Add(rec.SKU, report.ActionFailed, "", displayName(rec), err.Error())
					return nil
				}
			}
			created++
			rep.Add(rec.SKU, report.ActionCreated, "", displayName(rec), "nowy asset")
			return nil
		}

		// Istniejący produkt: odświeżamy tylko pola pochodzące z assetu
		// (nazwa, kategoria, obrazek). Cena/stan/lore zostają — to dane
		// katalogu, nie biblioteki plików.
		name := displayName(rec)
		cat := categoryFromFolder(rec.TopFolder)
		if existing.Name == name && existing.Category == cat && existing.ImageRef == rec.RelPath {
			unchanged++
			rep.Add(rec.SKU, report.ActionUnchanged, existing.Name, existing.Name, "")
			return nil
		}

		before := existing.Name
		if !opts.DryRun {
			existing.Name = name
			existing.Category = cat
			existing.ImageRef = rec.RelPath
			if err := deps.Store.UpsertProduct(existing); err != nil {
				rep.Add(rec.SKU, report.ActionFailed, before, name, err.Error())
				return nil
			}
		}
		updated++
		rep.Add(rec.SKU, report.ActionUpdated, before, name, "asset zmieniony")
		return nil
	})
	if err != nil {
		return rep, err
	}

	if skipped > 0 {
		rep.Add(root, report.ActionParseSkip, "", "", fmt.Sprintf("%d nazw nie do sparsowania", skipped))
	}

	o.log.Info().
		Int("created", created).
		Int("updated", updated).
		Int("unchanged", unchanged).
		Int("skipped", skipped).
		Bool("dry_run", opts.DryRun).
		Msg("scan: finished")
	return rep, nil
}

// displayName — nazwa produktu z wariantem w nawiasie: "Alberich's Gauntlet (L)"
func displayName(rec AssetRecord) string {
	if rec.Variant == "" {
		return rec.BaseName
	}
	return rec.BaseName + " (" + strings.ToUpper(rec.Variant) + ")"
}

func factory(log zerolog.Logger, raw json.RawMessage) (ops.Operation, error) {
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}
	return &scanOp{log: log, cfg: cfg}, nil
}

func init() {
	ops.Register("scan-assets", factory)
}
