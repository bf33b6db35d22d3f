// internal/runner/runner.go
package runner

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bartek5186/assets2shop/internal/catalog"
	conf "github.com/bartek5186/assets2shop/internal/config"
	"github.com/bartek5186/assets2shop/internal/media"
	"github.com/bartek5186/assets2shop/internal/ops"
	"github.com/bartek5186/assets2shop/internal/report"
	"github.com/rs/zerolog"

	// rejestracja operacji pipeline'u
	_ "github.com/bartek5186/assets2shop/internal/classify"
	_ "github.com/bartek5186/assets2shop/internal/lore"
	_ "github.com/bartek5186/assets2shop/internal/scanner"
	_ "github.com/bartek5186/assets2shop/internal/sets"
)

// Kolejność ma znaczenie: klasyfikacja i zestawy pracują na produktach,
// które najpierw musi założyć scan.
var pipeline = []string{"scan-assets", "classify-subtypes", "build-sets", "import-lore"}

// wrapper na zbudowaną operację
type builtOp struct {
	Name string
	Inst ops.Operation
}

type Runner struct {
	log     zerolog.Logger
	cfg     *conf.Config
	deps    ops.Deps
	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func New(log zerolog.Logger, cfg *conf.Config, store catalog.Store, m media.Store) *Runner {
	return &Runner{log: log, cfg: cfg, deps: ops.Deps{Store: store, Media: m}}
}

// buildOps instancjuje operacje z sekcji configa przez rejestr fabryk.
// Sekcja bez fabryki = warn i pomijamy, jak nieznana integracja.
func (r *Runner) buildOps(names []string) []builtOp {
	var out []builtOp
	if r.cfg == nil || len(r.cfg.Operations) == 0 {
		r.log.Warn().Msg("Operations: brak lub puste (sprawdź config.json)")
		return out
	}
	for _, name := range names {
		raw, ok := r.cfg.Operations[name]
		if !ok {
			r.log.Warn().Str("op", name).Msg("brak sekcji w configu – pomijam")
			continue
		}
		f, ok := ops.Get(name)
		if !ok {
			r.log.Warn().Str("op", name).Msg("brak fabryki – pomijam")
			continue
		}
		inst, err := f(r.log.With().Str("op", name).Logger(), raw)
		if err != nil {
			r.log.Error().Err(err).Str("op", name).Msg("błąd inicjalizacji")
			continue
		}
		out = append(out, builtOp{Name: name, Inst: inst})
	}
	return out
}

// registeredOps zwraca posortowane nazwy operacji znanych rejestrowi —
// do komunikatów o literówkach w nazwie opa.
func registeredOps() []string {
	var names []string
	for name := range ops.All() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RunOp uruchamia pojedynczą operację i zapisuje jej raport CSV.
func (r *Runner) RunOp(ctx context.Context, name string, opts ops.Options) (*report.Report, error) {
	built := r.buildOps([]string{name})
	if len(built) == 0 {
		return nil, fmt.Errorf("operacja %q niedostępna (zarejestrowane: %s)", name, strings.Join(registeredOps(), ", "))
	}
	return r.runOne(ctx, built[0], opts)
}

// RunOnce przepuszcza cały pipeline w stałej kolejności. Błąd fatalny
// (nieosiągalne źródło, padnięta baza) przerywa przebieg — kolejne
// operacje pracowałyby na niepełnym stanie.
func (r *Runner) RunOnce(ctx context.Context, opts ops.Options) ([]*report.Report, error) {
	built := r.buildOps(pipeline)
	if len(built) == 0 {
		return nil, errors.New("pusty pipeline — żadna operacja nie jest skonfigurowana")
	}

	var reports []*report.Report
	for _, b := range built {
		rep, err := r.runOne(ctx, b, opts)
		if rep != nil {
			reports = append(reports, rep)
		}
		if err != nil {
			return reports, fmt.Errorf("%s: %w", b.Name, err)
		}
	}
	return reports, nil
}

func (r *Runner) runOne(ctx context.Context, b builtOp, opts ops.Options) (*report.Report, error) {
	start := time.Now()
	rep, err := b.Inst.Run(ctx, r.deps, opts)
	if err != nil {
		r.log.Error().Err(err).Str("op", b.Name).Msg("operacja zakończona błędem")
		return rep, err
	}

	r.log.Info().
		Str("op", b.Name).
		Int("rows", rep.Count()).
		Int("mutations", rep.Mutations()).
		Int("warnings", rep.Warnings()).
		Dur("took", time.Since(start)).
		Bool("dry_run", opts.DryRun).
		Msg("operacja zakończona")

	if dir := r.reportDir(); dir != "" {
		path := filepath.Join(dir, b.Name+"_report.csv")
		if werr := rep.WriteCSV(path); werr != nil {
			r.log.Error().Err(werr).Str("path", path).Msg("nie zapisano raportu")
		} else {
			r.log.Info().Str("path", path).Msg("raport zapisany")
		}
	}
	return rep, nil
}

func (r *Runner) reportDir() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cfg != nil {
		return r.cfg.ReportDir
	}
	return ""
}

// ===== tryb watch: cykliczny RunOnce co skonfigurowany interwał =====

func (r *Runner) Start(ctx context.Context, opts ops.Options) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true
	r.wg.Add(1)
	r.mu.Unlock()

	r.log.Info().Dur("interval", r.interval()).Msg("Runner: start (watch)")
	go r.loop(ctx, opts)
	return nil
}

func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	cancel := r.cancel
	r.cancel = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	r.wg.Wait()
	r.log.Info().Msg("Runner: stop")
}

func (r *Runner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *Runner) interval() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cfg != nil && r.cfg.WatchIntervalSeconds > 0 {
		return time.Duration(r.cfg.WatchIntervalSeconds) * time.Second
	}
	return 5 * time.Minute
}

func (r *Runner) loop(ctx context.Context, opts ops.Options) {
	defer r.wg.Done()

	// pierwszy przebieg od razu
	if _, err := r.RunOnce(ctx, opts); err != nil {
		r.log.Error().Err(err).Msg("Runner: przebieg zakończony błędem")
	}

	ticker := time.NewTicker(r.interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("Runner: koniec pętli")
			return
		case <-ticker.C:
			ticker.Reset(r.interval())
			if _, err := r.RunOnce(ctx, opts); err != nil {
				r.log.Error().Err(err).Msg("Runner: przebieg zakończony błędem")
			}
		}
	}
}
