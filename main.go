package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/bartek5186/assets2shop/internal/catalog"
	conf "github.com/bartek5186/assets2shop/internal/config"
	"github.com/bartek5186/assets2shop/internal/db"
	logs "github.com/bartek5186/assets2shop/internal/logs"
	"github.com/bartek5186/assets2shop/internal/media"
	"github.com/bartek5186/assets2shop/internal/ops"
	"github.com/bartek5186/assets2shop/internal/report"
	"github.com/bartek5186/assets2shop/internal/runner"
)

var ver = "1.0.0"

// flagi globalne
var (
	flagConfig string
	flagDryRun bool
)

// flagi per operacja
var (
	flagSource    string
	flagOnlyEmpty bool
	flagOverwrite bool
	flagThreshold float64
	flagDiscount  float64
	flagWatch     bool
)

// app trzyma wszystko, co zbootstrapowane raz na proces
type app struct {
	log zerolog.Logger
	cfg *conf.Config
	run *runner.Runner
}

func bootstrap() (*app, func(), error) {
	appDir := mustAppDataDir("assets2shop")
	log := logs.New(filepath.Join(appDir, "app.log"), true)

	cfgPath := flagConfig
	if cfgPath == "" {
		cfgPath = filepath.Join(appDir, "config.json")
	}
	cfg, firstRun, err := conf.LoadOrCreate(cfgPath)
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	if firstRun {
		log.Info().Msgf("Utworzono domyślną konfigurację: %s", cfgPath)
	}

	dbh, err := db.Open(cfg.DB.Driver, cfg.DB.DSN, appDir)
	if err != nil {
		return nil, nil, fmt.Errorf("DB open: %w", err)
	}
	if err := dbh.Migrate(); err != nil {
		return nil, nil, fmt.Errorf("DB migrate: %w", err)
	}
	log.Info().Str("db", dbh.Path).Msg("DB ready")

	closeFn := func() {
		if sqlDB, err := dbh.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}

	a := &app{
		log: log,
		cfg: cfg,
		run: runner.New(log, cfg, catalog.NewStore(dbh.DB), media.NewLocal()),
	}
	return a, closeFn, nil
}

func mustAppDataDir(name string) string {
	base, err := os.UserConfigDir()
	if err != nil {
		panic(err)
	}
	p := filepath.Join(base, name)
	_ = os.MkdirAll(p, 0o755)
	return p
}

func cliOptions(cmd *cobra.Command) ops.Options {
	o := ops.Options{
		DryRun:    flagDryRun,
		Overwrite: flagOverwrite,
		OnlyEmpty: flagOnlyEmpty,
		Source:    flagSource,
	}
	if cmd.Flags().Changed("threshold") {
		o.Threshold = &flagThreshold
	}
	if cmd.Flags().Changed("discount-rate") {
		o.DiscountRate = &flagDiscount
	}
	return o
}

// summarize drukuje podsumowanie na stdout — log file ma pełen przebieg,
// operator dostaje jedną linię na operację.
func summarize(reports []*report.Report) (warnings int) {
	for _, rep := range reports {
		warnings += rep.Warnings()
		fmt.Printf("%s: %d wierszy, %d zmian, %d ostrzeżeń\n",
			rep.Op, rep.Count(), rep.Mutations(), rep.Warnings())
	}
	return warnings
}

// opCommand — wspólny szkielet komendy jednej operacji
func opCommand(use, short, opName string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, closeFn, err := bootstrap()
			if err != nil {
				return err
			}
			defer closeFn()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			rep, err := a.run.RunOp(ctx, opName, cliOptions(cmd))
			if rep != nil {
				summarize([]*report.Report{rep})
			}
			return err
		},
	}
}

func main() {
	root := &cobra.Command{
		Use:           "assets2shop",
		Short:         "Pipeline katalogu: assety graficzne -> produkty, zestawy i opisy",
		Version:       ver,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "ścieżka do config.json (domyślnie katalog aplikacji)")
	root.PersistentFlags().BoolVar(&flagDryRun, "dry-run", false, "raportuj zmiany bez zapisu do bazy")

	scanCmd := opCommand("scan", "Skanuj bibliotekę assetów i załóż/odśwież produkty", "scan-assets")
	scanCmd.Flags().StringVar(&flagSource, "source", "", "katalog źródłowy (nadpisuje config)")

	classifyCmd := opCommand("classify", "Klasyfikuj podtypy pancerza wg reguł", "classify-subtypes")
	classifyCmd.Flags().BoolVar(&flagOnlyEmpty, "only-empty", false, "tylko produkty bez podtypu")

	setsCmd := opCommand("build-sets", "Grupuj produkty w zestawy i licz ceny pakietowe", "build-sets")
	setsCmd.Flags().Float64Var(&flagDiscount, "discount-rate", 0, "rabat pakietu (nadpisuje config)")

	loreCmd := opCommand("import-lore", "Dopasuj opisy lore do produktów", "import-lore")
	loreCmd.Flags().Float64Var(&flagThreshold, "threshold", 0, "próg pewności dopasowania (nadpisuje config)")
	loreCmd.Flags().BoolVar(&flagOverwrite, "overwrite", false, "nadpisuj istniejące opisy")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Cały pipeline w jednym przebiegu (lub cyklicznie z --watch)",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, closeFn, err := bootstrap()
			if err != nil {
				return err
			}
			defer closeFn()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			opts := cliOptions(cmd)

			if flagWatch {
				if err := a.run.Start(ctx, opts); err != nil {
					return err
				}
				fmt.Printf("assets2shop %s — watch, Ctrl+C kończy\n", ver)
				<-ctx.Done()
				a.run.Stop()
				return nil
			}

			reports, err := a.run.RunOnce(ctx, opts)
			warnings := summarize(reports)
			if err != nil {
				return err
			}
			if warnings > 0 {
				a.log.Warn().Int("warnings", warnings).Msg("przebieg zakończony z ostrzeżeniami")
			}
			return nil
		},
	}
	runCmd.Flags().BoolVar(&flagWatch, "watch", false, "powtarzaj przebieg co watch_interval_seconds")
	runCmd.Flags().StringVar(&flagSource, "source", "", "katalog źródłowy (nadpisuje config)")
	runCmd.Flags().BoolVar(&flagOverwrite, "overwrite", false, "nadpisuj istniejące opisy lore")
	runCmd.Flags().BoolVar(&flagOnlyEmpty, "only-empty", false, "klasyfikuj tylko produkty bez podtypu")
	runCmd.Flags().Float64Var(&flagThreshold, "threshold", 0, "próg pewności dopasowania lore")
	runCmd.Flags().Float64Var(&flagDiscount, "discount-rate", 0, "rabat pakietu zestawu")

	root.AddCommand(scanCmd, classifyCmd, setsCmd, loreCmd, runCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "błąd:", err)
		os.Exit(1)
	}
}
