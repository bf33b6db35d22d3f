// internal/config/config.go
package conf

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bartek5186/assets2shop/internal/classify"
)

// Główny config aplikacji
type Config struct {
	ReportDir            string                     `json:"report_dir"`
	WatchIntervalSeconds int                        `json:"watch_interval_seconds"` // 0 = bez trybu watch
	DB                   DBConfig                   `json:"db"`
	Operations           map[string]json.RawMessage `json:"operations"` // nazwa -> surowy JSON operacji
}

type DBConfig struct {
	Driver string `json:"driver"` // sqlite | mysql | postgres
	DSN    string `json:"dsn"`    // dla sqlite: ścieżka pliku, "" = domyślna w katalogu aplikacji
}

// Domyślne configi operacji (używane do wygenerowania JSON-a przy pierwszym starcie).
// Struktury docelowe żyją w pakietach operacji — tu tylko duplikat pod defaulty.
type ScanDefaults struct {
	SourceDir         string   `json:"source_dir"`
	Extensions        []string `json:"extensions"`
	NoiseTokens       []string `json:"noise_tokens"`
	VariantTokens     []string `json:"variant_tokens"`
	DefaultPricePence uint     `json:"default_price_pence"`
	DefaultStock      uint     `json:"default_stock"`
	Publish           bool     `json:"publish"`
}

type ClassifyDefaults struct {
	Rules     []classify.Rule `json:"rules"`
	OnlyEmpty bool            `json:"only_empty"`
}

type SetsDefaults struct {
	PieceWords    []string `json:"piece_words"`
	PrimaryPrefer []string `json:"primary_prefer"`
	DiscountRate  float64  `json:"discount_rate"`
	MinSize       int      `json:"min_size"`
}

type LoreDefaults struct {
	Path      string  `json:"path"`
	Encoding  string  `json:"encoding"` // etykieta charset, np. "utf-8", "windows-1250"
	Threshold float64 `json:"threshold"`
	HardFloor float64 `json:"hard_floor"`
}

func LoadOrCreate(path string) (*Config, bool, error) {
	// upewnij się, że katalog istnieje
	_ = os.MkdirAll(filepath.Dir(path), 0o755)

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := Default()
			if err := Save(path, cfg); err != nil {
				return nil, false, fmt.Errorf("błąd zapisu domyślnego configa: %w", err)
			}
			return cfg, true, nil
		}
		return nil, false, fmt.Errorf("błąd otwierania configa: %w", err)
	}
	defer f.Close()

	var cfg Config
	if err := json.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, false, fmt.Errorf("błąd parsowania configa: %w", err)
	}
	if cfg.Operations == nil {
		cfg.Operations = map[string]json.RawMessage{}
	}
	return &cfg, false, nil
}

// Default — pełny config z sekcjami wszystkich operacji pipeline'u.
func Default() *Config {
	scan := ScanDefaults{
		SourceDir:         "./asset_library",
		Extensions:        []string{".png", ".jpg", ".jpeg", ".webp"},
		NoiseTokens:       []string{"1024", "2048", "4k", "2x", "hd", "final", "copy"},
		VariantTokens:     []string{"l", "r", "left", "right", "altered", "alt"},
		DefaultPricePence: 999,
		DefaultStock:      0,
		Publish:           false,
	}
	cls := ClassifyDefaults{
		Rules:     classify.DefaultRules(),
		OnlyEmpty: false,
	}
	sets := SetsDefaults{
		PieceWords: []string{
			"helm", "helmet", "hood", "hat", "mask", "crown",
			"robe", "armor", "armour", "chest", "cuirass", "garb", "coat",
			"gauntlet", "gauntlets", "gloves", "bracers", "manchettes",
			"greaves", "boots", "trousers", "leggings", "legwraps",
			"headband",
		},
		PrimaryPrefer: []string{"robe", "armor", "armour", "cuirass", "chest", "garb", "coat"},
		DiscountRate:  0.10,
		MinSize:       2,
	}
	lore := LoreDefaults{
		Path:      "./data/lore.txt",
		Encoding:  "utf-8",
		Threshold: 0.93,
		HardFloor: 0.75,
	}

	rawScan, _ := json.Marshal(scan)
	rawCls, _ := json.Marshal(cls)
	rawSets, _ := json.Marshal(sets)
	rawLore, _ := json.Marshal(lore)

	return &Config{
		ReportDir:            "reports",
		WatchIntervalSeconds: 0,
		DB:                   DBConfig{Driver: "sqlite"},
		Operations: map[string]json.RawMessage{
			"scan-assets":       rawScan,
			"classify-subtypes": rawCls,
			"build-sets":        rawSets,
			"import-lore":       rawLore,
		},
	}
}

func Save(path string, cfg *Config) error {
	_ = os.MkdirAll(filepath.Dir(path), 0o755)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(cfg)
}

// Helper do odczytu configa konkretnej operacji do struktury docelowej
func (c *Config) UnmarshalOperation(name string, v any) error {
	raw, ok := c.Operations[name]
	if !ok {
		return fmt.Errorf("brak operacji %q w configu", name)
	}
	return json.Unmarshal(raw, v)
}
