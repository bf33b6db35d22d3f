// internal/scanner/tokenize.go
package scanner

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bartek5186/assets2shop/internal/db"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// AssetRecord — wynik tokenizacji jednej nazwy pliku. Ulotny,
// żyje tylko w obrębie jednego przebiegu.
type AssetRecord struct {
	RawPath     string
	RelPath     string
	TopFolder   string
	SKU         string // znormalizowany identyfikator pliku, np. ALBERICHS_GAUNTLET_L
	BaseName    string // nazwa wyświetlana bez wariantu, np. "Alberich's Gauntlet"
	Variant     string // "l", "r", "altered", ... ("" gdy brak)
	SubtypeHint string // folder + tokeny nazwy, wejście dla klasyfikatora
}

var (
	rePossessive = regexp.MustCompile(`(?i)_s(_|$)`)
	reAltered    = regexp.MustCompile(`(?i)\s*\(altered\)\s*$`)
	reSplit      = regexp.MustCompile(`[_\-\s]+`)
	reBadSKU     = regexp.MustCompile(`[^A-Z0-9_]+`)
	reManyUnders = regexp.MustCompile(`_+`)
	reDigitsOnly = regexp.MustCompile(`^[0-9]+$`)

	titleCaser = cases.Title(language.English)
)

// normSKU — "alberich_s gauntlet-l" -> "ALBERICH_S_GAUNTLET_L"
func normSKU(value string) string {
	value = strings.ToUpper(strings.TrimSpace(value))
	value = strings.ReplaceAll(value, "-", "_")
	value = strings.ReplaceAll(value, " ", "_")
	value = reBadSKU.ReplaceAllString(value, "")
	value = reManyUnders.ReplaceAllString(value, "_")
	return strings.Trim(value, "_")
}

// mapowanie folderu źródłowego na kategorię produktu
func categoryFromFolder(folder string) string {
	switch strings.ToLower(strings.TrimSpace(folder)) {
	case "weapons", "weapon":
		return db.CategoryWeapon
	case "shields", "shield":
		return db.CategoryShield
	case "armour", "armor":
		return db.CategoryArmour
	case "relics", "relic":
		return db.CategoryRelic
	case "consumables", "consumable":
		return db.CategoryConsumable
	default:
		return db.CategoryRelic
	}
}

// Tokenize rozbija jedną ścieżkę assetu na AssetRecord.
// Deterministyczne: te same wejścia -> ten sam rekord. ok=false gdy
// z nazwy nie da się wyciągnąć żadnej tożsamości (sama ikonka "_.png" itp.).
func Tokenize(rawPath, relPath string, noise, variants []string) (AssetRecord, bool) {
	base := filepath.Base(relPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	// dopełniacz w stylu eksportu assetów: alberich_s -> alberich's
	stem = rePossessive.ReplaceAllString(stem, "'s$1")
	stem = reAltered.ReplaceAllString(stem, "")

	noiseSet := toSet(noise)
	variantSet := toSet(variants)

	tokens := reSplit.Split(strings.ToLower(stem), -1)

	// odfiltruj szum: tagi rozdzielczości, same cyfry, tokeny z configa
	kept := tokens[:0]
	for _, t := range tokens {
		if t == "" || noiseSet[t] || reDigitsOnly.MatchString(t) {
			continue
		}
		kept = append(kept, t)
	}

	// wariant = końcowe tokeny z listy wariantów (l, r, altered...)
	var variant []string
	for len(kept) > 0 && variantSet[kept[len(kept)-1]] {
		variant = append([]string{kept[len(kept)-1]}, variant...)
		kept = kept[:len(kept)-1]
	}
	if reAltered.MatchString(base) || strings.Contains(strings.ToLower(base), "(altered)") {
		variant = append(variant, "altered")
	}

	if len(kept) == 0 {
		return AssetRecord{RawPath: rawPath, RelPath: relPath}, false
	}

	sku := normSKU(stem)
	if sku == "" {
		return AssetRecord{RawPath: rawPath, RelPath: relPath}, false
	}

	top := "misc"
	if parts := strings.Split(filepath.ToSlash(relPath), "/"); len(parts) > 1 {
		top = parts[0]
	}

	name := titleCaser.String(strings.Join(kept, " "))

	return AssetRecord{
		RawPath:     rawPath,
		RelPath:     relPath,
		TopFolder:   top,
		SKU:         sku,
		BaseName:    name,
		Variant:     strings.Join(variant, "-"),
		SubtypeHint: top + " " + strings.Join(kept, " "),
	}, true
}

func toSet(ss []string) map[string]bool {
	m := make(map[string]bool, len(ss))
	for _, s := range ss {
		m[strings.ToLower(strings.TrimSpace(s))] = true
	}
	return m
}
