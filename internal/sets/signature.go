// internal/sets/signature.go
package sets

import (
	"regexp"
	"sort"
	"strings"

	"github.com/bartek5186/assets2shop/internal/db"
	"github.com/shopspring/decimal"
)

var (
	reVariantSuffix = regexp.MustCompile(`(?i)\s*\((l|r|left|right|altered|alt|[a-z]+-[a-z]+)\)\s*$`)
	reSpaces        = regexp.MustCompile(`\s+`)
	reSlugBad       = regexp.MustCompile(`[^a-z0-9]+`)
)

// Signature wyprowadza sygnaturę grupy z nazwy produktu:
// odcina wariant "(L)"/"(Altered)" i KOŃCOWE słowo-część ("Helm", "Robe"...).
// Zwraca (klucz lowercase, stem w oryginalnej pisowni). Pusta sygnatura =
// nazwa była samą częścią — element nie do pogrupowania.
func Signature(name string, pieceWords []string) (key, display string) {
	s := strings.TrimSpace(name)
	s = reVariantSuffix.ReplaceAllString(s, "")
	s = reSpaces.ReplaceAllString(s, " ")

	lower := strings.ToLower(s)
	for _, w := range pieceWords {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		if strings.HasSuffix(lower, " "+w) {
			s = strings.TrimSpace(s[:len(s)-len(w)-1])
			break
		}
		if lower == w {
			// nazwa to sama część ("Helm.png") — brak tożsamości zestawu
			return "", ""
		}
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return "", ""
	}
	return strings.ToLower(s), s
}

// SetName — nazwa zestawu z sygnatury. Pojedynczy człon dostaje dopełniacz
// ("Alberich" -> "Alberich's Set"), wielowyrazowe stemy bez zmian
// ("Banished Knight" -> "Banished Knight Set").
func SetName(display string) string {
	if display == "" {
		return ""
	}
	if !strings.Contains(display, " ") && !strings.HasSuffix(strings.ToLower(display), "'s") {
		return display + "'s Set"
	}
	return display + " Set"
}

func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, "'", "")
	s = reSlugBad.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// BundlePence = suma cen członków × (1 − rabat), zaokrąglana do pełnego pensa.
func BundlePence(members []db.Product, discountRate float64) uint {
	sum := decimal.Zero
	for _, m := range members {
		sum = sum.Add(decimal.NewFromInt(int64(m.PricePence)))
	}
	factor := decimal.NewFromInt(1).Sub(decimal.NewFromFloat(discountRate))
	out := sum.Mul(factor).Round(0).IntPart()
	if out < 0 {
		return 0
	}
	return uint(out)
}

// ChoosePrimary — element "główny" zestawu (robe/armor/chest przed resztą);
// remis rozstrzyga niższe ID. Z niego bierzemy hero image.
func ChoosePrimary(members []db.Product, prefer []string) db.Product {
	best := members[0]
	bestScore := -1
	for _, m := range members {
		score := 0
		name := strings.ToLower(m.Name)
		for i, kw := range prefer {
			if strings.Contains(name, strings.ToLower(kw)) {
				score = 100 - i
				break
			}
		}
		if score > bestScore {
			best = m
			bestScore = score
		}
	}
	return best
}

// ResolveOwner — element pasujący do kilku sygnatur trafia do dokładnie
// jednego zestawu: najdłuższa sygnatura wygrywa, remis leksykograficznie.
// Pozostałe kandydatury wracają jako powiązania "dostępny w".
func ResolveOwner(candidates []string) (owner string, rest []string) {
	if len(candidates) == 0 {
		return "", nil
	}
	sorted := append([]string(nil), candidates...)
	sort.Slice(sorted, func(i, j int) bool {
		if len(sorted[i]) != len(sorted[j]) {
			return len(sorted[i]) > len(sorted[j])
		}
		return sorted[i] < sorted[j]
	})
	return sorted[0], sorted[1:]
}
