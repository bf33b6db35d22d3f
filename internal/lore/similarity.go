// internal/lore/similarity.go
package lore

import (
	"regexp"
	"strings"
)

var (
	rePunct      = regexp.MustCompile(`[^a-z0-9\s]+`)
	reManySpaces = regexp.MustCompile(`\s+`)
)

// NormName normalizuje nazwę do porównań: lowercase, bez interpunkcji,
// pojedyncze spacje. "Alberich’s Helm" i "alberich s helm" dają to samo.
func NormName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "’", "'")
	s = rePunct.ReplaceAllString(s, " ")
	s = reManySpaces.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Ratio — podobieństwo 0..1 liczone jak difflib.SequenceMatcher.ratio():
// 2*M / (len(a)+len(b)), gdzie M to suma długości bloków wspólnych
// wyznaczanych rekurencyjnie przez najdłuższy wspólny podciąg spójny.
// Deterministyczne, bez heurystyki "junk".
func Ratio(a, b string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	m := matchingBlocks(a, b)
	return 2 * float64(m) / float64(len(a)+len(b))
}

func matchingBlocks(a, b string) int {
	ai, bj, size := longestMatch(a, b)
	if size == 0 {
		return 0
	}
	return size +
		matchingBlocks(a[:ai], b[:bj]) +
		matchingBlocks(a[ai+size:], b[bj+size:])
}

// longestMatch — najdłuższy wspólny spójny fragment; przy remisie
// najwcześniejszy w a, potem w b (jak w difflib).
func longestMatch(a, b string) (ai, bj, size int) {
	// j2len[j] = długość wspólnego fragmentu kończącego się na a[i-1], b[j-1]
	j2len := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		newJ2len := make([]int, len(b)+1)
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				k := j2len[j-1] + 1
				newJ2len[j] = k
				if k > size {
					ai = i - k
					bj = j - k
					size = k
				}
			}
		}
		j2len = newJ2len
	}
	return ai, bj, size
}
