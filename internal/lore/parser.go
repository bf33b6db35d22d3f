// internal/lore/parser.go
package lore

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/bartek5186/assets2shop/internal/media"
	"github.com/bartek5186/assets2shop/internal/ops"
	"golang.org/x/net/html/charset"
)

// Format pliku lore: bloki
//
//	Nazwa Przedmiotu [1234]
//	opis...
//	opis c.d.
//
// Nagłówek zaczyna nowy wpis; linie przed pierwszym nagłówkiem to sieroty.
var headerRe = regexp.MustCompile(`^(?P<name>.+?)\s*\[(?P<code>\d+)\]\s*$`)

// Entry — jeden blok lore. Ulotny, po dopięciu/raporcie znika.
type Entry struct {
	SourceKey string // kod z nagłówka
	Name      string // token nazwy do dopasowania
	Text      string
}

// Parse czyta bloki z r. Zwraca wpisy + liczbę linii-sierot
// (treść bez nagłówka — do raportu jako parse_skip, nie błąd).
func Parse(r io.Reader) (entries []Entry, orphans int) {
	var (
		curName string
		curCode string
		buf     []string
	)

	flush := func() {
		if curName != "" && curCode != "" {
			text := strings.TrimSpace(strings.Join(buf, "\n"))
			entries = append(entries, Entry{SourceKey: curCode, Name: strings.TrimSpace(curName), Text: text})
		}
		curName, curCode, buf = "", "", nil
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), " \t")

		if m := headerRe.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			flush()
			curName = m[1]
			curCode = m[2]
			continue
		}

		if curName == "" {
			if strings.TrimSpace(line) != "" {
				orphans++
			}
			continue
		}
		buf = append(buf, line)
	}
	flush()
	return entries, orphans
}

// ParseFile wczytuje plik lore przez media store z dekodowaniem charsetu
// (eksporty z narzędzi windowsowych bywają w cp1250/cp1252).
func ParseFile(m media.Store, path, encoding string) ([]Entry, int, error) {
	data, err := m.ReadFileBytes(path)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %s: %v", ops.ErrUnreadableSource, path, err)
	}

	var r io.Reader = bytes.NewReader(data)
	if encoding != "" {
		cr, err := charset.NewReaderLabel(encoding, bytes.NewReader(data))
		if err != nil {
			return nil, 0, fmt.Errorf("nieznane kodowanie %q: %w", encoding, err)
		}
		r = cr
	}

	entries, orphans := Parse(r)
	return entries, orphans, nil
}
