// internal/classify/rules.go
package classify

import (
	"regexp"
	"strings"

	"github.com/bartek5186/assets2shop/internal/db"
)

// Rule — jedna pozycja tabeli klasyfikacji: wzorzec (substring po
// normalizacji) -> podtyp w obrębie kategorii. Tabela jest uporządkowana,
// wygrywa PIERWSZE dopasowanie — kolejność reguł w configu jest częścią
// kontraktu.
type Rule struct {
	ID       string `json:"id"`
	Category string `json:"category"` // armour | weapon
	Pattern  string `json:"pattern"`
	Subtype  string `json:"subtype"`
}

// Kategorie reguł. Tarcze klasyfikowane tabelą broni — wspólne słownictwo.
const (
	RulesArmour = "armour"
	RulesWeapon = "weapon"
)

var reSpaces = regexp.MustCompile(`\s+`)

// NormBlob skleja teksty produktu w jeden znormalizowany blob do dopasowań.
func NormBlob(parts ...string) string {
	s := strings.ToLower(strings.Join(parts, " "))
	s = strings.ReplaceAll(s, "’", "'")
	s = reSpaces.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Zamknięte taksonomie podtypów per tabela reguł
var taxonomy = map[string]map[string]bool{
	RulesArmour: {
		db.SubtypeCloth:   true,
		db.SubtypeLeather: true,
		db.SubtypePlate:   true,
	},
	RulesWeapon: {
		db.SubtypeStaff:   true,
		db.SubtypeBow:     true,
		db.SubtypeDagger:  true,
		db.SubtypeWhip:    true,
		db.SubtypeHammer:  true,
		db.SubtypeAxe:     true,
		db.SubtypePolearm: true,
		db.SubtypeSword:   true,
		db.SubtypeFist:    true,
	},
}

// RuleCategory mapuje kategorię produktu na tabelę reguł.
// Pusta = produkt bez tabeli, zawsze unclassified (relikty, konsumpcyjne).
func RuleCategory(productCategory string) string {
	switch productCategory {
	case db.CategoryArmour:
		return RulesArmour
	case db.CategoryWeapon, db.CategoryShield:
		return RulesWeapon
	}
	return ""
}

// Valid sprawdza przynależność podtypu do taksonomii danej tabeli.
// Unclassified jest dozwolone wszędzie.
func Valid(ruleCategory, subtype string) bool {
	if subtype == db.SubtypeUnclassified {
		return true
	}
	return taxonomy[ruleCategory][subtype]
}

// Classify zwraca podtyp i id reguły, która zadziałała, dla produktu danej
// kategorii. Brak tabeli albo brak dopasowania -> unclassified, "".
// Deterministyczne i idempotentne: te same reguły + ten sam blob = zawsze
// ten sam wynik.
func Classify(blob, productCategory string, rules []Rule) (subtype, ruleID string) {
	cat := RuleCategory(productCategory)
	if cat == "" {
		return db.SubtypeUnclassified, ""
	}
	for _, r := range rules {
		if r.Category != cat || r.Pattern == "" || !Valid(cat, r.Subtype) {
			continue
		}
		if strings.Contains(blob, strings.ToLower(r.Pattern)) {
			return r.Subtype, r.ID
		}
	}
	return db.SubtypeUnclassified, ""
}

// DefaultRules — domyślna tabela. Pancerz: najpierw płyty, potem tkaniny,
// na końcu skóra. Broń: od wzorców najbardziej specyficznych do ogólnych.
func DefaultRules() []Rule {
	mk := func(category, subtype string, patterns ...string) []Rule {
		out := make([]Rule, 0, len(patterns))
		for _, p := range patterns {
			out = append(out, Rule{ID: subtype + "/" + p, Category: category, Pattern: p, Subtype: subtype})
		}
		return out
	}

	var rules []Rule
	rules = append(rules, mk(RulesArmour, db.SubtypePlate,
		"plate", "armor", "armour", "mail", "chain", "iron", "steel", "knight",
		"gauntlets", "greaves", "helm", "helmet")...)
	rules = append(rules, mk(RulesArmour, db.SubtypeCloth,
		"robe", "hood", "hat", "cowl", "mantle", "cloth", "silk", "tunic", "gown")...)
	rules = append(rules, mk(RulesArmour, db.SubtypeLeather,
		"leather", "hide", "pelt", "fur", "bandit", "boots", "gloves")...)

	rules = append(rules, mk(RulesWeapon, db.SubtypeStaff, "staff")...)
	rules = append(rules, mk(RulesWeapon, db.SubtypeBow, "bow", "longbow", "shortbow")...)
	rules = append(rules, mk(RulesWeapon, db.SubtypeDagger, "dagger", "knife")...)
	rules = append(rules, mk(RulesWeapon, db.SubtypeWhip, "whip")...)
	rules = append(rules, mk(RulesWeapon, db.SubtypeHammer, "hammer", "mace", "club")...)
	rules = append(rules, mk(RulesWeapon, db.SubtypeAxe, "axe")...)
	rules = append(rules, mk(RulesWeapon, db.SubtypePolearm, "spear", "halberd", "glaive", "pike", "lance")...)
	rules = append(rules, mk(RulesWeapon, db.SubtypeSword, "sword", "blade", "katana", "greatsword", "rapier", "scimitar")...)
	rules = append(rules, mk(RulesWeapon, db.SubtypeFist, "fist", "claw")...)
	return rules
}
