// internal/sets/builder.go
package sets

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/bartek5186/assets2shop/internal/catalog"
	"github.com/bartek5186/assets2shop/internal/db"
	"github.com/bartek5186/assets2shop/internal/ops"
	"github.com/bartek5186/assets2shop/internal/report"
	"github.com/rs/zerolog"
)

type Config struct {
	PieceWords    []string `json:"piece_words"`
	PrimaryPrefer []string `json:"primary_prefer"`
	DiscountRate  float64  `json:"discount_rate"`
	MinSize       int      `json:"min_size"`
}

// plan — jeden zestaw do zmaterializowania/zsynchronizowania
type plan struct {
	name    string
	sig     string
	members []db.Product      // właścicielscy członkowie, rosnąco po ID
	avail   map[uint][]string // productID -> nazwy innych pasujących zestawów
}

type buildOp struct {
	log zerolog.Logger
	cfg Config
}

func (o *buildOp) Name() string { return "build-sets" }

// Run grupuje produkty armour w zestawy po sygnaturze nazwy i synchronizuje
// je z katalogiem. Ponowny przebieg to synchronizacja, nie re-kreacja:
// zestawy dopasowywane po nazwie, nigdy nie powstaje duplikat sygnatury.
func (o *buildOp) Run(ctx context.Context, deps ops.Deps, opts ops.Options) (*report.Report, error) {
	rep := report.New(o.Name())

	minSize := o.cfg.MinSize
	if minSize < 2 {
		minSize = 2
	}
	rate := o.cfg.DiscountRate
	if opts.DiscountRate != nil {
		rate = *opts.DiscountRate
	}

	products, err := deps.Store.ListProducts(catalog.ProductFilter{Category: db.CategoryArmour})
	if err != nil {
		return rep, fmt.Errorf("%w: %v", ops.ErrSystemicStore, err)
	}
	if len(products) == 0 {
		o.log.Warn().Msg("sets: brak produktów armour — nic do roboty")
		return rep, nil
	}

	existingSets, err := deps.Store.ListSets()
	if err != nil {
		return rep, fmt.Errorf("%w: %v", ops.ErrSystemicStore, err)
	}
	setNameByID := map[uint]string{}
	for _, s := range existingSets {
		setNameByID[s.ID] = s.Name
	}

	if !opts.DryRun {
		// pełny rebuild problemów grupowania (jak przy relinku)
		if err := deps.Store.ClearIssues("ambiguous_grouping"); err != nil {
			return rep, fmt.Errorf("%w: %v", ops.ErrSystemicStore, err)
		}
	}

	plans := o.groupProducts(products, minSize, rep, deps, opts)

	// stabilna kolejność przetwarzania
	names := make([]string, 0, len(plans))
	for n := range plans {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		return strings.ToLower(names[i]) < strings.ToLower(names[j])
	})

	created, updated, unchanged := 0, 0, 0
	planSetID := map[string]uint{}

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		p := plans[name]

		action, err := o.syncSet(deps, opts, p, rate, rep, setNameByID, planSetID)
		if err != nil {
			rep.Add(name, report.ActionFailed, "", "", err.Error())
			o.log.Error().Err(err).Str("set", name).Msg("sets: zapis zestawu nieudany")
			continue
		}
		switch action {
		case report.ActionCreated:
			created++
		case report.ActionUpdated:
			updated++
		default:
			unchanged++
		}
	}

	// powiązania "dostępny w" — po tym, jak wszystkie zestawy mają ID
	o.syncAvailability(deps, opts, plans, planSetID, rep)

	o.log.Info().
		Int("products", len(products)).
		Int("sets", len(plans)).
		Int("created", created).
		Int("updated", updated).
		Int("unchanged", unchanged).
		Bool("dry_run", opts.DryRun).
		Msg("sets: finished")
	return rep, nil
}

// groupProducts liczy sygnatury, materializuje grupy ≥minSize i rozdziela
// elementy współdzielone (baza "Crucible" rozpuszczana w warianty
// "Crucible Axe"/"Crucible Tree" z jednym właścicielem).
func (o *buildOp) groupProducts(products []db.Product, minSize int, rep *report.Report, deps ops.Deps, opts ops.Options) map[string]*plan {
	type grp struct {
		display string
		members []db.Product
	}
	groups := map[string]*grp{}
	order := []string{}

	for _, p := range products {
		sig, display := Signature(p.Name, o.cfg.PieceWords)
		if sig == "" {
			rep.Add(p.SKU, report.ActionAmbiguous, "", "", "nazwa bez sygnatury — sama nazwa części")
			if !opts.DryRun {
				_ = deps.Store.SaveIssue(db.CatalogIssue{
					Subject: p.SKU,
					Reason:  "ambiguous_grouping",
					Details: fmt.Sprintf("produkt %q nie pasuje do żadnej sygnatury zestawu", p.Name),
				})
			}
			continue
		}
		g, ok := groups[sig]
		if !ok {
			g = &grp{display: display}
			groups[sig] = g
			order = append(order, sig)
		}
		g.members = append(g.members, p)
	}

	materialized := map[string]bool{}
	for sig, g := range groups {
		if len(g.members) >= minSize {
			materialized[sig] = true
		}
	}

	// sygnatury-bazy: prefiksy dłuższych zmaterializowanych sygnatur
	variantsOf := func(sig string) []string {
		var out []string
		for v := range materialized {
			if v != sig && strings.HasPrefix(v, sig+" ") {
				out = append(out, v)
			}
		}
		return out
	}

	plans := map[string]*plan{}
	addMember := func(sig string, m db.Product, availNames []string) {
		name := SetName(groups[sig].display)
		pl, ok := plans[name]
		if !ok {
			pl = &plan{name: name, sig: sig, avail: map[uint][]string{}}
			plans[name] = pl
		}
		for _, ex := range pl.members {
			if ex.ID == m.ID {
				return // bez duplikatów po rozdzieleniu współdzielonych
			}
		}
		pl.members = append(pl.members, m)
		if len(availNames) > 0 {
			pl.avail[m.ID] = availNames
		}
	}

	sort.Strings(order)
	for _, sig := range order {
		g := groups[sig]
		variants := variantsOf(sig)

		switch {
		case materialized[sig] && len(variants) == 0:
			for _, m := range g.members {
				addMember(sig, m, nil)
			}

		case len(variants) > 0:
			// element pasuje do kilku sygnatur: jeden właściciel, reszta
			// jako cross-ref "dostępny w"
			owner, rest := ResolveOwner(variants)
			restNames := make([]string, 0, len(rest))
			for _, r := range rest {
				restNames = append(restNames, SetName(groups[r].display))
			}
			for _, m := range g.members {
				addMember(owner, m, restNames)
				rep.Add(m.SKU, report.ActionSkip, "", SetName(groups[owner].display),
					"część współdzielona — właściciel wg najdłuższej sygnatury")
			}

		default:
			// grupa 1-elementowa bez nadrzędnych sygnatur: produkt zostaje luzem
			for _, m := range g.members {
				rep.Add(m.SKU, report.ActionSkip, "", "", "grupa 1-elementowa — produkt bez zestawu")
			}
		}
	}

	for _, pl := range plans {
		sort.Slice(pl.members, func(i, j int) bool { return pl.members[i].ID < pl.members[j].ID })
	}
	return plans
}

// syncSet dopasowuje plan do stanu katalogu. Cała grupa idzie w jednej
// transakcji — albo zestaw z członkami i galerią, albo nic.
func (o *buildOp) syncSet(deps ops.Deps, opts ops.Options, pl *plan, rate float64, rep *report.Report, setNameByID map[uint]string, planSetID map[string]uint) (string, error) {
	existing, err := deps.Store.FindSet(pl.name)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ops.ErrSystemicStore, err)
	}

	primary := ChoosePrimary(pl.members, o.cfg.PrimaryPrefer)
	bundle := BundlePence(pl.members, rate)
	slug := Slugify(pl.name)

	memberIDs := make([]uint, 0, len(pl.members))
	for _, m := range pl.members {
		memberIDs = append(memberIDs, m.ID)
	}

	var currentIDs []uint
	if existing != nil {
		current, err := deps.Store.SetMembers(existing.ID)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ops.ErrSystemicStore, err)
		}
		for _, m := range current {
			currentIDs = append(currentIDs, m.ID)
		}
	}

	if existing != nil &&
		existing.Slug == slug &&
		existing.HeroImageRef == primary.ImageRef &&
		existing.BundlePricePence == bundle &&
		existing.DiscountRate == rate &&
		equalIDs(currentIDs, memberIDs) {
		planSetID[pl.name] = existing.ID
		rep.Add(pl.name, report.ActionUnchanged,
			stateDesc(len(memberIDs), bundle), stateDesc(len(memberIDs), bundle), "sig="+pl.sig)
		return report.ActionUnchanged, nil
	}

	action := report.ActionCreated
	before := ""
	if existing != nil {
		action = report.ActionUpdated
		before = stateDesc(len(currentIDs), existing.BundlePricePence)
	}

	if opts.DryRun {
		rep.Add(pl.name, action, before, stateDesc(len(memberIDs), bundle), "sig="+pl.sig)
		for _, m := range pl.members {
			if m.SetID == nil || setNameByID[*m.SetID] != pl.name {
				rep.Add(m.SKU, report.ActionUpdated, memberBefore(m, setNameByID), pl.name, "przypisanie do zestawu")
			}
		}
		return action, nil
	}

	err = deps.Store.Tx(func(tx catalog.Store) error {
		set := existing
		if set == nil {
			set = &db.ProductSet{Name: pl.name}
		}
		set.Slug = slug
		set.HeroImageRef = primary.ImageRef
		set.BundlePricePence = bundle
		set.DiscountRate = rate
		if err := tx.UpsertSet(set); err != nil {
			return err
		}

		inPlan := map[uint]bool{}
		for _, id := range memberIDs {
			inPlan[id] = true
		}

		// odepnij członków, których sygnatura już do zestawu nie należy
		for _, id := range currentIDs {
			if !inPlan[id] {
				if err := detachMember(tx, id); err != nil {
					return err
				}
			}
		}

		for i := range pl.members {
			m := &pl.members[i]
			if m.SetID != nil && *m.SetID == set.ID {
				continue
			}
			beforeSet := memberBefore(*m, setNameByID)
			m.SetID = &set.ID
			if err := tx.UpsertProduct(m); err != nil {
				return err
			}
			rep.Add(m.SKU, report.ActionUpdated, beforeSet, pl.name, "przypisanie do zestawu")
		}

		refs := make([]string, 0, len(pl.members))
		for _, m := range pl.members {
			if m.ImageRef != "" {
				refs = append(refs, m.ImageRef)
			}
		}
		if err := tx.ReplaceGallery(set.ID, refs); err != nil {
			return err
		}

		planSetID[pl.name] = set.ID
		return nil
	})
	if err != nil {
		return "", err
	}

	after := stateDesc(len(memberIDs), bundle)
	rep.Add(pl.name, action, before, after, "sig="+pl.sig)
	return action, nil
}

// syncAvailability utrzymuje relację "dostępny też w" — osobną od
// własności, więc nigdy nie powstaje drugi zestaw-właściciel.
func (o *buildOp) syncAvailability(deps ops.Deps, opts ops.Options, plans map[string]*plan, planSetID map[string]uint, rep *report.Report) {
	for _, pl := range plans {
		for _, m := range pl.members {
			want := []uint{}
			for _, name := range pl.avail[m.ID] {
				if id, ok := planSetID[name]; ok {
					want = append(want, id)
				}
			}
			sort.Slice(want, func(i, j int) bool { return want[i] < want[j] })

			if opts.DryRun {
				if len(pl.avail[m.ID]) > 0 {
					rep.Add(m.SKU, report.ActionUpdated, "", strings.Join(pl.avail[m.ID], ";"), "cross-ref dostępności")
				}
				continue
			}

			have, err := deps.Store.ListAvailability(m.ID)
			if err != nil {
				rep.Add(m.SKU, report.ActionFailed, "", "", err.Error())
				continue
			}
			if equalIDs(have, want) {
				continue
			}
			if err := deps.Store.ReplaceAvailability(m.ID, want); err != nil {
				rep.Add(m.SKU, report.ActionFailed, "", "", err.Error())
				continue
			}
			rep.Add(m.SKU, report.ActionUpdated, idList(have), idList(want), "cross-ref dostępności")
		}
	}
}

func detachMember(tx catalog.Store, productID uint) error {
	inSet := true
	members, err := tx.ListProducts(catalog.ProductFilter{InSet: &inSet})
	if err != nil {
		return err
	}
	for i := range members {
		if members[i].ID == productID {
			members[i].SetID = nil
			return tx.UpsertProduct(&members[i])
		}
	}
	return nil
}

func memberBefore(m db.Product, setNameByID map[uint]string) string {
	if m.SetID == nil {
		return ""
	}
	return setNameByID[*m.SetID]
}

func stateDesc(members int, bundle uint) string {
	return fmt.Sprintf("members=%d;bundle=%d", members, bundle)
}

func equalIDs(a, b []uint) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]uint(nil), a...)
	bs := append([]uint(nil), b...)
	sort.Slice(as, func(i, j int) bool { return as[i] < as[j] })
	sort.Slice(bs, func(i, j int) bool { return bs[i] < bs[j] })
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

func idList(ids []uint) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprint(id))
	}
	return strings.Join(parts, ";")
}

func factory(log zerolog.Logger, raw json.RawMessage) (ops.Operation, error) {
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}
	return &buildOp{log: log, cfg: cfg}, nil
}

func init() {
	ops.Register("build-sets", factory)
}
