// Package roster builds the starting population of an experiment and the
// canonical label set every generation snapshot is normalized against.
package roster

import (
	"sort"

	"github.com/freeeve/reward-moran/internal/model"
	"github.com/freeeve/reward-moran/pkg/ipd"
)

// Qualified is the curated twenty-strategy roster used when no roster is
// configured and no qualifier run is requested.
var Qualified = []string{
	"Grudger",
	"Tit For Tat",
	"Spiteful Tit For Tat",
	"Fool Me Once",
	"Tit For 2 Tats",
	"Soft Go By Majority",
	"Two Tits For Tat",
	"Win-Stay Lose-Shift",
	"GTFT: 0.33",
	"Hard Go By Majority",
	"BackStabber",
	"Cooperator",
	"Prober",
	"Suspicious Tit For Tat",
	"Handshake",
	"Random: 0.5",
	"Cycler CCD",
	"Alternator",
	"Bully",
	"Defector",
}

// Roster is an immutable set of strategies with a per-strategy multiplicity.
type Roster struct {
	strategies []ipd.Strategy
	copies     int
	labels     []string
}

// New builds a roster with copies individuals per strategy.
func New(strategies []ipd.Strategy, copies int) (*Roster, error) {
	if len(strategies) == 0 {
		return nil, &model.ConfigurationError{Field: "roster", Reason: "no strategies"}
	}
	if copies < 1 {
		return nil, &model.ConfigurationError{Field: "copies", Reason: "must be at least 1"}
	}
	seen := make(map[string]bool, len(strategies))
	labels := make([]string, 0, len(strategies))
	for _, s := range strategies {
		if !seen[s.Name] {
			seen[s.Name] = true
			labels = append(labels, s.Name)
		}
	}
	sort.Strings(labels)
	return &Roster{
		strategies: append([]ipd.Strategy(nil), strategies...),
		copies:     copies,
		labels:     labels,
	}, nil
}

// FromNames resolves catalog labels and builds a roster.
func FromNames(names []string, copies int) (*Roster, error) {
	if len(names) == 0 {
		return nil, &model.ConfigurationError{Field: "roster", Reason: "no strategies"}
	}
	strategies, err := ipd.LookupAll(names)
	if err != nil {
		return nil, &model.ConfigurationError{Field: "roster", Reason: err.Error()}
	}
	return New(strategies, copies)
}

// FromCatalog builds a roster from every catalog entry that passes eligible.
func FromCatalog(catalog []ipd.Strategy, eligible func(ipd.Strategy) bool, copies int) (*Roster, error) {
	return New(ipd.Filter(catalog, eligible), copies)
}

// Population returns the initial individuals: the whole strategy list
// repeated copies times.
func (r *Roster) Population() []ipd.Strategy {
	pop := make([]ipd.Strategy, 0, len(r.strategies)*r.copies)
	for i := 0; i < r.copies; i++ {
		pop = append(pop, r.strategies...)
	}
	return pop
}

// Labels returns the sorted, deduplicated strategy labels. The slice is
// shared; callers must not modify it.
func (r *Roster) Labels() []string {
	return r.labels
}

// Has reports whether label is one of the roster's strategies.
func (r *Roster) Has(label string) bool {
	i := sort.SearchStrings(r.labels, label)
	return i < len(r.labels) && r.labels[i] == label
}

// Size is the fixed population size.
func (r *Roster) Size() int {
	return len(r.strategies) * r.copies
}
