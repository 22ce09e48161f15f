package ipd

import "fmt"

// Catalog returns every built-in strategy in a fixed order. The order is the
// tie-break order used by tournaments, so it must stay stable.
func Catalog() []Strategy {
	return []Strategy{
		Cooperator,
		Defector,
		TitForTat,
		TitFor2Tats,
		TwoTitsForTat,
		SuspiciousTitForTat,
		Grudger,
		Alternator,
		Random(0.5),
		WinStayLoseShift,
		GTFT(0.33),
		Prober,
		Bully,
		SoftGoByMajority,
		HardGoByMajority,
		CyclerCCD,
		CyclerDDC,
		FoolMeOnce,
		SpitefulTitForTat,
		Handshake,
		BackStabber,
		Geller,
	}
}

// Filter returns the strategies of catalog for which keep returns true,
// preserving order.
func Filter(catalog []Strategy, keep func(Strategy) bool) []Strategy {
	var out []Strategy
	for _, s := range catalog {
		if keep(s) {
			out = append(out, s)
		}
	}
	return out
}

// Lookup finds a catalog strategy by its label.
func Lookup(name string) (Strategy, error) {
	for _, s := range Catalog() {
		if s.Name == name {
			return s, nil
		}
	}
	return Strategy{}, fmt.Errorf("unknown strategy %q", name)
}

// LookupAll resolves a list of labels, failing on the first unknown one.
func LookupAll(names []string) ([]Strategy, error) {
	out := make([]Strategy, 0, len(names))
	for _, n := range names {
		s, err := Lookup(n)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
