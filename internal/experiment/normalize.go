package experiment

import (
	"github.com/freeeve/reward-moran/internal/model"
	"github.com/freeeve/reward-moran/pkg/ipd"
)

// Normalize rewrites raw populations into snapshots that are total over
// labels, in labels order, with 0 for every missing label. Generation order
// is preserved. All snapshots share the labels slice.
func Normalize(raw []ipd.Population, labels []string) []model.Snapshot {
	out := make([]model.Snapshot, len(raw))
	for i, pop := range raw {
		counts := make([]int, len(labels))
		for j, l := range labels {
			counts[j] = pop[l]
		}
		out[i] = model.Snapshot{Labels: labels, Counts: counts}
	}
	return out
}
