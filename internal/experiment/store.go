package experiment

import (
	"context"

	"github.com/freeeve/reward-moran/internal/model"
)

// Store persists an experiment's Runs. Begin is called once before the
// first Run; Save once per successful Run, in plan order.
type Store interface {
	Begin(ctx context.Context, exp *model.Experiment) error
	Save(ctx context.Context, run *model.Run) error
}

// Stores writes to several stores in order, stopping at the first error.
type Stores []Store

// Begin starts every store.
func (s Stores) Begin(ctx context.Context, exp *model.Experiment) error {
	for _, st := range s {
		if err := st.Begin(ctx, exp); err != nil {
			return err
		}
	}
	return nil
}

// Save saves run to every store.
func (s Stores) Save(ctx context.Context, run *model.Run) error {
	for _, st := range s {
		if err := st.Save(ctx, run); err != nil {
			return err
		}
	}
	return nil
}
