package handler

import (
	"github.com/freeeve/reward-moran/internal/experiment"
	"github.com/freeeve/reward-moran/internal/model"
)

// Publish pushes a progress event to the experiment's subscribers.
func (h *Hub) Publish(ev model.ProgressEvent) {
	typ := EventProgress
	if ev.Total > 0 && ev.Completed >= ev.Total {
		typ = EventFinished
	}
	h.Broadcast(WSEvent{Type: typ, ExperimentID: ev.ExperimentID, Data: ev})
}

// Observer returns a progress observer that publishes to experimentID.
func (h *Hub) Observer(experimentID string) experiment.Observer {
	return experiment.ObserverFunc(func(completed, total int, label string) {
		h.Publish(model.ProgressEvent{
			ExperimentID: experimentID,
			Completed:    completed,
			Total:        total,
			Label:        label,
			Color:        experiment.ProgressColor(completed, total),
		})
	})
}
