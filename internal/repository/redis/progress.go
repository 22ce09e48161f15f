package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/reward-moran/internal/experiment"
	"github.com/freeeve/reward-moran/internal/model"
)

// Key patterns for experiment progress.
func progressKey(expID string) string   { return "experiment:" + expID + ":progress" }
func eventsChannel(expID string) string { return "experiment:" + expID + ":events" }

// EventsPattern matches the events channel of every experiment.
const EventsPattern = "experiment:*:events"

// progressTTL keeps finished experiments inspectable for a day.
const progressTTL = 24 * time.Hour

// SetProgress stores the latest progress and publishes it on the
// experiment's events channel.
func (c *Client) SetProgress(ctx context.Context, ev model.ProgressEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}
	key := progressKey(ev.ExperimentID)
	_, err = c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, map[string]any{
			"completed": ev.Completed,
			"total":     ev.Total,
			"label":     ev.Label,
			"color":     ev.Color,
		})
		pipe.Expire(ctx, key, progressTTL)
		pipe.Publish(ctx, eventsChannel(ev.ExperimentID), data)
		return nil
	})
	if err != nil {
		return fmt.Errorf("set progress: %w", err)
	}
	return nil
}

// LatestProgress returns the last stored progress, or nil if none exists.
func (c *Client) LatestProgress(ctx context.Context, expID string) (*model.ProgressEvent, error) {
	vals, err := c.rdb.HGetAll(ctx, progressKey(expID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get progress: %w", err)
	}
	if len(vals) == 0 {
		return nil, nil
	}
	completed, err := strconv.Atoi(vals["completed"])
	if err != nil {
		return nil, fmt.Errorf("parse completed: %w", err)
	}
	total, err := strconv.Atoi(vals["total"])
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	return &model.ProgressEvent{
		ExperimentID: expID,
		Completed:    completed,
		Total:        total,
		Label:        vals["label"],
		Color:        vals["color"],
	}, nil
}

// RelayEvents forwards every experiment's published progress to fn until
// ctx is done.
func (c *Client) RelayEvents(ctx context.Context, fn func(model.ProgressEvent)) error {
	sub := c.rdb.PSubscribe(ctx, EventsPattern)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("psubscribe: %w", err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var ev model.ProgressEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Warn().Err(err).Str("channel", msg.Channel).Msg("Skipping malformed progress event")
				continue
			}
			if ev.ExperimentID == "" {
				ev.ExperimentID = strings.TrimSuffix(strings.TrimPrefix(msg.Channel, "experiment:"), ":events")
			}
			fn(ev)
		}
	}
}

// ProgressPublisher is a progress observer that writes to Redis. Failures
// are logged and never reach the experiment.
type ProgressPublisher struct {
	client       *Client
	experimentID string
	timeout      time.Duration
}

// NewProgressPublisher creates a publisher for one experiment.
func NewProgressPublisher(c *Client, experimentID string) *ProgressPublisher {
	return &ProgressPublisher{client: c, experimentID: experimentID, timeout: 2 * time.Second}
}

// OnProgress implements experiment.Observer.
func (p *ProgressPublisher) OnProgress(completed, total int, label string) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	ev := model.ProgressEvent{
		ExperimentID: p.experimentID,
		Completed:    completed,
		Total:        total,
		Label:        label,
		Color:        experiment.ProgressColor(completed, total),
	}
	if err := p.client.SetProgress(ctx, ev); err != nil {
		log.Warn().Err(err).Str("experimentId", p.experimentID).Int("completed", completed).Msg("Failed to publish progress")
	}
}
