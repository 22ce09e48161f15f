package results

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/freeeve/reward-moran/internal/model"
)

// Entry is one parsed overview block.
type Entry struct {
	Trial  int
	Reward string
	Seed   int64
	Winner string
}

// Load reads one Run's artifact back, keeping label order.
func (s *Store) Load(trial int, reward float64) ([]model.Snapshot, error) {
	path := s.ArtifactPath(trial, reward)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &model.PersistenceError{Op: "read", Path: path, Err: err}
	}
	var gens []model.Snapshot
	if err := json.Unmarshal(data, &gens); err != nil {
		return nil, &model.PersistenceError{Op: "decode", Path: path, Err: err}
	}
	return gens, nil
}

// ReadOverview parses overview.txt into entries in file order.
func (s *Store) ReadOverview() ([]Entry, error) {
	f, err := os.Open(s.OverviewPath())
	if err != nil {
		return nil, &model.PersistenceError{Op: "open", Path: s.OverviewPath(), Err: err}
	}
	defer f.Close()

	var entries []Entry
	var cur *Entry
	line := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line++
		text := sc.Text()
		switch {
		case text == "":
			if cur != nil {
				entries = append(entries, *cur)
				cur = nil
			}
		case strings.HasPrefix(text, "Trial "):
			e, err := parseHeader(text)
			if err != nil {
				return nil, fmt.Errorf("overview line %d: %w", line, err)
			}
			cur = &e
		case strings.HasPrefix(text, "Seed: ") && cur != nil:
			seed, err := strconv.ParseInt(strings.TrimPrefix(text, "Seed: "), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("overview line %d: %w", line, err)
			}
			cur.Seed = seed
		case strings.HasPrefix(text, "Winner: ") && cur != nil:
			cur.Winner = strings.TrimPrefix(text, "Winner: ")
		default:
			return nil, fmt.Errorf("overview line %d: unexpected %q", line, text)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, &model.PersistenceError{Op: "read", Path: s.OverviewPath(), Err: err}
	}
	if cur != nil {
		entries = append(entries, *cur)
	}
	return entries, nil
}

// parseHeader parses "Trial {t}, reward {r}".
func parseHeader(text string) (Entry, error) {
	trialPart, rewardPart, ok := strings.Cut(strings.TrimPrefix(text, "Trial "), ", reward ")
	if !ok {
		return Entry{}, fmt.Errorf("malformed header %q", text)
	}
	trial, err := strconv.Atoi(trialPart)
	if err != nil {
		return Entry{}, fmt.Errorf("malformed trial in %q: %w", text, err)
	}
	return Entry{Trial: trial, Reward: rewardPart}, nil
}
