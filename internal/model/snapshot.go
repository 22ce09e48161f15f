package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Snapshot is the population at one generation, total over a fixed label
// set. Labels is shared between all snapshots of an experiment and must not
// be mutated; Counts[i] belongs to Labels[i].
type Snapshot struct {
	Labels []string
	Counts []int
}

// Get returns the count for label, 0 if the label is unknown.
func (s Snapshot) Get(label string) int {
	for i, l := range s.Labels {
		if l == label {
			return s.Counts[i]
		}
	}
	return 0
}

// Total returns the population size.
func (s Snapshot) Total() int {
	n := 0
	for _, c := range s.Counts {
		n += c
	}
	return n
}

// Align returns the snapshot re-keyed to labels, which becomes the shared
// label slice of the result. Labels missing from s count 0.
func (s Snapshot) Align(labels []string) Snapshot {
	counts := make([]int, len(labels))
	for i, l := range labels {
		counts[i] = s.Get(l)
	}
	return Snapshot{Labels: labels, Counts: counts}
}

// MarshalJSON writes an object whose keys follow Labels order.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, l := range s.Labels {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(l)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		fmt.Fprintf(&buf, ":%d", s.Counts[i])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object keeping the key order of the document.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("snapshot: expected object, got %v", tok)
	}
	s.Labels, s.Counts = nil, nil
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		label, ok := tok.(string)
		if !ok {
			return fmt.Errorf("snapshot: expected key, got %v", tok)
		}
		var count int
		if err := dec.Decode(&count); err != nil {
			return fmt.Errorf("snapshot %q: %w", label, err)
		}
		s.Labels = append(s.Labels, label)
		s.Counts = append(s.Counts, count)
	}
	_, err = dec.Token()
	return err
}
