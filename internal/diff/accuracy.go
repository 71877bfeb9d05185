// Package diff compares a ground-truth fact set against the stored one.
//
// Comparison is set arithmetic over identity keys: two facts are the same iff
// their keys are equal. No fuzzy matching is attempted.
package diff

import (
	"sort"

	"codefacts/internal/facts"
)

// Metrics is the accuracy of a stored set measured against ground truth.
type Metrics struct {
	GroundTruth  int      `json:"groundTruth"`
	Stored       int      `json:"stored"`
	Correct      int      `json:"correct"`
	Missing      int      `json:"missing"`
	Extra        int      `json:"extra"`
	Precision    float64  `json:"precision"`
	Recall       float64  `json:"recall"`
	F1           float64  `json:"f1"`
	MissingItems []string `json:"missingItems"`
	ExtraItems   []string `json:"extraItems"`
	// ChangedItems are correct keys whose stored attributes differ from
	// ground truth. They count as correct.
	ChangedItems []string `json:"changedItems,omitempty"`
}

// Compare computes accuracy for one fact type. key extracts the identity
// key; duplicate keys on either side count once.
func Compare[T any](groundTruth, stored []T, key func(T) string) Metrics {
	truth := keySet(groundTruth, key)
	have := keySet(stored, key)

	m := Metrics{
		GroundTruth:  len(truth),
		Stored:       len(have),
		MissingItems: []string{},
		ExtraItems:   []string{},
	}
	for k := range truth {
		if have[k] {
			m.Correct++
		} else {
			m.MissingItems = append(m.MissingItems, k)
		}
	}
	for k := range have {
		if !truth[k] {
			m.ExtraItems = append(m.ExtraItems, k)
		}
	}
	sort.Strings(m.MissingItems)
	sort.Strings(m.ExtraItems)
	m.Missing = len(m.MissingItems)
	m.Extra = len(m.ExtraItems)
	m.score()
	return m
}

func keySet[T any](items []T, key func(T) string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, it := range items {
		set[key(it)] = true
	}
	return set
}

// score derives precision, recall and F1 from the counts.
func (m *Metrics) score() {
	m.Precision = ratio(m.Correct, m.Stored)
	m.Recall = ratio(m.Correct, m.GroundTruth)
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	} else {
		m.F1 = 0
	}
}

func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}

// Report is the accuracy of a whole store.
type Report struct {
	ByType map[facts.Type]Metrics `json:"byType"`
	// Overall sums the per-type counts and rescores them; it is not an
	// average of the per-type scores. Item lists are left empty.
	Overall Metrics `json:"overall"`
}

// CompareFacts compares two mixed fact sets type by type. Every fact type
// has an entry, even when both sides are empty.
func CompareFacts(groundTruth, stored []facts.Fact) Report {
	truthByType := groupByType(groundTruth)
	storedByType := groupByType(stored)

	r := Report{ByType: make(map[facts.Type]Metrics, len(facts.AllTypes))}
	overall := Metrics{MissingItems: []string{}, ExtraItems: []string{}}
	for _, t := range facts.AllTypes {
		m := Compare(truthByType[t], storedByType[t], facts.Fact.IdentityKey)
		m.ChangedItems = changed(truthByType[t], storedByType[t])
		r.ByType[t] = m

		overall.GroundTruth += m.GroundTruth
		overall.Stored += m.Stored
		overall.Correct += m.Correct
		overall.Missing += m.Missing
		overall.Extra += m.Extra
	}
	overall.score()
	r.Overall = overall
	return r
}

func groupByType(fs []facts.Fact) map[facts.Type][]facts.Fact {
	out := make(map[facts.Type][]facts.Fact)
	for _, f := range fs {
		out[f.Type()] = append(out[f.Type()], f)
	}
	return out
}

// changed lists keys present on both sides whose fingerprints differ.
// A key stored more than once is changed if any stored copy differs.
func changed(groundTruth, stored []facts.Fact) []string {
	want := make(map[string]string, len(groundTruth))
	for _, f := range groundTruth {
		want[f.IdentityKey()] = facts.Fingerprint(f)
	}
	seen := make(map[string]bool)
	var out []string
	for _, f := range stored {
		k := f.IdentityKey()
		fp, ok := want[k]
		if !ok || seen[k] || fp == facts.Fingerprint(f) {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
