package domain

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
)

// Advice is the knowledge-base record for one crop. Record is kept as the
// raw JSON object so its key order survives into the prompt.
type Advice struct {
	Crop   string
	Record json.RawMessage
}

// Context renders the record the way it is embedded in the LLM prompt.
func (a *Advice) Context() string {
	if a == nil || len(a.Record) == 0 {
		return "{}"
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, a.Record, "", "  "); err != nil {
		return string(a.Record)
	}
	return buf.String()
}

type knowledgeEntry struct {
	key    string
	advice Advice
}

// KnowledgeBase maps crop names to advice. It is built once and never
// mutated, so any number of goroutines may call Lookup.
type KnowledgeBase struct {
	entries []knowledgeEntry
}

// NewKnowledgeBase builds a base from crop name -> record. Empty names are
// dropped. Entries are ordered longest name first, then lexicographically,
// which is the order Lookup tries them in.
func NewKnowledgeBase(records map[string]json.RawMessage) *KnowledgeBase {
	entries := make([]knowledgeEntry, 0, len(records))
	for crop, record := range records {
		key := strings.ToLower(strings.TrimSpace(crop))
		if key == "" {
			continue
		}
		entries = append(entries, knowledgeEntry{
			key:    key,
			advice: Advice{Crop: crop, Record: record},
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if len(entries[i].key) != len(entries[j].key) {
			return len(entries[i].key) > len(entries[j].key)
		}
		if entries[i].key != entries[j].key {
			return entries[i].key < entries[j].key
		}
		return entries[i].advice.Crop < entries[j].advice.Crop
	})

	return &KnowledgeBase{entries: entries}
}

// Lookup returns the first crop whose name appears anywhere in query,
// ignoring case. Matching is plain substring containment, so short names
// can match inside longer words.
func (kb *KnowledgeBase) Lookup(query string) (*Advice, bool) {
	if kb == nil || len(kb.entries) == 0 || strings.TrimSpace(query) == "" {
		return nil, false
	}

	q := strings.ToLower(query)
	for i := range kb.entries {
		if strings.Contains(q, kb.entries[i].key) {
			advice := kb.entries[i].advice
			return &advice, true
		}
	}
	return nil, false
}

func (kb *KnowledgeBase) Len() int {
	if kb == nil {
		return 0
	}
	return len(kb.entries)
}

// Crops lists the crop names in lookup order.
func (kb *KnowledgeBase) Crops() []string {
	if kb == nil {
		return nil
	}
	crops := make([]string, len(kb.entries))
	for i, e := range kb.entries {
		crops[i] = e.advice.Crop
	}
	return crops
}
