package progress

import (
	"encoding/json"
	"sort"
	"time"
)

// Version identifies the serialized snapshot layout.
const Version = 1

// Attempt is the flattened projection of a completed question: one record
// per question with completion timestamp, time spent and notes.
type Attempt struct {
	QuestionID       string    `json:"question_id"`
	CompletedAt      time.Time `json:"completed_at"`
	LastUpdatedAt    time.Time `json:"last_updated_at"`
	TimeTakenSeconds int       `json:"time_taken_seconds,omitempty"`
	Notes            string    `json:"notes,omitempty"`
}

// Meta carries the optional fields of a submission. Nil fields are left
// untouched on update, so resubmissions merge rather than replace.
type Meta struct {
	TimeTakenSeconds *int
	Notes            *string
	CompletedAt      *time.Time
}

// Item is a leaf of the tree: one completed question.
type Item struct {
	CompletedAt      time.Time `json:"completed_at"`
	LastUpdatedAt    time.Time `json:"last_updated_at"`
	TimeTakenSeconds int       `json:"time_taken_seconds,omitempty"`
	Notes            string    `json:"notes,omitempty"`
	// Seq preserves insertion order across snapshot round-trips; it breaks
	// ties when flattening items with equal completion times.
	Seq int `json:"seq"`
}

type topicNode struct {
	Items map[string]*Item `json:"items"`
}

type paperNode struct {
	Topics map[string]*topicNode `json:"topics"`
}

// Totals is the denormalized counter cache maintained incrementally by
// AddAttempt. It is never recomputed on the hot path.
type Totals struct {
	All    int            `json:"all"`
	Paper1 int            `json:"paper1"`
	Paper2 int            `json:"paper2"`
	Topics map[string]int `json:"topics"`
}

// Tree classifies completed questions into a fixed paper→topic→item
// hierarchy with cached aggregate counts. It is not safe for concurrent
// use; callers serialize access (mutations run under the user row lock).
type Tree struct {
	papers  map[Paper]*paperNode
	totals  Totals
	pm      PaperMap
	nextSeq int
}

// New returns an empty tree classifying topics through pm. A nil pm falls
// back to the built-in curriculum mapping.
func New(pm PaperMap) *Tree {
	if pm == nil {
		pm = DefaultPaperMap()
	}
	return &Tree{
		papers: map[Paper]*paperNode{
			Paper1: {Topics: make(map[string]*topicNode)},
			Paper2: {Topics: make(map[string]*topicNode)},
		},
		totals: Totals{Topics: make(map[string]int)},
		pm:     pm,
	}
}

// FromAttempts builds a tree by replaying a flat attempt list in input
// order. For duplicate question IDs the first occurrence controls the
// completion time and later occurrences win on metadata.
func FromAttempts(attempts []Attempt, pm PaperMap) *Tree {
	t := New(pm)
	for _, a := range attempts {
		meta := Meta{}
		if a.TimeTakenSeconds != 0 {
			secs := a.TimeTakenSeconds
			meta.TimeTakenSeconds = &secs
		}
		if a.Notes != "" {
			notes := a.Notes
			meta.Notes = &notes
		}
		if !a.CompletedAt.IsZero() && !t.Has(a.QuestionID) {
			done := a.CompletedAt
			meta.CompletedAt = &done
		}
		t.AddAttempt(a.QuestionID, meta)
	}
	return t
}

// Has reports whether the question has a recorded attempt.
func (t *Tree) Has(questionID string) bool {
	if questionID == "" {
		return false
	}
	topic := TopicOf(questionID)
	tn := t.papers[t.pm.PaperFor(topic)].Topics[topic]
	if tn == nil {
		return false
	}
	_, ok := tn.Items[questionID]
	return ok
}

// AddAttempt records a submission for questionID and returns true when the
// item was newly created. Totals are bumped exactly once per distinct
// question; subsequent calls only merge metadata. The completion time is
// never modified unless meta supplies one explicitly. An empty questionID
// is a no-op returning false.
func (t *Tree) AddAttempt(questionID string, meta Meta) bool {
	if questionID == "" {
		return false
	}

	topic := TopicOf(questionID)
	paper := t.pm.PaperFor(topic)
	now := time.Now().UTC()

	pn := t.papers[paper]
	tn := pn.Topics[topic]
	if tn == nil {
		tn = &topicNode{Items: make(map[string]*Item)}
		pn.Topics[topic] = tn
	}

	if item, ok := tn.Items[questionID]; ok {
		if meta.CompletedAt != nil {
			item.CompletedAt = *meta.CompletedAt
		}
		if meta.TimeTakenSeconds != nil {
			item.TimeTakenSeconds = *meta.TimeTakenSeconds
		}
		if meta.Notes != nil {
			item.Notes = *meta.Notes
		}
		item.LastUpdatedAt = now
		return false
	}

	item := &Item{
		CompletedAt:   now,
		LastUpdatedAt: now,
		Seq:           t.nextSeq,
	}
	t.nextSeq++
	if meta.CompletedAt != nil {
		item.CompletedAt = *meta.CompletedAt
	}
	if meta.TimeTakenSeconds != nil {
		item.TimeTakenSeconds = *meta.TimeTakenSeconds
	}
	if meta.Notes != nil {
		item.Notes = *meta.Notes
	}
	tn.Items[questionID] = item

	t.totals.All++
	switch paper {
	case Paper1:
		t.totals.Paper1++
	default:
		t.totals.Paper2++
	}
	t.totals.Topics[topic]++

	return true
}

// TotalCount returns the cached count of distinct completed questions.
func (t *Tree) TotalCount() int {
	return t.totals.All
}

// PaperCount returns the cached count for one paper.
func (t *Tree) PaperCount(paper Paper) int {
	if paper == Paper1 {
		return t.totals.Paper1
	}
	return t.totals.Paper2
}

// TopicCount returns the cached count for one topic.
func (t *Tree) TopicCount(topic string) int {
	return t.totals.Topics[topic]
}

// Totals returns a copy of the cached counters.
func (t *Tree) Totals() Totals {
	topics := make(map[string]int, len(t.totals.Topics))
	for k, v := range t.totals.Topics {
		topics[k] = v
	}
	return Totals{
		All:    t.totals.All,
		Paper1: t.totals.Paper1,
		Paper2: t.totals.Paper2,
		Topics: topics,
	}
}

// ToAttempts flattens the tree into the legacy attempt list, most recently
// completed first. Equal completion times keep insertion order; items
// without a completion time sort as the oldest.
func (t *Tree) ToAttempts() []Attempt {
	type flat struct {
		attempt Attempt
		seq     int
	}

	var out []flat
	for _, pn := range t.papers {
		for _, tn := range pn.Topics {
			for id, item := range tn.Items {
				out = append(out, flat{
					attempt: Attempt{
						QuestionID:       id,
						CompletedAt:      item.CompletedAt,
						LastUpdatedAt:    item.LastUpdatedAt,
						TimeTakenSeconds: item.TimeTakenSeconds,
						Notes:            item.Notes,
					},
					seq: item.Seq,
				})
			}
		}
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].attempt.CompletedAt, out[j].attempt.CompletedAt
		if !a.Equal(b) {
			return a.After(b)
		}
		return out[i].seq < out[j].seq
	})

	attempts := make([]Attempt, len(out))
	for i, f := range out {
		attempts[i] = f.attempt
	}
	return attempts
}

// snapshot is the persisted wire form of a tree.
type snapshot struct {
	Version int                  `json:"version"`
	Tree    map[Paper]*paperNode `json:"tree"`
	Totals  Totals               `json:"totals"`
}

// MarshalJSON serializes the tree as {version, tree, totals}.
func (t *Tree) MarshalJSON() ([]byte, error) {
	return json.Marshal(snapshot{
		Version: Version,
		Tree:    t.papers,
		Totals:  t.totals,
	})
}

// Restore rebuilds a tree from a serialized snapshot. Restore is
// best-effort: malformed or unrecognized input yields a fresh empty tree
// rather than an error. Totals are recomputed from the restored leaves so
// the counter invariant holds even for hand-edited snapshots.
func Restore(data []byte, pm PaperMap) *Tree {
	t := New(pm)
	if len(data) == 0 {
		return t
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return t
	}
	if snap.Version != Version || snap.Tree == nil {
		return t
	}

	// Topics are reclassified through the active paper map rather than the
	// paper they were stored under, so lookups stay consistent when the
	// mapping changes between snapshot and restore.
	for _, stored := range []Paper{Paper1, Paper2} {
		pn := snap.Tree[stored]
		if pn == nil || pn.Topics == nil {
			continue
		}
		for topic, tn := range pn.Topics {
			if tn == nil || len(tn.Items) == 0 {
				continue
			}
			paper := t.pm.PaperFor(topic)
			dst := t.papers[paper].Topics[topic]
			if dst == nil {
				dst = &topicNode{Items: make(map[string]*Item, len(tn.Items))}
				t.papers[paper].Topics[topic] = dst
			}
			for id, item := range tn.Items {
				if id == "" || item == nil {
					continue
				}
				if _, dup := dst.Items[id]; dup {
					continue
				}
				dst.Items[id] = item
				t.totals.All++
				if paper == Paper1 {
					t.totals.Paper1++
				} else {
					t.totals.Paper2++
				}
				t.totals.Topics[topic]++
				if item.Seq >= t.nextSeq {
					t.nextSeq = item.Seq + 1
				}
			}
		}
	}

	return t
}
