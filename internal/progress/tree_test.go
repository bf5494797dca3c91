package progress

import (
	"encoding/json"
	"testing"
	"time"
)

func intPtr(v int) *int          { return &v }
func strPtr(v string) *string    { return &v }
func timePtr(v time.Time) *time.Time { return &v }

func TestAddAttemptCountsDistinctQuestions(t *testing.T) {
	tree := New(nil)

	ids := []string{"alg-1001", "alg-1002", "geo-2001", "stats-3001", "int-4001"}
	for _, id := range ids {
		if !tree.AddAttempt(id, Meta{}) {
			t.Fatalf("AddAttempt(%q) = false, want true for first submission", id)
		}
	}

	if got := tree.TotalCount(); got != len(ids) {
		t.Errorf("TotalCount() = %d, want %d", got, len(ids))
	}
	if got := tree.TopicCount("alg"); got != 2 {
		t.Errorf("TopicCount(alg) = %d, want 2", got)
	}
}

func TestAddAttemptIdempotentTotals(t *testing.T) {
	tree := New(nil)

	tree.AddAttempt("alg-1001", Meta{Notes: strPtr("first try")})
	if tree.AddAttempt("alg-1001", Meta{Notes: strPtr("second try")}) {
		t.Fatal("AddAttempt on existing question returned true, want false")
	}

	if got := tree.TotalCount(); got != 1 {
		t.Errorf("TotalCount() = %d after resubmission, want 1", got)
	}
	if got := tree.PaperCount(Paper1); got != 1 {
		t.Errorf("PaperCount(paper1) = %d after resubmission, want 1", got)
	}

	attempts := tree.ToAttempts()
	if len(attempts) != 1 || attempts[0].Notes != "second try" {
		t.Errorf("resubmission did not update notes: %+v", attempts)
	}
}

func TestAddAttemptMergesOnlySuppliedFields(t *testing.T) {
	tree := New(nil)

	tree.AddAttempt("alg-1001", Meta{TimeTakenSeconds: intPtr(120), Notes: strPtr("tricky")})
	tree.AddAttempt("alg-1001", Meta{TimeTakenSeconds: intPtr(95)})

	got := tree.ToAttempts()[0]
	if got.TimeTakenSeconds != 95 {
		t.Errorf("TimeTakenSeconds = %d, want 95", got.TimeTakenSeconds)
	}
	if got.Notes != "tricky" {
		t.Errorf("Notes = %q, want unchanged %q", got.Notes, "tricky")
	}
}

func TestCompletedAtImmutableUnlessSupplied(t *testing.T) {
	tree := New(nil)
	first := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	tree.AddAttempt("alg-1001", Meta{CompletedAt: timePtr(first)})
	tree.AddAttempt("alg-1001", Meta{Notes: strPtr("revisited")})

	if got := tree.ToAttempts()[0].CompletedAt; !got.Equal(first) {
		t.Errorf("CompletedAt changed on metadata-only update: got %v, want %v", got, first)
	}

	later := first.Add(48 * time.Hour)
	tree.AddAttempt("alg-1001", Meta{CompletedAt: timePtr(later)})
	if got := tree.ToAttempts()[0].CompletedAt; !got.Equal(later) {
		t.Errorf("explicit CompletedAt not applied: got %v, want %v", got, later)
	}
}

func TestHasAfterAdd(t *testing.T) {
	tree := New(nil)

	if tree.Has("alg-1001") {
		t.Fatal("Has on empty tree = true")
	}
	tree.AddAttempt("alg-1001", Meta{})
	if !tree.Has("alg-1001") {
		t.Fatal("Has = false immediately after AddAttempt")
	}

	tree.AddAttempt("alg-1001", Meta{Notes: strPtr("again")})
	if !tree.Has("alg-1001") {
		t.Fatal("Has = false after metadata-only update")
	}
	if tree.Has("alg-9999") {
		t.Error("Has reports an unknown question in an existing topic")
	}
	if tree.Has("geo-1001") {
		t.Error("Has reports a question in a topic that was never touched")
	}
}

func TestEmptyQuestionIDIsNoOp(t *testing.T) {
	tree := New(nil)

	if tree.AddAttempt("", Meta{Notes: strPtr("lost")}) {
		t.Error("AddAttempt with empty ID returned true")
	}
	if got := tree.TotalCount(); got != 0 {
		t.Errorf("TotalCount() = %d after empty-ID add, want 0", got)
	}
	if tree.Has("") {
		t.Error("Has(\"\") = true")
	}
}

func TestPaperClassification(t *testing.T) {
	tree := New(nil)

	tests := []struct {
		id    string
		paper Paper
		topic string
	}{
		{"alg-1001", Paper1, "alg"},
		{"complex-12", Paper1, "complex"},
		{"diff-7", Paper1, "diff"},
		{"int-3", Paper1, "int"},
		{"seq-9", Paper1, "seq"},
		{"fin-2", Paper1, "fin"},
		{"induction-5", Paper1, "induction"},
		{"geo-1001", Paper2, "geo"},
		{"trig-44", Paper2, "trig"},
		{"stats-8", Paper2, "stats"},
		{"prob-1", Paper2, "prob"},
		{"nosplit", Paper2, TopicUnknown},
	}

	for _, tc := range tests {
		tree.AddAttempt(tc.id, Meta{})
	}
	for _, tc := range tests {
		if got := tree.TopicCount(tc.topic); got == 0 {
			t.Errorf("AddAttempt(%q): topic %q not counted", tc.id, tc.topic)
		}
	}

	wantP1, wantP2 := 0, 0
	for _, tc := range tests {
		if tc.paper == Paper1 {
			wantP1++
		} else {
			wantP2++
		}
	}
	if got := tree.PaperCount(Paper1); got != wantP1 {
		t.Errorf("PaperCount(paper1) = %d, want %d", got, wantP1)
	}
	if got := tree.PaperCount(Paper2); got != wantP2 {
		t.Errorf("PaperCount(paper2) = %d, want %d", got, wantP2)
	}
	if got := tree.TotalCount(); got != wantP1+wantP2 {
		t.Errorf("TotalCount() = %d, want %d", got, wantP1+wantP2)
	}
}

func TestToAttemptsOrdering(t *testing.T) {
	tree := New(nil)
	base := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

	tree.AddAttempt("alg-1", Meta{CompletedAt: timePtr(base.Add(time.Hour))})
	tree.AddAttempt("geo-1", Meta{CompletedAt: timePtr(base.Add(3 * time.Hour))})
	tree.AddAttempt("trig-1", Meta{CompletedAt: timePtr(base)})
	// Same timestamp as alg-1: the earlier insertion wins the tie.
	tree.AddAttempt("stats-1", Meta{CompletedAt: timePtr(base.Add(time.Hour))})
	// Missing completion time sorts as oldest.
	tree.AddAttempt("prob-1", Meta{CompletedAt: timePtr(time.Time{})})

	got := tree.ToAttempts()
	want := []string{"geo-1", "alg-1", "stats-1", "trig-1", "prob-1"}
	if len(got) != len(want) {
		t.Fatalf("ToAttempts() returned %d records, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].QuestionID != id {
			t.Errorf("ToAttempts()[%d] = %q, want %q", i, got[i].QuestionID, id)
		}
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	tree := New(nil)
	base := time.Date(2025, 2, 14, 8, 30, 0, 0, time.UTC)

	ids := []string{"alg-1", "alg-2", "geo-1", "seq-1", "stats-7", "nosplit"}
	for i, id := range ids {
		tree.AddAttempt(id, Meta{
			CompletedAt:      timePtr(base.Add(time.Duration(i) * time.Minute)),
			TimeTakenSeconds: intPtr(60 + i),
			Notes:            strPtr("note"),
		})
	}

	raw, err := json.Marshal(tree)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	restored := Restore(raw, nil)

	if got, want := restored.Totals(), tree.Totals(); got.All != want.All ||
		got.Paper1 != want.Paper1 || got.Paper2 != want.Paper2 {
		t.Errorf("restored totals = %+v, want %+v", got, want)
	}
	for topic, count := range tree.Totals().Topics {
		if restored.TopicCount(topic) != count {
			t.Errorf("restored TopicCount(%q) = %d, want %d", topic, restored.TopicCount(topic), count)
		}
	}
	for _, id := range ids {
		if !restored.Has(id) {
			t.Errorf("restored tree missing %q", id)
		}
	}

	// Flattened projections must agree record for record.
	gotAttempts, wantAttempts := restored.ToAttempts(), tree.ToAttempts()
	if len(gotAttempts) != len(wantAttempts) {
		t.Fatalf("restored ToAttempts() has %d records, want %d", len(gotAttempts), len(wantAttempts))
	}
	for i := range wantAttempts {
		if gotAttempts[i].QuestionID != wantAttempts[i].QuestionID {
			t.Errorf("restored ToAttempts()[%d] = %q, want %q",
				i, gotAttempts[i].QuestionID, wantAttempts[i].QuestionID)
		}
	}
}

func TestRestoreMalformedYieldsEmptyTree(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"nil", nil},
		{"empty", []byte{}},
		{"garbage", []byte("{not json")},
		{"wrong version", []byte(`{"version":99,"tree":{},"totals":{}}`)},
		{"missing tree", []byte(`{"version":1,"totals":{"all":3}}`)},
		{"wrong shape", []byte(`[1,2,3]`)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tree := Restore(tc.data, nil)
			if tree == nil {
				t.Fatal("Restore returned nil")
			}
			if got := tree.TotalCount(); got != 0 {
				t.Errorf("TotalCount() = %d, want 0", got)
			}
			if !tree.AddAttempt("alg-1", Meta{}) {
				t.Error("restored-empty tree rejected a fresh attempt")
			}
		})
	}
}

func TestFromAttemptsReplaysFlatList(t *testing.T) {
	base := time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC)
	attempts := []Attempt{
		{QuestionID: "alg-1", CompletedAt: base, TimeTakenSeconds: 90},
		{QuestionID: "geo-1", CompletedAt: base.Add(time.Hour), Notes: "compass"},
		{QuestionID: "alg-1", CompletedAt: base.Add(2 * time.Hour), Notes: "retried"},
		{QuestionID: "seq-3", CompletedAt: base.Add(3 * time.Hour)},
	}

	tree := FromAttempts(attempts, nil)

	if got := tree.TotalCount(); got != 3 {
		t.Errorf("TotalCount() = %d, want 3 distinct questions", got)
	}

	// First occurrence controls the completion time, last wins on metadata.
	var alg Attempt
	for _, a := range tree.ToAttempts() {
		if a.QuestionID == "alg-1" {
			alg = a
		}
	}
	if !alg.CompletedAt.Equal(base) {
		t.Errorf("alg-1 CompletedAt = %v, want first-seen %v", alg.CompletedAt, base)
	}
	if alg.Notes != "retried" {
		t.Errorf("alg-1 Notes = %q, want last-write %q", alg.Notes, "retried")
	}
	if alg.TimeTakenSeconds != 90 {
		t.Errorf("alg-1 TimeTakenSeconds = %d, want merged 90", alg.TimeTakenSeconds)
	}
}

func TestFromAttemptsOfToAttemptsReproducesTotals(t *testing.T) {
	tree := New(nil)
	base := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

	ids := []string{"alg-1", "alg-2", "complex-1", "geo-4", "trig-2", "stats-9", "fin-3"}
	for i, id := range ids {
		tree.AddAttempt(id, Meta{CompletedAt: timePtr(base.Add(time.Duration(i) * time.Minute))})
	}

	rebuilt := FromAttempts(tree.ToAttempts(), nil)

	got, want := rebuilt.Totals(), tree.Totals()
	if got.All != want.All || got.Paper1 != want.Paper1 || got.Paper2 != want.Paper2 {
		t.Errorf("rebuilt totals = %+v, want %+v", got, want)
	}
	for topic, count := range want.Topics {
		if got.Topics[topic] != count {
			t.Errorf("rebuilt TopicCount(%q) = %d, want %d", topic, got.Topics[topic], count)
		}
	}
}

func TestRestoreReclassifiesWithActivePaperMap(t *testing.T) {
	// Build under the default map where "geo" is paper 2.
	tree := New(nil)
	tree.AddAttempt("geo-1", Meta{})

	raw, err := json.Marshal(tree)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	// Restore under a map that promotes "geo" to paper 1.
	pm := DefaultPaperMap()
	pm["geo"] = Paper1
	restored := Restore(raw, pm)

	if !restored.Has("geo-1") {
		t.Fatal("restored tree lost geo-1 after paper map change")
	}
	if got := restored.PaperCount(Paper1); got != 1 {
		t.Errorf("PaperCount(paper1) = %d after reclassification, want 1", got)
	}
	if got := restored.PaperCount(Paper2); got != 0 {
		t.Errorf("PaperCount(paper2) = %d after reclassification, want 0", got)
	}
}
