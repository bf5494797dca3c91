package progress

import (
	"os"
	"path/filepath"
	"testing"
)

func TestTopicOf(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"alg-1001", "alg"},
		{"complex-12-b", "complex"},
		{"nosplit", TopicUnknown},
		{"-leading", TopicUnknown},
		{"", TopicUnknown},
	}
	for _, tc := range tests {
		if got := TopicOf(tc.id); got != tc.want {
			t.Errorf("TopicOf(%q) = %q, want %q", tc.id, got, tc.want)
		}
	}
}

func TestPaperForIsCaseInsensitive(t *testing.T) {
	pm := DefaultPaperMap()

	if got := pm.PaperFor("Algebra"); got != Paper1 {
		t.Errorf("PaperFor(Algebra) = %v, want paper1", got)
	}
	if got := pm.PaperFor("ALG"); got != Paper1 {
		t.Errorf("PaperFor(ALG) = %v, want paper1", got)
	}
	if got := pm.PaperFor("geometry"); got != Paper2 {
		t.Errorf("PaperFor(geometry) = %v, want paper2 default", got)
	}
	if got := pm.PaperFor(TopicUnknown); got != Paper2 {
		t.Errorf("PaperFor(unknown) = %v, want paper2 default", got)
	}
}

func TestLoadPaperMap(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "papers.json")
	if err := os.WriteFile(path, []byte(`{"Mechanics": "paper1", "geo": "paper2"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	pm, err := LoadPaperMap(path)
	if err != nil {
		t.Fatalf("LoadPaperMap: %v", err)
	}
	if got := pm.PaperFor("mechanics"); got != Paper1 {
		t.Errorf("PaperFor(mechanics) = %v, want paper1", got)
	}
	if got := pm.PaperFor("geo"); got != Paper2 {
		t.Errorf("PaperFor(geo) = %v, want paper2", got)
	}
}

func TestLoadPaperMapRejectsBadPaper(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "papers.json")
	if err := os.WriteFile(path, []byte(`{"alg": "paper3"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadPaperMap(path); err == nil {
		t.Error("LoadPaperMap accepted an unknown paper value")
	}
}

func TestLoadPaperMapMissingFile(t *testing.T) {
	if _, err := LoadPaperMap(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("LoadPaperMap on a missing file returned nil error")
	}
}
