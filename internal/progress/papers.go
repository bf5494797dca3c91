package progress

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Paper is one of the two fixed top-level curriculum groupings.
type Paper string

const (
	Paper1 Paper = "paper1"
	Paper2 Paper = "paper2"
)

// TopicUnknown is assigned when a question ID carries no topic prefix.
const TopicUnknown = "unknown"

// PaperMap is an explicit topic→paper classification table. Topics absent
// from the map classify as paper 2.
type PaperMap map[string]Paper

// DefaultPaperMap returns the built-in curriculum mapping. Paper 1 covers
// algebra, complex numbers, differentiation, integration, sequences and
// series, financial maths and induction, under their common topic slugs.
func DefaultPaperMap() PaperMap {
	return PaperMap{
		"alg":             Paper1,
		"algebra":         Paper1,
		"complex":         Paper1,
		"complexnumbers":  Paper1,
		"cn":              Paper1,
		"diff":            Paper1,
		"differentiation": Paper1,
		"calculus":        Paper1,
		"int":             Paper1,
		"integration":     Paper1,
		"seq":             Paper1,
		"sequences":       Paper1,
		"series":          Paper1,
		"fin":             Paper1,
		"financial":       Paper1,
		"financialmaths":  Paper1,
		"ind":             Paper1,
		"induction":       Paper1,
		"proof":           Paper1,
	}
}

// LoadPaperMap reads a topic→paper mapping from a JSON file of the form
// {"alg": "paper1", "geo": "paper2", ...}. Values other than "paper1" and
// "paper2" are rejected.
func LoadPaperMap(path string) (PaperMap, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read paper map: %w", err)
	}

	var loaded map[string]string
	if err := json.Unmarshal(raw, &loaded); err != nil {
		return nil, fmt.Errorf("parse paper map: %w", err)
	}

	pm := make(PaperMap, len(loaded))
	for topic, paper := range loaded {
		switch Paper(paper) {
		case Paper1, Paper2:
			pm[strings.ToLower(topic)] = Paper(paper)
		default:
			return nil, fmt.Errorf("paper map: topic %q has unknown paper %q", topic, paper)
		}
	}
	return pm, nil
}

// PaperFor classifies a topic. Lookup is case-insensitive; unmapped topics
// default to paper 2.
func (pm PaperMap) PaperFor(topic string) Paper {
	if p, ok := pm[strings.ToLower(topic)]; ok {
		return p
	}
	return Paper2
}

// TopicOf derives the topic slug from a question ID: the substring before
// the first '-'. IDs without a separator classify as TopicUnknown.
func TopicOf(questionID string) string {
	if i := strings.IndexByte(questionID, '-'); i > 0 {
		return questionID[:i]
	}
	return TopicUnknown
}
