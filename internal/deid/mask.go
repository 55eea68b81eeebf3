package deid

import (
	"context"
	"sort"
	"strings"
)

// Analyzer is an external detection engine whose spans complement the built-in recognizers.
type Analyzer interface {
	Analyze(ctx context.Context, text string) ([]Span, error)
}

type Masker struct {
	recognizers []Recognizer
	analyzer    Analyzer
	allowed     map[Entity]struct{}
}

// NewMasker masks the given entity classes. analyzer may be nil.
func NewMasker(entities []Entity, analyzer Analyzer) *Masker {
	allowed := make(map[Entity]struct{}, len(entities))
	for _, e := range entities {
		allowed[e] = struct{}{}
	}
	return &Masker{
		recognizers: BuiltinRecognizers(entities),
		analyzer:    analyzer,
		allowed:     allowed,
	}
}

func (m *Masker) Detect(ctx context.Context, text string) ([]Span, error) {
	var spans []Span
	for _, r := range m.recognizers {
		spans = append(spans, r.Recognize(text)...)
	}
	if m.analyzer != nil {
		external, err := m.analyzer.Analyze(ctx, text)
		if err != nil {
			return nil, err
		}
		for _, s := range external {
			if _, ok := m.allowed[s.Entity]; ok {
				spans = append(spans, s)
			}
		}
	}
	return mergeSpans(spans), nil
}

// Mask replaces every detected span with <ENTITY>.
func (m *Masker) Mask(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	spans, err := m.Detect(ctx, text)
	if err != nil {
		return "", err
	}
	return apply(text, spans), nil
}

// mergeSpans folds overlapping spans into one. The label of the longest
// member wins, ties go to the higher score.
func mergeSpans(spans []Span) []Span {
	if len(spans) == 0 {
		return nil
	}
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].Start == spans[j].Start {
			return spans[i].End > spans[j].End
		}
		return spans[i].Start < spans[j].Start
	})

	merged := []Span{spans[0]}
	winner := spans[0]
	for _, s := range spans[1:] {
		last := &merged[len(merged)-1]
		if s.Start >= last.End {
			merged = append(merged, s)
			winner = s
			continue
		}
		if s.length() > winner.length() || s.length() == winner.length() && s.Score > winner.Score {
			winner = s
		}
		if s.End > last.End {
			last.End = s.End
		}
		last.Entity = winner.Entity
		if winner.Score > last.Score {
			last.Score = winner.Score
		}
	}
	return merged
}

func apply(text string, spans []Span) string {
	var b strings.Builder
	b.Grow(len(text))
	prev := 0
	for _, s := range spans {
		b.WriteString(text[prev:s.Start])
		b.WriteString("<")
		b.WriteString(string(s.Entity))
		b.WriteString(">")
		prev = s.End
	}
	b.WriteString(text[prev:])
	return b.String()
}
