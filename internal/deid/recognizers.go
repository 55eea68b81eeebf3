package deid

import (
	_ "embed"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Recognizer reports the entity spans it finds in text.
type Recognizer interface {
	Recognize(text string) []Span
}

type patternRecognizer struct {
	entity   Entity
	score    float64
	patterns []*regexp.Regexp
}

func (p patternRecognizer) Recognize(text string) []Span {
	var spans []Span
	for _, re := range p.patterns {
		for _, loc := range re.FindAllStringSubmatchIndex(text, -1) {
			start, end := loc[0], loc[1]
			// a named group "pii" narrows the span, e.g. a name after its honorific
			if i := re.SubexpIndex("pii"); i > 0 && loc[2*i] >= 0 {
				start, end = loc[2*i], loc[2*i+1]
			}
			spans = append(spans, Span{Start: start, End: end, Entity: p.entity, Score: p.score})
		}
	}
	return spans
}

const frenchMonths = `janvier|février|fevrier|mars|avril|mai|juin|juillet|août|aout|septembre|octobre|novembre|décembre|decembre`
const englishMonths = `january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sep|sept|oct|nov|dec`

var phoneRecognizer = patternRecognizer{
	entity: PhoneNumber,
	score:  0.75,
	patterns: []*regexp.Regexp{
		// french national and +33 forms: 0612345678, 06 12 34 56 78, +33 6 12 34 56 78
		regexp.MustCompile(`(?:\+33\s?\(?0?\)?\s?|\b0)[1-9](?:[\s.-]?\d{2}){4}\b`),
		// north american: (555) 123-4567, 555-123-4567
		regexp.MustCompile(`(?:\+1[\s.-]?)?(?:\(\d{3}\)\s?|\b\d{3}[\s.-])\d{3}[\s.-]\d{4}\b`),
		// generic international
		regexp.MustCompile(`\+\d{1,3}(?:[\s.-]?\d{2,4}){3,5}\b`),
	},
}

var emailRecognizer = patternRecognizer{
	entity: EmailAddress,
	score:  1.0,
	patterns: []*regexp.Regexp{
		regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
	},
}

var dateTimeRecognizer = patternRecognizer{
	entity: DateTime,
	score:  0.6,
	patterns: []*regexp.Regexp{
		regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}(?:[T ]\d{2}:\d{2}(?::\d{2})?)?\b`),
		regexp.MustCompile(`\b\d{1,2}[/.-]\d{1,2}[/.-]\d{2,4}\b`),
		regexp.MustCompile(`(?i)\b\d{1,2}(?:er)?\s+(?:` + frenchMonths + `)\s+\d{4}\b`),
		regexp.MustCompile(`(?i)\b(?:` + englishMonths + `)\.?\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{4}\b`),
		regexp.MustCompile(`\b(?:[01]?\d|2[0-3])[h:][0-5]\d\b`),
	},
}

var nationalIdRecognizer = patternRecognizer{
	entity: NRP,
	score:  0.85,
	patterns: []*regexp.Regexp{
		// french NIR: sex, year, month, department, commune, order, optional key
		regexp.MustCompile(`\b[12]\s?\d{2}\s?(?:0[1-9]|1[0-2])\s?(?:\d{2}|2[AB])\s?\d{3}\s?\d{3}(?:\s?\d{2})?\b`),
		// US SSN
		regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
	},
}

var honorificRecognizer = patternRecognizer{
	entity: Person,
	score:  0.85,
	patterns: []*regexp.Regexp{
		regexp.MustCompile(`\b(?:M\.|Mme\.?|Mlle\.?|Mr\.?|Mrs\.?|Ms\.?|Dr\.?|Pr\.?|Monsieur|Madame|Mademoiselle|Docteur|Professeur)\s+(?P<pii>\p{Lu}[\p{L}'-]+(?:\s+\p{Lu}[\p{L}'-]+)?)`),
	},
}

//go:embed first_names.txt
var firstNamesFile string

//go:embed locations.txt
var locationsFile string

func wordSet(file string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, line := range strings.Split(file, "\n") {
		if w := strings.TrimSpace(line); w != "" {
			set[strings.ToLower(w)] = struct{}{}
		}
	}
	return set
}

var capitalizedWord = regexp.MustCompile(`\p{Lu}[\p{L}'-]*`)

type token struct {
	start, end int
	word       string
}

func capitalizedTokens(text string) []token {
	locs := capitalizedWord.FindAllStringIndex(text, -1)
	out := make([]token, 0, len(locs))
	for _, l := range locs {
		// skip matches that start inside a word
		if l[0] > 0 && isLetter(text[:l[0]]) {
			continue
		}
		out = append(out, token{start: l[0], end: l[1], word: text[l[0]:l[1]]})
	}
	return out
}

func isLetter(prefix string) bool {
	r, _ := utf8.DecodeLastRuneInString(prefix)
	return unicode.IsLetter(r)
}

func onlySpaces(s string) bool {
	return s != "" && strings.TrimSpace(s) == "" && !strings.Contains(s, "\n\n")
}

func isUpper(word string) bool {
	return len([]rune(word)) > 1 && strings.ToUpper(word) == word
}

// nameRecognizer pairs a known first name with an adjacent capitalized surname,
// in either "Jean Dupont" or "DUPONT Jean" order.
type nameRecognizer struct {
	firstNames map[string]struct{}
}

func (n nameRecognizer) known(word string) bool {
	w := strings.ToLower(word)
	// "Jean-Pierre"
	if i := strings.IndexByte(w, '-'); i > 0 {
		w = w[:i]
	}
	_, ok := n.firstNames[w]
	return ok
}

func (n nameRecognizer) Recognize(text string) []Span {
	var spans []Span
	tokens := capitalizedTokens(text)
	for i := 0; i+1 < len(tokens); i++ {
		cur, next := tokens[i], tokens[i+1]
		if !onlySpaces(text[cur.end:next.start]) {
			continue
		}
		if !n.known(cur.word) && !(isUpper(cur.word) && n.known(next.word)) {
			continue
		}
		end := next.end
		// "Jean DUPONT MOREAU"
		if i+2 < len(tokens) && isUpper(next.word) && isUpper(tokens[i+2].word) && onlySpaces(text[next.end:tokens[i+2].start]) {
			end = tokens[i+2].end
			i++
		}
		spans = append(spans, Span{Start: cur.start, End: end, Entity: Person, Score: 0.7})
		i++
	}
	return spans
}

type locationRecognizer struct {
	places map[string]struct{}
}

func (l locationRecognizer) Recognize(text string) []Span {
	var spans []Span
	for _, t := range capitalizedTokens(text) {
		if _, ok := l.places[strings.ToLower(t.word)]; ok {
			spans = append(spans, Span{Start: t.start, End: t.end, Entity: Location, Score: 0.5})
		}
	}
	return spans
}

// BuiltinRecognizers returns the in-process recognizers for the requested entity classes.
func BuiltinRecognizers(entities []Entity) []Recognizer {
	var out []Recognizer
	for _, e := range entities {
		switch e {
		case Person:
			out = append(out, honorificRecognizer, nameRecognizer{firstNames: wordSet(firstNamesFile)})
		case PhoneNumber:
			out = append(out, phoneRecognizer)
		case EmailAddress:
			out = append(out, emailRecognizer)
		case DateTime:
			out = append(out, dateTimeRecognizer)
		case NRP:
			out = append(out, nationalIdRecognizer)
		case Location:
			out = append(out, locationRecognizer{places: wordSet(locationsFile)})
		}
	}
	return out
}
