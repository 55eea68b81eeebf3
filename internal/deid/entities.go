// Package deid finds personal data in clinical text and masks it.
package deid

type Entity string

const (
	Person       Entity = "PERSON"
	PhoneNumber  Entity = "PHONE_NUMBER"
	EmailAddress Entity = "EMAIL_ADDRESS"
	DateTime     Entity = "DATE_TIME"
	NRP          Entity = "NRP"
	Location     Entity = "LOCATION"
)

// DefaultEntities are the classes masked on every document.
var DefaultEntities = []Entity{Person, PhoneNumber, EmailAddress, DateTime, NRP}

// Span is a detected entity over text[Start:End], in byte offsets.
type Span struct {
	Start  int
	End    int
	Entity Entity
	Score  float64
}

func (s Span) length() int { return s.End - s.Start }
