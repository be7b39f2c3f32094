package attendance

import "strings"

// Attribute is one of the wearable items the camera checks at scan time.
type Attribute uint8

const (
	NameTag Attribute = 1 << iota
	AspirationPin
	IDCard
)

// RequiredAttributes lists every attribute a complete record must carry,
// in display order.
var RequiredAttributes = []Attribute{NameTag, AspirationPin, IDCard}

var attributeTokens = map[Attribute]string{
	NameTag:       "NAME TAG",
	AspirationPin: "PIN CITA CITA",
	IDCard:        "ID CARD",
}

var attributeLabels = map[Attribute]string{
	NameTag:       "Name Tag",
	AspirationPin: "Pin Cita-cita",
	IDCard:        "ID Card",
}

// Token is the detector class name used on the wire.
func (a Attribute) Token() string { return attributeTokens[a] }

// Label is the human readable name.
func (a Attribute) Label() string { return attributeLabels[a] }

func (a Attribute) String() string { return a.Token() }

// ParseAttribute maps a detector token to an Attribute. Case, hyphens and
// repeated spaces are ignored; unknown tokens report false.
func ParseAttribute(token string) (Attribute, bool) {
	norm := strings.NewReplacer("-", " ", "_", " ").Replace(strings.ToUpper(token))
	norm = strings.Join(strings.Fields(norm), " ")
	for _, a := range RequiredAttributes {
		if attributeTokens[a] == norm {
			return a, true
		}
	}
	return 0, false
}

// AttributeSet is the set of attributes detected for one scan.
type AttributeSet uint8

// NewAttributeSet builds a set from detector tokens, ignoring unknown ones.
func NewAttributeSet(tokens []string) AttributeSet {
	var s AttributeSet
	for _, tok := range tokens {
		if a, ok := ParseAttribute(tok); ok {
			s = s.With(a)
		}
	}
	return s
}

// With returns the set plus a.
func (s AttributeSet) With(a Attribute) AttributeSet { return s | AttributeSet(a) }

// Has reports membership.
func (s AttributeSet) Has(a Attribute) bool { return s&AttributeSet(a) != 0 }

// Complete reports whether every required attribute is present.
func (s AttributeSet) Complete() bool {
	for _, a := range RequiredAttributes {
		if !s.Has(a) {
			return false
		}
	}
	return true
}

// Present lists the detected attributes in display order.
func (s AttributeSet) Present() []Attribute {
	out := make([]Attribute, 0, len(RequiredAttributes))
	for _, a := range RequiredAttributes {
		if s.Has(a) {
			out = append(out, a)
		}
	}
	return out
}

// Missing lists the absent attributes in display order.
func (s AttributeSet) Missing() []Attribute {
	out := make([]Attribute, 0, len(RequiredAttributes))
	for _, a := range RequiredAttributes {
		if !s.Has(a) {
			out = append(out, a)
		}
	}
	return out
}

// Completeness is derived on demand from an AttributeSet.
type Completeness struct {
	Complete bool
	Present  int
	Required int
	Percent  int
	Missing  []Attribute
}

// Completeness summarizes the set against RequiredAttributes.
func (s AttributeSet) Completeness() Completeness {
	present := len(s.Present())
	return Completeness{
		Complete: s.Complete(),
		Present:  present,
		Required: len(RequiredAttributes),
		Percent:  Percent(present, len(RequiredAttributes)),
		Missing:  s.Missing(),
	}
}

// Labels returns the display labels of attrs.
func Labels(attrs []Attribute) []string {
	out := make([]string, len(attrs))
	for i, a := range attrs {
		out[i] = a.Label()
	}
	return out
}
