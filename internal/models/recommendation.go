package models

import "fmt"

// Recommendation is the suggested action for an item, derived from its days left.
type Recommendation int

const (
	Keep Recommendation = iota
	EatSoonOrDonate
	Compost
)

// EatSoonMaxDays is the last day count that still classifies as EatSoonOrDonate.
const EatSoonMaxDays = 3

var recommendationLabels = map[Recommendation]string{
	Keep:            "Keep",
	EatSoonOrDonate: "Eat soon / Donate",
	Compost:         "Compost",
}

// Recommendations lists every category in chart order.
func Recommendations() []Recommendation {
	return []Recommendation{Keep, EatSoonOrDonate, Compost}
}

// Classify maps days left to a recommendation. An item expiring today is
// already Compost.
func Classify(daysLeft int) Recommendation {
	switch {
	case daysLeft <= 0:
		return Compost
	case daysLeft <= EatSoonMaxDays:
		return EatSoonOrDonate
	default:
		return Keep
	}
}

func (r Recommendation) String() string {
	if label, ok := recommendationLabels[r]; ok {
		return label
	}
	return fmt.Sprintf("Recommendation(%d)", int(r))
}

func (r Recommendation) MarshalText() ([]byte, error) {
	if _, ok := recommendationLabels[r]; !ok {
		return nil, fmt.Errorf("unknown recommendation %d", int(r))
	}
	return []byte(r.String()), nil
}

func (r *Recommendation) UnmarshalText(b []byte) error {
	for rec, label := range recommendationLabels {
		if label == string(b) {
			*r = rec
			return nil
		}
	}
	return fmt.Errorf("unknown recommendation %q", string(b))
}
