package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// JudgmentType enumerates the binary questions asked of the oracle.
type JudgmentType int

const (
	JudgmentRelevance JudgmentType = iota + 1
	JudgmentNuggetAgreement
	JudgmentRequiresNegative
	JudgmentRequiresCitation
	JudgmentFirstInstance
)

var judgmentTypeNames = map[JudgmentType]string{
	JudgmentRelevance:        "RELEVANCE",
	JudgmentNuggetAgreement:  "NUGGET_AGREEMENT",
	JudgmentRequiresNegative: "REQUIRES_NEGATIVE",
	JudgmentRequiresCitation: "REQUIRES_CITATION",
	JudgmentFirstInstance:    "FIRST_INSTANCE",
}

// JudgmentTypes lists every judgment type in decision order.
func JudgmentTypes() []JudgmentType {
	return []JudgmentType{
		JudgmentRelevance,
		JudgmentNuggetAgreement,
		JudgmentRequiresNegative,
		JudgmentRequiresCitation,
		JudgmentFirstInstance,
	}
}

// String implements fmt.Stringer.
func (t JudgmentType) String() string {
	if name, ok := judgmentTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("JudgmentType(%d)", int(t))
}

// MarshalJSON encodes the type by name.
func (t JudgmentType) MarshalJSON() ([]byte, error) {
	name, ok := judgmentTypeNames[t]
	if !ok {
		return nil, fmt.Errorf("unknown judgment type %d", int(t))
	}
	return json.Marshal(name)
}

// UnmarshalJSON decodes a type name.
func (t *JudgmentType) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for k, v := range judgmentTypeNames {
		if v == name {
			*t = k
			return nil
		}
	}
	return fmt.Errorf("unknown judgment type %q", name)
}

// Verdict is the oracle's answer to a binary question.
type Verdict string

const (
	VerdictYes Verdict = "YES"
	VerdictNo  Verdict = "NO"
)

// Yes reports whether the verdict is affirmative.
func (v Verdict) Yes() bool { return v == VerdictYes }

// ParseVerdict strictly interprets oracle text. Surrounding whitespace and
// letter case are ignored; anything other than YES or NO is an error.
func ParseVerdict(raw string) (Verdict, error) {
	switch v := Verdict(strings.ToUpper(strings.TrimSpace(raw))); v {
	case VerdictYes, VerdictNo:
		return v, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidVerdict, raw)
	}
}

// JudgmentRecord is one entry of a sentence's audit trail.
type JudgmentRecord struct {
	Type       JudgmentType `json:"judgment_type_id"`
	Response   Verdict      `json:"response"`
	Evaluator  string       `json:"evaluator"`
	Provenance *string      `json:"provenance"`
}

// NewJudgment creates a record with optional document provenance. An empty
// docID yields a null provenance.
func NewJudgment(t JudgmentType, v Verdict, evaluator, docID string) JudgmentRecord {
	rec := JudgmentRecord{Type: t, Response: v, Evaluator: evaluator}
	if docID != "" {
		id := docID
		rec.Provenance = &id
	}
	return rec
}
