package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
)

// FlexibleID is an identifier that may be encoded as either a JSON string
// or a JSON number. It always compares as its string form.
type FlexibleID string

// UnmarshalJSON accepts strings and numbers.
func (id *FlexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = FlexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = FlexibleID(n.String())
	return nil
}

// MarshalJSON always emits the ID as a string.
func (id FlexibleID) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(string(id))), nil
}

// String implements fmt.Stringer.
func (id FlexibleID) String() string { return string(id) }

// GoldAnswer is one acceptable answer to a nugget question. Answers decoded
// from plain strings carry no citation scoping.
type GoldAnswer struct {
	Text      string
	Citations []string
	scoped    bool
}

// NewGoldAnswer returns an unscoped answer.
func NewGoldAnswer(text string) GoldAnswer { return GoldAnswer{Text: text} }

// NewScopedGoldAnswer returns an answer supported by the given documents.
func NewScopedGoldAnswer(text string, citations ...string) GoldAnswer {
	return GoldAnswer{Text: text, Citations: citations, scoped: true}
}

// Scoped reports whether the answer was given as a structured object with
// its own citation list.
func (a GoldAnswer) Scoped() bool { return a.scoped }

// Cites reports whether docID supports this answer.
func (a GoldAnswer) Cites(docID string) bool { return slices.Contains(a.Citations, docID) }

type goldAnswerObject struct {
	Answer    *string  `json:"answer,omitempty"`
	Text      *string  `json:"text,omitempty"`
	Citations []string `json:"citations"`
}

// UnmarshalJSON accepts either "answer" or {"answer"|"text": ..., "citations": [...]}.
func (a *GoldAnswer) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = NewGoldAnswer(s)
		return nil
	}

	var obj goldAnswerObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("gold answer must be a string or object: %w", err)
	}
	var text string
	switch {
	case obj.Answer != nil:
		text = *obj.Answer
	case obj.Text != nil:
		text = *obj.Text
	default:
		return fmt.Errorf("gold answer object has neither answer nor text: %w", ErrEmptyValue)
	}
	*a = GoldAnswer{Text: text, Citations: obj.Citations, scoped: true}
	return nil
}

// MarshalJSON writes the answer back in the form it was read.
func (a GoldAnswer) MarshalJSON() ([]byte, error) {
	if !a.scoped {
		return json.Marshal(a.Text)
	}
	citations := a.Citations
	if citations == nil {
		citations = []string{}
	}
	return json.Marshal(struct {
		Answer    string   `json:"answer"`
		Citations []string `json:"citations"`
	}{a.Text, citations})
}

// NuggetInfo carries assessor metadata. Importance is kept verbatim since
// nugget banks encode it both as labels and as numbers.
type NuggetInfo struct {
	Importance json.RawMessage `json:"importance,omitempty"`
	Used       bool            `json:"used"`
}

// Nugget is an atomic fact: a question and its acceptable answers.
type Nugget struct {
	QuestionID   FlexibleID   `json:"question_id"`
	QuestionText string       `json:"question_text"`
	GoldAnswers  []GoldAnswer `json:"gold_answers"`
	Info         NuggetInfo   `json:"info"`
}

// Unscoped reports whether any answer lacks per-answer citation scoping.
func (n Nugget) Unscoped() bool {
	for _, a := range n.GoldAnswers {
		if !a.Scoped() {
			return true
		}
	}
	return false
}

// CitedBy reports whether any scoped answer lists docID.
func (n Nugget) CitedBy(docID string) bool {
	for _, a := range n.GoldAnswers {
		if a.Scoped() && a.Cites(docID) {
			return true
		}
	}
	return false
}

func (n Nugget) clone() Nugget {
	c := n
	c.GoldAnswers = make([]GoldAnswer, len(n.GoldAnswers))
	for i, a := range n.GoldAnswers {
		a.Citations = slices.Clone(a.Citations)
		c.GoldAnswers[i] = a
	}
	c.Info.Importance = slices.Clone(n.Info.Importance)
	return c
}

// NuggetSet is the set of nuggets that apply to one report request.
type NuggetSet struct {
	QueryID FlexibleID `json:"query_id"`
	Items   []Nugget   `json:"items"`
}

// TotalAnswers returns the recall denominator: the number of gold answers
// across all nuggets.
func (s NuggetSet) TotalAnswers() int {
	total := 0
	for _, n := range s.Items {
		total += len(n.GoldAnswers)
	}
	return total
}

// Clone returns a deep copy so per-report mutations never leak across reports.
func (s NuggetSet) Clone() NuggetSet {
	c := NuggetSet{QueryID: s.QueryID, Items: make([]Nugget, len(s.Items))}
	for i, n := range s.Items {
		c.Items[i] = n.clone()
	}
	return c
}

// FilterNuggets returns the nuggets where any gold answer cites docID.
// Nuggets carrying unscoped answers are always included.
func FilterNuggets(nuggets []Nugget, docID string) []Nugget {
	var out []Nugget
	for _, n := range nuggets {
		if n.Unscoped() || n.CitedBy(docID) {
			out = append(out, n)
		}
	}
	return out
}

// NuggetKey identifies one matched nugget answer for deduplication.
type NuggetKey struct {
	QuestionText string
	Answer       string
}

// MarkUsed flags every nugget whose question and one of whose answers
// equal the match. Only the receiver's items are modified, so callers mark
// a private Clone.
func (s NuggetSet) MarkUsed(m MatchedNugget) {
	for i := range s.Items {
		n := &s.Items[i]
		if n.QuestionText != m.QuestionText {
			continue
		}
		for _, a := range n.GoldAnswers {
			if a.Text == m.MatchedAnswer {
				n.Info.Used = true
				break
			}
		}
	}
}

// UsedCount returns the number of nuggets flagged by MarkUsed.
func (s NuggetSet) UsedCount() int {
	n := 0
	for _, item := range s.Items {
		if item.Info.Used {
			n++
		}
	}
	return n
}
