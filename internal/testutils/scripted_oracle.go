// Package testutils provides deterministic oracles, LLM clients and nugget
// sources for exercising the evaluator without network access.
package testutils

import (
	"context"
	"strings"
	"sync"

	"github.com/ahrav/go-nuggeteval/infrastructure/prompts"
	"github.com/ahrav/go-nuggeteval/internal/domain"
	"github.com/ahrav/go-nuggeteval/internal/ports"
)

// ScriptedIdentity is the evaluator name ScriptedOracle reports.
const ScriptedIdentity = "scripted"

// Rule answers judgments of one type whose user prompt contains every
// string in Contains. Err, when set, is returned instead of Verdict.
type Rule struct {
	Type     domain.JudgmentType
	Contains []string
	Verdict  domain.Verdict
	Err      error
}

func (r Rule) matches(t domain.JudgmentType, user string) bool {
	if r.Type != t {
		return false
	}
	for _, s := range r.Contains {
		if !strings.Contains(user, s) {
			return false
		}
	}
	return true
}

// Call is one recorded Judge invocation.
type Call struct {
	Type domain.JudgmentType
	User string
}

// ScriptedOracle answers from a rule list. The judgment type is recovered
// from the system prompt; the first matching rule wins and unmatched
// questions are answered NO. It is safe for concurrent use.
type ScriptedOracle struct {
	mu    sync.Mutex
	rules []Rule
	calls []Call
}

var _ ports.Oracle = (*ScriptedOracle)(nil)

// NewScriptedOracle returns an oracle that follows rules in order.
func NewScriptedOracle(rules ...Rule) *ScriptedOracle {
	return &ScriptedOracle{rules: rules}
}

// Yes is shorthand for a rule answering YES.
func Yes(t domain.JudgmentType, contains ...string) Rule {
	return Rule{Type: t, Contains: contains, Verdict: domain.VerdictYes}
}

// No is shorthand for a rule answering NO.
func No(t domain.JudgmentType, contains ...string) Rule {
	return Rule{Type: t, Contains: contains, Verdict: domain.VerdictNo}
}

// Fail is shorthand for a rule returning err.
func Fail(t domain.JudgmentType, err error, contains ...string) Rule {
	return Rule{Type: t, Contains: contains, Err: err}
}

// Judge implements ports.Oracle.
func (o *ScriptedOracle) Judge(ctx context.Context, systemPrompt, userPrompt string) (domain.Verdict, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	t := judgmentType(systemPrompt)

	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, Call{Type: t, User: userPrompt})
	for _, r := range o.rules {
		if r.matches(t, userPrompt) {
			if r.Err != nil {
				return "", r.Err
			}
			return r.Verdict, nil
		}
	}
	return domain.VerdictNo, nil
}

// Identity implements ports.Oracle.
func (o *ScriptedOracle) Identity() string { return ScriptedIdentity }

// Calls returns a copy of every call made so far.
func (o *ScriptedOracle) Calls() []Call {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Call(nil), o.calls...)
}

// CallCount returns how many judgments of type t were asked.
func (o *ScriptedOracle) CallCount(t domain.JudgmentType) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, c := range o.calls {
		if c.Type == t {
			n++
		}
	}
	return n
}

func judgmentType(system string) domain.JudgmentType {
	for _, t := range domain.JudgmentTypes() {
		if p, ok := prompts.ForType(t); ok && p.System == system {
			return t
		}
	}
	return 0
}
