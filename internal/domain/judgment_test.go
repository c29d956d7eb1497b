package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Verdict
		wantErr bool
	}{
		{name: "yes", raw: "YES", want: VerdictYes},
		{name: "no", raw: "NO", want: VerdictNo},
		{name: "lowercase with whitespace", raw: "  yes\n", want: VerdictYes},
		{name: "mixed case", raw: "No", want: VerdictNo},
		{name: "trailing punctuation", raw: "YES.", wantErr: true},
		{name: "sentence", raw: "Yes, it does.", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseVerdict(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidVerdict)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestJudgmentTypeJSON(t *testing.T) {
	for _, jt := range JudgmentTypes() {
		t.Run(jt.String(), func(t *testing.T) {
			data, err := json.Marshal(jt)
			require.NoError(t, err)

			var decoded JudgmentType
			require.NoError(t, json.Unmarshal(data, &decoded))
			assert.Equal(t, jt, decoded)
		})
	}

	t.Run("unknown name", func(t *testing.T) {
		var jt JudgmentType
		assert.Error(t, json.Unmarshal([]byte(`"NOVELTY"`), &jt))
	})
}

func TestNewJudgmentProvenance(t *testing.T) {
	withDoc := NewJudgment(JudgmentRelevance, VerdictYes, "stub/YES", "D1")
	require.NotNil(t, withDoc.Provenance)
	assert.Equal(t, "D1", *withDoc.Provenance)

	withoutDoc := NewJudgment(JudgmentRequiresNegative, VerdictNo, "stub/YES", "")
	assert.Nil(t, withoutDoc.Provenance)

	data, err := json.Marshal(withoutDoc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"judgment_type_id":"REQUIRES_NEGATIVE","response":"NO","evaluator":"stub/YES","provenance":null}`, string(data))
}
