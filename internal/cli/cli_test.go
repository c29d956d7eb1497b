package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes a fresh command tree and returns its stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--json-logs"))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

// isolateEnv keeps the developer's environment out of config loading.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"MODEL_PROVIDER", "MODEL_NAME", "DOCS_DIR", "BATCH_SIZE", "LOG_LEVEL", "METRICS_ADDR", "OTLP_ENDPOINT"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")

	require.NoError(t, err)
	assert.Equal(t, "nuggeteval "+Version+"\n", out)
}

func TestArgsAreChecked(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "evaluate", args: []string{"evaluate", "only-input"}},
		{name: "stds", args: []string{"stds", "dir"}},
		{name: "split", args: []string{"split"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)

			require.Error(t, err)
			assert.Contains(t, err.Error(), "arg(s)")
		})
	}
}

func TestSplitCommand(t *testing.T) {
	// Given a bank with two Russian records and one German record
	dir := t.TempDir()
	bank := filepath.Join(dir, "bank.jsonl")
	writeFile(t, bank, strings.Join([]string{
		`{"query_id": "1", "info": {"src_lang": "rus"}}`,
		`{"query_id": "2", "info": {"src_lang": "rus"}}`,
		`{"query_id": "3", "info": {"src_lang": "deu"}}`,
	}, "\n"))

	// When it is split into Russian and Persian
	out, err := run(t, "split", bank, filepath.Join(dir, "split"), "--langs", "rus,fas")

	// Then per-language counts are printed in order
	require.NoError(t, err)
	assert.Equal(t, "fas: 0\nrus: 2\nskipped: 1\n", out)
	assert.FileExists(t, filepath.Join(dir, "split", "rus.jsonl"))
	assert.NoFileExists(t, filepath.Join(dir, "split", "zho.jsonl"))
}

func TestSplitCommand_MissingBank(t *testing.T) {
	_, err := run(t, "split", filepath.Join(t.TempDir(), "missing.jsonl"), t.TempDir())

	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestStdsCommand(t *testing.T) {
	// Given two run summaries for the same topic
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "summaries", "a.json"), `{"t1":{"metrics":{"precision":0.0,"recall":1.0}}}`)
	writeFile(t, filepath.Join(dir, "summaries", "b.json"), `{"t1":{"metrics":{"precision":1.0,"recall":1.0}}}`)
	outFile := filepath.Join(dir, "stds.json")

	// When deviations are computed
	out, err := run(t, "stds", filepath.Join(dir, "summaries"), outFile)

	// Then the output file holds the population deviation per topic
	require.NoError(t, err)
	assert.Contains(t, out, "1 topics")
	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	var devs map[string]map[string]float64
	require.NoError(t, json.Unmarshal(data, &devs))
	assert.InDelta(t, 0.5, devs["t1"]["precision_std"], 1e-9)
	assert.InDelta(t, 0.0, devs["t1"]["recall_std"], 1e-9)
}

// evalFixture lays out nuggets, a document index and an input file.
func evalFixture(t *testing.T, reports ...string) (input, nuggets, docs, out string) {
	t.Helper()
	dir := t.TempDir()
	nuggets = filepath.Join(dir, "nuggets.jsonl")
	writeFile(t, nuggets,
		`{"query_id": 300, "items": [{"question_id": 1, "question_text": "When did X happen?", "gold_answers": ["2019"], "info": {"importance": "vital", "used": false}}]}`+"\n")
	docs = filepath.Join(dir, "docs")
	writeFile(t, filepath.Join(docs, "doc_mapping_zh.jsonl"), `{"doc_id": "D1", "title": "Storm", "text": "X happened in 2019."}`+"\n")
	input = filepath.Join(dir, "team_a.jsonl")
	writeFile(t, input, strings.Join(reports, "\n")+"\n")
	out = filepath.Join(dir, "out")
	return input, nuggets, docs, out
}

func TestEvaluateCommand(t *testing.T) {
	isolateEnv(t)

	// Given one cited report and a stub oracle that always answers YES
	input, nuggets, docs, out := evalFixture(t,
		`{"request_id": "300", "run_id": "r1", "collection_ids": ["zho"], "sentences": [{"text": "X happened in 2019.", "citations": ["D1"]}]}`,
	)

	// When the evaluation runs
	stdout, err := run(t, "evaluate", input, nuggets, out,
		"-p", "stub", "-m", "YES", "--docs-dir", docs, "-b", "2", "--max-retries", "1")

	// Then the report scores perfectly and every output is written
	require.NoError(t, err)
	assert.Contains(t, stdout, "Evaluated 1 reports: 1 succeeded, 0 failed, 0 skipped")

	summary, err := os.ReadFile(filepath.Join(out, "summary_team_a.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"300":{"metrics":{"precision":1,"recall":1}}}`, string(summary))
	assert.FileExists(t, filepath.Join(out, "results_team_a.jsonl"))
	assert.NoFileExists(t, filepath.Join(out, "failed_reports_team_a.jsonl"))
}

func TestEvaluateCommand_FailedReportsExitNonZero(t *testing.T) {
	isolateEnv(t)

	// Given one good report and one malformed line
	input, nuggets, docs, out := evalFixture(t,
		`{"request_id": "300", "run_id": "r1", "collection_ids": ["zho"], "sentences": [{"text": "X happened in 2019.", "citations": ["D1"]}]}`,
		`{"request_id": "301", "run_id": "r2"`,
	)

	// When the evaluation runs
	stdout, err := run(t, "evaluate", input, nuggets, out, "-p", "stub", "--docs-dir", docs)

	// Then the good report is kept and the command reports the failure
	require.ErrorIs(t, err, ErrReportsFailed)
	assert.Contains(t, stdout, "1 succeeded, 1 failed")
	assert.FileExists(t, filepath.Join(out, "results_team_a.jsonl"))
	assert.FileExists(t, filepath.Join(out, "failed_reports_team_a.jsonl"))
}

func TestEvaluateCommand_InvalidFlags(t *testing.T) {
	isolateEnv(t)
	input, nuggets, docs, out := evalFixture(t)

	_, err := run(t, "evaluate", input, nuggets, out, "-p", "stub", "--docs-dir", docs, "-b", "0")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "BatchSize")
	assert.NoDirExists(t, out)
}
