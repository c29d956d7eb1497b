package application

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ahrav/go-nuggeteval/internal/domain"
)

// OutputPaths names the files written for one run. Empty paths were not
// written.
type OutputPaths struct {
	Results string
	Failed  string
	Summary string
}

// Stem returns the base name of path without its extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// WriteOutputs writes results_{stem}.jsonl and failed_reports_{stem}.jsonl
// when they have content, and always writes summary_{stem}.json.
func WriteOutputs(dir, stem string, outcome BatchOutcome) (OutputPaths, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return OutputPaths{}, fmt.Errorf("create output directory: %w", err)
	}

	var paths OutputPaths
	if len(outcome.Results) > 0 {
		paths.Results = filepath.Join(dir, "results_"+stem+".jsonl")
		if err := writeJSONL(paths.Results, outcome.Results); err != nil {
			return paths, err
		}
	}
	if len(outcome.Failed) > 0 {
		paths.Failed = filepath.Join(dir, "failed_reports_"+stem+".jsonl")
		if err := writeJSONL(paths.Failed, outcome.Failed); err != nil {
			return paths, err
		}
	}

	paths.Summary = filepath.Join(dir, "summary_"+stem+".json")
	if err := writeJSON(paths.Summary, domain.NewSummary(outcome.Results)); err != nil {
		return paths, err
	}
	return paths, nil
}

func writeJSONL[T any](path string, records []T) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for i := range records {
		if err := enc.Encode(records[i]); err != nil {
			return fmt.Errorf("encode record %d of %s: %w", i, path, err)
		}
	}
	return w.Flush()
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// summaryFile is a run summary as read back from disk. Metrics may be
// missing in hand-edited files.
type summaryFile map[string]struct {
	Metrics struct {
		Precision *float64 `json:"precision"`
		Recall    *float64 `json:"recall"`
	} `json:"metrics"`
}

// ComputeDeviations reads every *.json summary in dir, in name order, and
// returns the population standard deviation of precision and recall per
// topic.
func ComputeDeviations(dir string) (map[string]domain.Deviation, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	topics := domain.NewTopicMetrics()
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		var summary summaryFile
		if err := json.Unmarshal(data, &summary); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", domain.ErrMalformedRecord, path, err)
		}

		ids := make([]string, 0, len(summary))
		for id := range summary {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			m := summary[id].Metrics
			topics.Add(id, m.Precision, m.Recall)
		}
	}
	return topics.Deviations(), nil
}

// WriteDeviations writes the per-topic deviations as indented JSON.
func WriteDeviations(path string, devs map[string]domain.Deviation) error {
	return writeJSON(path, devs)
}
