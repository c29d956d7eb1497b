package nuggets

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/ahrav/go-nuggeteval/internal/domain"
	"github.com/ahrav/go-nuggeteval/internal/ports"
)

// DefaultLanguages are the source languages of the NeuCLIR assessor bank.
var DefaultLanguages = []string{"fas", "rus", "zho"}

// SplitStats counts the records written per language and those skipped.
type SplitStats struct {
	Written map[string]int
	Skipped int
}

type bankRecord struct {
	Info struct {
		SrcLang string `json:"src_lang"`
	} `json:"info"`
}

// Split copies each record of an assessor bank into {dir}/{lang}.jsonl
// according to its info.src_lang. Records in any other language are logged
// and skipped. One file is created per language even when it stays empty.
func Split(ctx context.Context, r io.Reader, dir string, langs []string, logger *zerolog.Logger) (SplitStats, error) {
	if len(langs) == 0 {
		langs = DefaultLanguages
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	stats := SplitStats{Written: make(map[string]int, len(langs))}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return stats, fmt.Errorf("create output directory: %w", err)
	}

	writers := make(map[string]*bufio.Writer, len(langs))
	files := make([]*os.File, 0, len(langs))
	defer func() {
		for _, f := range files {
			_ = f.Close()
		}
	}()
	for _, lang := range langs {
		f, err := os.Create(filepath.Join(dir, lang+".jsonl"))
		if err != nil {
			return stats, fmt.Errorf("create %s output: %w", lang, err)
		}
		files = append(files, f)
		writers[lang] = bufio.NewWriter(f)
		stats.Written[lang] = 0
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxLineSize)
	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}

		var rec bankRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return stats, ports.NewStoreError(storeName, "", line, fmt.Errorf("%w: %w", domain.ErrMalformedRecord, err))
		}

		w, ok := writers[rec.Info.SrcLang]
		if !ok {
			logger.Warn().Str("src_lang", rec.Info.SrcLang).Int("line", line).Msg("unrecognized src_lang")
			stats.Skipped++
			continue
		}
		if _, err := w.Write(raw); err != nil {
			return stats, err
		}
		if err := w.WriteByte('\n'); err != nil {
			return stats, err
		}
		stats.Written[rec.Info.SrcLang]++
	}
	if err := scanner.Err(); err != nil {
		return stats, ports.NewStoreError(storeName, "", line+1, err)
	}

	for lang, w := range writers {
		if err := w.Flush(); err != nil {
			return stats, fmt.Errorf("flush %s output: %w", lang, err)
		}
	}
	return stats, nil
}
