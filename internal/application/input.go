package application

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ahrav/go-nuggeteval/internal/domain"
	"github.com/ahrav/go-nuggeteval/internal/ports"
)

const maxReportLine = 16 << 20

// RawReport is one undecoded line of a report file.
type RawReport struct {
	// Line is the 1-based line number in the source file.
	Line int
	Data []byte
}

// ReadReports returns every non-blank line of the JSONL file at path.
// Lines are not decoded here so that a malformed record fails only its own
// report.
func ReadReports(ctx context.Context, path string) ([]RawReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ports.NewStoreError("reports", path, 0, err)
	}
	defer f.Close()

	var raws []RawReport
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxReportLine)
	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}
		raws = append(raws, RawReport{Line: line, Data: bytes.Clone(data)})
	}
	if err := scanner.Err(); err != nil {
		return nil, ports.NewStoreError("reports", path, line+1, err)
	}
	return raws, nil
}

// reportRecord mirrors domain.Report with pointer fields so that a missing
// key can be told apart from an empty value.
type reportRecord struct {
	RequestID     *string           `json:"request_id" validate:"required"`
	RunID         *string           `json:"run_id" validate:"required"`
	CollectionIDs *[]string         `json:"collection_ids" validate:"required"`
	Sentences     *[]sentenceRecord `json:"sentences" validate:"required"`
}

type sentenceRecord struct {
	Text      *string  `json:"text" validate:"required"`
	Citations []string `json:"citations"`
}

// ReportDecoder decodes and shape-checks report records.
type ReportDecoder struct {
	validate *validator.Validate
}

// NewReportDecoder returns a decoder whose validation messages use JSON
// field names.
func NewReportDecoder() *ReportDecoder {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &ReportDecoder{validate: v}
}

// Decode parses data into a Report. All four top-level fields must be
// present; an empty list counts as present. Every sentence needs a text.
func (d *ReportDecoder) Decode(data []byte) (domain.Report, error) {
	var rec reportRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.Report{}, fmt.Errorf("%w: %w", domain.ErrMalformedRecord, err)
	}

	verr := domain.NewValidationError("report")
	d.collect(verr, "", d.validate.Struct(rec))
	if rec.Sentences != nil {
		for i, s := range *rec.Sentences {
			d.collect(verr, fmt.Sprintf("sentences[%d].", i), d.validate.Struct(s))
		}
	}
	if verr.HasErrors() {
		return domain.Report{}, verr
	}

	report := domain.Report{
		RequestID:     *rec.RequestID,
		RunID:         *rec.RunID,
		CollectionIDs: *rec.CollectionIDs,
		Sentences:     make([]domain.Sentence, len(*rec.Sentences)),
	}
	for i, s := range *rec.Sentences {
		report.Sentences[i] = domain.Sentence{Text: *s.Text, Citations: s.Citations}
	}
	return report, nil
}

func (d *ReportDecoder) collect(verr *domain.ValidationError, prefix string, err error) {
	if err == nil {
		return
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		verr.AddError(prefix + err.Error())
		return
	}
	for _, fe := range fieldErrs {
		verr.AddError(fmt.Sprintf("%s%s is %s", prefix, fe.Field(), fe.Tag()))
	}
}

// peekRequestID extracts request_id from a record that may not decode as a
// report, for labelling failures.
func peekRequestID(data []byte) string {
	var probe struct {
		RequestID any `json:"request_id"`
	}
	if err := json.Unmarshal(data, &probe); err != nil || probe.RequestID == nil {
		return "unknown"
	}
	if s, ok := probe.RequestID.(string); ok {
		return s
	}
	return fmt.Sprint(probe.RequestID)
}
