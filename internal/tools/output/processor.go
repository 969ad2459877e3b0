package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Processor shapes raw backend responses into tool output.
type Processor struct {
	config *Config
}

// NewProcessor creates a new output processor. A nil config uses DefaultConfig.
func NewProcessor(config *Config) *Processor {
	if config == nil {
		config = DefaultConfig()
	}
	return &Processor{config: config.Validate()}
}

// Config returns the processor's validated configuration.
func (p *Processor) Config() *Config {
	return p.config
}

// Result is a processed response.
type Result struct {
	// Body is the indented JSON body, or the raw text when the backend
	// response was not JSON.
	Body string

	Warnings []TruncationWarning
	Summary  *RowSummary

	// Masked is the number of redacted field values.
	Masked int
}

// Process masks, slims and truncates a backend response. Bodies that are
// not JSON are passed through, subject to the byte limit only.
func (p *Processor) Process(raw json.RawMessage) *Result {
	res := &Result{}

	doc, err := decode(raw)
	if err != nil {
		res.Body = p.limit(res, string(raw))
		return res
	}

	switch v := doc.(type) {
	case []any:
		rows, warning := TruncateRows(v, p.config.MaxRows)
		if warning != nil {
			res.Warnings = append(res.Warnings, *warning)
			res.Summary = SummarizeRows(v, DefaultSampleSize)
		}
		doc = rows
	case map[string]any:
		if p.config.MaskFields {
			res.Masked = maskHitSources(v)
		}
		if p.config.SlimOutput {
			v = SlimDocument(v, p.config.ExcludedFields)
		}
		p.truncateHits(res, v)
		doc = v
	}

	encoded, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		res.Body = p.limit(res, string(raw))
		return res
	}
	res.Body = p.limit(res, string(encoded))
	return res
}

// Render formats a processed response under a title line, followed by any
// summary and warnings.
func (p *Processor) Render(title string, raw json.RawMessage) string {
	res := p.Process(raw)

	var b strings.Builder
	if title != "" {
		b.WriteString(title)
		b.WriteString(":\n")
	}
	b.WriteString(res.Body)

	if res.Summary != nil {
		if summary, err := json.MarshalIndent(res.Summary, "", "  "); err == nil {
			b.WriteString("\n\nSummary of all rows:\n")
			b.Write(summary)
		}
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(&b, "\n\nWarning: %s", w.Message)
	}
	return b.String()
}

func (p *Processor) truncateHits(res *Result, doc map[string]any) {
	visit := func(resp map[string]any) {
		hits, ok := resp["hits"].(map[string]any)
		if !ok {
			return
		}
		list, ok := hits["hits"].([]any)
		if !ok {
			return
		}
		kept, warning := TruncateHits(list, p.config.MaxHits)
		if warning != nil {
			hits["hits"] = kept
			res.Warnings = append(res.Warnings, *warning)
		}
	}

	visit(doc)
	if responses, ok := doc["responses"].([]any); ok {
		for _, r := range responses {
			if resp, ok := r.(map[string]any); ok {
				visit(resp)
			}
		}
	}
}

func (p *Processor) limit(res *Result, text string) string {
	out, warning := TruncateBytes(text, p.config.MaxResponseBytes)
	if warning != nil {
		res.Warnings = append(res.Warnings, *warning)
	}
	return out
}

// decode parses JSON keeping numbers as json.Number so large document IDs
// and counters survive re-encoding.
func decode(raw json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("unexpected data after JSON value")
	}
	return doc, nil
}
