package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/ppiankov/invoicecheck/internal/model"
	"github.com/ppiankov/invoicecheck/internal/policy"
	"github.com/ppiankov/invoicecheck/internal/verdict"
)

// Renderer writes outcomes for humans (text) or tools (json). It never writes files.
type Renderer struct {
	format string
	parse  bool
}

// NewRenderer creates a renderer. parse adds a best-effort structured view of each verdict.
func NewRenderer(format string, parse bool) *Renderer {
	if format == "" {
		format = "text"
	}
	return &Renderer{format: format, parse: parse}
}

// jsonOutcome is the wire form of one slot
type jsonOutcome struct {
	ID      string            `json:"id"`
	Verdict string            `json:"verdict,omitempty"`
	Failure *jsonFailure      `json:"failure,omitempty"`
	Parsed  *verdict.Judgment `json:"parsed,omitempty"`
}

type jsonFailure struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type jsonBatch struct {
	Results  []jsonOutcome `json:"results"`
	Verdicts int           `json:"verdicts"`
	Failures int           `json:"failures"`
}

// Render writes the whole batch
func (r *Renderer) Render(w io.Writer, result model.BatchResult) error {
	if r.format == "json" {
		ok, failed := result.Counts()
		batch := jsonBatch{
			Results:  make([]jsonOutcome, 0, len(result)),
			Verdicts: ok,
			Failures: failed,
		}
		for _, o := range result {
			batch.Results = append(batch.Results, r.toJSON(o))
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(batch)
	}

	for i, o := range result {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if err := r.renderText(w, o); err != nil {
			return err
		}
	}
	return nil
}

// RenderOutcome writes a single slot; json output is one object per line
func (r *Renderer) RenderOutcome(w io.Writer, o model.Outcome) error {
	if r.format == "json" {
		return json.NewEncoder(w).Encode(r.toJSON(o))
	}
	return r.renderText(w, o)
}

// RenderRules writes the compiled policy artifact
func (r *Renderer) RenderRules(w io.Writer, rules policy.RulesArtifact) error {
	if r.format == "json" {
		return json.NewEncoder(w).Encode(struct {
			Mode  string `json:"mode"`
			Rules string `json:"rules"`
		}{string(rules.Mode), rules.Text})
	}
	_, err := fmt.Fprintf(w, "Policy Rules (%s):\n%s\n", rules.Mode, rules.Text)
	return err
}

// RenderSummary writes the one-line batch tally
func (r *Renderer) RenderSummary(w io.Writer, result model.BatchResult) {
	ok, failed := result.Counts()
	fmt.Fprintf(w, "\n%d invoice(s): %d verdict(s), %d failure(s)\n", len(result), ok, failed)
}

func (r *Renderer) renderText(w io.Writer, o model.Outcome) error {
	var b strings.Builder
	fmt.Fprintf(&b, "=== %s ===\n", o.ID)

	if !o.OK() {
		fmt.Fprintf(&b, "FAILED [%s]: %v\n", o.Failure.Kind, o.Failure)
		_, err := io.WriteString(w, b.String())
		return err
	}

	b.WriteString(string(o.Verdict))
	if !strings.HasSuffix(string(o.Verdict), "\n") {
		b.WriteString("\n")
	}

	if r.parse {
		j, err := verdict.Parse(o.Verdict)
		if err != nil {
			fmt.Fprintf(&b, "--- parsed: unavailable [%s]\n", model.KindOf(err))
		} else {
			fmt.Fprintf(&b, "--- parsed: vendor=%q amount=%q category=%q decision=%s",
				j.Vendor, j.Amount, j.Category, j.Decision)
			if j.Reason != "" {
				fmt.Fprintf(&b, " reason=%q", j.Reason)
			}
			b.WriteString("\n")
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func (r *Renderer) toJSON(o model.Outcome) jsonOutcome {
	out := jsonOutcome{ID: o.ID}
	if !o.OK() {
		out.Failure = &jsonFailure{Kind: o.Failure.Kind, Message: o.Failure.Error()}
		return out
	}
	out.Verdict = string(o.Verdict)
	if r.parse {
		if j, err := verdict.Parse(o.Verdict); err == nil {
			out.Parsed = &j
		}
	}
	return out
}
