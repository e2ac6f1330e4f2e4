package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/invoicecheck/internal/invoice"
	"github.com/ppiankov/invoicecheck/internal/llm"
	"github.com/ppiankov/invoicecheck/internal/model"
	"github.com/ppiankov/invoicecheck/internal/policy"
	"github.com/ppiankov/invoicecheck/internal/policy/policytest"
)

func testConfig(t *testing.T) *model.Config {
	t.Helper()
	cfg := model.DefaultConfig()
	cfg.Policy.Path = policytest.WriteDOCX(t, "policy.docx",
		"Max meal spend: $50/day",
		"Hotels under $150/night")
	cfg.RateLimiting.RequestsPerSecond = 1000
	cfg.RateLimiting.BurstSize = 10
	return cfg
}

func TestPipeline_EndToEnd(t *testing.T) {
	cfg := testConfig(t)
	stub := &llm.Stub{Respond: func(parts []llm.Part) (string, error) {
		if string(parts[1].Data) == "over" {
			return "Decision: Rejected - over limit", nil
		}
		return "Decision: Approved", nil
	}}

	p, err := NewPipeline(cfg, stub, nil)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	rules, err := p.CompilePolicy(context.Background())
	if err != nil {
		t.Fatalf("CompilePolicy: %v", err)
	}
	if rules.Mode != policy.ModeRaw || rules.Text != "Max meal spend: $50/day\nHotels under $150/night" {
		t.Errorf("unexpected rules: %+v", rules)
	}
	if n := len(stub.Calls()); n != 0 {
		t.Errorf("raw mode must not call the model, got %d calls", n)
	}

	dir := t.TempDir()
	for name, content := range map[string]string{"a.jpg": "ok", "b.png": "over", "c.jpg": ""} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	sources, err := invoice.Discover(dir)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	result := p.Check(context.Background(), sources, rules)
	if len(result) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(result))
	}
	if result[0].Verdict != "Decision: Approved" || result[1].Verdict != "Decision: Rejected - over limit" {
		t.Errorf("unexpected verdicts: %+v", result)
	}
	if result[2].OK() || result[2].Failure.Kind != "EmptyInvoice" {
		t.Errorf("expected EmptyInvoice for c.jpg, got %+v", result[2])
	}

	for _, parts := range stub.Calls() {
		if !strings.Contains(parts[0].Text, "Max meal spend: $50/day") {
			t.Errorf("prompt missing rules: %q", parts[0].Text)
		}
	}
}

func TestPipeline_CategorizedModeCallsModelOnce(t *testing.T) {
	cfg := testConfig(t)
	cfg.Policy.Mode = "categorized"
	stub := &llm.Stub{Text: "Spending Limits:\n- Max meal spend: $50/day"}

	p, err := NewPipeline(cfg, stub, nil)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	for i := 0; i < 2; i++ {
		rules, err := p.CompilePolicy(context.Background())
		if err != nil {
			t.Fatalf("CompilePolicy: %v", err)
		}
		if rules.Mode != policy.ModeCategorized {
			t.Errorf("expected categorized rules, got %s", rules.Mode)
		}
	}
	if n := len(stub.Calls()); n != 1 {
		t.Errorf("expected one categorization call (memoized), got %d", n)
	}
}

func TestPipeline_MissingPolicyIsFatal(t *testing.T) {
	cfg := testConfig(t)
	cfg.Policy.Path = filepath.Join(t.TempDir(), "nope.docx")

	p, err := NewPipeline(cfg, &llm.Stub{}, nil)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	_, err = p.CompilePolicy(context.Background())
	if !errors.Is(err, model.ErrDocumentNotFound) {
		t.Errorf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestPipeline_InvalidMode(t *testing.T) {
	cfg := testConfig(t)
	cfg.Policy.Mode = "fancy"
	if _, err := NewPipeline(cfg, &llm.Stub{}, nil); !errors.Is(err, model.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
}

func TestPipeline_NilGenerator(t *testing.T) {
	if _, err := NewPipeline(testConfig(t), nil, nil); !errors.Is(err, model.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
}

func TestPipeline_CheckOne(t *testing.T) {
	p, err := NewPipeline(testConfig(t), &llm.Stub{Text: "Approved"}, nil)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	o := p.CheckOne(context.Background(), invoice.FromBytes("upload", invoice.MIMEPNG, []byte("x")), policy.RulesArtifact{Text: "r"})
	if !o.OK() || o.ID != "upload" || o.Verdict != "Approved" {
		t.Errorf("unexpected outcome: %+v", o)
	}

	var buf bytes.Buffer
	if err := p.RenderResult(&buf, model.BatchResult{o}); err != nil {
		t.Fatalf("RenderResult: %v", err)
	}
	if !strings.Contains(buf.String(), "=== upload ===") {
		t.Errorf("unexpected output: %s", buf.String())
	}
}

func TestLimiterKey(t *testing.T) {
	if got := LimiterKey(model.LLMConfig{Provider: "gemini", Model: "gemini-1.5-flash"}); got != "gemini/gemini-1.5-flash" {
		t.Errorf("unexpected key %s", got)
	}
}
