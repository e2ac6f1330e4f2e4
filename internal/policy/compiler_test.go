package policy

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/invoicecheck/internal/cache"
	"github.com/ppiankov/invoicecheck/internal/llm"
	"github.com/ppiankov/invoicecheck/internal/model"
)

func TestCompile_RawJoinsParagraphs(t *testing.T) {
	path := writeFile(t, "policy.docx", buildDOCX(t,
		"Max meal spend: $50/day",
		"Travel must be pre-approved",
		"Receipts required for all claims over $25",
	))

	rules, err := NewCompiler(ModeRaw).Compile(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, ModeRaw, rules.Mode)
	assert.Equal(t, "Max meal spend: $50/day\nTravel must be pre-approved\nReceipts required for all claims over $25", rules.Text)
}

func TestCompile_RawWhitespaceOnlyIsEmpty(t *testing.T) {
	path := writeFile(t, "blank.docx", buildDOCX(t, "   ", "\t", ""))

	rules, err := NewCompiler(ModeRaw).Compile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "", rules.Text)
}

func TestCompile_RawPreservesOrderAndContent(t *testing.T) {
	paragraphs := []string{"Zeta rule", "alpha rule", "  Mid rule  ", "Omega"}
	path := writeFile(t, "order.docx", buildDOCX(t, paragraphs...))

	rules, err := NewCompiler(ModeRaw).Compile(context.Background(), path)
	require.NoError(t, err)

	last := -1
	for _, p := range paragraphs {
		trimmed := strings.TrimSpace(p)
		idx := strings.Index(rules.Text, trimmed)
		require.GreaterOrEqual(t, idx, 0, "paragraph %q missing", trimmed)
		assert.Greater(t, idx, last, "paragraph %q out of order", trimmed)
		last = idx
	}
}

func TestCompile_RawIdempotent(t *testing.T) {
	path := writeFile(t, "policy.docx", buildDOCX(t, "Rule one", "Rule two"))
	c := NewCompiler(ModeRaw)

	first, err := c.Compile(context.Background(), path)
	require.NoError(t, err)
	second, err := c.Compile(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, []byte(first.Text), []byte(second.Text))
}

func TestCompile_RawNeverCallsModel(t *testing.T) {
	path := writeFile(t, "policy.docx", buildDOCX(t, "Rule one"))
	stub := &llm.Stub{Text: "unused"}

	_, err := NewCompiler(ModeRaw, WithGenerator(stub, "m")).Compile(context.Background(), path)
	require.NoError(t, err)
	assert.Empty(t, stub.Calls())
}

func TestCompile_DocumentErrors(t *testing.T) {
	c := NewCompiler(ModeRaw)

	_, err := c.Compile(context.Background(), "/nonexistent/policy.docx")
	assert.ErrorIs(t, err, model.ErrDocumentNotFound)

	path := writeFile(t, "corrupt.docx", []byte("garbage"))
	_, err = c.Compile(context.Background(), path)
	assert.ErrorIs(t, err, model.ErrDocumentUnreadable)
}

func TestCompile_Categorized(t *testing.T) {
	path := writeFile(t, "policy.docx", buildDOCX(t, "Max meal spend: $50/day", "Travel must be pre-approved"))
	stub := &llm.Stub{Text: "  Spending Limits:\n- Max meal spend: $50/day\nApproval Criteria:\n- Travel must be pre-approved\n"}

	rules, err := NewCompiler(ModeCategorized, WithGenerator(stub, "gemini-1.5-flash")).Compile(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, ModeCategorized, rules.Mode)
	assert.Equal(t, "Spending Limits:\n- Max meal spend: $50/day\nApproval Criteria:\n- Travel must be pre-approved", rules.Text)

	calls := stub.Calls()
	require.Len(t, calls, 1)
	require.Len(t, calls[0], 1)
	prompt := calls[0][0].Text
	assert.Contains(t, prompt, "Max meal spend: $50/day\nTravel must be pre-approved")
	for _, cat := range Categories {
		assert.Contains(t, prompt, cat)
	}
}

func TestCompile_CategorizationFailed(t *testing.T) {
	path := writeFile(t, "policy.docx", buildDOCX(t, "Rule"))

	tests := []struct {
		name string
		stub *llm.Stub
	}{
		{"model error", &llm.Stub{Err: errors.New("quota exceeded")}},
		{"empty output", &llm.Stub{Text: "   "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCompiler(ModeCategorized, WithGenerator(tt.stub, "m")).Compile(context.Background(), path)
			assert.ErrorIs(t, err, model.ErrCategorizationFailed)
		})
	}
}

func TestCompile_CategorizedWithoutGenerator(t *testing.T) {
	path := writeFile(t, "policy.docx", buildDOCX(t, "Rule"))

	_, err := NewCompiler(ModeCategorized).Compile(context.Background(), path)
	assert.ErrorIs(t, err, model.ErrCategorizationFailed)
}

func TestCompile_FallbackToRaw(t *testing.T) {
	path := writeFile(t, "policy.docx", buildDOCX(t, "Rule A", "Rule B"))
	stub := &llm.Stub{Err: errors.New("timeout")}

	rules, err := NewCompiler(ModeCategorized, WithGenerator(stub, "m"), WithFallbackToRaw(true)).
		Compile(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, ModeRaw, rules.Mode)
	assert.Equal(t, "Rule A\nRule B", rules.Text)
}

func TestCompile_CategorizedMemoized(t *testing.T) {
	path := writeFile(t, "policy.docx", buildDOCX(t, "Rule A"))
	stub := &llm.Stub{Text: "Other:\n- Rule A"}
	memo := cache.NewMemoryCache(0, time.Minute)
	c := NewCompiler(ModeCategorized, WithGenerator(stub, "m"), WithCache(memo))

	first, err := c.Compile(context.Background(), path)
	require.NoError(t, err)
	second, err := c.Compile(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, stub.Calls(), 1)

	// edited document is a different key
	require.NoError(t, os.WriteFile(path, buildDOCX(t, "Rule B"), 0o644))
	_, err = c.Compile(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, stub.Calls(), 2)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("Categorized")
	require.NoError(t, err)
	assert.Equal(t, ModeCategorized, m)

	m, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeRaw, m)

	_, err = ParseMode("fancy")
	assert.ErrorIs(t, err, model.ErrConfiguration)
}
