// Package verdict pulls structured fields out of free-form model verdicts.
// Parsing is best effort and only used for presentation.
package verdict

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ppiankov/invoicecheck/internal/model"
)

// Decision values
const (
	Approved = "Approved"
	Rejected = "Rejected"
)

// Judgment is the structured view of a verdict. Empty fields were not found.
type Judgment struct {
	Vendor   string `json:"vendor,omitempty"`
	Amount   string `json:"amount,omitempty"`
	Category string `json:"category,omitempty"`
	Decision string `json:"decision"`
	Reason   string `json:"reason,omitempty"`
}

type field int

const (
	fieldNone field = iota
	fieldVendor
	fieldAmount
	fieldCategory
	fieldDecision
	fieldReason
)

// label keywords per field, checked in order against the lowercased label
var fieldKeywords = []struct {
	field    field
	keywords []string
}{
	{fieldReason, []string{"reason", "justification"}},
	{fieldDecision, []string{"decision", "approval", "status", "verdict", "result"}},
	{fieldVendor, []string{"vendor", "company", "merchant", "from", "issuer", "seller"}},
	{fieldAmount, []string{"amount", "total", "spent", "cost"}},
	{fieldCategory, []string{"category", "nature", "type"}},
}

// numbered items follow the four instructions of the judgment prompt
var numberedFields = map[string]field{
	"1": fieldVendor,
	"2": fieldAmount,
	"3": fieldCategory,
	"4": fieldDecision,
}

var (
	numberPrefix = regexp.MustCompile(`^\s*(?:[-*•]\s*)?(\d)\s*[\).:]\s*`)
	labelLine    = regexp.MustCompile(`^\s*(?:[-*•]\s*)?([A-Za-z][A-Za-z /]{1,40}?)\s*[:=]\s*(.*)$`)
	decisionWord = regexp.MustCompile(`(?i)\b(approved|approve|rejected|reject|denied|not approved)\b`)
	currency     = regexp.MustCompile(`(?:[$€£¥₹]\s?\d[\d,]*(?:\.\d+)?|\d[\d,]*(?:\.\d+)?\s?(?:USD|EUR|GBP|INR))`)
	markdown     = strings.NewReplacer("**", "", "__", "", "`", "")
)

var categories = []string{"Restaurant", "Travel Expense", "Accommodation"}

// Parse extracts a Judgment from v. It fails with ErrVerdictUnparseable when no
// approve or reject decision can be located.
func Parse(v model.Verdict) (Judgment, error) {
	var j Judgment
	fields := make(map[field]string)

	for _, raw := range strings.Split(string(v), "\n") {
		line := strings.TrimSpace(markdown.Replace(raw))
		if line == "" {
			continue
		}

		numbered := fieldNone
		if m := numberPrefix.FindStringSubmatch(line); m != nil {
			numbered = numberedFields[m[1]]
			line = line[len(m[0]):]
		}

		f, value := classify(line)
		if f == fieldNone {
			f, value = numbered, line
		}
		if f == fieldNone || value == "" {
			continue
		}
		if _, seen := fields[f]; !seen {
			fields[f] = value
		}
	}

	j.Vendor = fields[fieldVendor]
	j.Amount = amountOf(fields[fieldAmount], string(v))
	j.Category = categoryOf(fields[fieldCategory], string(v))

	decisionText := fields[fieldDecision]
	j.Decision = decisionOf(decisionText)
	if j.Decision == "" {
		j.Decision = decisionOf(string(v))
	}
	if j.Decision == "" {
		return j, fmt.Errorf("%w: no approve/reject decision found", model.ErrVerdictUnparseable)
	}

	j.Reason = fields[fieldReason]
	if j.Reason == "" {
		j.Reason = reasonFrom(decisionText)
	}

	return j, nil
}

// classify maps a "Label: value" line to its field
func classify(line string) (field, string) {
	m := labelLine.FindStringSubmatch(line)
	if m == nil {
		return fieldNone, ""
	}
	label := strings.ToLower(m[1])
	for _, fk := range fieldKeywords {
		for _, kw := range fk.keywords {
			if strings.Contains(label, kw) {
				return fk.field, strings.TrimSpace(m[2])
			}
		}
	}
	return fieldNone, ""
}

func decisionOf(text string) string {
	m := decisionWord.FindString(text)
	if m == "" {
		return ""
	}
	switch strings.ToLower(m) {
	case "approved", "approve":
		return Approved
	default:
		return Rejected
	}
}

func amountOf(field, text string) string {
	if m := currency.FindString(field); m != "" {
		return m
	}
	if field != "" {
		return field
	}
	return currency.FindString(text)
}

func categoryOf(field, text string) string {
	for _, src := range []string{field, text} {
		lower := strings.ToLower(src)
		for _, c := range categories {
			if strings.Contains(lower, strings.ToLower(c)) {
				return c
			}
		}
	}
	return field
}

// reasonFrom takes whatever follows the decision word, minus separators
func reasonFrom(decision string) string {
	loc := decisionWord.FindStringIndex(decision)
	if loc == nil {
		return ""
	}
	rest := strings.TrimSpace(decision[loc[1]:])
	rest = strings.TrimLeft(rest, ".,;:-– ")
	rest = strings.TrimPrefix(strings.TrimPrefix(rest, "because "), "as ")
	return strings.TrimSpace(rest)
}
