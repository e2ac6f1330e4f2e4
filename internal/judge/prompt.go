package judge

import (
	"fmt"
	"strings"
)

// PromptVersion identifies the instruction template below
const PromptVersion = "v1"

// ExpenseCategories is the closed set the model must choose from
var ExpenseCategories = []string{"Restaurant", "Travel Expense", "Accommodation"}

// BuildPrompt renders the task prompt: rules first, then the four instructions
// in fixed order.
func BuildPrompt(rules string, maxReasonWords int) string {
	if maxReasonWords <= 0 {
		maxReasonWords = 20
	}

	var b strings.Builder
	b.WriteString("You are an expert in understanding invoices and company policies.\n")
	b.WriteString("You will receive an invoice image and a set of policy rules.\n")
	b.WriteString("Your task is to extract and validate the invoice details based on the rules.\n\n")

	b.WriteString("Policy Rules:\n")
	b.WriteString(rules)
	b.WriteString("\n\n")

	b.WriteString("Extract the following details from the invoice:\n")
	b.WriteString("1) Identify where the invoice is from (company name).\n")
	b.WriteString("2) Identify and print the total amount spent.\n")
	fmt.Fprintf(&b, "3) Determine the nature of the bill (%s).\n", joinChoices(ExpenseCategories))
	fmt.Fprintf(&b, "4) Based on the policy rules, decide whether the expense should be approved or rejected. If rejected, give the reason in at most %d words.\n", maxReasonWords)

	return b.String()
}

func joinChoices(choices []string) string {
	switch len(choices) {
	case 0:
		return ""
	case 1:
		return choices[0]
	}
	return strings.Join(choices[:len(choices)-1], ", ") + ", or " + choices[len(choices)-1]
}
