// Demo program that walks one invoice through the whole pipeline
// This shows policy loading, prompt construction and a single judgment
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/ppiankov/invoicecheck/internal/invoice"
	"github.com/ppiankov/invoicecheck/internal/judge"
	"github.com/ppiankov/invoicecheck/internal/llm"
	"github.com/ppiankov/invoicecheck/internal/model"
	"github.com/ppiankov/invoicecheck/internal/policy"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: policy-demo <invoice image> [policy.docx]")
		os.Exit(2)
	}
	invoicePath := os.Args[1]
	policyPath := model.DefaultConfig().Policy.Path
	if len(os.Args) > 2 {
		policyPath = os.Args[2]
	}

	_ = godotenv.Load(".env")

	fmt.Println("=== Expense Policy Demo ===")
	fmt.Println()

	apiKey, err := llm.LoadAPIKey("gemini")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	gen, err := llm.NewGenerator(llm.Config{
		Provider: "gemini",
		Model:    "gemini-1.5-flash",
		APIKey:   apiKey,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	rules, err := policy.NewCompiler(policy.ModeRaw).Compile(ctx, policyPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Policy: %s\n", policyPath)
	fmt.Println(strings.Repeat("-", 60))
	fmt.Println(rules.Text)
	fmt.Println(strings.Repeat("-", 60))
	fmt.Println()

	payload, err := invoice.Encode(invoice.FromFile(invoicePath))
	if err != nil {
		fmt.Printf("  ⚠️  %s: %v\n", model.KindOf(err), err)
		os.Exit(1)
	}
	fmt.Printf("Invoice: %s (%s, %d bytes)\n\n", invoicePath, payload.MIMEType, len(payload.Data))

	start := time.Now()
	verdict, err := judge.NewEngine(gen, 20, nil).Judge(ctx, payload, rules)
	if err != nil {
		fmt.Printf("  ⚠️  %s: %v\n", model.KindOf(err), err)
		os.Exit(1)
	}

	fmt.Println(verdict)
	fmt.Printf("\n=== Done in %s ===\n", time.Since(start).Round(time.Millisecond))
	fmt.Println("\nNote: verdicts are free-form model output.")
	fmt.Println("Use 'invoicecheck check --parse' for a structured view.")
}
