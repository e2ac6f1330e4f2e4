package main

import (
	"fmt"
	"os"

	"github.com/ppiankov/invoicecheck/internal/cli"
	"github.com/ppiankov/invoicecheck/internal/model"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if kind := model.KindOf(err); kind != "Unknown" {
			fmt.Fprintf(os.Stderr, "(%s)\n", kind)
		}
		os.Exit(1)
	}
}
