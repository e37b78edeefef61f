package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/marcelsud/webhook-inspector/seed"
)

/* validate-fixtures - Standalone CLI tool to validate a seed fixtures file
 * Usage: go run cmd/validate-fixtures/main.go [fixtures.yaml]
 * Without an argument the embedded fixtures are checked
 * Exit codes: 0 = valid, 1 = invalid
 */

func main() {
	loader := seed.NewLoader()

	var err error
	if len(os.Args) > 1 {
		fmt.Printf("Validating fixtures file: %s\n", os.Args[1])
		err = loader.Load(os.Args[1])
	} else {
		fmt.Println("Validating embedded fixtures")
		err = loader.LoadDefault()
	}
	fmt.Println(strings.Repeat("-", 50))

	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ VALIDATION FAILED\n\n")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	templates := loader.List()
	total := loader.TotalWeight()
	fmt.Printf("✓ VALIDATION PASSED\n\n")
	fmt.Printf("Loaded %d template(s), total weight %d:\n", len(templates), total)

	for i, t := range templates {
		fmt.Printf("\n%d. Template: %s\n", i+1, t.Name)
		fmt.Printf("   Request:     %s %s\n", t.Method, t.Path)
		fmt.Printf("   Status:      %d\n", t.Status)
		fmt.Printf("   Weight:      %d (%.1f%%)\n", t.Weight, 100*float64(t.Weight)/float64(total))
		fmt.Printf("   Headers:     %d\n", len(t.Headers))
		if len(t.Query) > 0 {
			fmt.Printf("   Query:       %d param(s)\n", len(t.Query))
		}
		if t.Body != nil {
			fmt.Printf("   Body fields: %d\n", len(t.Body))
		}
	}

	fmt.Printf("\n✓ All templates are valid!\n")
	os.Exit(0)
}
