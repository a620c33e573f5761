package render

import (
	"fmt"
	"io"
	"sort"

	"github.com/probelab/webscout/internal/report"
)

// Result writes a structured research result as a formatted terminal block
// instead of raw JSON.
func Result(w io.Writer, res report.StructuredResult) {
	fmt.Fprintf(w, "── research result (%s) ──\n", res.TaskStatus)
	if res.Message != "" {
		fmt.Fprintf(w, "%s\n", res.Message)
	}

	for i, f := range res.Findings {
		fmt.Fprintf(w, "\n%d. %s", i+1, f.Name)
		if f.Type != "" {
			fmt.Fprintf(w, " (%s)", f.Type)
		}
		fmt.Fprintln(w)
		if f.LaunchDate != "" {
			fmt.Fprintf(w, "   launched: %s\n", f.LaunchDate)
		}
		for _, key := range sortedKeys(f.Details) {
			fmt.Fprintf(w, "   %s: %v\n", key, f.Details[key])
		}
		fmt.Fprintf(w, "   confidence: %s\n", f.Confidence)
		for _, src := range f.Sources {
			if src.Title != "" {
				fmt.Fprintf(w, "   source: %s (%s)\n", src.Title, src.URL)
			} else {
				fmt.Fprintf(w, "   source: %s\n", src.URL)
			}
		}
	}

	if len(res.SearchStrategies) > 0 {
		fmt.Fprintf(w, "\nstrategies tried:\n")
		for _, s := range res.SearchStrategies {
			fmt.Fprintf(w, "  - %s\n", s)
		}
	}
	if res.NextSteps != nil && *res.NextSteps != "" {
		fmt.Fprintf(w, "\nnext steps: %s\n", *res.NextSteps)
	}
	fmt.Fprintf(w, "──\n")
}

// sortedKeys keeps Details output deterministic.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
