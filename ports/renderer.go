package ports

import "statlab/domain/analysis"

// ChartRenderer renders the diagnostic chart for a completed analysis.
// The summary must be the method-specific type produced by the matching
// Analyzer; the returned bytes are an encoded PNG.
type ChartRenderer interface {
	Render(kind analysis.Kind, summary any) ([]byte, error)
}
