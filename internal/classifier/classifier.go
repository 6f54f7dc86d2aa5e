// Package classifier defines the external AI-enrichment collaborator the
// RTIE consults for Renfe alerts (§4.F): a best-effort classifier whose
// failures must never block alert persistence.
package classifier

import "context"

// Result is the enrichment the RTIE attaches to a Renfe alert when the
// classifier succeeds.
type Result struct {
	Severity          string
	Status            string
	Summary           string
	AffectedSegments  []string
}

// AlertClassifier enriches a raw alert header/description with an AI-derived
// severity, status, summary, and list of affected line segments. Renfe alert
// enrichment is speculative and external to this module's core domain: any
// implementation (an HTTP call to a hosted model, a local heuristic) lives
// behind this interface so the RTIE never depends on a concrete vendor.
type AlertClassifier interface {
	Classify(ctx context.Context, header, description string) (Result, error)
}

// NoOp is the default classifier: it returns a zero Result and no error,
// which the RTIE interprets as "leave previously stored enrichment, if any,
// untouched" (§4.F — enrichment is best-effort and optional).
type NoOp struct{}

func (NoOp) Classify(ctx context.Context, header, description string) (Result, error) {
	return Result{}, nil
}
