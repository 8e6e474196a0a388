package usecase

import (
	"github.com/vdt040499/corrective-rag/internal/domain"
)

// CorrectionPolicy decides whether the pipeline should augment local context
// with web search. It is a pure computation over the relevance report; no
// other component may re-derive the decision.
type CorrectionPolicy struct {
	// Threshold is the fixed relevance cutoff in [0,1].
	Threshold float64
	// MinRelevantDocs, when > 0, switches to a dynamic threshold of
	// min(1, MinRelevantDocs/k) so at least that many relevant documents
	// are expected from a retrieval of size k.
	MinRelevantDocs int
}

// ThresholdMode names the active threshold strategy for diagnostics.
func (p CorrectionPolicy) ThresholdMode() string {
	if p.MinRelevantDocs > 0 {
		return "dynamic"
	}
	return "fixed"
}

// EffectiveThreshold resolves the cutoff for a retrieval of k documents.
func (p CorrectionPolicy) EffectiveThreshold(k int) float64 {
	if p.MinRelevantDocs > 0 {
		if k <= 0 {
			return 1.0
		}
		dynamic := float64(p.MinRelevantDocs) / float64(k)
		if dynamic > 1.0 {
			return 1.0
		}
		return dynamic
	}
	return p.Threshold
}

// Decide applies the correction rules in order:
//  1. nothing retrieved           -> triggered (no_documents_retrieved)
//  2. web search disabled         -> not triggered (fallback_disabled)
//  3. ratio strictly below cutoff -> triggered (ratio_below_threshold)
//  4. otherwise                   -> not triggered (not_triggered)
func (p CorrectionPolicy) Decide(report domain.RelevanceReport, threshold float64, webSearchEnabled bool) domain.FallbackDecision {
	switch {
	case report.TotalRetrieved == 0:
		return domain.FallbackDecision{Triggered: true, Reason: domain.ReasonNoDocuments}
	case !webSearchEnabled:
		return domain.FallbackDecision{Triggered: false, Reason: domain.ReasonFallbackDisabled}
	case report.Ratio < threshold:
		return domain.FallbackDecision{Triggered: true, Reason: domain.ReasonRatioBelowThreshold}
	default:
		return domain.FallbackDecision{Triggered: false, Reason: domain.ReasonNotTriggered}
	}
}
