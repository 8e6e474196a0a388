package domain

// FallbackReason explains a web-search fallback decision.
type FallbackReason string

const (
	// ReasonNoDocuments means nothing was retrieved; fallback triggers
	// regardless of the threshold.
	ReasonNoDocuments FallbackReason = "no_documents_retrieved"
	// ReasonFallbackDisabled means web search is switched off for this query.
	ReasonFallbackDisabled FallbackReason = "fallback_disabled"
	// ReasonRatioBelowThreshold means too few documents were judged relevant.
	ReasonRatioBelowThreshold FallbackReason = "ratio_below_threshold"
	// ReasonNotTriggered means local retrieval was good enough.
	ReasonNotTriggered FallbackReason = "not_triggered"
)

// FallbackDecision is the correction policy's verdict. It is derived once per
// query and carried through the pipeline; no stage recomputes it.
type FallbackDecision struct {
	Triggered bool
	Reason    FallbackReason
}
