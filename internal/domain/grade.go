package domain

// GradeLabel classifies a judge verdict for a single document.
type GradeLabel string

const (
	// GradeRelevant means the judge answered "yes".
	GradeRelevant GradeLabel = "relevant"
	// GradeIrrelevant means the judge answered "no".
	GradeIrrelevant GradeLabel = "irrelevant"
	// GradeParseFailed means the judge output could not be decoded or the
	// judge stayed unreachable after retries. Counted as irrelevant.
	GradeParseFailed GradeLabel = "parse_failed"
)

// GradeResult is the verdict for one retrieved document. Exactly one is
// produced per document, in the original retrieval order. RawResponse keeps
// the literal judge output for audit.
type GradeResult struct {
	Document    Document
	Label       GradeLabel
	RawResponse string
}

// Relevant reports whether the document was accepted for context assembly.
func (g GradeResult) Relevant() bool {
	return g.Label == GradeRelevant
}

// RelevanceReport aggregates grading statistics for one query.
// Invariants: RelevantCount+IrrelevantCount == TotalRetrieved, and
// Ratio == RelevantCount/TotalRetrieved when TotalRetrieved > 0, else 0.
type RelevanceReport struct {
	TotalRetrieved  int
	RelevantCount   int
	IrrelevantCount int
	Ratio           float64
}

// NewRelevanceReport derives the aggregate report from per-document grades.
// ParseFailed verdicts count as irrelevant.
func NewRelevanceReport(grades []GradeResult) RelevanceReport {
	report := RelevanceReport{TotalRetrieved: len(grades)}
	for _, g := range grades {
		if g.Relevant() {
			report.RelevantCount++
		} else {
			report.IrrelevantCount++
		}
	}
	if report.TotalRetrieved > 0 {
		report.Ratio = float64(report.RelevantCount) / float64(report.TotalRetrieved)
	}
	return report
}
