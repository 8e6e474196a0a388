package usecase

import (
	"strings"

	"github.com/vdt040499/corrective-rag/internal/domain"
)

const segmentSeparator = "\n\n"

// SegmentKind labels where a context segment came from.
type SegmentKind string

const (
	// SegmentLocal is a retrieved document accepted by the grader.
	SegmentLocal SegmentKind = "local"
	// SegmentWeb is a web-search fallback snippet.
	SegmentWeb SegmentKind = "web"
)

// ContextSegment is one labeled piece of the assembled context.
type ContextSegment struct {
	Kind   SegmentKind `json:"kind"`
	Source string      `json:"source"`
	Text   string      `json:"text"`
}

// AssembledContext is the bounded context handed to the generator. Dropped
// and trimmed segments are recorded so no content disappears silently.
type AssembledContext struct {
	Segments        []ContextSegment `json:"segments"`
	Truncated       bool             `json:"truncated"`
	DroppedSegments []ContextSegment `json:"dropped_segments,omitempty"`
}

// Empty reports whether no usable context survived assembly.
func (c AssembledContext) Empty() bool {
	return len(c.Segments) == 0
}

// Text joins the surviving segments into the block passed to the generator.
func (c AssembledContext) Text() string {
	parts := make([]string, len(c.Segments))
	for i, seg := range c.Segments {
		parts[i] = seg.Text
	}
	return strings.Join(parts, segmentSeparator)
}

// Sources lists the distinct provenances of the surviving segments, in order.
func (c AssembledContext) Sources() []string {
	seen := make(map[string]struct{}, len(c.Segments))
	var sources []string
	for _, seg := range c.Segments {
		if seg.Source == "" {
			continue
		}
		if _, ok := seen[seg.Source]; ok {
			continue
		}
		seen[seg.Source] = struct{}{}
		sources = append(sources, seg.Source)
	}
	return sources
}

// ContextAssembler merges accepted local documents and web fallback snippets
// into a size-bounded context.
type ContextAssembler struct {
	// MaxChars bounds the joined context length. Zero means unbounded.
	MaxChars int
}

// Assemble orders relevant local documents first (original retrieval order),
// then web snippets. When the joined text would exceed the budget, segments
// are dropped from the lowest-priority end: web first, then the
// lowest-ranked local documents. If a single remaining segment still exceeds
// the budget its tail is cut. Every drop or cut is recorded.
func (a ContextAssembler) Assemble(grades []domain.GradeResult, web domain.WebResult) AssembledContext {
	var segments []ContextSegment
	for _, g := range grades {
		if !g.Relevant() {
			continue
		}
		segments = append(segments, ContextSegment{
			Kind:   SegmentLocal,
			Source: g.Document.Source,
			Text:   g.Document.Content,
		})
	}
	if web.HasContent() {
		for _, snippet := range web.Snippets {
			segments = append(segments, ContextSegment{
				Kind:   SegmentWeb,
				Source: snippet.URL,
				Text:   snippet.Text,
			})
		}
	}

	out := AssembledContext{Segments: segments}
	if a.MaxChars <= 0 {
		return out
	}

	for len(out.Segments) > 1 && joinedLen(out.Segments) > a.MaxChars {
		last := len(out.Segments) - 1
		out.DroppedSegments = append(out.DroppedSegments, out.Segments[last])
		out.Segments = out.Segments[:last]
		out.Truncated = true
	}

	if len(out.Segments) == 1 && len(out.Segments[0].Text) > a.MaxChars {
		text := out.Segments[0].Text
		boundary := runeBoundary(text, a.MaxChars)
		cut := out.Segments[0]
		cut.Text = text[boundary:]
		out.DroppedSegments = append(out.DroppedSegments, cut)
		out.Segments[0].Text = text[:boundary]
		out.Truncated = true
	}

	return out
}

func joinedLen(segments []ContextSegment) int {
	total := 0
	for i, seg := range segments {
		if i > 0 {
			total += len(segmentSeparator)
		}
		total += len(seg.Text)
	}
	return total
}
