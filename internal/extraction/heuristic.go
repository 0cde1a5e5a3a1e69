package extraction

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/zero-day-ai/clausegraph/internal/contract"
	"github.com/zero-day-ai/clausegraph/internal/types"
)

// Clause topics recognized by HeuristicExtractor, in match priority order.
const (
	TopicIndemnification = "Indemnification"
	TopicLiability       = "Liability"
	TopicConfidentiality = "Confidentiality"
	TopicTermination     = "Termination"
	TopicIPRights        = "IP Rights"
)

// PreviewLength is the number of characters kept as a clause's display text.
const PreviewLength = 200

// topicRule associates a topic with the pattern that detects it.
type topicRule struct {
	Topic   string
	Pattern *regexp.Regexp
}

var (
	sectionBoundary = regexp.MustCompile(`\n\s*(\d+)\.\s+`)
	roleNoun        = regexp.MustCompile(`(?i)\b(Developer|Client|Contractor|Company|Vendor|Provider|Customer)\b`)

	unlimitedMarkers  = []string{"unlimited", "without limit"}
	capMarkers        = []string{"limited to", "cap", "shall not exceed"}
	obligationMarkers = []string{"agrees to", "shall", "must", "will"}
)

// HeuristicExtractor finds clauses with ordered topic patterns, registers
// role nouns as parties, and applies two fixed relationship heuristics:
// unlimited indemnity contradicting a liability cap, and clause obligations
// on the parties they name.
//
// Thread-safety: immutable after construction.
type HeuristicExtractor struct {
	rules []topicRule
}

// NewHeuristicExtractor returns an extractor with the default topic rules.
func NewHeuristicExtractor() *HeuristicExtractor {
	h := &HeuristicExtractor{}
	h.addRule(TopicIndemnification, `(?i)indemnif\w*|hold\s+harmless`)
	h.addRule(TopicLiability, `(?i)limitation\s+of\s+liability|liability\s+(cap|limit)`)
	h.addRule(TopicConfidentiality, `(?i)confidential\w*|non-disclosure|\bNDA\b`)
	h.addRule(TopicTermination, `(?i)terminat\w*|cancel\w*`)
	h.addRule(TopicIPRights, `(?i)intellectual\s+property|IP\s+rights|copyright|patent`)
	return h
}

func (h *HeuristicExtractor) addRule(topic, pattern string) {
	h.rules = append(h.rules, topicRule{Topic: topic, Pattern: regexp.MustCompile(pattern)})
}

// section is one numbered block of the contract. The preamble before the
// first number has an empty Number.
type section struct {
	Number string
	Text   string
}

// splitSections cuts text at numbered-list boundaries ("\n 3. ").
func splitSections(text string) []section {
	matches := sectionBoundary.FindAllStringSubmatchIndex(text, -1)
	out := make([]section, 0, len(matches)+1)

	start, number := 0, ""
	for _, m := range matches {
		out = append(out, section{Number: number, Text: text[start:m[0]]})
		number = text[m[2]:m[3]]
		start = m[1]
	}
	out = append(out, section{Number: number, Text: text[start:]})
	return out
}

// classify returns the topic of a section. The heading line is tried first so
// that a titled section is not captured by an earlier topic merely mentioned
// in its body; otherwise the whole section is scanned.
func (h *HeuristicExtractor) classify(text string) (string, bool) {
	heading := text
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		heading = text[:i]
	}
	for _, r := range h.rules {
		if r.Pattern.MatchString(heading) {
			return r.Topic, true
		}
	}
	for _, r := range h.rules {
		if r.Pattern.MatchString(text) {
			return r.Topic, true
		}
	}
	return "", false
}

// Extract implements Extractor. A panic inside extraction is returned as an
// EXTRACTION_FAILED error rather than propagated.
func (h *HeuristicExtractor) Extract(ctx context.Context, text string) (result contract.Extraction, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = contract.Extraction{}
			err = types.NewExtractionError("extraction panicked", text, fmt.Errorf("%v", r))
		}
	}()

	if err := ctx.Err(); err != nil {
		return contract.Extraction{}, types.NewExtractionError("extraction cancelled", text, err)
	}

	result = contract.Extraction{
		Clauses:       []contract.Clause{},
		Entities:      []contract.Entity{},
		Relationships: []contract.Relationship{},
	}
	seen := make(map[string]struct{})

	for _, sec := range splitSections(text) {
		body := strings.TrimSpace(sec.Text)
		if body == "" {
			continue
		}

		if topic, ok := h.classify(body); ok {
			result.Clauses = append(result.Clauses, contract.Clause{
				ID:       fmt.Sprintf("%d", len(result.Clauses)+1),
				Topic:    topic,
				Text:     preview(body),
				FullText: body,
				Section:  sec.Number,
			})
		}

		for _, m := range roleNoun.FindAllStringSubmatch(body, -1) {
			name := titleCase(m[1])
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			result.Entities = append(result.Entities, contract.Entity{Name: name, Type: contract.EntityParty})
		}
	}

	result.Relationships = append(result.Relationships, detectContradictions(result.Clauses)...)
	result.Relationships = append(result.Relationships, linkObligations(result.Clauses, result.Entities)...)
	return result, nil
}

// detectContradictions flags an indemnity clause promising unlimited cover
// when a liability clause caps all claims including indemnification. When a
// topic occurs more than once the last clause of that topic is used.
func detectContradictions(clauses []contract.Clause) []contract.Relationship {
	var indemnity, liability *contract.Clause
	for i := range clauses {
		switch clauses[i].Topic {
		case TopicIndemnification:
			indemnity = &clauses[i]
		case TopicLiability:
			liability = &clauses[i]
		}
	}
	if indemnity == nil || liability == nil {
		return nil
	}

	indem := strings.ToLower(indemnity.FullText)
	liab := strings.ToLower(liability.FullText)
	if !containsAny(indem, unlimitedMarkers) || !containsAny(liab, capMarkers) || !strings.Contains(liab, "indemnif") {
		return nil
	}

	return []contract.Relationship{{
		Source:      indemnity.ID,
		Target:      liability.ID,
		Type:        contract.RelContradicts,
		TargetLabel: contract.LabelClause,
		Severity:    contract.SeverityCritical,
		Reason: fmt.Sprintf("The %s clause states unlimited indemnification, while the %s clause caps all liability "+
			"including indemnification claims. This creates legal ambiguity.", indemnity.Topic, liability.Topic),
	}}
}

// linkObligations emits OBLIGATES for every clause naming a party in a
// clause that contains an obligation marker.
func linkObligations(clauses []contract.Clause, entities []contract.Entity) []contract.Relationship {
	var out []contract.Relationship
	for _, c := range clauses {
		full := strings.ToLower(c.FullText)
		if !containsAny(full, obligationMarkers) {
			continue
		}
		for _, e := range entities {
			if strings.Contains(full, strings.ToLower(e.Name)) {
				out = append(out, contract.Relationship{
					Source:      c.ID,
					Target:      e.Name,
					Type:        contract.RelObligates,
					TargetLabel: contract.LabelEntity,
				})
			}
		}
	}
	return out
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func preview(s string) string {
	r := []rune(s)
	if len(r) <= PreviewLength {
		return s
	}
	return string(r[:PreviewLength]) + "..."
}

// titleCase upper-cases the first letter and lower-cases the rest. Role nouns
// are single ASCII words.
func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

var _ Extractor = (*HeuristicExtractor)(nil)
