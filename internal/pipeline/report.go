package pipeline

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/zero-day-ai/clausegraph/internal/contract"
	"github.com/zero-day-ai/clausegraph/internal/graphrag"
)

// ReportHeader is the run summary printed at the top of every report.
type ReportHeader struct {
	GeneratedAt time.Time
	TextLength  int
	ClauseCount int
}

// RenderReport writes the compliance report for the given findings and
// returns it together with the number of critical issues: contradictions plus
// critical risks.
func RenderReport(h ReportHeader, contradictions []graphrag.Contradiction, risks []graphrag.RiskRecord) (string, int) {
	var buf bytes.Buffer
	writeHeader(&buf, h)

	critical := 0
	if len(contradictions) == 0 && len(risks) == 0 {
		writeNoIssues(&buf)
	} else {
		buf.WriteString("## 🚨 CRITICAL FINDINGS\n\n")
		if len(contradictions) > 0 {
			writeContradictions(&buf, contradictions)
		}
		if len(risks) > 0 {
			writeRisks(&buf, risks)
		}
		writeRecommendations(&buf)

		critical = len(contradictions)
		for _, r := range risks {
			if r.Severity == contract.SeverityCritical {
				critical++
			}
		}
	}

	writeFooter(&buf)
	return buf.String(), critical
}

// RenderErrorReport writes a report whose body documents a failed compliance
// check.
func RenderErrorReport(h ReportHeader, err error) string {
	var buf bytes.Buffer
	writeHeader(&buf, h)

	buf.WriteString("## ❌ Error During Analysis\n\n")
	buf.WriteString("An error occurred during the compliance check:\n")
	fmt.Fprintf(&buf, "```\n%v\n```\n\n", err)
	buf.WriteString("Please ensure Neo4j is running and try again.\n")
	return buf.String()
}

func writeHeader(buf *bytes.Buffer, h ReportHeader) {
	buf.WriteString("# 📋 Compliance Risk Report\n\n")
	fmt.Fprintf(buf, "> **Generated**: %s  \n", h.GeneratedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(buf, "> **Contract Length**: %d characters  \n", h.TextLength)
	fmt.Fprintf(buf, "> **Clauses Analyzed**: %d\n\n", h.ClauseCount)
	buf.WriteString("---\n\n")
}

func writeContradictions(buf *bytes.Buffer, contradictions []graphrag.Contradiction) {
	buf.WriteString("### Contradicting Clauses\n\n")
	buf.WriteString("| # | Clause A | Clause B | Issue |\n")
	buf.WriteString("|---|----------|----------|-------|\n")
	for i, c := range contradictions {
		reason := c.Reason
		if reason == "" {
			reason = "Conflicting terms"
		}
		fmt.Fprintf(buf, "| %d | %s (#%s) | %s (#%s) | %s... |\n",
			i+1,
			orUnknown(c.Clause1Topic), c.Clause1ID,
			orUnknown(c.Clause2Topic), c.Clause2ID,
			escapeCell(truncate(reason, 50)))
	}
	buf.WriteString("\n")

	buf.WriteString("#### Detailed Analysis\n\n")
	for i, c := range contradictions {
		fmt.Fprintf(buf, "**Conflict #%d: %s vs %s**\n\n", i+1, c.Clause1Topic, c.Clause2Topic)
		fmt.Fprintf(buf, "- **Clause %s**: _%s..._\n", c.Clause1ID, truncate(c.Clause1Text, 100))
		fmt.Fprintf(buf, "- **Clause %s**: _%s..._\n", c.Clause2ID, truncate(c.Clause2Text, 100))
		if c.Reason != "" {
			fmt.Fprintf(buf, "- **Analysis**: %s\n", c.Reason)
		}
		buf.WriteString("\n")
	}
}

func writeRisks(buf *bytes.Buffer, risks []graphrag.RiskRecord) {
	buf.WriteString("### Identified Risks\n\n")
	for _, r := range risks {
		severity := strings.ToUpper(string(r.Severity))
		if severity == "" {
			severity = "UNKNOWN"
		}
		description := r.Description
		if description == "" {
			description = "N/A"
		}
		fmt.Fprintf(buf, "%s **%s**: %s\n", severityEmoji(r.Severity), severity, description)
		fmt.Fprintf(buf, "   - Related Clause: #%s (%s)\n", r.ClauseID, orDefault(r.ClauseTopic, "N/A"))
		if r.Recommendation != "" {
			fmt.Fprintf(buf, "   - 💡 Recommendation: %s\n", r.Recommendation)
		}
		buf.WriteString("\n")
	}
}

func writeRecommendations(buf *bytes.Buffer) {
	buf.WriteString("---\n\n")
	buf.WriteString("## 💡 Recommendations\n\n")
	buf.WriteString("1. **Immediate Legal Review**: Critical contradictions require expert analysis.\n")
	buf.WriteString("2. **Reconcile Conflicting Terms**: Clarify which clause takes precedence.\n")
	buf.WriteString("3. **Add Precedence Language**: Include a clause specifying order of precedence.\n")
	buf.WriteString("4. **Scope Clarification**: Define clear boundaries for indemnification obligations.\n")
}

func writeNoIssues(buf *bytes.Buffer) {
	buf.WriteString("## ✅ No Critical Issues Found\n\n")
	buf.WriteString("The contract analysis did not identify any contradicting clauses or critical risks.\n\n")
	buf.WriteString("**Note**: This automated analysis may not catch all issues. \n")
	buf.WriteString("Human review is still recommended for important contracts.\n")
}

func writeFooter(buf *bytes.Buffer) {
	buf.WriteString("\n---\n\n")
	buf.WriteString("*This report was generated by clausegraph. \n")
	buf.WriteString("For complex legal matters, consult with qualified legal counsel.*\n")
}

func severityEmoji(s contract.Severity) string {
	switch s {
	case contract.SeverityCritical:
		return "🔴"
	case contract.SeverityHigh:
		return "🟠"
	case contract.SeverityMedium:
		return "🟡"
	case contract.SeverityLow:
		return "🟢"
	default:
		return "⚪"
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

func orUnknown(s string) string {
	return orDefault(s, "Unknown")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
