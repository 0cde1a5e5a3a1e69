package pipeline

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zero-day-ai/clausegraph/internal/contract"
	"github.com/zero-day-ai/clausegraph/internal/graphrag"
)

func testHeader() ReportHeader {
	return ReportHeader{GeneratedAt: fixedNow, TextLength: 1234, ClauseCount: 3}
}

func TestRenderReport_NoIssues(t *testing.T) {
	report, critical := RenderReport(testHeader(), nil, nil)

	assert.Equal(t, 0, critical)
	assert.True(t, strings.HasPrefix(report, "# 📋 Compliance Risk Report\n"))
	assert.Contains(t, report, "> **Generated**: 2024-03-01 12:00:00")
	assert.Contains(t, report, "> **Contract Length**: 1234 characters")
	assert.Contains(t, report, "> **Clauses Analyzed**: 3")
	assert.Contains(t, report, "## ✅ No Critical Issues Found")
	assert.NotContains(t, report, "CRITICAL")
	assert.NotContains(t, report, "Recommendations")
	assert.Contains(t, report, "generated by clausegraph")
}

func TestRenderReport_Findings(t *testing.T) {
	contradictions := []graphrag.Contradiction{{
		Clause1ID: "1", Clause1Topic: "Indemnification", Clause1Text: strings.Repeat("a", 150),
		Clause2ID: "2", Clause2Topic: "Liability", Clause2Text: "short",
		Reason: "Unlimited indemnity | capped liability, which cannot both hold at once",
	}}
	risks := []graphrag.RiskRecord{
		{RiskID: "r1", Severity: contract.SeverityCritical, Description: "conflict", ClauseID: "1",
			ClauseTopic: "Indemnification", Recommendation: "Immediate legal review required."},
		{RiskID: "r2", Severity: contract.SeverityLow, Description: "minor", ClauseID: "3"},
	}

	report, critical := RenderReport(testHeader(), contradictions, risks)

	assert.Equal(t, 2, critical)
	assert.Contains(t, report, "## 🚨 CRITICAL FINDINGS")
	assert.Contains(t, report, "| 1 | Indemnification (#1) | Liability (#2) | Unlimited indemnity \\| capped liability, which cann... |")
	assert.Contains(t, report, "**Conflict #1: Indemnification vs Liability**")
	assert.Contains(t, report, "- **Clause 1**: _"+strings.Repeat("a", 100)+"..._")
	assert.Contains(t, report, "- **Analysis**: Unlimited indemnity")
	assert.Contains(t, report, "🔴 **CRITICAL**: conflict")
	assert.Contains(t, report, "   - Related Clause: #1 (Indemnification)")
	assert.Contains(t, report, "   - 💡 Recommendation: Immediate legal review required.")
	assert.Contains(t, report, "🟢 **LOW**: minor")
	assert.Contains(t, report, "   - Related Clause: #3 (N/A)")
	assert.Contains(t, report, "4. **Scope Clarification**")
	assert.NotContains(t, report, "No Critical Issues Found")
}

func TestRenderReport_RisksOnly(t *testing.T) {
	report, critical := RenderReport(testHeader(), nil, []graphrag.RiskRecord{
		{RiskID: "r", Severity: contract.SeverityMedium, ClauseID: "2"},
	})

	assert.Equal(t, 0, critical)
	assert.Contains(t, report, "CRITICAL FINDINGS")
	assert.NotContains(t, report, "Contradicting Clauses")
	assert.Contains(t, report, "🟡 **MEDIUM**: N/A")
}

func TestRenderErrorReport(t *testing.T) {
	report := RenderErrorReport(testHeader(), errors.New("connection refused"))

	assert.Contains(t, report, "# 📋 Compliance Risk Report")
	assert.Contains(t, report, "## ❌ Error During Analysis")
	assert.Contains(t, report, "```\nconnection refused\n```")
	assert.Contains(t, report, "Please ensure Neo4j is running")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab", truncate("abc", 2))
	assert.Equal(t, "§§", truncate("§§§", 2))
}
