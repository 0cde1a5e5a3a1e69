package extraction

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/clausegraph/internal/contract"
	"github.com/zero-day-ai/clausegraph/internal/types"
)

func loadFixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return string(data)
}

func relationshipsOfType(rels []contract.Relationship, typ contract.RelationshipType) []contract.Relationship {
	var out []contract.Relationship
	for _, r := range rels {
		if r.Type == typ {
			out = append(out, r)
		}
	}
	return out
}

func TestHeuristicExtractor_Contradiction(t *testing.T) {
	text := loadFixture(t, "contradiction.txt")

	got, err := NewHeuristicExtractor().Extract(context.Background(), text)
	require.NoError(t, err)

	require.Len(t, got.Clauses, 3)
	assert.Equal(t, TopicIndemnification, got.Clauses[0].Topic)
	assert.Equal(t, "1", got.Clauses[0].ID)
	assert.Equal(t, "1", got.Clauses[0].Section)
	assert.Equal(t, TopicLiability, got.Clauses[1].Topic)
	assert.Equal(t, "2", got.Clauses[1].Section)
	assert.Equal(t, TopicConfidentiality, got.Clauses[2].Topic)

	assert.Equal(t, []contract.Entity{
		{Name: "Developer", Type: contract.EntityParty},
		{Name: "Client", Type: contract.EntityParty},
	}, got.Entities)

	contradictions := relationshipsOfType(got.Relationships, contract.RelContradicts)
	require.Len(t, contradictions, 1)
	c := contradictions[0]
	assert.Equal(t, "1", c.Source)
	assert.Equal(t, "2", c.Target)
	assert.Equal(t, contract.SeverityCritical, c.Severity)
	assert.Equal(t, contract.LabelClause, c.TargetLabel)
	assert.Contains(t, c.Reason, "The Indemnification clause states unlimited indemnification")
	assert.Contains(t, c.Reason, "Liability clause caps all liability")

	obligations := relationshipsOfType(got.Relationships, contract.RelObligates)
	pairs := make([]string, 0, len(obligations))
	for _, o := range obligations {
		assert.Equal(t, contract.LabelEntity, o.TargetLabel)
		pairs = append(pairs, o.Source+"->"+o.Target)
	}
	assert.Equal(t, []string{"1->Developer", "1->Client", "2->Client", "3->Client"}, pairs)
}

func TestHeuristicExtractor_ConfidentialityOnly(t *testing.T) {
	text := loadFixture(t, "confidentiality_only.txt")

	got, err := NewHeuristicExtractor().Extract(context.Background(), text)
	require.NoError(t, err)

	require.Len(t, got.Clauses, 2)
	for _, c := range got.Clauses {
		assert.Equal(t, TopicConfidentiality, c.Topic)
	}
	assert.Empty(t, got.Entities)
	assert.Empty(t, got.Relationships)
}

func TestHeuristicExtractor_Deterministic(t *testing.T) {
	text := loadFixture(t, "contradiction.txt")
	ex := NewHeuristicExtractor()

	first, err := ex.Extract(context.Background(), text)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := ex.Extract(context.Background(), text)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestHeuristicExtractor_NoContradictionWithoutAllMarkers(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{
			name: "indemnity not unlimited",
			text: "Intro\n1. INDEMNIFICATION\nThe Vendor will indemnify the Customer up to the fees.\n" +
				"2. LIMITATION OF LIABILITY\nLiability is limited to fees, including indemnification.",
		},
		{
			name: "liability has no cap phrase",
			text: "Intro\n1. INDEMNIFICATION\nThe Vendor will indemnify without limit.\n" +
				"2. LIMITATION OF LIABILITY\nEach party is responsible for indemnification claims.",
		},
		{
			name: "cap does not mention indemnification",
			text: "Intro\n1. INDEMNIFICATION\nUnlimited indemnity applies.\n" +
				"2. LIMITATION OF LIABILITY\nLiability shall not exceed the fees paid.",
		},
		{
			name: "no liability clause",
			text: "Intro\n1. INDEMNIFICATION\nUnlimited indemnity applies.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewHeuristicExtractor().Extract(context.Background(), tt.text)
			require.NoError(t, err)
			assert.Empty(t, relationshipsOfType(got.Relationships, contract.RelContradicts))
		})
	}
}

func TestHeuristicExtractor_TopicPriority(t *testing.T) {
	ex := NewHeuristicExtractor()

	var order []string
	for _, r := range ex.rules {
		order = append(order, r.Topic)
	}
	assert.Equal(t, []string{
		TopicIndemnification, TopicLiability, TopicConfidentiality, TopicTermination, TopicIPRights,
	}, order)

	tests := []struct {
		section string
		want    string
	}{
		{"TERMINATION\nEither party may terminate. Confidential data must be returned.", TopicTermination},
		{"Either party may terminate. Confidential data must be returned.", TopicConfidentiality},
		{"INTELLECTUAL PROPERTY\nAll copyright vests in the Client.", TopicIPRights},
		{"The Vendor shall hold harmless the Customer.", TopicIndemnification},
		{"Liability cap is two times fees.", TopicLiability},
		{"This NDA governs disclosures.", TopicConfidentiality},
	}

	for _, tt := range tests {
		got, ok := ex.classify(tt.section)
		require.True(t, ok, tt.section)
		assert.Equal(t, tt.want, got, tt.section)
	}

	_, ok := ex.classify("Payment is due within thirty days under the standard calendar.")
	assert.False(t, ok)
}

func TestHeuristicExtractor_Preview(t *testing.T) {
	long := "1. CONFIDENTIALITY\n" + strings.Repeat("a", 300)
	got, err := NewHeuristicExtractor().Extract(context.Background(), "Intro\n"+long)
	require.NoError(t, err)
	require.Len(t, got.Clauses, 1)

	assert.Len(t, got.Clauses[0].Text, PreviewLength+3)
	assert.True(t, strings.HasSuffix(got.Clauses[0].Text, "..."))
	assert.Greater(t, len(got.Clauses[0].FullText), PreviewLength)
}

func TestHeuristicExtractor_EntitiesDeduplicated(t *testing.T) {
	text := "The CLIENT and the client and the Client.\n1. TERMINATION\nThe vendor may cancel; the Vendor must notify."
	got, err := NewHeuristicExtractor().Extract(context.Background(), text)
	require.NoError(t, err)

	assert.Equal(t, []contract.Entity{
		{Name: "Client", Type: contract.EntityParty},
		{Name: "Vendor", Type: contract.EntityParty},
	}, got.Entities)
}

func TestHeuristicExtractor_EmptyText(t *testing.T) {
	got, err := NewHeuristicExtractor().Extract(context.Background(), "   \n  ")
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())
	assert.Empty(t, got.Relationships)
}

func TestHeuristicExtractor_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewHeuristicExtractor().Extract(ctx, "1. TERMINATION\nx")
	require.Error(t, err)
	assert.True(t, types.HasCode(err, types.EXTRACTION_FAILED))
}

func TestSplitSections(t *testing.T) {
	secs := splitSections("Preamble\n1. First\nbody\n  2.  Second\n10. Tenth")
	require.Len(t, secs, 4)
	assert.Equal(t, section{Number: "", Text: "Preamble"}, secs[0])
	assert.Equal(t, section{Number: "1", Text: "First\nbody"}, secs[1])
	assert.Equal(t, section{Number: "2", Text: "Second"}, secs[2])
	assert.Equal(t, section{Number: "10", Text: "Tenth"}, secs[3])
}

func TestExtractorFunc(t *testing.T) {
	var ex Extractor = ExtractorFunc(func(ctx context.Context, text string) (contract.Extraction, error) {
		return contract.Extraction{Entities: []contract.Entity{{Name: text}}}, nil
	})
	got, err := ex.Extract(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "x", got.Entities[0].Name)
}
