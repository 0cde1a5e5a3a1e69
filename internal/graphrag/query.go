package graphrag

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/zero-day-ai/clausegraph/internal/contract"
	"github.com/zero-day-ai/clausegraph/internal/types"
)

// Fixed statement templates.
const (
	cypherClearDatabase = `MATCH (n) DETACH DELETE n`

	cypherUpsertClause = `MERGE (c:Clause {id: $id})
SET c.text = $text,
    c.topic = $topic,
    c.section_number = $section_number,
    c.page_number = $page_number,
    c.updated_at = datetime()`

	cypherUpsertEntity = `MERGE (e:Entity {name: $name})
SET e.type = $type,
    e.updated_at = datetime()`

	cypherUpsertRisk = `MERGE (r:Risk {id: $risk_id})
SET r.severity = $severity,
    r.description = $description,
    r.recommendation = $recommendation,
    r.updated_at = datetime()
WITH r
MATCH (c:Clause {id: $clause_id})
MERGE (c)-[:HAS_RISK]->(r)`

	cypherContradictions = `MATCH (c1:Clause)-[r:CONTRADICTS]->(c2:Clause)
RETURN c1.id AS clause1_id,
       c1.text AS clause1_text,
       c1.topic AS clause1_topic,
       c2.id AS clause2_id,
       c2.text AS clause2_text,
       c2.topic AS clause2_topic,
       r.reason AS contradiction_reason
ORDER BY c1.id`

	cypherRisks = `MATCH (r:Risk)<-[:HAS_RISK]-(c:Clause)
RETURN r.id AS risk_id,
       r.severity AS severity,
       r.description AS description,
       r.recommendation AS recommendation,
       c.id AS clause_id,
       c.topic AS clause_topic
ORDER BY CASE r.severity
    WHEN 'critical' THEN 1
    WHEN 'high' THEN 2
    WHEN 'medium' THEN 3
    ELSE 4
END`

	cypherStats = `MATCH (n)
WITH labels(n) AS labels, count(*) AS count
UNWIND labels AS label
RETURN label, sum(count) AS node_count`

	cypherHealth = `CALL dbms.components() YIELD name, versions
RETURN name, versions[0] AS version`
)

// constraintStatements declare the key uniqueness constraints. Each is
// idempotent.
var constraintStatements = []string{
	`CREATE CONSTRAINT clause_id_unique IF NOT EXISTS FOR (c:Clause) REQUIRE c.id IS UNIQUE`,
	`CREATE CONSTRAINT entity_name_unique IF NOT EXISTS FOR (e:Entity) REQUIRE e.name IS UNIQUE`,
	`CREATE CONSTRAINT risk_id_unique IF NOT EXISTS FOR (r:Risk) REQUIRE r.id IS UNIQUE`,
}

var identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ValidateIdentifier checks that value may appear verbatim in Cypher as a
// property key: ASCII letters, digits and underscores, not starting with a
// digit. field names the argument for the error details.
func ValidateIdentifier(field, value string) error {
	if !identifierPattern.MatchString(value) {
		return types.NewValidationError(
			fmt.Sprintf("invalid identifier %q: must match %s", value, identifierPattern.String()),
			field, value)
	}
	return nil
}

// ValidateLabel checks label against the node label whitelist.
func ValidateLabel(field string, label contract.Label) error {
	if !label.IsAllowed() {
		return types.NewValidationError(fmt.Sprintf("label %q is not allowed", label), field, string(label))
	}
	return nil
}

// ValidateRelationshipType checks rel against the relationship whitelist.
func ValidateRelationshipType(rel contract.RelationshipType) error {
	if !rel.IsAllowed() {
		return types.NewValidationError(fmt.Sprintf("relationship type %q is not allowed", rel), "rel_type", string(rel))
	}
	return nil
}

// LinkSpec describes a relationship between two existing nodes, each matched
// by one key property.
type LinkSpec struct {
	SourceLabel contract.Label
	SourceKey   string
	SourceValue any

	TargetLabel contract.Label
	TargetKey   string
	TargetValue any

	Type       contract.RelationshipType
	Properties map[string]any
}

// BuildLinkQuery renders the MERGE statement for spec. It is the only place
// where caller-supplied names become query text, and it rejects anything
// outside the whitelists with a VALIDATION_FAILED error.
//
// Property keys are emitted in sorted order so identical specs produce
// identical statements.
func BuildLinkQuery(spec LinkSpec) (string, map[string]any, error) {
	if err := ValidateLabel("source_label", spec.SourceLabel); err != nil {
		return "", nil, err
	}
	if err := ValidateLabel("target_label", spec.TargetLabel); err != nil {
		return "", nil, err
	}
	if err := ValidateRelationshipType(spec.Type); err != nil {
		return "", nil, err
	}
	if err := ValidateIdentifier("source_key", spec.SourceKey); err != nil {
		return "", nil, err
	}
	if err := ValidateIdentifier("target_key", spec.TargetKey); err != nil {
		return "", nil, err
	}

	keys := make([]string, 0, len(spec.Properties))
	for k := range spec.Properties {
		if err := ValidateIdentifier("property_key", k); err != nil {
			return "", nil, err
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	params := map[string]any{
		"source_val": spec.SourceValue,
		"target_val": spec.TargetValue,
	}

	var q strings.Builder
	fmt.Fprintf(&q, "MATCH (a:%s {%s: $source_val})\n", spec.SourceLabel, spec.SourceKey)
	fmt.Fprintf(&q, "MATCH (b:%s {%s: $target_val})\n", spec.TargetLabel, spec.TargetKey)
	fmt.Fprintf(&q, "MERGE (a)-[r:%s]->(b)\n", spec.Type)

	sets := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		param := "prop_" + k
		params[param] = spec.Properties[k]
		sets = append(sets, fmt.Sprintf("r.%s = $%s", k, param))
	}
	sets = append(sets, "r.created_at = datetime()")
	q.WriteString("SET ")
	q.WriteString(strings.Join(sets, ", "))

	return q.String(), params, nil
}
