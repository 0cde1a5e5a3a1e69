package contract

// Label is a node label permitted in dynamically built queries.
type Label string

const (
	LabelClause       Label = "Clause"
	LabelEntity       Label = "Entity"
	LabelRisk         Label = "Risk"
	LabelParty        Label = "Party"
	LabelOrganization Label = "Organization"
)

var allowedLabels = map[Label]struct{}{
	LabelClause:       {},
	LabelEntity:       {},
	LabelRisk:         {},
	LabelParty:        {},
	LabelOrganization: {},
}

// IsAllowed reports whether l is whitelisted.
func (l Label) IsAllowed() bool {
	_, ok := allowedLabels[l]
	return ok
}

// RelationshipType is an edge type permitted in dynamically built queries.
type RelationshipType string

const (
	RelContradicts RelationshipType = "CONTRADICTS"
	RelRefersTo    RelationshipType = "REFERS_TO"
	RelObligates   RelationshipType = "OBLIGATES"
	RelModifies    RelationshipType = "MODIFIES"
	RelSupersedes  RelationshipType = "SUPERSEDES"
	RelHasRisk     RelationshipType = "HAS_RISK"
)

var allowedRelationships = map[RelationshipType]struct{}{
	RelContradicts: {},
	RelRefersTo:    {},
	RelObligates:   {},
	RelModifies:    {},
	RelSupersedes:  {},
	RelHasRisk:     {},
}

// IsAllowed reports whether t is whitelisted.
func (t RelationshipType) IsAllowed() bool {
	_, ok := allowedRelationships[t]
	return ok
}

// EntityType classifies a named entity.
type EntityType string

const (
	EntityParty         EntityType = "Party"
	EntityOrganization  EntityType = "Organization"
	EntityPerson        EntityType = "Person"
	EntityJurisdiction  EntityType = "Jurisdiction"
	EntityDate          EntityType = "Date"
	EntityMonetaryValue EntityType = "MonetaryValue"
)

// Clause is a topical section of a contract.
//
// Text is a short preview and is what gets persisted. FullText is the whole
// section, kept in memory for the relationship heuristics only.
type Clause struct {
	ID       string `json:"id"`
	Topic    string `json:"topic"`
	Text     string `json:"text"`
	FullText string `json:"-"`
	Section  string `json:"section,omitempty"`
	Page     *int   `json:"page,omitempty"`
}

// Entity is a named party or other actor. Name is the unique key.
type Entity struct {
	Name string     `json:"name"`
	Type EntityType `json:"type"`
}

// Risk is a compliance risk attached to one or more clauses.
type Risk struct {
	ID             string   `json:"id"`
	Severity       Severity `json:"severity"`
	Description    string   `json:"description"`
	Recommendation string   `json:"recommendation,omitempty"`
	ClauseIDs      []string `json:"clause_ids,omitempty"`
}

// Relationship is a typed, directed edge produced by extraction.
type Relationship struct {
	Source      string           `json:"source"`
	Target      string           `json:"target"`
	Type        RelationshipType `json:"type"`
	TargetLabel Label            `json:"target_label,omitempty"`
	Reason      string           `json:"reason,omitempty"`
	Severity    Severity         `json:"severity,omitempty"`
	Properties  map[string]any   `json:"properties,omitempty"`
}

// Extraction is everything an extractor pulled out of a contract.
type Extraction struct {
	Clauses       []Clause       `json:"clauses"`
	Entities      []Entity       `json:"entities"`
	Relationships []Relationship `json:"relationships"`
}

// IsEmpty reports whether nothing worth persisting was extracted.
func (e Extraction) IsEmpty() bool {
	return len(e.Clauses) == 0 && len(e.Entities) == 0
}

// Clone returns a deep copy so callers can hand it to the next pipeline
// stage without sharing backing arrays.
func (e Extraction) Clone() Extraction {
	out := Extraction{
		Clauses:       make([]Clause, len(e.Clauses)),
		Entities:      append([]Entity{}, e.Entities...),
		Relationships: make([]Relationship, len(e.Relationships)),
	}
	for i, c := range e.Clauses {
		if c.Page != nil {
			p := *c.Page
			c.Page = &p
		}
		out.Clauses[i] = c
	}
	for i, r := range e.Relationships {
		if r.Properties != nil {
			props := make(map[string]any, len(r.Properties))
			for k, v := range r.Properties {
				props[k] = v
			}
			r.Properties = props
		}
		out.Relationships[i] = r
	}
	if out.Entities == nil {
		out.Entities = []Entity{}
	}
	return out
}
