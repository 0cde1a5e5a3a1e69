// Package contract defines the domain model shared by extraction, graph
// persistence and the analysis pipeline: clauses, entities, risks and the
// typed relationships between them.
//
// Labels and relationship types are closed sets. Anything that ends up as an
// identifier in a Cypher statement must come from one of them.
package contract
