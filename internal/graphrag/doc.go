// Package graphrag persists extracted contract knowledge in Neo4j and runs the
// compliance queries over it.
//
// Store is the only component that talks Cypher. All statements come from a
// fixed set of parameterized templates in query.go; the one dynamic template,
// used by Store.Link, is assembled by BuildLinkQuery after every label,
// relationship type and property key has passed the whitelist gate. Values
// are always bound parameters.
//
// Mutations and reads go through graph.Retry. Validation failures are
// returned before any statement is sent.
package graphrag
