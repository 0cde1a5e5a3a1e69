// Package graph provides the Neo4j access layer used by the contract graph
// store.
//
// # Architecture
//
//   - GraphClient: session-scoped Cypher execution (read and write)
//   - Neo4jClient: production implementation on the Neo4j Go driver
//   - DriverPool: one shared driver per target URI, owned by the caller
//   - Retry: bounded exponential backoff for transient failures
//   - MockGraphClient: scripted implementation for unit tests
//
// # Usage
//
//	pool := graph.NewDriverPool(graph.WithPoolLogger(logger))
//	defer pool.CloseAll(ctx)
//
//	client, err := graph.NewNeo4jClient(cfg, graph.WithDriverPool(pool))
//	if err != nil {
//	    return err
//	}
//	if err := client.Connect(ctx); err != nil {
//	    return err
//	}
//	defer client.Close(ctx)
//
//	res, err := graph.Retry(ctx, graph.DefaultRetryPolicy(), func(ctx context.Context) (graph.QueryResult, error) {
//	    return client.Query(ctx, "MATCH (c:Clause) RETURN c.id AS id", nil)
//	})
//
// Every Query and Execute call opens its own session and closes it before
// returning, on every exit path.
package graph
