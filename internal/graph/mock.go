package graph

import (
	"context"
	"sync"
	"time"

	"github.com/zero-day-ai/clausegraph/internal/types"
)

// MockCall is a recorded method call on MockGraphClient.
type MockCall struct {
	Method    string
	Cypher    string
	Params    map[string]any
	Timestamp time.Time
}

// MockGraphClient is a scripted GraphClient for tests. Query and Execute share
// one FIFO queue of errors, consumed before the FIFO queue of results.
type MockGraphClient struct {
	mu sync.RWMutex

	connected    bool
	closed       bool
	healthStatus types.HealthStatus
	calls        []MockCall

	queryResults []QueryResult
	queuedErrors []error
	queryError   error
	connectError error
	closeError   error
}

// NewMockGraphClient returns a disconnected mock.
func NewMockGraphClient() *MockGraphClient {
	return &MockGraphClient{
		healthStatus: types.Healthy("mock graph client"),
		calls:        make([]MockCall, 0),
		queryResults: make([]QueryResult, 0),
	}
}

func (m *MockGraphClient) record(method, cypher string, params map[string]any) {
	m.calls = append(m.calls, MockCall{
		Method:    method,
		Cypher:    cypher,
		Params:    params,
		Timestamp: time.Now(),
	})
}

// Connect records the call and simulates a connection.
func (m *MockGraphClient) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.record("Connect", "", nil)
	if m.connectError != nil {
		return m.connectError
	}
	m.connected = true
	return nil
}

// Close records the call and simulates disconnection.
func (m *MockGraphClient) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.record("Close", "", nil)
	if m.closeError != nil {
		return m.closeError
	}
	m.connected = false
	m.closed = true
	return nil
}

// Health returns the configured status, or unhealthy when disconnected.
func (m *MockGraphClient) Health(ctx context.Context) types.HealthStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.record("Health", "", nil)
	if !m.connected {
		return types.Unhealthy("not connected")
	}
	return m.healthStatus
}

// Query records the call and returns the next scripted outcome.
func (m *MockGraphClient) Query(ctx context.Context, cypher string, params map[string]any) (QueryResult, error) {
	return m.next("Query", cypher, params)
}

// Execute records the call and returns the next scripted outcome.
func (m *MockGraphClient) Execute(ctx context.Context, cypher string, params map[string]any) (QueryResult, error) {
	return m.next("Execute", cypher, params)
}

func (m *MockGraphClient) next(method, cypher string, params map[string]any) (QueryResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.record(method, cypher, params)

	if !m.connected {
		return QueryResult{}, types.NewError(types.CONNECTION_CLOSED, "not connected")
	}
	if len(m.queuedErrors) > 0 {
		err := m.queuedErrors[0]
		m.queuedErrors = m.queuedErrors[1:]
		return QueryResult{}, err
	}
	if m.queryError != nil {
		return QueryResult{}, m.queryError
	}
	if len(m.queryResults) > 0 {
		result := m.queryResults[0]
		m.queryResults = m.queryResults[1:]
		return result, nil
	}
	return QueryResult{
		Records: []map[string]any{},
		Columns: []string{},
	}, nil
}

// AddQueryResult queues a result.
func (m *MockGraphClient) AddQueryResult(result QueryResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queryResults = append(m.queryResults, result)
}

// AddQueryError queues a one-shot error.
func (m *MockGraphClient) AddQueryError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queuedErrors = append(m.queuedErrors, err)
}

// SetQueryError makes every Query and Execute fail once the error queue is
// drained. Pass nil to clear.
func (m *MockGraphClient) SetQueryError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queryError = err
}

func (m *MockGraphClient) SetHealthStatus(status types.HealthStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.healthStatus = status
}

func (m *MockGraphClient) SetConnectError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectError = err
}

func (m *MockGraphClient) SetCloseError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeError = err
}

// GetCalls returns a copy of every recorded call.
func (m *MockGraphClient) GetCalls() []MockCall {
	m.mu.RLock()
	defer m.mu.RUnlock()

	calls := make([]MockCall, len(m.calls))
	copy(calls, m.calls)
	return calls
}

// GetCallsByMethod returns the recorded calls to method.
func (m *MockGraphClient) GetCallsByMethod(method string) []MockCall {
	m.mu.RLock()
	defer m.mu.RUnlock()

	calls := make([]MockCall, 0)
	for _, call := range m.calls {
		if call.Method == method {
			calls = append(calls, call)
		}
	}
	return calls
}

// CallCount returns the number of recorded calls.
func (m *MockGraphClient) CallCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.calls)
}

// StatementCount returns the number of Query and Execute calls.
func (m *MockGraphClient) StatementCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, call := range m.calls {
		if call.Method == "Query" || call.Method == "Execute" {
			n++
		}
	}
	return n
}

func (m *MockGraphClient) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

func (m *MockGraphClient) IsClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

var _ GraphClient = (*MockGraphClient)(nil)
var _ GraphClient = (*Neo4jClient)(nil)
