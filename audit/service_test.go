package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) Index(ctx context.Context, log AuditLog) error {
	return m.Called(ctx, log).Error(0)
}

func (m *mockRepository) Search(ctx context.Context, query Query) ([]AuditLog, error) {
	args := m.Called(ctx, query)
	return args.Get(0).([]AuditLog), args.Error(1)
}

func TestRecord_FillsIDAndTimestamp(t *testing.T) {
	repo := &mockRepository{}
	repo.On("Index", mock.Anything, mock.MatchedBy(func(log AuditLog) bool {
		return log.ID != "" && !log.Timestamp.IsZero() && log.Action == ActionCreatePolicy
	})).Return(nil)

	err := NewService(repo).Record(context.Background(), AuditLog{Action: ActionCreatePolicy, ActorURN: "urn:li:corpuser:alice"})

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestQueryLogs_Defaults(t *testing.T) {
	repo := &mockRepository{}
	repo.On("Search", mock.Anything, mock.MatchedBy(func(q Query) bool {
		return q.Limit == 100 && !q.To.IsZero() && q.PolicyID == "urn:li:dataHubPolicy:1"
	})).Return([]AuditLog{{ID: "a"}}, nil)

	logs, err := NewService(repo).QueryLogs(context.Background(), Query{PolicyID: "urn:li:dataHubPolicy:1"})

	require.NoError(t, err)
	assert.Len(t, logs, 1)
	repo.AssertExpectations(t)
}

func TestBuildSearchBody(t *testing.T) {
	to := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	body := buildSearchBody(Query{To: to, PolicyID: "urn:li:dataHubPolicy:1", Limit: 5})

	assert.Equal(t, 5, body["size"])
	must := body["query"].(map[string]interface{})["bool"].(map[string]interface{})["must"].([]interface{})
	require.Len(t, must, 2)

	timestamp := must[0].(map[string]interface{})["range"].(map[string]interface{})["timestamp"].(map[string]interface{})
	assert.Equal(t, "2024-06-01T00:00:00Z", timestamp["lte"])
	assert.NotContains(t, timestamp, "gte")
}
