package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/clausegraph/internal/types"
)

func newRun(id string, created time.Time, critical bool) *Run {
	issues := 0
	if critical {
		issues = 2
	}
	return &Run{
		ID:                id,
		Source:            "contract.txt",
		CreatedAt:         created,
		CompletedAt:       created.Add(time.Second),
		TextLength:        812,
		ClauseCount:       3,
		EntityCount:       2,
		RelationshipCount: 5,
		CriticalIssues:    issues,
		HasCritical:       critical,
		Errors:            []string{},
		Metadata:          map[string]any{"nodes_created": 6},
		Report:            "# report " + id,
	}
}

func TestRunDAO_CreateGet(t *testing.T) {
	dao := NewRunDAO(setupTestDB(t))
	ctx := context.Background()
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	in := newRun("run-1", created, true)
	in.Errors = []string{"Relationship error: boom"}
	require.NoError(t, dao.Create(ctx, in))

	got, err := dao.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "contract.txt", got.Source)
	assert.True(t, got.CreatedAt.Equal(created))
	assert.Equal(t, 3, got.ClauseCount)
	assert.Equal(t, 2, got.CriticalIssues)
	assert.True(t, got.HasCritical)
	assert.Equal(t, []string{"Relationship error: boom"}, got.Errors)
	assert.Equal(t, float64(6), got.Metadata["nodes_created"])
	assert.Equal(t, "# report run-1", got.Report)
}

func TestRunDAO_GetMissing(t *testing.T) {
	dao := NewRunDAO(setupTestDB(t))

	_, err := dao.Get(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, types.HasCode(err, types.DB_NOT_FOUND))
}

func TestRunDAO_CreateValidation(t *testing.T) {
	dao := NewRunDAO(setupTestDB(t))

	err := dao.Create(context.Background(), &Run{})
	assert.True(t, types.HasCode(err, types.VALIDATION_FAILED))
}

func TestRunDAO_List(t *testing.T) {
	dao := NewRunDAO(setupTestDB(t))
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, dao.Create(ctx, newRun("a", base, false)))
	require.NoError(t, dao.Create(ctx, newRun("b", base.Add(time.Hour), true)))
	require.NoError(t, dao.Create(ctx, newRun("c", base.Add(2*time.Hour), false)))

	all, err := dao.List(ctx, RunFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].ID)
	assert.Equal(t, "a", all[2].ID)
	assert.Empty(t, all[0].Report)

	critical, err := dao.List(ctx, RunFilter{CriticalOnly: true})
	require.NoError(t, err)
	require.Len(t, critical, 1)
	assert.Equal(t, "b", critical[0].ID)

	page, err := dao.List(ctx, RunFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "b", page[0].ID)

	n, err := dao.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestRunDAO_DeleteAndPrune(t *testing.T) {
	dao := NewRunDAO(setupTestDB(t))
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, dao.Create(ctx, newRun("old", base, false)))
	require.NoError(t, dao.Create(ctx, newRun("new", base.Add(48*time.Hour), false)))

	removed, err := dao.Prune(ctx, base.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	require.NoError(t, dao.Delete(ctx, "new"))
	err = dao.Delete(ctx, "new")
	assert.True(t, types.HasCode(err, types.DB_NOT_FOUND))
}
