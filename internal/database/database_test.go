package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/TobiSchelling/orgscout/internal/directory"
	"github.com/TobiSchelling/orgscout/internal/trace"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"), zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleResults() Results {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	end := start.Add(1500 * time.Millisecond)
	dur := 1.5

	return Results{
		Summary: "# Summary",
		Steps: []trace.Record{
			{
				Description: "Analyzing query",
				Reasoning:   "Breaking down the query.",
				Status:      trace.StatusCompleted,
				Result:      trace.NewResult(map[string]any{"roles": []string{"engineer"}}),
				Confidence:  trace.Confidence(0.9),
				StartTime:   start,
				EndTime:     &end,
				Duration:    &dur,
			},
			{
				Description: "Searching for professionals",
				Status:      trace.StatusFailed,
				StartTime:   end,
			},
		},
		Profiles: []directory.Profile{
			{Name: "Ada", Title: "Engineer", Expertise: []string{"Go", "SQL"}},
			{Name: "Grace"},
		},
		Insights: []string{"first", "second"},
	}
}

func TestCreateResearch(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	q, err := db.CreateResearch(ctx, "software engineers at Google")
	require.NoError(t, err)
	assert.NotEmpty(t, q.ID)
	assert.Equal(t, StatusPending, q.Status)
	assert.Equal(t, "software engineers at Google", q.Query)
	assert.Empty(t, q.Summary)
	assert.False(t, q.CreatedAt.IsZero())

	got, err := db.GetResearch(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, q.ID, got.ID)
}

func TestGetResearchNotFound(t *testing.T) {
	db := openTestDB(t)
	_, err := db.GetResearch(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = db.GetReport(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCompleteResearchRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	q, err := db.CreateResearch(ctx, "engineers")
	require.NoError(t, err)
	require.NoError(t, db.MarkInProgress(ctx, q.ID))

	want := sampleResults()
	require.NoError(t, db.CompleteResearch(ctx, q.ID, want))

	report, err := db.GetReport(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, report.Status)
	assert.Equal(t, "# Summary", report.Summary)

	require.Len(t, report.Steps, 2)
	first := report.Steps[0]
	assert.Equal(t, "Analyzing query", first.Description)
	assert.Equal(t, "Breaking down the query.", first.Reasoning)
	assert.Equal(t, trace.StatusCompleted, first.Status)
	assert.JSONEq(t, `{"roles": ["engineer"]}`, first.Result.Text())
	require.NotNil(t, first.Confidence)
	assert.InDelta(t, 0.9, *first.Confidence, 1e-9)
	assert.True(t, first.StartTime.Equal(want.Steps[0].StartTime))
	require.NotNil(t, first.EndTime)
	require.NotNil(t, first.Duration)
	assert.InDelta(t, 1.5, *first.Duration, 1e-9)

	second := report.Steps[1]
	assert.Nil(t, second.Confidence)
	assert.Nil(t, second.EndTime)
	assert.Nil(t, second.Duration)
	assert.True(t, second.Result.IsEmpty())

	require.Len(t, report.Profiles, 2)
	assert.Equal(t, []string{"Go", "SQL"}, report.Profiles[0].Expertise)
	assert.Equal(t, []string{}, report.Profiles[1].Expertise)
	assert.Equal(t, []string{"first", "second"}, report.Insights)
}

func TestFailResearchKeepsPartialResults(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	q, _ := db.CreateResearch(ctx, "engineers")
	require.NoError(t, db.MarkInProgress(ctx, q.ID))

	partial := sampleResults()
	partial.Summary = "Research failed: boom"
	partial.Insights = nil
	require.NoError(t, db.FailResearch(ctx, q.ID, partial))

	report, err := db.GetReport(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, report.Status)
	assert.Equal(t, "Research failed: boom", report.Summary)
	assert.Len(t, report.Steps, 2)
	assert.Empty(t, report.Insights)
}

func TestStatusTransitions(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	q, _ := db.CreateResearch(ctx, "q")

	err := db.CompleteResearch(ctx, q.ID, Results{Summary: "too early"})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	require.NoError(t, db.MarkInProgress(ctx, q.ID))
	assert.ErrorIs(t, db.MarkInProgress(ctx, q.ID), ErrInvalidTransition)

	require.NoError(t, db.CompleteResearch(ctx, q.ID, Results{Summary: "done"}))
	assert.ErrorIs(t, db.FailResearch(ctx, q.ID, Results{Summary: "late"}), ErrInvalidTransition)

	got, _ := db.GetResearch(ctx, q.ID)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, "done", got.Summary)

	assert.ErrorIs(t, db.MarkInProgress(ctx, "missing"), ErrNotFound)
}

func TestRejectedTransitionWritesNothing(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	q, _ := db.CreateResearch(ctx, "q")
	err := db.CompleteResearch(ctx, q.ID, sampleResults())
	require.True(t, errors.Is(err, ErrInvalidTransition))

	steps, err := db.GetSteps(ctx, q.ID)
	require.NoError(t, err)
	assert.Empty(t, steps)
}

func TestListResearchNewestFirst(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var tick int
	db.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Millisecond)
	}

	for _, text := range []string{"first", "second", "third"} {
		_, err := db.CreateResearch(ctx, text)
		require.NoError(t, err)
	}

	all, err := db.ListResearch(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "third", all[0].Query)
	assert.Equal(t, "first", all[2].Query)

	limited, err := db.ListResearch(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestCountByStatus(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	a, _ := db.CreateResearch(ctx, "a")
	db.CreateResearch(ctx, "b")
	require.NoError(t, db.MarkInProgress(ctx, a.ID))

	counts, err := db.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[Status]int{StatusPending: 1, StatusInProgress: 1}, counts)
}
