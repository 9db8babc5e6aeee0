package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/poll-service/internal/models"
)

func seedYesNoPoll(f *fixture) *models.Poll {
	poll := f.store.addPoll(models.Poll{Title: "Attending the guest lecture?", StaffID: 10, ClassID: 1, Category: models.CategoryGeneral, Options: []string{"Yes", "No"}})
	for i, regNo := range []string{"CSE-A-1", "CSE-A-2", "CSE-A-3"} {
		f.store.addResponse(models.PollResponse{PollID: poll.ID, StudentRegNo: regNo, Response: "Yes", OptionIndex: intPtr(0), RespondedAt: f.now.Add(-time.Duration(i) * time.Minute)})
	}
	f.store.addResponse(models.PollResponse{PollID: poll.ID, StudentRegNo: "CSE-A-4", Response: "No", OptionIndex: intPtr(1), RespondedAt: f.now})
	return poll
}

func TestSummaryService_PollSummary(t *testing.T) {
	f := newFixture()
	svc := f.summaryService()
	ctx := context.Background()
	poll := seedYesNoPoll(f)

	summary, err := svc.PollSummary(ctx, f.actor("iyer@college.edu"), poll.ID)
	require.NoError(t, err)

	assert.Equal(t, 5, summary.Summary.RosterSize)
	assert.Equal(t, 80, summary.Summary.ResponseRate)
	assert.Len(t, summary.Summary.Responded, 4)
	require.Len(t, summary.Summary.NotResponded, 1)
	assert.Equal(t, "Esha", summary.Summary.NotResponded[0].Name)
	assert.Equal(t, "Asha", summary.Summary.Responded[0].StudentName)

	require.Len(t, summary.OptionCounts, 2)
	assert.Equal(t, "No", summary.OptionCounts[0].Option)
	assert.Equal(t, 1, summary.OptionCounts[0].Count)
	assert.Equal(t, "Yes", summary.OptionCounts[1].Option)
	assert.Equal(t, 3, summary.OptionCounts[1].Count)

	assert.Equal(t, []models.SectionRate{{Section: "A", TotalStudents: 5, RespondedStudents: 4, ResponseRate: 80}}, summary.SectionRates)

	t.Run("hidden from other classes", func(t *testing.T) {
		_, err := svc.PollSummary(ctx, f.actor("jain@college.edu"), poll.ID)
		assert.ErrorIs(t, err, ErrPollNotFound)
	})

	t.Run("students cannot summarize", func(t *testing.T) {
		_, err := svc.PollSummary(ctx, f.actor("asha@college.edu"), poll.ID)
		var perr *PermissionError
		assert.True(t, errors.As(err, &perr))
	})
}

func TestSummaryService_ClassSummary(t *testing.T) {
	f := newFixture()
	svc := f.summaryService()
	poll := seedYesNoPoll(f)
	empty := f.store.addPoll(models.Poll{Title: "Nobody answered", StaffID: 10, ClassID: 1, Category: models.CategoryGeneral, Options: []string{"a", "b"}})

	summary, err := svc.ClassSummary(context.Background(), f.actor("iyer@college.edu"))
	require.NoError(t, err)
	assert.Equal(t, "CSE A", summary.ClassName)
	assert.Equal(t, 5, summary.RosterSize)
	require.Len(t, summary.Polls, 2)

	byID := map[uint]PollRate{}
	for _, p := range summary.Polls {
		byID[p.Poll.ID] = p
	}
	assert.Equal(t, 80, byID[poll.ID].ResponseRate)
	assert.Equal(t, 4, byID[poll.ID].Responded)
	assert.Equal(t, 0, byID[empty.ID].ResponseRate)

	t.Run("class with no polls", func(t *testing.T) {
		summary, err := svc.ClassSummary(context.Background(), f.actor("jain@college.edu"))
		require.NoError(t, err)
		assert.Empty(t, summary.Polls)
		assert.Equal(t, []models.SectionRate{{Section: "B", TotalStudents: 2}}, summary.SectionRates)
	})

	t.Run("hod has no class", func(t *testing.T) {
		_, err := svc.ClassSummary(context.Background(), f.actor("kumar@college.edu"))
		assert.ErrorIs(t, err, ErrClassNotFound)
	})
}

func TestSummaryService_DepartmentSummary(t *testing.T) {
	f := newFixture()
	svc := f.summaryService()
	seedYesNoPoll(f)
	pollB := f.store.addPoll(models.Poll{Title: "Hackathon", StaffID: 11, ClassID: 2, Category: models.CategoryHackathon, Options: []string{"In", "Out"}})
	f.store.addResponse(models.PollResponse{PollID: pollB.ID, StudentRegNo: "CSE-B-1", Response: "In", OptionIndex: intPtr(0), RespondedAt: f.now})
	f.store.addPoll(models.Poll{Title: "ECE only", StaffID: 13, ClassID: 4, Category: models.CategoryGeneral, Options: []string{"a", "b"}})

	summary, err := svc.DepartmentSummary(context.Background(), f.actor("kumar@college.edu"))
	require.NoError(t, err)

	assert.Equal(t, "CSE", summary.Department)
	assert.Equal(t, "Dr. Kumar", summary.HODName)
	assert.Equal(t, int64(7), summary.TotalStudents)
	assert.Equal(t, int64(2), summary.TotalPolls)
	assert.Equal(t, int64(5), summary.TotalResponses)
	assert.Equal(t, 71, summary.OverallResponseRate)
	assert.Len(t, summary.Polls, 2)
	assert.Len(t, summary.Trend, 7)
	assert.ElementsMatch(t, []models.CategoryCount{
		{Category: models.CategoryGeneral, Count: 1},
		{Category: models.CategoryHackathon, Count: 1},
	}, summary.Categories)
	assert.Equal(t, []models.SectionRate{
		{Section: "A", TotalStudents: 5, RespondedStudents: 4, ResponseRate: 80},
		{Section: "B", TotalStudents: 2, RespondedStudents: 1, ResponseRate: 50},
	}, summary.SectionRates)

	for _, p := range summary.Polls {
		if p.Poll.ID == pollB.ID {
			assert.Equal(t, 2, p.RosterSize)
			assert.Equal(t, 50, p.ResponseRate)
		}
	}

	t.Run("faculty cannot view", func(t *testing.T) {
		_, err := svc.DepartmentSummary(context.Background(), f.actor("iyer@college.edu"))
		var perr *PermissionError
		assert.True(t, errors.As(err, &perr))
	})
}

func TestSummaryService_DepartmentTrendUsesConfiguredZone(t *testing.T) {
	f := newFixture()
	// 20:00 UTC is already the next morning in India
	f.now = time.Date(2026, 3, 10, 20, 0, 0, 0, time.UTC)
	kolkata, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	svc := f.summaryService()
	svc.location = kolkata

	summary, err := svc.DepartmentSummary(context.Background(), f.actor("kumar@college.edu"))
	require.NoError(t, err)
	require.Len(t, summary.Trend, 7)

	last := summary.Trend[len(summary.Trend)-1]
	assert.Equal(t, "2026-03-11", last.Period)
	assert.Equal(t, kolkata, last.Date.Location())
	assert.Equal(t, "2026-03-05", summary.Trend[0].Period)
}
