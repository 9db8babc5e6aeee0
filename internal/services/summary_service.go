package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/SAP-F-2025/poll-service/internal/models"
	"github.com/SAP-F-2025/poll-service/internal/repositories"
)

const (
	recentResponsesLimit = 10
	trendDays            = 7

	// upper bound of polls considered by a summary
	summaryPollLimit = 500
)

type summaryService struct {
	repo       repositories.Repository
	logger     *slog.Logger
	aggregator *Aggregator
	// location decides where trend days start and end
	location *time.Location
	clock    func() time.Time
}

func NewSummaryService(repo repositories.Repository, logger *slog.Logger, aggregator *Aggregator, location *time.Location) SummaryService {
	if location == nil {
		location = time.UTC
	}
	return &summaryService{
		repo:       repo,
		logger:     logger,
		aggregator: aggregator,
		location:   location,
		clock:      time.Now,
	}
}

// PollSummary partitions the poll's class roster and counts options
func (s *summaryService) PollSummary(ctx context.Context, actor *Actor, pollID uint) (*PollSummary, error) {
	if !actor.IsStaff() {
		return nil, NewPermissionError(actor.ID(), pollID, "poll", "summarize", "only staff can view poll summaries")
	}

	poll, err := getVisiblePoll(ctx, s.repo, actor, pollID)
	if err != nil {
		return nil, err
	}
	class, err := pollClass(ctx, s.repo, poll)
	if err != nil {
		return nil, err
	}

	roster, err := s.repo.Directory().ListStudentsByClass(ctx, class)
	if err != nil {
		return nil, NewStoreError("list class roster", err)
	}
	responses, err := s.repo.Response().ListByPoll(ctx, nil, pollID)
	if err != nil {
		return nil, NewStoreError("list poll responses", err)
	}

	return &PollSummary{
		Poll:         buildPollView(actor, poll, s.clock()),
		Summary:      ResponseSummary(roster, responses),
		OptionCounts: s.aggregator.OptionCounts(poll, responses),
		SectionRates: SectionRates(roster, responses),
	}, nil
}

// ClassSummary reports every poll of the faculty's class against the class roster
func (s *summaryService) ClassSummary(ctx context.Context, actor *Actor) (*ClassSummary, error) {
	if !actor.IsStaff() {
		return nil, NewPermissionError(actor.ID(), 0, "class", "summarize", "only staff can view class summaries")
	}
	if actor.Class == nil {
		return nil, ErrClassNotFound
	}

	s.logger.Debug("Computing class summary", "class_id", actor.Class.ID)

	roster, err := s.repo.Directory().ListStudentsByClass(ctx, actor.Class)
	if err != nil {
		return nil, NewStoreError("list class roster", err)
	}

	polls, responses, err := s.pollsWithResponses(ctx, []uint{actor.Class.ID})
	if err != nil {
		return nil, err
	}

	now := s.clock()
	rosters := map[uint][]*models.Student{actor.Class.ID: roster}
	return &ClassSummary{
		Class:        actor.Class,
		ClassName:    actor.Class.Name(),
		RosterSize:   len(roster),
		Polls:        s.pollRates(actor, polls, responses, rosters, now),
		SectionRates: SectionRates(roster, responses),
		GeneratedAt:  now.UTC(),
	}, nil
}

// DepartmentSummary is the HOD dashboard: totals, per-poll and per-section rates,
// category counts, recent responses and a seven day trend
func (s *summaryService) DepartmentSummary(ctx context.Context, actor *Actor) (*DepartmentSummary, error) {
	if !actor.IsHOD() {
		return nil, NewPermissionError(actor.ID(), 0, "department", "summarize", "only heads of department can view department summaries")
	}

	s.logger.Debug("Computing department summary", "department", actor.Department)

	classes, err := s.repo.Directory().ListClassesByDepartment(ctx, actor.Department)
	if err != nil {
		return nil, NewStoreError("list department classes", err)
	}
	classIDs := make([]uint, len(classes))
	for i, c := range classes {
		classIDs[i] = c.ID
	}

	roster, err := s.repo.Directory().ListStudentsByDepartment(ctx, actor.Department)
	if err != nil {
		return nil, NewStoreError("list department roster", err)
	}

	polls, responses, err := s.pollsWithResponses(ctx, classIDs)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	summary := &DepartmentSummary{
		Department:   actor.Department,
		HODName:      actor.Name,
		SectionRates: SectionRates(roster, responses),
		Polls:        s.pollRates(actor, polls, responses, rostersByClass(classes, roster), now),
		GeneratedAt:  now.UTC(),
	}

	if hod, err := s.repo.Directory().GetHODByDepartment(ctx, actor.Department); err == nil {
		summary.HODName = hod.Name
	} else if !repositories.IsNotFoundError(err) {
		return nil, NewStoreError("get department head", err)
	}

	dashboard := s.repo.Dashboard()
	if summary.TotalStudents, err = dashboard.CountStudents(ctx, nil, actor.Department); err != nil {
		return nil, NewStoreError("count students", err)
	}
	if summary.TotalPolls, err = dashboard.CountPolls(ctx, nil, classIDs); err != nil {
		return nil, NewStoreError("count polls", err)
	}
	if summary.TotalResponses, err = dashboard.CountResponses(ctx, nil, classIDs); err != nil {
		return nil, NewStoreError("count responses", err)
	}
	if summary.Categories, err = dashboard.PollCountsByCategory(ctx, nil, classIDs); err != nil {
		return nil, NewStoreError("count polls by category", err)
	}
	if summary.RecentResponses, err = dashboard.RecentResponses(ctx, nil, classIDs, recentResponsesLimit); err != nil {
		return nil, NewStoreError("list recent responses", err)
	}
	if summary.Trend, err = dashboard.ResponseTrend(ctx, nil, classIDs, trendDays, now.In(s.location)); err != nil {
		return nil, NewStoreError("compute response trend", err)
	}

	responded := 0
	for _, rate := range summary.SectionRates {
		responded += rate.RespondedStudents
	}
	summary.OverallResponseRate = ResponseRate(responded, dedupedRosterSize(roster))

	return summary, nil
}

// pollsWithResponses loads every poll of the classes and all of their responses
func (s *summaryService) pollsWithResponses(ctx context.Context, classIDs []uint) ([]*models.Poll, []*models.PollResponse, error) {
	if len(classIDs) == 0 {
		return []*models.Poll{}, []*models.PollResponse{}, nil
	}

	polls, _, err := s.repo.Poll().List(ctx, nil, repositories.PollFilters{ClassIDs: classIDs, Limit: summaryPollLimit})
	if err != nil {
		return nil, nil, NewStoreError("list polls", err)
	}
	if len(polls) == 0 {
		return polls, []*models.PollResponse{}, nil
	}

	pollIDs := make([]uint, len(polls))
	for i, p := range polls {
		pollIDs[i] = p.ID
	}
	responses, err := s.repo.Response().List(ctx, nil, repositories.ResponseFilters{PollIDs: pollIDs})
	if err != nil {
		return nil, nil, NewStoreError("list responses", err)
	}
	return polls, responses, nil
}

func (s *summaryService) pollRates(actor *Actor, polls []*models.Poll, responses []*models.PollResponse, rosters map[uint][]*models.Student, now time.Time) []PollRate {
	byPoll := make(map[uint][]*models.PollResponse, len(polls))
	for _, r := range responses {
		byPoll[r.PollID] = append(byPoll[r.PollID], r)
	}

	rates := make([]PollRate, 0, len(polls))
	for _, p := range polls {
		summary := ResponseSummary(rosters[p.ClassID], byPoll[p.ID])
		rates = append(rates, PollRate{
			Poll:          buildPollView(actor, p, now),
			RosterSize:    summary.RosterSize,
			Responded:     len(summary.Responded),
			ResponseRate:  summary.ResponseRate,
			TotalAnswered: len(byPoll[p.ID]),
		})
	}
	return rates
}

// rostersByClass splits a department roster by the class of each student's section
func rostersByClass(classes []*models.Class, roster []*models.Student) map[uint][]*models.Student {
	classBySection := make(map[string]uint, len(classes))
	for _, c := range classes {
		classBySection[strings.ToLower(c.Section)] = c.ID
	}

	out := make(map[uint][]*models.Student, len(classes))
	for _, st := range roster {
		if id, ok := classBySection[strings.ToLower(st.Section)]; ok {
			out[id] = append(out[id], st)
		}
	}
	return out
}

func dedupedRosterSize(roster []*models.Student) int {
	seen := make(map[string]bool, len(roster))
	for _, st := range roster {
		if st != nil {
			seen[st.RegNo] = true
		}
	}
	return len(seen)
}
