package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/poll-service/internal/events"
	"github.com/SAP-F-2025/poll-service/internal/export"
	"github.com/SAP-F-2025/poll-service/internal/models"
	"github.com/SAP-F-2025/poll-service/internal/repositories"
)

const respondedAtLayout = "02 Jan 2006, 03:04 PM"

var (
	respondedHeaders    = []string{"Registration Number", "Student Name", "Response", "Option Selected", "Responded At", "Status"}
	notRespondedHeaders = []string{"Registration Number", "Name", "Email", "Department", "Section", "Status"}
	studentHeaders      = []string{"Registration Number", "Name", "Email", "Department", "Section"}
)

type exportService struct {
	repo       repositories.Repository
	logger     *slog.Logger
	aggregator *Aggregator
	publisher  events.EventPublisher
	location   *time.Location
	clock      func() time.Time
}

func NewExportService(repo repositories.Repository, logger *slog.Logger, aggregator *Aggregator, publisher events.EventPublisher, location *time.Location) ExportService {
	if location == nil {
		location = time.UTC
	}
	return &exportService{
		repo:       repo,
		logger:     logger,
		aggregator: aggregator,
		publisher:  publisher,
		location:   location,
		clock:      time.Now,
	}
}

// ExportPoll renders responders and non-responders of a poll. HODs also get the
// poll summary and option count sheets.
func (s *exportService) ExportPoll(ctx context.Context, actor *Actor, pollID uint) (*ExportFile, error) {
	if !actor.IsStaff() {
		return nil, NewPermissionError(actor.ID(), pollID, "poll", "export", "only staff can export polls")
	}

	s.logger.Info("Exporting poll", "poll_id", pollID, "actor", actor.ID())

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

	summary := ResponseSummary(roster, responses)

	responded := export.Sheet{Name: "Responded Students", Headers: respondedHeaders}
	for _, r := range summary.Responded {
		responded.AddRow(r.StudentRegNo, r.StudentName, r.Response, optionSelected(poll, r),
			r.RespondedAt.In(s.location).Format(respondedAtLayout), "Responded")
	}

	notResponded := export.Sheet{Name: "Non-Responded Students", Headers: notRespondedHeaders}
	for _, st := range summary.NotResponded {
		notResponded.AddRow(st.RegNo, st.Name, st.Email, st.Department, st.Section, "Not Responded")
	}

	sheets := []export.Sheet{responded, notResponded}

	if actor.IsHOD() {
		info := export.Sheet{Name: "Poll Summary", Headers: []string{"Field", "Value"}}
		info.AddRow("Poll Title", poll.Title)
		info.AddRow("Category", string(poll.Category))
		info.AddRow("Class", class.Name())
		info.AddRow("Department", class.Department)
		info.AddRow("Section", class.Section)
		info.AddRow("Total Students", summary.RosterSize)
		info.AddRow("Responded", len(summary.Responded))
		info.AddRow("Not Responded", len(summary.NotResponded))
		info.AddRow("Response Rate", summary.ResponseRate)

		counts := export.Sheet{Name: "Option Counts", Headers: []string{"Option", "Count", "Percentage"}}
		for _, c := range s.aggregator.OptionCounts(poll, responses) {
			counts.AddRow(c.Option, c.Count, c.Percentage)
		}

		sheets = append([]export.Sheet{info, counts}, sheets...)
	}

	return s.render(ctx, actor, "poll", fmt.Sprint(poll.ID), poll.Title, sheets)
}

// ExportClassRoster renders the faculty's class roster as one sheet
func (s *exportService) ExportClassRoster(ctx context.Context, actor *Actor) (*ExportFile, error) {
	if !actor.IsStaff() {
		return nil, NewPermissionError(actor.ID(), 0, "class", "export", "only staff can export rosters")
	}
	if actor.Class == nil {
		return nil, ErrClassNotFound
	}

	roster, err := s.repo.Directory().ListStudentsByClass(ctx, actor.Class)
	if err != nil {
		return nil, NewStoreError("list class roster", err)
	}

	sheet := export.Sheet{Name: "Students", Headers: studentHeaders}
	for _, st := range roster {
		sheet.AddRow(st.RegNo, st.Name, st.Email, st.Department, st.Section)
	}

	title := fmt.Sprintf("students %s %s", actor.Class.Department, actor.Class.Section)
	return s.render(ctx, actor, "class", actor.Class.Name(), title, []export.Sheet{sheet})
}

// ExportDepartment renders a per-section summary and the full department roster
func (s *exportService) ExportDepartment(ctx context.Context, actor *Actor) (*ExportFile, error) {
	if !actor.IsHOD() {
		return nil, NewPermissionError(actor.ID(), 0, "department", "export", "only heads of department can export the department")
	}

	roster, err := s.repo.Directory().ListStudentsByDepartment(ctx, actor.Department)
	if err != nil {
		return nil, NewStoreError("list department roster", err)
	}

	hodName := actor.Name
	if hod, err := s.repo.Directory().GetHODByDepartment(ctx, actor.Department); err == nil {
		hodName = hod.Name
	} else if !repositories.IsNotFoundError(err) {
		return nil, NewStoreError("get department head", err)
	}

	sectionSheet := export.Sheet{Name: "Section Summary", Headers: []string{"Section", "Student Count", "Department", "HOD"}}
	for _, rate := range SectionRates(roster, nil) {
		sectionSheet.AddRow(rate.Section, rate.TotalStudents, actor.Department, hodName)
	}

	details := export.Sheet{Name: "Student Details", Headers: studentHeaders}
	for _, st := range roster {
		details.AddRow(st.RegNo, st.Name, st.Email, st.Department, st.Section)
	}

	title := actor.Department + " Students"
	return s.render(ctx, actor, "department", actor.Department, title, []export.Sheet{sectionSheet, details})
}

func (s *exportService) render(ctx context.Context, actor *Actor, scope, subject, title string, sheets []export.Sheet) (*ExportFile, error) {
	data, err := export.Bytes(sheets...)
	if err != nil {
		return nil, fmt.Errorf("failed to render %s export: %w", scope, err)
	}

	file := &ExportFile{
		Filename:    export.Filename(title, s.clock().In(s.location)),
		ContentType: export.ContentType,
		Data:        data,
	}

	if s.publisher != nil {
		event := events.NewEvent(events.EventSummaryExported, events.SummaryExportedEvent{
			Scope:    scope,
			Subject:  subject,
			Filename: file.Filename,
			StaffID:  actor.StaffID(),
		})
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Warn("Failed to publish event", "type", events.EventSummaryExported, "error", err)
		}
	}

	s.logger.Info("Export rendered", "scope", scope, "subject", subject, "filename", file.Filename, "bytes", len(data))
	return file, nil
}

// optionSelected resolves the chosen option by index, then by the stored text
func optionSelected(poll *models.Poll, r models.RespondedStudent) string {
	if r.OptionIndex != nil {
		if poll.HasOption(*r.OptionIndex) {
			return poll.Options[*r.OptionIndex]
		}
		return "Unknown"
	}
	if i := matchOptionText(poll.Options, r.Response); i >= 0 {
		return poll.Options[i]
	}
	return r.Response
}
