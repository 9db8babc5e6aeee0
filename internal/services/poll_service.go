package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/poll-service/internal/events"
	"github.com/SAP-F-2025/poll-service/internal/models"
	"github.com/SAP-F-2025/poll-service/internal/repositories"
	"github.com/SAP-F-2025/poll-service/internal/validator"
)

type pollService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
	location  *time.Location
	clock     func() time.Time
}

func NewPollService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher, location *time.Location) PollService {
	if location == nil {
		location = time.UTC
	}
	return &pollService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		publisher: publisher,
		location:  location,
		clock:     time.Now,
	}
}

// pollTarget is one class a new poll should be created for
type pollTarget struct {
	section string
	class   *models.Class
	err     error
}

// ===== CORE OPERATIONS =====

func (s *pollService) Create(ctx context.Context, actor *Actor, req *CreatePollRequest) (*CreatePollResult, error) {
	if !actor.IsStaff() {
		return nil, NewPermissionError(actor.ID(), 0, "poll", "create", "only staff can create polls")
	}

	s.logger.Info("Creating poll", "staff_id", actor.StaffID(), "title", req.Title, "sections", req.Sections)

	if errors := s.validator.GetBusinessValidator().ValidatePollCreate(req); len(errors) > 0 {
		return nil, errors
	}

	now := s.clock()
	deadline, err := s.resolveDeadline(req.Deadline, now)
	if err != nil {
		return nil, err
	}

	targets, err := s.resolveTargets(ctx, actor, req)
	if err != nil {
		return nil, err
	}

	template := models.Poll{
		Title:    strings.TrimSpace(req.Title),
		StaffID:  actor.Staff.ID,
		Category: req.Category,
		Options:  validator.TrimOptions(req.Options),
		Deadline: deadline,
		SortMode: req.SortMode,
	}
	if template.SortMode == "" {
		template.SortMode = models.SortAuto
	}
	// links only apply to categories that require one
	if req.Category.RequiresLink() && req.LinkURL != nil {
		link := strings.TrimSpace(*req.LinkURL)
		template.LinkURL = &link
	}

	result := &CreatePollResult{Polls: []*PollView{}, Failed: []FailedTarget{}}
	var firstErr error

	// each target commits on its own; a failed target does not undo the others
	for _, target := range targets {
		if target.err != nil {
			result.Failed = append(result.Failed, FailedTarget{Section: target.section, Error: target.err.Error()})
			if firstErr == nil {
				firstErr = target.err
			}
			continue
		}

		poll := template
		poll.ClassID = target.class.ID
		poll.Options = append([]string(nil), template.Options...)

		err := runInTx(ctx, s.db, func(tx *gorm.DB) error {
			return s.repo.Poll().Create(ctx, tx, &poll)
		})
		if err != nil {
			s.logger.Error("Failed to create poll for class", "class_id", target.class.ID, "error", err)
			storeErr := NewStoreError("create poll", err)
			result.Failed = append(result.Failed, FailedTarget{
				Section: target.class.Section,
				ClassID: target.class.ID,
				Error:   storeErr.Error(),
			})
			if firstErr == nil {
				firstErr = storeErr
			}
			continue
		}

		poll.Class = target.class
		poll.Staff = actor.Staff
		result.Polls = append(result.Polls, buildPollView(actor, &poll, now))

		s.publish(ctx, events.EventPollCreated, events.PollCreatedEvent{
			PollID:   poll.ID,
			Title:    poll.Title,
			StaffID:  poll.StaffID,
			ClassID:  poll.ClassID,
			Category: string(poll.Category),
			Deadline: poll.Deadline,
		})
	}

	if len(result.Polls) == 0 && firstErr != nil {
		return nil, firstErr
	}

	s.logger.Info("Polls created", "created", len(result.Polls), "failed", len(result.Failed))
	return result, nil
}

func (s *pollService) GetByID(ctx context.Context, actor *Actor, id uint) (*PollView, error) {
	poll, err := getVisiblePoll(ctx, s.repo, actor, id)
	if err != nil {
		return nil, err
	}
	return buildPollView(actor, poll, s.clock()), nil
}

func (s *pollService) List(ctx context.Context, actor *Actor, filters PollListFilters) (*PollListResponse, error) {
	polls, total, err := s.list(ctx, actor, filters)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	views := make([]*PollView, len(polls))
	for i, p := range polls {
		views[i] = buildPollView(actor, p, now)
	}

	return &PollListResponse{
		Polls:  views,
		Total:  total,
		Limit:  filters.Limit,
		Offset: filters.Offset,
	}, nil
}

// ListForStudent returns active polls of the student's class with the student's own answer
func (s *pollService) ListForStudent(ctx context.Context, actor *Actor, filters PollListFilters) ([]*StudentPollView, error) {
	if !actor.IsStudent() {
		return nil, NewPermissionError(actor.ID(), 0, "poll", "list", "student polls are only available to students")
	}

	polls, _, err := s.list(ctx, actor, filters)
	if err != nil {
		return nil, err
	}

	responses, err := s.repo.Response().ListByStudent(ctx, nil, actor.RegNo())
	if err != nil {
		return nil, NewStoreError("list student responses", err)
	}
	byPoll := make(map[uint]*models.PollResponse, len(responses))
	for _, r := range responses {
		byPoll[r.PollID] = r
	}

	now := s.clock()
	views := make([]*StudentPollView, len(polls))
	for i, p := range polls {
		mine := byPoll[p.ID]
		views[i] = &StudentPollView{
			PollView:     buildPollView(actor, p, now),
			HasResponded: mine != nil,
			MyResponse:   mine,
		}
	}
	return views, nil
}

func (s *pollService) list(ctx context.Context, actor *Actor, filters PollListFilters) ([]*models.Poll, int64, error) {
	classIDs, err := scopeClassIDs(ctx, s.repo, actor)
	if err != nil {
		return nil, 0, err
	}

	if filters.ClassID != nil {
		if !containsUint(classIDs, *filters.ClassID) {
			return []*models.Poll{}, 0, nil
		}
		classIDs = []uint{*filters.ClassID}
	}
	if len(classIDs) == 0 {
		return []*models.Poll{}, 0, nil
	}

	repoFilters := repositories.PollFilters{
		ClassIDs: classIDs,
		Category: filters.Category,
		Limit:    filters.Limit,
		Offset:   filters.Offset,
	}
	if actor.IsStudent() || filters.ActiveOnly {
		now := s.clock()
		repoFilters.ActiveAt = &now
	}

	polls, total, err := s.repo.Poll().List(ctx, nil, repoFilters)
	if err != nil {
		return nil, 0, NewStoreError("list polls", err)
	}
	return polls, total, nil
}

func (s *pollService) Delete(ctx context.Context, actor *Actor, id uint) error {
	s.logger.Info("Deleting poll", "poll_id", id, "actor", actor.ID())

	poll, err := s.repo.Poll().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrPollNotFound
		}
		return NewStoreError("get poll", err)
	}

	allowed, err := canDeletePoll(ctx, s.repo, actor, poll)
	if err != nil {
		return err
	}
	if !allowed {
		return NewPermissionError(actor.ID(), id, "poll", "delete", "not the owner or head of the poll's department")
	}

	err = runInTx(ctx, s.db, func(tx *gorm.DB) error {
		return s.repo.Poll().Delete(ctx, tx, id)
	})
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrPollNotFound
		}
		return NewStoreError("delete poll", err)
	}

	reason := "owner"
	if poll.StaffID != actor.StaffID() {
		reason = "department head"
	}
	s.publish(ctx, events.EventPollDeleted, events.PollDeletedEvent{
		PollID:    id,
		ClassID:   poll.ClassID,
		DeletedBy: actor.StaffID(),
		Reason:    reason,
	})

	s.logger.Info("Poll deleted", "poll_id", id)
	return nil
}

// ===== HELPERS =====

// resolveDeadline parses the optional deadline; it must lie in the future
func (s *pollService) resolveDeadline(input *string, now time.Time) (*time.Time, error) {
	if input == nil || strings.TrimSpace(*input) == "" {
		return nil, nil
	}

	deadline, err := ResolveDeadline(*input, now, s.location)
	if err != nil {
		return nil, NewValidationError("deadline", "must be an RFC 3339 timestamp or a time of day (HH:MM)", *input)
	}
	if !deadline.After(now) {
		return nil, NewValidationError("deadline", "must be in the future", *input)
	}

	deadline = deadline.UTC()
	return &deadline, nil
}

// resolveTargets maps the request onto classes. Faculty always target their own class;
// HODs target sections of their department. Unknown sections become failed targets.
func (s *pollService) resolveTargets(ctx context.Context, actor *Actor, req *CreatePollRequest) ([]pollTarget, error) {
	if !actor.IsHOD() {
		if actor.Class == nil {
			return nil, NewValidationError("class_id", "no class is assigned to this account", nil)
		}
		if req.ClassID != nil && *req.ClassID != actor.Class.ID {
			return nil, NewPermissionError(actor.ID(), *req.ClassID, "class", "create poll", "faculty can only target their own class")
		}
		for _, section := range req.Sections {
			if !strings.EqualFold(strings.TrimSpace(section), actor.Class.Section) {
				return nil, NewPermissionError(actor.ID(), 0, "class", "create poll", "faculty can only target their own section")
			}
		}
		return []pollTarget{{section: actor.Class.Section, class: actor.Class}}, nil
	}

	var targets []pollTarget

	if req.ClassID != nil {
		class, err := s.repo.Directory().GetClassByID(ctx, *req.ClassID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return nil, ErrClassNotFound
			}
			return nil, NewStoreError("get class", err)
		}
		if class.Department != actor.Department {
			return nil, NewPermissionError(actor.ID(), class.ID, "class", "create poll", "class is outside the department")
		}
		targets = append(targets, pollTarget{section: class.Section, class: class})
	}

	seen := make(map[string]bool)
	for _, t := range targets {
		seen[strings.ToLower(t.section)] = true
	}
	for _, raw := range req.Sections {
		section := strings.TrimSpace(raw)
		if seen[strings.ToLower(section)] {
			continue
		}
		seen[strings.ToLower(section)] = true

		class, err := s.repo.Directory().GetClassBySection(ctx, actor.Department, section)
		switch {
		case err == nil:
			targets = append(targets, pollTarget{section: section, class: class})
		case repositories.IsNotFoundError(err):
			targets = append(targets, pollTarget{section: section, err: fmt.Errorf("section %s: %w", section, ErrClassNotFound)})
		default:
			targets = append(targets, pollTarget{section: section, err: NewStoreError("get class", err)})
		}
	}

	if len(targets) == 0 {
		return nil, NewValidationError("sections", "at least one section is required", nil)
	}
	return targets, nil
}

func (s *pollService) publish(ctx context.Context, eventType events.EventType, data interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, events.NewEvent(eventType, data)); err != nil {
		s.logger.Warn("Failed to publish event", "type", eventType, "error", err)
	}
}
