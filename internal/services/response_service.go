package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/poll-service/internal/events"
	"github.com/SAP-F-2025/poll-service/internal/models"
	"github.com/SAP-F-2025/poll-service/internal/repositories"
	"github.com/SAP-F-2025/poll-service/internal/validator"
)

type responseService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
	clock     func() time.Time
}

func NewResponseService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher) ResponseService {
	return &responseService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		publisher: publisher,
		clock:     time.Now,
	}
}

// ===== CORE OPERATIONS =====

func (s *responseService) Submit(ctx context.Context, actor *Actor, pollID uint, req *SubmitResponseRequest) (*models.PollResponse, error) {
	if !actor.IsStudent() {
		return nil, NewPermissionError(actor.ID(), pollID, "poll", "respond", "only students can respond to polls")
	}

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	s.logger.Info("Submitting response", "poll_id", pollID, "reg_no", actor.RegNo())

	poll, err := getVisiblePoll(ctx, s.repo, actor, pollID)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	if IsExpired(poll.Deadline, now) {
		return nil, NewValidationError("deadline", "poll has expired", poll.Deadline)
	}

	if errors := s.validator.GetBusinessValidator().ValidateOptionIndex(poll, req.OptionIndex); len(errors) > 0 {
		return nil, errors
	}

	exists, err := s.repo.Response().ExistsByPollAndStudent(ctx, nil, pollID, actor.RegNo())
	if err != nil {
		return nil, NewStoreError("check existing response", err)
	}
	if exists {
		return nil, ErrAlreadyResponded
	}

	response := &models.PollResponse{
		PollID:       pollID,
		StudentRegNo: actor.RegNo(),
		Response:     ComposeResponse(poll, *req.OptionIndex, req.FreeText),
		OptionIndex:  req.OptionIndex,
		RespondedAt:  now.UTC(),
	}
	if errors := s.validator.GetBusinessValidator().ValidateResponseText(response.Response); len(errors) > 0 {
		return nil, errors
	}

	err = runInTx(ctx, s.db, func(tx *gorm.DB) error {
		return s.repo.Response().Create(ctx, tx, response)
	})
	if err != nil {
		// lost a race with a concurrent first submission
		if repositories.IsDuplicateError(err) {
			return nil, ErrAlreadyResponded
		}
		return nil, NewStoreError("create response", err)
	}

	s.publish(ctx, events.EventResponseSubmitted, response)

	s.logger.Info("Response submitted", "response_id", response.ID, "poll_id", pollID)
	return response, nil
}

func (s *responseService) Edit(ctx context.Context, actor *Actor, responseID uint, req *EditResponseRequest) (*models.PollResponse, error) {
	if !actor.IsStudent() {
		return nil, NewPermissionError(actor.ID(), responseID, "response", "edit", "only students can edit responses")
	}

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	s.logger.Info("Editing response", "response_id", responseID, "reg_no", actor.RegNo())

	var updated *models.PollResponse
	err := runInTx(ctx, s.db, func(tx *gorm.DB) error {
		// the row stays locked until the transaction ends
		response, err := s.repo.Response().GetByIDForUpdate(ctx, tx, responseID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrResponseNotFound
			}
			return NewStoreError("get response", err)
		}

		if response.StudentRegNo != actor.RegNo() {
			return NewOwnershipError(actor.ID(), responseID, "response")
		}

		poll, err := s.repo.Poll().GetByID(ctx, tx, response.PollID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrPollNotFound
			}
			return NewStoreError("get poll", err)
		}

		now := s.clock()
		if IsExpired(poll.Deadline, now) {
			return NewValidationError("deadline", "poll has expired", poll.Deadline)
		}

		if errors := s.validator.GetBusinessValidator().ValidateOptionIndex(poll, req.OptionIndex); len(errors) > 0 {
			return errors
		}

		text := ComposeResponse(poll, *req.OptionIndex, req.FreeText)
		if errors := s.validator.GetBusinessValidator().ValidateResponseText(text); len(errors) > 0 {
			return errors
		}

		response.Response = text
		response.OptionIndex = req.OptionIndex
		response.RespondedAt = now.UTC()

		if err := s.repo.Response().Update(ctx, tx, response); err != nil {
			return NewStoreError("update response", err)
		}
		updated = response
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventResponseUpdated, updated)

	s.logger.Info("Response updated", "response_id", responseID)
	return updated, nil
}

// ===== READS =====

func (s *responseService) HasResponded(ctx context.Context, pollID uint, regNo string) (bool, error) {
	exists, err := s.repo.Response().ExistsByPollAndStudent(ctx, nil, pollID, regNo)
	if err != nil {
		return false, NewStoreError("check existing response", err)
	}
	return exists, nil
}

// ListForStudent returns the student's responses joined with the poll they answer
func (s *responseService) ListForStudent(ctx context.Context, actor *Actor) ([]*StudentResponseView, error) {
	if !actor.IsStudent() {
		return nil, NewPermissionError(actor.ID(), 0, "response", "list", "only students have responses")
	}

	responses, err := s.repo.Response().ListByStudent(ctx, nil, actor.RegNo())
	if err != nil {
		return nil, NewStoreError("list student responses", err)
	}

	now := s.clock()
	views := make([]*StudentResponseView, 0, len(responses))
	for _, r := range responses {
		view := &StudentResponseView{PollResponse: r}

		poll, err := s.repo.Poll().GetByID(ctx, nil, r.PollID)
		switch {
		case err == nil:
			view.PollTitle = poll.Title
			view.PollCategory = poll.Category
			view.Deadline = poll.Deadline
			view.CanEdit = !IsExpired(poll.Deadline, now)
		case repositories.IsNotFoundError(err):
			// poll deleted between the two reads
			continue
		default:
			return nil, NewStoreError("get poll", err)
		}

		views = append(views, view)
	}
	return views, nil
}

// ListForPoll returns the poll's responses joined with the responding student
func (s *responseService) ListForPoll(ctx context.Context, actor *Actor, pollID uint) ([]models.RespondedStudent, error) {
	if !actor.IsStaff() {
		return nil, NewPermissionError(actor.ID(), pollID, "poll", "list responses", "only staff can list poll responses")
	}

	if _, err := getVisiblePoll(ctx, s.repo, actor, pollID); err != nil {
		return nil, err
	}

	responses, err := s.repo.Response().ListByPoll(ctx, nil, pollID)
	if err != nil {
		return nil, NewStoreError("list poll responses", err)
	}

	regNos := make([]string, len(responses))
	for i, r := range responses {
		regNos[i] = r.StudentRegNo
	}
	students, err := s.repo.Directory().GetStudentsByRegNos(ctx, regNos)
	if err != nil {
		return nil, NewStoreError("get students", err)
	}
	byRegNo := make(map[string]*models.Student, len(students))
	for _, st := range students {
		byRegNo[st.RegNo] = st
	}

	out := make([]models.RespondedStudent, 0, len(responses))
	for _, r := range responses {
		row := models.RespondedStudent{
			ResponseID:   r.ID,
			StudentRegNo: r.StudentRegNo,
			Response:     r.Response,
			OptionIndex:  r.OptionIndex,
			RespondedAt:  r.RespondedAt,
		}
		if st, ok := byRegNo[r.StudentRegNo]; ok {
			row.StudentName = st.Name
			row.Section = st.Section
		}
		out = append(out, row)
	}
	return out, nil
}

// ===== HELPERS =====

// ComposeResponse renders the stored response text: the option, with free text appended
// for General polls when given
func ComposeResponse(poll *models.Poll, optionIndex int, freeText *string) string {
	if !poll.HasOption(optionIndex) {
		return ""
	}
	option := poll.Options[optionIndex]
	if poll.Category != models.CategoryGeneral || freeText == nil {
		return option
	}
	if text := strings.TrimSpace(*freeText); text != "" {
		return option + " - " + text
	}
	return option
}

func (s *responseService) publish(ctx context.Context, eventType events.EventType, response *models.PollResponse) {
	if s.publisher == nil || response == nil {
		return
	}
	event := events.NewEvent(eventType, events.ResponseEvent{
		ResponseID:   response.ID,
		PollID:       response.PollID,
		StudentRegNo: response.StudentRegNo,
		OptionIndex:  response.OptionIndex,
	})
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish event", "type", eventType, "error", err)
	}
}
