package services

import (
	"context"
	"time"

	"github.com/SAP-F-2025/poll-service/internal/models"
	"github.com/SAP-F-2025/poll-service/internal/validator"
)

// ===== REQUEST/RESPONSE DTOs =====

// Use business validator types
type CreatePollRequest = validator.PollCreateRequest
type SubmitResponseRequest = validator.ResponseSubmitRequest
type EditResponseRequest = validator.ResponseEditRequest

type PollView struct {
	*models.Poll
	ClassName     string `json:"class_name"`
	StaffName     string `json:"staff_name"`
	IsExpired     bool   `json:"is_expired"`
	TimeRemaining string `json:"time_remaining"`
	CanDelete     bool   `json:"can_delete"`
}

// StudentPollView is a poll as seen by one student
type StudentPollView struct {
	*PollView
	HasResponded bool                 `json:"has_responded"`
	MyResponse   *models.PollResponse `json:"my_response,omitempty"`
}

type PollListFilters struct {
	Category *models.PollCategory
	ClassID  *uint
	// ActiveOnly drops expired polls; always on for students
	ActiveOnly bool
	Limit      int
	Offset     int
}

type PollListResponse struct {
	Polls  []*PollView `json:"polls"`
	Total  int64       `json:"total"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

type FailedTarget struct {
	Section string `json:"section,omitempty"`
	ClassID uint   `json:"class_id,omitempty"`
	Error   string `json:"error"`
}

// CreatePollResult lists the polls created for each target and the targets that failed
type CreatePollResult struct {
	Polls  []*PollView    `json:"polls"`
	Failed []FailedTarget `json:"failed"`
}

// Partial reports whether some, but not all, targets failed
func (r *CreatePollResult) Partial() bool {
	return len(r.Failed) > 0 && len(r.Polls) > 0
}

type StudentResponseView struct {
	*models.PollResponse
	PollTitle    string              `json:"poll_title"`
	PollCategory models.PollCategory `json:"poll_category"`
	Deadline     *time.Time          `json:"deadline"`
	CanEdit      bool                `json:"can_edit"`
}

// ===== SUMMARY DTOs =====

type PollSummary struct {
	Poll         *PollView              `json:"poll"`
	Summary      models.ResponseSummary `json:"summary"`
	OptionCounts []models.OptionCount   `json:"option_counts"`
	SectionRates []models.SectionRate   `json:"section_rates"`
}

// PollRate is the response rate of one poll against its class roster
type PollRate struct {
	Poll          *PollView `json:"poll"`
	RosterSize    int       `json:"roster_size"`
	Responded     int       `json:"responded"`
	ResponseRate  int       `json:"response_rate"`
	TotalAnswered int       `json:"total_answered"`
}

type ClassSummary struct {
	Class        *models.Class        `json:"class"`
	ClassName    string               `json:"class_name"`
	RosterSize   int                  `json:"roster_size"`
	Polls        []PollRate           `json:"polls"`
	SectionRates []models.SectionRate `json:"section_rates"`
	GeneratedAt  time.Time            `json:"generated_at"`
}

type DepartmentSummary struct {
	Department          string                  `json:"department"`
	HODName             string                  `json:"hod_name"`
	TotalStudents       int64                   `json:"total_students"`
	TotalPolls          int64                   `json:"total_polls"`
	TotalResponses      int64                   `json:"total_responses"`
	OverallResponseRate int                     `json:"overall_response_rate"`
	SectionRates        []models.SectionRate    `json:"section_rates"`
	Polls               []PollRate              `json:"polls"`
	Categories          []models.CategoryCount  `json:"categories"`
	RecentResponses     []models.RecentResponse `json:"recent_responses"`
	Trend               []models.TrendPoint     `json:"trend"`
	GeneratedAt         time.Time               `json:"generated_at"`
}

// ExportFile is a rendered workbook ready to be served
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ===== SERVICE INTERFACES =====

// ActorService is the role gate: it maps an authenticated email to an Actor
type ActorService interface {
	Resolve(ctx context.Context, email string) (*Actor, error)
}

type PollService interface {
	Create(ctx context.Context, actor *Actor, req *CreatePollRequest) (*CreatePollResult, error)
	GetByID(ctx context.Context, actor *Actor, id uint) (*PollView, error)
	List(ctx context.Context, actor *Actor, filters PollListFilters) (*PollListResponse, error)
	ListForStudent(ctx context.Context, actor *Actor, filters PollListFilters) ([]*StudentPollView, error)
	Delete(ctx context.Context, actor *Actor, id uint) error
}

type ResponseService interface {
	Submit(ctx context.Context, actor *Actor, pollID uint, req *SubmitResponseRequest) (*models.PollResponse, error)
	Edit(ctx context.Context, actor *Actor, responseID uint, req *EditResponseRequest) (*models.PollResponse, error)

	HasResponded(ctx context.Context, pollID uint, regNo string) (bool, error)
	ListForStudent(ctx context.Context, actor *Actor) ([]*StudentResponseView, error)
	ListForPoll(ctx context.Context, actor *Actor, pollID uint) ([]models.RespondedStudent, error)
}

type SummaryService interface {
	PollSummary(ctx context.Context, actor *Actor, pollID uint) (*PollSummary, error)
	ClassSummary(ctx context.Context, actor *Actor) (*ClassSummary, error)
	DepartmentSummary(ctx context.Context, actor *Actor) (*DepartmentSummary, error)
}

type ExportService interface {
	ExportPoll(ctx context.Context, actor *Actor, pollID uint) (*ExportFile, error)
	ExportClassRoster(ctx context.Context, actor *Actor) (*ExportFile, error)
	ExportDepartment(ctx context.Context, actor *Actor) (*ExportFile, error)
}

type ServiceManager interface {
	// Core service getters
	Actor() ActorService
	Poll() PollService
	Response() ResponseService
	Summary() SummaryService
	Export() ExportService

	// Live summary streams
	Refresh() *RefreshHub

	// Health and lifecycle
	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
