package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/poll-service/internal/config"
	"github.com/SAP-F-2025/poll-service/internal/models"
	"github.com/SAP-F-2025/poll-service/internal/repositories"
	"github.com/SAP-F-2025/poll-service/internal/services"
	"github.com/SAP-F-2025/poll-service/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testLogger() utils.Logger {
	return utils.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// ===== AUTH STUBS =====

type stubParser map[string]*casdoorsdk.Claims

func (p stubParser) ParseJwtToken(token string) (*casdoorsdk.Claims, error) {
	if claims, ok := p[token]; ok {
		return claims, nil
	}
	return nil, errors.New("token signature is invalid")
}

type stubIdentity map[string]*repositories.Identity

func (s stubIdentity) GetByID(ctx context.Context, id string) (*repositories.Identity, error) {
	if identity, ok := s[id]; ok {
		return identity, nil
	}
	return nil, errors.New("identity not found")
}

type stubActors map[string]*services.Actor

func (s stubActors) Resolve(ctx context.Context, email string) (*services.Actor, error) {
	if actor, ok := s[email]; ok {
		return actor, nil
	}
	return nil, services.ErrActorNotRegistered
}

var (
	classA = &models.Class{ID: 1, Department: "CSE", Section: "A"}

	studentActor = &services.Actor{
		Email:      "asha@college.edu",
		Name:       "Asha",
		Role:       models.RoleStudent,
		Student:    &models.Student{RegNo: "CSE-A-1", Name: "Asha", Email: "asha@college.edu", Department: "CSE", Section: "A"},
		Class:      classA,
		Department: "CSE",
	}
	facultyActor = &services.Actor{
		Email:      "iyer@college.edu",
		Name:       "Prof. Iyer",
		Role:       models.RoleFaculty,
		Staff:      &models.Staff{ID: 10, Name: "Prof. Iyer", Email: "iyer@college.edu", Department: "CSE", Designation: models.DesignationCA},
		Class:      classA,
		Department: "CSE",
	}
	hodActor = &services.Actor{
		Email:      "kumar@college.edu",
		Name:       "Dr. Kumar",
		Role:       models.RoleHOD,
		Staff:      &models.Staff{ID: 12, Name: "Dr. Kumar", Email: "kumar@college.edu", Department: "CSE", Designation: models.DesignationHOD},
		Department: "CSE",
	}
)

// tokens maps bearer tokens to the claims of each test user
var tokens = stubParser{
	"student-token": {User: casdoorsdk.User{Id: "u-asha", Email: "asha@college.edu"}},
	"faculty-token": {User: casdoorsdk.User{Id: "u-iyer", Email: "iyer@college.edu"}},
	"hod-token":     {User: casdoorsdk.User{Id: "u-kumar", Email: "kumar@college.edu"}},
	"no-email":      {User: casdoorsdk.User{Id: "u-kumar"}},
	"stranger":      {User: casdoorsdk.User{Id: "u-x", Email: "stranger@college.edu"}},
}

// ===== SERVICE STUBS =====

type stubPollService struct {
	create func(actor *services.Actor, req *services.CreatePollRequest) (*services.CreatePollResult, error)
	get    func(actor *services.Actor, id uint) (*services.PollView, error)
	list   func(actor *services.Actor, filters services.PollListFilters) (*services.PollListResponse, error)
	delete func(actor *services.Actor, id uint) error
}

func (s *stubPollService) Create(ctx context.Context, actor *services.Actor, req *services.CreatePollRequest) (*services.CreatePollResult, error) {
	return s.create(actor, req)
}

func (s *stubPollService) GetByID(ctx context.Context, actor *services.Actor, id uint) (*services.PollView, error) {
	return s.get(actor, id)
}

func (s *stubPollService) List(ctx context.Context, actor *services.Actor, filters services.PollListFilters) (*services.PollListResponse, error) {
	return s.list(actor, filters)
}

func (s *stubPollService) ListForStudent(ctx context.Context, actor *services.Actor, filters services.PollListFilters) ([]*services.StudentPollView, error) {
	return []*services.StudentPollView{}, nil
}

func (s *stubPollService) Delete(ctx context.Context, actor *services.Actor, id uint) error {
	return s.delete(actor, id)
}

type stubResponseService struct {
	submit func(actor *services.Actor, pollID uint, req *services.SubmitResponseRequest) (*models.PollResponse, error)
	edit   func(actor *services.Actor, id uint, req *services.EditResponseRequest) (*models.PollResponse, error)
}

func (s *stubResponseService) Submit(ctx context.Context, actor *services.Actor, pollID uint, req *services.SubmitResponseRequest) (*models.PollResponse, error) {
	return s.submit(actor, pollID, req)
}

func (s *stubResponseService) Edit(ctx context.Context, actor *services.Actor, responseID uint, req *services.EditResponseRequest) (*models.PollResponse, error) {
	return s.edit(actor, responseID, req)
}

func (s *stubResponseService) HasResponded(ctx context.Context, pollID uint, regNo string) (bool, error) {
	return false, nil
}

func (s *stubResponseService) ListForStudent(ctx context.Context, actor *services.Actor) ([]*services.StudentResponseView, error) {
	return []*services.StudentResponseView{}, nil
}

func (s *stubResponseService) ListForPoll(ctx context.Context, actor *services.Actor, pollID uint) ([]models.RespondedStudent, error) {
	return []models.RespondedStudent{}, nil
}

type stubSummaryService struct {
	department func(actor *services.Actor) (*services.DepartmentSummary, error)
}

func (s *stubSummaryService) PollSummary(ctx context.Context, actor *services.Actor, pollID uint) (*services.PollSummary, error) {
	return nil, services.ErrPollNotFound
}

func (s *stubSummaryService) ClassSummary(ctx context.Context, actor *services.Actor) (*services.ClassSummary, error) {
	return &services.ClassSummary{Class: actor.Class, ClassName: actor.Class.Name()}, nil
}

func (s *stubSummaryService) DepartmentSummary(ctx context.Context, actor *services.Actor) (*services.DepartmentSummary, error) {
	return s.department(actor)
}

type stubExportService struct{}

func (stubExportService) ExportPoll(ctx context.Context, actor *services.Actor, pollID uint) (*services.ExportFile, error) {
	return &services.ExportFile{Filename: "Guest lecture_10-03.xlsx", ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", Data: []byte("PK")}, nil
}

func (stubExportService) ExportClassRoster(ctx context.Context, actor *services.Actor) (*services.ExportFile, error) {
	return nil, services.ErrClassNotFound
}

func (stubExportService) ExportDepartment(ctx context.Context, actor *services.Actor) (*services.ExportFile, error) {
	return nil, services.NewPermissionError(actor.ID(), 0, "department", "export", "only heads of department can export the department")
}

type stubManager struct {
	poll     *stubPollService
	response *stubResponseService
	summary  *stubSummaryService
	hub      *services.RefreshHub
	healthy  error
}

func (m *stubManager) Actor() services.ActorService       { return stubActors{} }
func (m *stubManager) Poll() services.PollService         { return m.poll }
func (m *stubManager) Response() services.ResponseService { return m.response }
func (m *stubManager) Summary() services.SummaryService   { return m.summary }
func (m *stubManager) Export() services.ExportService     { return stubExportService{} }
func (m *stubManager) Refresh() *services.RefreshHub      { return m.hub }

func (m *stubManager) Initialize(ctx context.Context) error  { return nil }
func (m *stubManager) HealthCheck(ctx context.Context) error { return m.healthy }
func (m *stubManager) Shutdown(ctx context.Context) error    { return nil }

// testServer wires the real router and middleware around stub services
type testServer struct {
	router  *gin.Engine
	manager *stubManager
}

func newTestServer() *testServer {
	logger := testLogger()
	summary := &stubSummaryService{
		department: func(actor *services.Actor) (*services.DepartmentSummary, error) {
			return &services.DepartmentSummary{Department: actor.Department, TotalStudents: 7}, nil
		},
	}
	manager := &stubManager{
		poll:     &stubPollService{},
		response: &stubResponseService{},
		summary:  summary,
		hub:      services.NewRefreshHub(summary, config.RefreshConfig{}, logger.Slog()),
	}

	actors := stubActors{
		studentActor.Email: studentActor,
		facultyActor.Email: facultyActor,
		hodActor.Email:     hodActor,
	}
	identity := stubIdentity{
		"u-kumar": {ID: "u-kumar", Email: "kumar@college.edu", DisplayName: "Dr. Kumar"},
	}
	auth := newCasdoorAuthMiddleware(tokens, identity, actors, logger)

	router := gin.New()
	SetupMiddleware(router, logger, []string{"https://polls.college.edu"})
	newHandlerManager(manager, logger, identity, auth).SetupRoutes(router)

	return &testServer{router: router, manager: manager}
}
