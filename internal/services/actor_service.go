package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SAP-F-2025/poll-service/internal/models"
	"github.com/SAP-F-2025/poll-service/internal/repositories"
)

// Actor is the resolved caller: a student or a staff member with a role and a scope
type Actor struct {
	Email string          `json:"email"`
	Name  string          `json:"name"`
	Role  models.UserRole `json:"role"`

	Student *models.Student `json:"student,omitempty"`
	Staff   *models.Staff   `json:"staff,omitempty"`

	// Class is the student's or faculty's own class; nil for HODs or unmapped sections
	Class      *models.Class `json:"class,omitempty"`
	Department string        `json:"department"`
}

func (a *Actor) IsStudent() bool { return a.Role == models.RoleStudent }
func (a *Actor) IsFaculty() bool { return a.Role == models.RoleFaculty }
func (a *Actor) IsHOD() bool     { return a.Role == models.RoleHOD }
func (a *Actor) IsStaff() bool   { return a.Staff != nil }

// ID identifies the actor in logs and errors
func (a *Actor) ID() string {
	switch {
	case a.Student != nil:
		return a.Student.RegNo
	case a.Staff != nil:
		return fmt.Sprintf("staff:%d", a.Staff.ID)
	}
	return a.Email
}

func (a *Actor) RegNo() string {
	if a.Student == nil {
		return ""
	}
	return a.Student.RegNo
}

func (a *Actor) StaffID() uint {
	if a.Staff == nil {
		return 0
	}
	return a.Staff.ID
}

type actorService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewActorService(repo repositories.Repository, logger *slog.Logger) ActorService {
	return &actorService{
		repo:   repo,
		logger: logger,
	}
}

// Resolve looks the email up as a student first, then as staff
func (s *actorService) Resolve(ctx context.Context, email string) (*Actor, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, ErrActorNotRegistered
	}

	student, err := s.repo.Directory().GetStudentByEmail(ctx, email)
	if err == nil {
		return s.studentActor(ctx, email, student)
	}
	if !repositories.IsNotFoundError(err) {
		return nil, NewStoreError("look up student", err)
	}

	staff, err := s.repo.Directory().GetStaffByEmail(ctx, email)
	if err == nil {
		return s.staffActor(ctx, email, staff)
	}
	if !repositories.IsNotFoundError(err) {
		return nil, NewStoreError("look up staff", err)
	}

	s.logger.Warn("Unregistered account", "email", email)
	return nil, ErrActorNotRegistered
}

func (s *actorService) studentActor(ctx context.Context, email string, student *models.Student) (*Actor, error) {
	actor := &Actor{
		Email:      email,
		Name:       student.Name,
		Role:       models.RoleStudent,
		Student:    student,
		Department: student.Department,
	}

	class, err := s.lookupClass(ctx, student.Department, student.Section)
	if err != nil {
		return nil, err
	}
	actor.Class = class
	return actor, nil
}

func (s *actorService) staffActor(ctx context.Context, email string, staff *models.Staff) (*Actor, error) {
	actor := &Actor{
		Email:      email,
		Name:       staff.Name,
		Role:       staff.Role(),
		Staff:      staff,
		Department: staff.Department,
	}

	if actor.IsFaculty() && staff.Section != nil && strings.TrimSpace(*staff.Section) != "" {
		class, err := s.lookupClass(ctx, staff.Department, *staff.Section)
		if err != nil {
			return nil, err
		}
		actor.Class = class
	}
	return actor, nil
}

// lookupClass returns nil without error when the section has no class row
func (s *actorService) lookupClass(ctx context.Context, department, section string) (*models.Class, error) {
	class, err := s.repo.Directory().GetClassBySection(ctx, department, section)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			s.logger.Warn("No class for section", "department", department, "section", section)
			return nil, nil
		}
		return nil, NewStoreError("look up class", err)
	}
	return class, nil
}
