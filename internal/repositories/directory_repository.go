package repositories

import (
	"context"

	"github.com/SAP-F-2025/poll-service/internal/models"
)

// DirectoryRepository reads students, staff and classes.
// Email lookups are case-insensitive.
type DirectoryRepository interface {
	GetStudentByEmail(ctx context.Context, email string) (*models.Student, error)
	GetStudentsByRegNos(ctx context.Context, regNos []string) ([]*models.Student, error)

	GetStaffByEmail(ctx context.Context, email string) (*models.Staff, error)
	GetHODByDepartment(ctx context.Context, department string) (*models.Staff, error)

	GetClassByID(ctx context.Context, id uint) (*models.Class, error)
	GetClassBySection(ctx context.Context, department, section string) (*models.Class, error)
	ListClassesByDepartment(ctx context.Context, department string) ([]*models.Class, error)

	// Rosters are ordered by name (class) or by section then name (department)
	ListStudentsByClass(ctx context.Context, class *models.Class) ([]*models.Student, error)
	ListStudentsByDepartment(ctx context.Context, department string) ([]*models.Student, error)
}

// Identity is the caller as known to the identity provider
type Identity struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// IdentityRepository resolves identity provider users
type IdentityRepository interface {
	GetByID(ctx context.Context, id string) (*Identity, error)
}
