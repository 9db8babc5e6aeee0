package models

import "strings"

type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleFaculty UserRole = "faculty"
	RoleHOD     UserRole = "hod"
)

// Staff designations as provisioned in the directory
const (
	DesignationHOD = "HOD"
	DesignationCA  = "CA"
	DesignationCDC = "CDC"
)

// RoleFromDesignation maps a staff designation to the role used for authorization.
// Unknown designations fall back to faculty.
func RoleFromDesignation(designation string) UserRole {
	switch strings.ToUpper(strings.TrimSpace(designation)) {
	case DesignationHOD:
		return RoleHOD
	case DesignationCA, DesignationCDC:
		return RoleFaculty
	default:
		return RoleFaculty
	}
}

type Student struct {
	RegNo      string `json:"reg_no" gorm:"primaryKey;size:50"`
	Name       string `json:"name" gorm:"not null;size:100"`
	Email      string `json:"email" gorm:"uniqueIndex;not null;size:255"`
	Department string `json:"department" gorm:"not null;size:100;index:idx_students_dept_section"`
	Section    string `json:"section" gorm:"not null;size:20;index:idx_students_dept_section"`
}

func (Student) TableName() string {
	return "students"
}

type Staff struct {
	ID          uint    `json:"id" gorm:"primaryKey"`
	Name        string  `json:"name" gorm:"not null;size:100"`
	Email       string  `json:"email" gorm:"uniqueIndex;not null;size:255"`
	Department  string  `json:"department" gorm:"not null;size:100;index"`
	Section     *string `json:"section" gorm:"size:20"` // nil for HODs
	Designation string  `json:"designation" gorm:"not null;size:20"`
}

func (Staff) TableName() string {
	return "staffs"
}

// Role returns the authorization role derived from the designation
func (s *Staff) Role() UserRole {
	return RoleFromDesignation(s.Designation)
}

type Class struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	Department string `json:"department" gorm:"not null;size:100;uniqueIndex:idx_classes_dept_section"`
	Section    string `json:"section" gorm:"not null;size:20;uniqueIndex:idx_classes_dept_section"`
}

func (Class) TableName() string {
	return "classes"
}

// Name renders the class the way it is shown to staff, e.g. "CSE A"
func (c *Class) Name() string {
	return c.Department + " " + c.Section
}
