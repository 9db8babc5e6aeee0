package services

import (
	"errors"
	"fmt"

	"github.com/SAP-F-2025/poll-service/internal/validator"
)

// ValidationErrors is returned for any rejected input (HTTP 400)
type ValidationErrors = validator.ValidationErrors

func NewValidationError(field, message string, value interface{}) ValidationErrors {
	return validator.NewValidationError(field, message, value)
}

// ===== NOT FOUND =====

type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

var (
	ErrPollNotFound     = &NotFoundError{Resource: "poll"}
	ErrResponseNotFound = &NotFoundError{Resource: "response"}
	ErrClassNotFound    = &NotFoundError{Resource: "class"}
	ErrStudentNotFound  = &NotFoundError{Resource: "student"}
)

// ===== ACCESS =====

// OwnershipError is returned when an actor mutates a record that belongs to someone else
type OwnershipError struct {
	UserID     string
	Resource   string
	ResourceID uint
}

func (e *OwnershipError) Error() string {
	return fmt.Sprintf("%s %d does not belong to %s", e.Resource, e.ResourceID, e.UserID)
}

func NewOwnershipError(userID string, resourceID uint, resource string) *OwnershipError {
	return &OwnershipError{UserID: userID, Resource: resource, ResourceID: resourceID}
}

type PermissionError struct {
	UserID     string
	ResourceID uint
	Resource   string
	Action     string
	Reason     string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %s cannot %s %s %d: %s", e.UserID, e.Action, e.Resource, e.ResourceID, e.Reason)
}

func NewPermissionError(userID string, resourceID uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

// ErrActorNotRegistered means the authenticated email matches no student or staff record
var ErrActorNotRegistered = errors.New("account is not registered as a student or staff member")

// ===== CONFLICT =====

type ConflictError struct {
	Resource string
	Message  string
}

func (e *ConflictError) Error() string {
	return e.Message
}

var (
	ErrAlreadyResponded  = &ConflictError{Resource: "response", Message: "already responded to this poll"}
	ErrRefreshInProgress = &ConflictError{Resource: "refresh", Message: "a refresh is already in progress"}
)

// ===== STORE =====

// StoreError wraps a failed read or write against the database
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func NewStoreError(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err}
}
