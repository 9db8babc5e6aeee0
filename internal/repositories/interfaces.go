package repositories

import (
	"time"

	"github.com/SAP-F-2025/poll-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type PollFilters struct {
	ClassIDs []uint               `json:"class_ids"` // empty means no class restriction
	StaffID  *uint                `json:"staff_id"`
	Category *models.PollCategory `json:"poll_category"`
	// ActiveAt drops polls whose deadline is before this instant
	ActiveAt *time.Time `json:"active_at"`
	Limit    int        `json:"limit"`
	Offset   int        `json:"offset"`
}

type ResponseFilters struct {
	PollIDs []uint `json:"poll_ids"`
	RegNo   string `json:"reg_no"`
	Limit   int    `json:"limit"`
	Offset  int    `json:"offset"`
}
