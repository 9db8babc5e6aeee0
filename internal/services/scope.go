package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/poll-service/internal/models"
	"github.com/SAP-F-2025/poll-service/internal/repositories"
)

// runInTx executes fn within a transaction; without a database (tests) fn gets a nil tx
func runInTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// scopeClassIDs returns the classes whose polls the actor may see.
// An empty result means the actor sees no polls at all.
func scopeClassIDs(ctx context.Context, repo repositories.Repository, actor *Actor) ([]uint, error) {
	if actor.IsHOD() {
		classes, err := repo.Directory().ListClassesByDepartment(ctx, actor.Department)
		if err != nil {
			return nil, NewStoreError("list department classes", err)
		}
		ids := make([]uint, len(classes))
		for i, c := range classes {
			ids[i] = c.ID
		}
		return ids, nil
	}

	if actor.Class == nil {
		return nil, nil
	}
	return []uint{actor.Class.ID}, nil
}

// pollClass returns the poll's class, loading it when not preloaded
func pollClass(ctx context.Context, repo repositories.Repository, poll *models.Poll) (*models.Class, error) {
	if poll.Class != nil && poll.Class.ID == poll.ClassID {
		return poll.Class, nil
	}
	class, err := repo.Directory().GetClassByID(ctx, poll.ClassID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrClassNotFound
		}
		return nil, NewStoreError("get class", err)
	}
	poll.Class = class
	return class, nil
}

// canSeePoll applies the visibility rules: own class for students and faculty,
// any class of the department for HODs
func canSeePoll(ctx context.Context, repo repositories.Repository, actor *Actor, poll *models.Poll) (bool, error) {
	if actor.IsHOD() {
		class, err := pollClass(ctx, repo, poll)
		if err != nil {
			return false, err
		}
		return class.Department == actor.Department, nil
	}
	return actor.Class != nil && actor.Class.ID == poll.ClassID, nil
}

// canDeletePoll: the owner, or an HOD of the poll's department
func canDeletePoll(ctx context.Context, repo repositories.Repository, actor *Actor, poll *models.Poll) (bool, error) {
	if actor.Staff == nil {
		return false, nil
	}
	if poll.StaffID == actor.Staff.ID {
		return true, nil
	}
	if !actor.IsHOD() {
		return false, nil
	}
	class, err := pollClass(ctx, repo, poll)
	if err != nil {
		return false, err
	}
	return class.Department == actor.Department, nil
}

// getVisiblePoll loads a poll and hides it (as not found) when outside the actor's scope
func getVisiblePoll(ctx context.Context, repo repositories.Repository, actor *Actor, id uint) (*models.Poll, error) {
	poll, err := repo.Poll().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrPollNotFound
		}
		return nil, NewStoreError("get poll", err)
	}

	visible, err := canSeePoll(ctx, repo, actor, poll)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, ErrPollNotFound
	}
	return poll, nil
}

func buildPollView(actor *Actor, poll *models.Poll, now time.Time) *PollView {
	view := &PollView{
		Poll:          poll,
		IsExpired:     IsExpired(poll.Deadline, now),
		TimeRemaining: TimeRemaining(poll.Deadline, now),
	}
	if poll.Class != nil {
		view.ClassName = poll.Class.Name()
	}
	if poll.Staff != nil {
		view.StaffName = poll.Staff.Name
	}
	if actor != nil && actor.Staff != nil {
		view.CanDelete = poll.StaffID == actor.Staff.ID ||
			(actor.IsHOD() && poll.Class != nil && poll.Class.Department == actor.Department)
	}
	return view
}

func containsUint(values []uint, v uint) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
