package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/SAP-F-2025/poll-service/internal/config"
	"github.com/SAP-F-2025/poll-service/internal/events"
)

// RefreshResult is one recomputed value pushed to subscribers
type RefreshResult[T any] struct {
	Value T
	Err   error
	At    time.Time
}

// RefreshCoordinator recomputes a value when notified and pushes it to subscribers.
// Notifications inside the debounce window collapse into one recompute; a notification
// that arrives while a recompute runs schedules exactly one more.
type RefreshCoordinator[T any] struct {
	compute  func(ctx context.Context) (T, error)
	debounce time.Duration
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	timer   *time.Timer
	running bool
	pending bool
	stopped bool
	nextID  int
	subs    map[int]chan RefreshResult[T]
}

func NewRefreshCoordinator[T any](compute func(ctx context.Context) (T, error), debounce time.Duration, logger *slog.Logger) *RefreshCoordinator[T] {
	ctx, cancel := context.WithCancel(context.Background())
	return &RefreshCoordinator[T]{
		compute:  compute,
		debounce: debounce,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		subs:     make(map[int]chan RefreshResult[T]),
	}
}

// Notify schedules a recompute after the debounce window
func (c *RefreshCoordinator[T]) Notify() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return
	}
	if c.debounce <= 0 {
		c.startLocked()
		return
	}
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.debounce, c.trigger)
}

// RefreshNow recomputes synchronously. It fails with ErrRefreshInProgress instead of
// cancelling a recompute that is already running.
func (c *RefreshCoordinator[T]) RefreshNow(ctx context.Context) (T, error) {
	var zero T

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return zero, fmt.Errorf("refresh coordinator stopped")
	}
	if c.running {
		c.mu.Unlock()
		return zero, ErrRefreshInProgress
	}
	c.running = true
	c.mu.Unlock()

	value, err := c.compute(ctx)
	c.broadcast(RefreshResult[T]{Value: value, Err: err, At: time.Now().UTC()})

	c.mu.Lock()
	c.running = false
	if c.pending && !c.stopped {
		c.pending = false
		c.startLocked()
	}
	c.mu.Unlock()

	return value, err
}

// Subscribe returns a channel that always holds the latest result and a func that
// ends the subscription and reports how many subscribers remain
func (c *RefreshCoordinator[T]) Subscribe() (<-chan RefreshResult[T], func() int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan RefreshResult[T], 1)
	if c.stopped {
		close(ch)
		return ch, func() int { return 0 }
	}

	id := c.nextID
	c.nextID++
	c.subs[id] = ch

	var once sync.Once
	unsubscribe := func() int {
		c.mu.Lock()
		defer c.mu.Unlock()
		once.Do(func() {
			if sub, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(sub)
			}
		})
		return len(c.subs)
	}
	return ch, unsubscribe
}

// Stop cancels any running recompute and closes all subscriptions
func (c *RefreshCoordinator[T]) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return
	}
	c.stopped = true
	if c.timer != nil {
		c.timer.Stop()
	}
	c.cancel()
	for id, ch := range c.subs {
		close(ch)
		delete(c.subs, id)
	}
}

func (c *RefreshCoordinator[T]) trigger() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.stopped {
		c.startLocked()
	}
}

// startLocked starts a background recompute or marks one pending; c.mu must be held
func (c *RefreshCoordinator[T]) startLocked() {
	if c.running {
		c.pending = true
		return
	}
	c.running = true
	go c.run()
}

func (c *RefreshCoordinator[T]) run() {
	for {
		value, err := c.compute(c.ctx)
		if err != nil && c.logger != nil {
			c.logger.Warn("Refresh failed", "error", err)
		}
		c.broadcast(RefreshResult[T]{Value: value, Err: err, At: time.Now().UTC()})

		c.mu.Lock()
		if c.pending && !c.stopped {
			c.pending = false
			c.mu.Unlock()
			continue
		}
		c.running = false
		c.mu.Unlock()
		return
	}
}

// broadcast replaces whatever a slow subscriber has not read yet
func (c *RefreshCoordinator[T]) broadcast(result RefreshResult[T]) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return
	}
	for _, ch := range c.subs {
		select {
		case ch <- result:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- result:
		default:
		}
	}
}

// ===== HUB =====

// RefreshHub keeps one coordinator per live scope: a department for HODs, a class for faculty.
// Coordinators exist only while someone is subscribed.
type RefreshHub struct {
	summary SummaryService
	cfg     config.RefreshConfig
	logger  *slog.Logger

	mu          sync.Mutex
	departments map[string]*RefreshCoordinator[*DepartmentSummary]
	classes     map[uint]*RefreshCoordinator[*ClassSummary]
}

func NewRefreshHub(summary SummaryService, cfg config.RefreshConfig, logger *slog.Logger) *RefreshHub {
	return &RefreshHub{
		summary:     summary,
		cfg:         cfg,
		logger:      logger,
		departments: make(map[string]*RefreshCoordinator[*DepartmentSummary]),
		classes:     make(map[uint]*RefreshCoordinator[*ClassSummary]),
	}
}

func departmentKey(department string) string { return "department:" + department }
func classKey(id uint) string                { return fmt.Sprintf("class:%d", id) }

// SubscribeDepartment streams the HOD's department summary; the first value is pushed right away
func (h *RefreshHub) SubscribeDepartment(actor *Actor) (<-chan RefreshResult[*DepartmentSummary], func(), error) {
	if !actor.IsHOD() {
		return nil, nil, NewPermissionError(actor.ID(), 0, "department", "stream", "only heads of department can stream department summaries")
	}

	h.mu.Lock()
	coord, ok := h.departments[actor.Department]
	if !ok {
		coord = NewRefreshCoordinator(func(ctx context.Context) (*DepartmentSummary, error) {
			return h.summary.DepartmentSummary(ctx, actor)
		}, h.cfg.HODDebounce, h.logger.With("scope", departmentKey(actor.Department)))
		h.departments[actor.Department] = coord
	}
	ch, unsubscribe := coord.Subscribe()
	h.mu.Unlock()

	coord.trigger()

	department := actor.Department
	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if unsubscribe() == 0 && h.departments[department] == coord {
			delete(h.departments, department)
			coord.Stop()
		}
	}, nil
}

// SubscribeClass streams the faculty's class summary
func (h *RefreshHub) SubscribeClass(actor *Actor) (<-chan RefreshResult[*ClassSummary], func(), error) {
	if !actor.IsStaff() {
		return nil, nil, NewPermissionError(actor.ID(), 0, "class", "stream", "only staff can stream class summaries")
	}
	if actor.Class == nil {
		return nil, nil, ErrClassNotFound
	}

	classID := actor.Class.ID
	h.mu.Lock()
	coord, ok := h.classes[classID]
	if !ok {
		coord = NewRefreshCoordinator(func(ctx context.Context) (*ClassSummary, error) {
			return h.summary.ClassSummary(ctx, actor)
		}, h.cfg.DefaultDebounce, h.logger.With("scope", classKey(classID)))
		h.classes[classID] = coord
	}
	ch, unsubscribe := coord.Subscribe()
	h.mu.Unlock()

	coord.trigger()

	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if unsubscribe() == 0 && h.classes[classID] == coord {
			delete(h.classes, classID)
			coord.Stop()
		}
	}, nil
}

// RefreshDepartment recomputes the department summary now and pushes it to live streams
func (h *RefreshHub) RefreshDepartment(ctx context.Context, actor *Actor) (*DepartmentSummary, error) {
	if !actor.IsHOD() {
		return nil, NewPermissionError(actor.ID(), 0, "department", "refresh", "only heads of department can refresh department summaries")
	}

	h.mu.Lock()
	coord, ok := h.departments[actor.Department]
	h.mu.Unlock()

	if !ok {
		return h.summary.DepartmentSummary(ctx, actor)
	}
	return coord.RefreshNow(ctx)
}

// HandleChange notifies the coordinators a store change may affect
func (h *RefreshHub) HandleChange(_ context.Context, change events.Change) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for department, coord := range h.departments {
		if change.Table == events.TableStudents && change.Keys.Department != "" && change.Keys.Department != department {
			continue
		}
		coord.Notify()
	}
	for classID, coord := range h.classes {
		if change.Table == events.TablePolls && change.Keys.ClassID != 0 && change.Keys.ClassID != classID {
			continue
		}
		coord.Notify()
	}

	h.logger.Debug("Change dispatched to live summaries", "change", change.String(),
		"departments", len(h.departments), "classes", len(h.classes))
}

// Consume routes changes from a change feed subscription until it closes or ctx is done
func (h *RefreshHub) Consume(ctx context.Context, changes <-chan events.Change) {
	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-changes:
			if !ok {
				return
			}
			h.HandleChange(ctx, change)
		}
	}
}

// Active reports the number of live scopes
func (h *RefreshHub) Active() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.departments) + len(h.classes)
}

// Stop ends every live stream
func (h *RefreshHub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for key, coord := range h.departments {
		coord.Stop()
		delete(h.departments, key)
	}
	for key, coord := range h.classes {
		coord.Stop()
		delete(h.classes, key)
	}
}
