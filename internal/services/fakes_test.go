package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/poll-service/internal/config"
	"github.com/SAP-F-2025/poll-service/internal/events"
	"github.com/SAP-F-2025/poll-service/internal/models"
	"github.com/SAP-F-2025/poll-service/internal/repositories"
	"github.com/SAP-F-2025/poll-service/internal/validator"
)

// fakeStore is an in-memory repositories.Repository
type fakeStore struct {
	mu sync.Mutex

	students []*models.Student
	staff    []*models.Staff
	classes  []*models.Class

	polls     map[uint]*models.Poll
	responses map[uint]*models.PollResponse
	nextPoll  uint
	nextResp  uint

	// existsAlwaysFalse simulates losing the race between the pre-check and the insert
	existsAlwaysFalse bool
	failPollClass     map[uint]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		polls:         make(map[uint]*models.Poll),
		responses:     make(map[uint]*models.PollResponse),
		failPollClass: make(map[uint]bool),
	}
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }
func uintPtr(u uint) *uint    { return &u }

func notFound(what string) error {
	return fmt.Errorf("%s: %w", what, gorm.ErrRecordNotFound)
}

func (s *fakeStore) Directory() repositories.DirectoryRepository { return fakeDirectory{s} }
func (s *fakeStore) Poll() repositories.PollRepository           { return fakePolls{s} }
func (s *fakeStore) Response() repositories.ResponseRepository   { return fakeResponses{s} }
func (s *fakeStore) Dashboard() repositories.DashboardRepository { return fakeDashboard{s} }
func (s *fakeStore) Identity() repositories.IdentityRepository   { return nil }
func (s *fakeStore) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(s)
}
func (s *fakeStore) Ping(ctx context.Context) error { return nil }
func (s *fakeStore) Close() error                   { return nil }

func (s *fakeStore) classByID(id uint) *models.Class {
	for _, c := range s.classes {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (s *fakeStore) staffByID(id uint) *models.Staff {
	for _, st := range s.staff {
		if st.ID == id {
			return st
		}
	}
	return nil
}

// addPoll stores a poll directly, bypassing the service checks
func (s *fakeStore) addPoll(p models.Poll) *models.Poll {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextPoll++
	p.ID = s.nextPoll
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Date(2026, 3, 10, 9, 0, 0, int(p.ID), time.UTC)
	}
	if p.SortMode == "" {
		p.SortMode = models.SortAuto
	}
	s.polls[p.ID] = &p
	return &p
}

func (s *fakeStore) addResponse(r models.PollResponse) *models.PollResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextResp++
	r.ID = s.nextResp
	s.responses[r.ID] = &r
	return &r
}

func (s *fakeStore) responseCount(pollID uint, regNo string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.responses {
		if r.PollID == pollID && r.StudentRegNo == regNo {
			n++
		}
	}
	return n
}

// ===== DIRECTORY =====

type fakeDirectory struct{ s *fakeStore }

func (d fakeDirectory) GetStudentByEmail(ctx context.Context, email string) (*models.Student, error) {
	for _, st := range d.s.students {
		if strings.EqualFold(st.Email, email) {
			cp := *st
			return &cp, nil
		}
	}
	return nil, notFound("student")
}

func (d fakeDirectory) GetStudentsByRegNos(ctx context.Context, regNos []string) ([]*models.Student, error) {
	var out []*models.Student
	for _, st := range d.s.students {
		for _, r := range regNos {
			if st.RegNo == r {
				cp := *st
				out = append(out, &cp)
				break
			}
		}
	}
	return out, nil
}

func (d fakeDirectory) GetStaffByEmail(ctx context.Context, email string) (*models.Staff, error) {
	for _, st := range d.s.staff {
		if strings.EqualFold(st.Email, email) {
			cp := *st
			return &cp, nil
		}
	}
	return nil, notFound("staff")
}

func (d fakeDirectory) GetHODByDepartment(ctx context.Context, department string) (*models.Staff, error) {
	for _, st := range d.s.staff {
		if st.Department == department && st.Role() == models.RoleHOD {
			cp := *st
			return &cp, nil
		}
	}
	return nil, notFound("hod")
}

func (d fakeDirectory) GetClassByID(ctx context.Context, id uint) (*models.Class, error) {
	if c := d.s.classByID(id); c != nil {
		cp := *c
		return &cp, nil
	}
	return nil, notFound("class")
}

func (d fakeDirectory) GetClassBySection(ctx context.Context, department, section string) (*models.Class, error) {
	for _, c := range d.s.classes {
		if c.Department == department && strings.EqualFold(c.Section, section) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, notFound("class")
}

func (d fakeDirectory) ListClassesByDepartment(ctx context.Context, department string) ([]*models.Class, error) {
	out := []*models.Class{}
	for _, c := range d.s.classes {
		if c.Department == department {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (d fakeDirectory) ListStudentsByClass(ctx context.Context, class *models.Class) ([]*models.Student, error) {
	out := []*models.Student{}
	for _, st := range d.s.students {
		if st.Department == class.Department && strings.EqualFold(st.Section, class.Section) {
			cp := *st
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (d fakeDirectory) ListStudentsByDepartment(ctx context.Context, department string) ([]*models.Student, error) {
	out := []*models.Student{}
	for _, st := range d.s.students {
		if st.Department == department {
			cp := *st
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ===== POLLS =====

type fakePolls struct{ s *fakeStore }

func (p fakePolls) Create(ctx context.Context, tx *gorm.DB, poll *models.Poll) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	if p.s.failPollClass[poll.ClassID] {
		return fmt.Errorf("insert failed for class %d", poll.ClassID)
	}
	p.s.nextPoll++
	poll.ID = p.s.nextPoll
	poll.CreatedAt = time.Date(2026, 3, 10, 9, 0, 0, int(poll.ID), time.UTC)
	cp := *poll
	cp.Class, cp.Staff = nil, nil
	p.s.polls[poll.ID] = &cp
	return nil
}

func (p fakePolls) load(poll *models.Poll) *models.Poll {
	cp := *poll
	if c := p.s.classByID(poll.ClassID); c != nil {
		class := *c
		cp.Class = &class
	}
	if st := p.s.staffByID(poll.StaffID); st != nil {
		staff := *st
		cp.Staff = &staff
	}
	return &cp
}

func (p fakePolls) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Poll, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	poll, ok := p.s.polls[id]
	if !ok {
		return nil, notFound("poll")
	}
	return p.load(poll), nil
}

func (p fakePolls) List(ctx context.Context, tx *gorm.DB, filters repositories.PollFilters) ([]*models.Poll, int64, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()

	var out []*models.Poll
	for _, poll := range p.s.polls {
		if len(filters.ClassIDs) > 0 && !containsUint(filters.ClassIDs, poll.ClassID) {
			continue
		}
		if filters.StaffID != nil && poll.StaffID != *filters.StaffID {
			continue
		}
		if filters.Category != nil && poll.Category != *filters.Category {
			continue
		}
		if filters.ActiveAt != nil && poll.Deadline != nil && poll.Deadline.Before(*filters.ActiveAt) {
			continue
		}
		out = append(out, p.load(poll))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})

	total := int64(len(out))
	if filters.Offset > 0 {
		if filters.Offset >= len(out) {
			out = nil
		} else {
			out = out[filters.Offset:]
		}
	}
	if filters.Limit > 0 && len(out) > filters.Limit {
		out = out[:filters.Limit]
	}
	if out == nil {
		out = []*models.Poll{}
	}
	return out, total, nil
}

func (p fakePolls) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	if _, ok := p.s.polls[id]; !ok {
		return notFound("poll")
	}
	delete(p.s.polls, id)
	for rid, r := range p.s.responses {
		if r.PollID == id {
			delete(p.s.responses, rid)
		}
	}
	return nil
}

// ===== RESPONSES =====

type fakeResponses struct{ s *fakeStore }

func (r fakeResponses) Create(ctx context.Context, tx *gorm.DB, response *models.PollResponse) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.responses {
		if existing.PollID == response.PollID && existing.StudentRegNo == response.StudentRegNo {
			return fmt.Errorf("failed to create response: %w", gorm.ErrDuplicatedKey)
		}
	}
	r.s.nextResp++
	response.ID = r.s.nextResp
	cp := *response
	r.s.responses[cp.ID] = &cp
	return nil
}

func (r fakeResponses) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.PollResponse, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	resp, ok := r.s.responses[id]
	if !ok {
		return nil, notFound("response")
	}
	cp := *resp
	return &cp, nil
}

func (r fakeResponses) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.PollResponse, error) {
	return r.GetByID(ctx, tx, id)
}

func (r fakeResponses) ExistsByPollAndStudent(ctx context.Context, tx *gorm.DB, pollID uint, regNo string) (bool, error) {
	if r.s.existsAlwaysFalse {
		return false, nil
	}
	return r.s.responseCount(pollID, regNo) > 0, nil
}

func (r fakeResponses) Update(ctx context.Context, tx *gorm.DB, response *models.PollResponse) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.responses[response.ID]; !ok {
		return notFound("response")
	}
	cp := *response
	r.s.responses[cp.ID] = &cp
	return nil
}

func (r fakeResponses) list(match func(*models.PollResponse) bool) []*models.PollResponse {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*models.PollResponse{}
	for _, resp := range r.s.responses {
		if match(resp) {
			cp := *resp
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r fakeResponses) ListByPoll(ctx context.Context, tx *gorm.DB, pollID uint) ([]*models.PollResponse, error) {
	return r.list(func(resp *models.PollResponse) bool { return resp.PollID == pollID }), nil
}

func (r fakeResponses) List(ctx context.Context, tx *gorm.DB, filters repositories.ResponseFilters) ([]*models.PollResponse, error) {
	return r.list(func(resp *models.PollResponse) bool {
		if len(filters.PollIDs) > 0 && !containsUint(filters.PollIDs, resp.PollID) {
			return false
		}
		return filters.RegNo == "" || resp.StudentRegNo == filters.RegNo
	}), nil
}

func (r fakeResponses) ListByStudent(ctx context.Context, tx *gorm.DB, regNo string) ([]*models.PollResponse, error) {
	return r.list(func(resp *models.PollResponse) bool { return resp.StudentRegNo == regNo }), nil
}

// ===== DASHBOARD =====

type fakeDashboard struct{ s *fakeStore }

func (d fakeDashboard) CountStudents(ctx context.Context, tx *gorm.DB, department string) (int64, error) {
	var n int64
	for _, st := range d.s.students {
		if st.Department == department {
			n++
		}
	}
	return n, nil
}

func (d fakeDashboard) CountPolls(ctx context.Context, tx *gorm.DB, classIDs []uint) (int64, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	var n int64
	for _, p := range d.s.polls {
		if containsUint(classIDs, p.ClassID) {
			n++
		}
	}
	return n, nil
}

func (d fakeDashboard) CountResponses(ctx context.Context, tx *gorm.DB, classIDs []uint) (int64, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	var n int64
	for _, r := range d.s.responses {
		if p, ok := d.s.polls[r.PollID]; ok && containsUint(classIDs, p.ClassID) {
			n++
		}
	}
	return n, nil
}

func (d fakeDashboard) PollCountsByCategory(ctx context.Context, tx *gorm.DB, classIDs []uint) ([]models.CategoryCount, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	counts := map[models.PollCategory]int64{}
	for _, p := range d.s.polls {
		if containsUint(classIDs, p.ClassID) {
			counts[p.Category]++
		}
	}
	out := []models.CategoryCount{}
	for c, n := range counts {
		out = append(out, models.CategoryCount{Category: c, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

func (d fakeDashboard) RecentResponses(ctx context.Context, tx *gorm.DB, classIDs []uint, limit int) ([]models.RecentResponse, error) {
	return []models.RecentResponse{}, nil
}

func (d fakeDashboard) ResponseTrend(ctx context.Context, tx *gorm.DB, classIDs []uint, days int, now time.Time) ([]models.TrendPoint, error) {
	out := make([]models.TrendPoint, days)
	for i := range out {
		day := now.AddDate(0, 0, i-days+1)
		out[i] = models.TrendPoint{Period: day.Format("2006-01-02"), Date: day}
	}
	return out, nil
}

// ===== FIXTURE =====

// fixture: CSE with sections A, B and C, ECE with section A.
// CSE A has five students, CSE B two, ECE A one.
type fixture struct {
	store     *fakeStore
	logger    *slog.Logger
	validator *validator.Validator
	publisher *events.MockEventPublisher
	now       time.Time
}

func newFixture() *fixture {
	store := newFakeStore()
	store.classes = []*models.Class{
		{ID: 1, Department: "CSE", Section: "A"},
		{ID: 2, Department: "CSE", Section: "B"},
		{ID: 3, Department: "CSE", Section: "C"},
		{ID: 4, Department: "ECE", Section: "A"},
	}
	store.students = []*models.Student{
		{RegNo: "CSE-A-1", Name: "Asha", Email: "asha@college.edu", Department: "CSE", Section: "A"},
		{RegNo: "CSE-A-2", Name: "Bala", Email: "bala@college.edu", Department: "CSE", Section: "A"},
		{RegNo: "CSE-A-3", Name: "Chitra", Email: "chitra@college.edu", Department: "CSE", Section: "A"},
		{RegNo: "CSE-A-4", Name: "Dev", Email: "dev@college.edu", Department: "CSE", Section: "A"},
		{RegNo: "CSE-A-5", Name: "Esha", Email: "esha@college.edu", Department: "CSE", Section: "A"},
		{RegNo: "CSE-B-1", Name: "Farah", Email: "farah@college.edu", Department: "CSE", Section: "B"},
		{RegNo: "CSE-B-2", Name: "Gopal", Email: "gopal@college.edu", Department: "CSE", Section: "B"},
		{RegNo: "ECE-A-1", Name: "Hari", Email: "hari@college.edu", Department: "ECE", Section: "A"},
	}
	store.staff = []*models.Staff{
		{ID: 10, Name: "Prof. Iyer", Email: "iyer@college.edu", Department: "CSE", Section: strPtr("A"), Designation: models.DesignationCA},
		{ID: 11, Name: "Prof. Jain", Email: "jain@college.edu", Department: "CSE", Section: strPtr("B"), Designation: models.DesignationCDC},
		{ID: 12, Name: "Dr. Kumar", Email: "kumar@college.edu", Department: "CSE", Designation: models.DesignationHOD},
		{ID: 13, Name: "Dr. Lal", Email: "lal@college.edu", Department: "ECE", Designation: models.DesignationHOD},
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &fixture{
		store:     store,
		logger:    logger,
		validator: validator.New(),
		publisher: events.NewMockEventPublisher(logger),
		now:       time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC),
	}
}

func (f *fixture) clock() time.Time { return f.now }

func (f *fixture) actor(email string) *Actor {
	actor, err := NewActorService(f.store, f.logger).Resolve(context.Background(), email)
	if err != nil {
		panic(fmt.Sprintf("resolve %s: %v", email, err))
	}
	return actor
}

func (f *fixture) pollService() *pollService {
	return &pollService{
		repo:      f.store,
		logger:    f.logger,
		validator: f.validator,
		publisher: f.publisher,
		location:  time.UTC,
		clock:     f.clock,
	}
}

func (f *fixture) responseService() *responseService {
	return &responseService{
		repo:      f.store,
		logger:    f.logger,
		validator: f.validator,
		publisher: f.publisher,
		clock:     f.clock,
	}
}

func (f *fixture) summaryService() *summaryService {
	return &summaryService{
		repo:       f.store,
		logger:     f.logger,
		aggregator: NewAggregator(config.DefaultAggregationConfig()),
		location:   time.UTC,
		clock:      f.clock,
	}
}

func (f *fixture) exportService() *exportService {
	return &exportService{
		repo:       f.store,
		logger:     f.logger,
		aggregator: NewAggregator(config.DefaultAggregationConfig()),
		publisher:  f.publisher,
		location:   time.UTC,
		clock:      f.clock,
	}
}
