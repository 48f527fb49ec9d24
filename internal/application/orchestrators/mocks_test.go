package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"surfshop/internal/domain/apperr"
	"surfshop/internal/domain/customer"
	"surfshop/internal/domain/instructor"
	"surfshop/internal/domain/lesson"
	"surfshop/internal/domain/outbox"
	"surfshop/internal/domain/visit"
)

var testTime = time.Date(2026, 7, 10, 8, 0, 0, 0, time.UTC)

func testNow() time.Time { return testTime }

// seqIDs returns a generator yielding prefix-1, prefix-2, ...
func seqIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

// mockLessonStore implements LessonStore in memory with version checks.
type mockLessonStore struct {
	mu           sync.Mutex
	lessons      map[string]lesson.Lesson
	participants map[string][]lesson.Participant
	notices      []outbox.Entry
	updateErr    error
}

func newMockLessonStore(ls ...lesson.Lesson) *mockLessonStore {
	m := &mockLessonStore{lessons: map[string]lesson.Lesson{}, participants: map[string][]lesson.Participant{}}
	for _, l := range ls {
		m.lessons[l.ID] = l
	}
	return m
}

func (m *mockLessonStore) GetByID(_ context.Context, id string) (lesson.Lesson, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lessons[id]
	if !ok {
		return lesson.Lesson{}, apperr.NotFound("lesson", id)
	}
	return l, nil
}

func (m *mockLessonStore) Create(_ context.Context, l lesson.Lesson) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.lessons[l.ID]; ok {
		return apperr.Conflict("lesson %q already exists", l.ID)
	}
	m.lessons[l.ID] = l
	return nil
}

func (m *mockLessonStore) Update(_ context.Context, l lesson.Lesson, expected int, notices ...outbox.Entry) (lesson.Lesson, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return lesson.Lesson{}, m.updateErr
	}
	cur, ok := m.lessons[l.ID]
	if !ok {
		return lesson.Lesson{}, apperr.NotFound("lesson", l.ID)
	}
	if cur.Version != expected {
		return lesson.Lesson{}, apperr.Conflict("lesson %q was modified concurrently", l.ID)
	}
	l.Version = expected + 1
	m.lessons[l.ID] = l
	m.notices = append(m.notices, notices...)
	return l, nil
}

func (m *mockLessonStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.lessons[id]; !ok {
		return apperr.NotFound("lesson", id)
	}
	delete(m.lessons, id)
	delete(m.participants, id)
	return nil
}

func (m *mockLessonStore) AddParticipant(_ context.Context, p lesson.Participant) (lesson.Lesson, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lessons[p.LessonID]
	if !ok {
		return lesson.Lesson{}, apperr.NotFound("lesson", p.LessonID)
	}
	if err := l.CheckEnrollable(); err != nil {
		return lesson.Lesson{}, err
	}
	for _, existing := range m.participants[p.LessonID] {
		if existing.CustomerID == p.CustomerID {
			return lesson.Lesson{}, apperr.Conflict("already registered")
		}
	}
	m.participants[p.LessonID] = append(m.participants[p.LessonID], p)
	l.CurrentParticipants++
	l.Version++
	m.lessons[l.ID] = l
	return l, nil
}

func (m *mockLessonStore) RemoveParticipant(_ context.Context, lessonID, customerID string) (lesson.Lesson, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lessons[lessonID]
	if !ok {
		return lesson.Lesson{}, apperr.NotFound("lesson", lessonID)
	}
	if l.Status.IsTerminal() {
		return lesson.Lesson{}, apperr.Conflict("cannot change the roster of a %s lesson", l.Status)
	}
	roster := m.participants[lessonID]
	for i, p := range roster {
		if p.CustomerID == customerID {
			m.participants[lessonID] = append(roster[:i:i], roster[i+1:]...)
			l.CurrentParticipants--
			l.Version++
			m.lessons[l.ID] = l
			return l, nil
		}
	}
	return lesson.Lesson{}, apperr.NotFound("participant", customerID)
}

func (m *mockLessonStore) ListParticipants(_ context.Context, lessonID string) ([]lesson.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]lesson.Participant(nil), m.participants[lessonID]...), nil
}

// enroll seeds a participant without going through capacity checks.
func (m *mockLessonStore) enroll(lessonID string, customerIDs ...string) {
	l := m.lessons[lessonID]
	for _, id := range customerIDs {
		m.participants[lessonID] = append(m.participants[lessonID], lesson.Participant{
			LessonID: lessonID, CustomerID: id, CustomerName: "Customer " + id, AddedAt: testTime,
		})
		l.CurrentParticipants++
	}
	m.lessons[lessonID] = l
}

// mockInstructors implements InstructorStore.
type mockInstructors struct {
	byID map[string]instructor.Instructor
}

func newMockInstructors(is ...instructor.Instructor) *mockInstructors {
	m := &mockInstructors{byID: map[string]instructor.Instructor{}}
	for _, i := range is {
		m.byID[i.ID] = i
	}
	return m
}

func (m *mockInstructors) GetByID(_ context.Context, id string) (instructor.Instructor, error) {
	i, ok := m.byID[id]
	if !ok {
		return instructor.Instructor{}, apperr.NotFound("instructor", id)
	}
	return i, nil
}

func (m *mockInstructors) Save(_ context.Context, i instructor.Instructor) error {
	m.byID[i.ID] = i
	return nil
}

// mockCustomers implements CustomerStore and VisitLedger.
type mockCustomers struct {
	byID   map[string]customer.Customer
	visits []visit.Visit
	getErr error
}

func newMockCustomers(cs ...customer.Customer) *mockCustomers {
	m := &mockCustomers{byID: map[string]customer.Customer{}}
	for _, c := range cs {
		m.byID[c.ID] = c
	}
	return m
}

func (m *mockCustomers) GetByID(_ context.Context, id string) (customer.Customer, error) {
	if m.getErr != nil {
		return customer.Customer{}, m.getErr
	}
	c, ok := m.byID[id]
	if !ok {
		return customer.Customer{}, apperr.NotFound("customer", id)
	}
	return c, nil
}

func (m *mockCustomers) Save(_ context.Context, c customer.Customer) error {
	m.byID[c.ID] = c
	return nil
}

func (m *mockCustomers) RecomputeAggregates(_ context.Context, id string) (customer.Customer, error) {
	c, ok := m.byID[id]
	if !ok {
		return customer.Customer{}, apperr.NotFound("customer", id)
	}
	c.TotalVisits, c.TotalSpent = 0, decimal.Zero
	for _, v := range m.visits {
		if v.CustomerID == id {
			c.TotalVisits++
			c.TotalSpent = c.TotalSpent.Add(v.TotalAmount)
		}
	}
	m.byID[id] = c
	return c, nil
}

func (m *mockCustomers) Append(ctx context.Context, v visit.Visit) (customer.Customer, error) {
	c, ok := m.byID[v.CustomerID]
	if !ok {
		return customer.Customer{}, apperr.NotFound("customer", v.CustomerID)
	}
	m.visits = append(m.visits, v)
	if v.Type == visit.TypeCampground {
		c.IsCampgroundGuest = true
		m.byID[c.ID] = c
	}
	c, err := m.RecomputeAggregates(ctx, v.CustomerID)
	return c, err
}

// mockOutbox implements OutboxStore.
type mockOutbox struct {
	mu          sync.Mutex
	entries     map[string]outbox.Entry
	order       []string
	beforeClaim func(m *mockOutbox) // runs unlocked, before the compare
}

func newMockOutbox(es ...outbox.Entry) *mockOutbox {
	m := &mockOutbox{entries: map[string]outbox.Entry{}}
	for _, e := range es {
		m.entries[e.ID] = e
		m.order = append(m.order, e.ID)
	}
	return m
}

func (m *mockOutbox) GetByID(_ context.Context, id string) (outbox.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return outbox.Entry{}, apperr.NotFound("outbox entry", id)
	}
	return e, nil
}

func (m *mockOutbox) Save(_ context.Context, e outbox.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[e.ID]; !ok {
		m.order = append(m.order, e.ID)
	}
	m.entries[e.ID] = e
	return nil
}

func (m *mockOutbox) Claim(_ context.Context, claimed outbox.Entry, prevStatus string, prevAttempts int) (bool, error) {
	if m.beforeClaim != nil {
		m.beforeClaim(m)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.entries[claimed.ID]
	if !ok || cur.Status != prevStatus || cur.Attempts != prevAttempts {
		return false, nil
	}
	cur.Status, cur.Attempts, cur.LastAttemptedAt = claimed.Status, claimed.Attempts, claimed.LastAttemptedAt
	m.entries[claimed.ID] = cur
	return true, nil
}

func (m *mockOutbox) ListPending(_ context.Context, limit int) ([]outbox.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []outbox.Entry
	for _, id := range m.order {
		e := m.entries[id]
		if e.Status == outbox.StatusPending || e.Status == outbox.StatusRetrying || e.Status == outbox.StatusProcessing {
			out = append(out, e)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// stubExecutor returns err for the first failures calls, then succeeds.
type stubExecutor struct {
	failures int
	calls    int
	payloads []string
}

func (s *stubExecutor) Execute(_ context.Context, payload string) (string, error) {
	s.calls++
	s.payloads = append(s.payloads, payload)
	if s.calls <= s.failures {
		return "", errors.New("provider unavailable")
	}
	return "ok", nil
}

// scheduledLesson returns a lesson starting 2026-07-12 09:30 UTC (49.5h after testTime).
func scheduledLesson(id string, capacity int) lesson.Lesson {
	return lesson.Lesson{
		ID:              id,
		Type:            lesson.TypeGroup,
		InstructorName:  "Kai",
		MaxParticipants: capacity,
		Date:            "2026-07-12",
		Time:            "09:30",
		Location:        "North Beach",
		Price:           decimal.RequireFromString("75.00"),
		Status:          lesson.StatusScheduled,
		CreatedAt:       testTime,
		UpdatedAt:       testTime,
		Version:         1,
	}
}
