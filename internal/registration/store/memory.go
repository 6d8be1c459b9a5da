package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Dibyendu78/Brain-O-Math/internal/domain"
	"github.com/Dibyendu78/Brain-O-Math/internal/registration/models"
	"github.com/Dibyendu78/Brain-O-Math/pkg/sentinel"
)

// InMemoryRegistrations is the development and test implementation. All
// reads hand out clones so callers never alias stored state.
type InMemoryRegistrations struct {
	mu            sync.RWMutex
	byID          map[string]*models.Registration
	byCoordinator map[string]string
	byPublicID    map[string]string
}

func NewInMemoryRegistrations() *InMemoryRegistrations {
	return &InMemoryRegistrations{
		byID:          make(map[string]*models.Registration),
		byCoordinator: make(map[string]string),
		byPublicID:    make(map[string]string),
	}
}

func cloneRegistration(r *models.Registration) *models.Registration {
	clone := *r
	clone.StudentIDs = append([]string{}, r.StudentIDs...)
	if r.PaymentDate != nil {
		date := *r.PaymentDate
		clone.PaymentDate = &date
	}
	return &clone
}

func (s *InMemoryRegistrations) Create(ctx context.Context, registration *models.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byPublicID[registration.PublicID]; exists {
		return sentinel.ErrConflict
	}
	if _, exists := s.byCoordinator[registration.CoordinatorID]; exists {
		return sentinel.ErrConflict
	}
	s.byID[registration.ID] = cloneRegistration(registration)
	s.byCoordinator[registration.CoordinatorID] = registration.ID
	s.byPublicID[registration.PublicID] = registration.ID
	return nil
}

func (s *InMemoryRegistrations) FindByID(ctx context.Context, id string) (*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	registration, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneRegistration(registration), nil
}

func (s *InMemoryRegistrations) FindByCoordinator(ctx context.Context, coordinatorID string) (*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byCoordinator[coordinatorID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneRegistration(s.byID[id]), nil
}

func (s *InMemoryRegistrations) FindByPublicID(ctx context.Context, publicID string) (*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byPublicID[publicID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneRegistration(s.byID[id]), nil
}

func (s *InMemoryRegistrations) FindByUTR(ctx context.Context, utr string) (*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, registration := range s.byID {
		if registration.UTR == utr {
			return cloneRegistration(registration), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryRegistrations) Execute(ctx context.Context, id string,
	validate func(*models.Registration) error,
	apply func(*models.Registration) error,
) (*models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	working := cloneRegistration(stored)
	if err := validate(working); err != nil {
		return nil, err
	}
	if err := apply(working); err != nil {
		return nil, err
	}
	s.byID[id] = working
	return cloneRegistration(working), nil
}

func (s *InMemoryRegistrations) List(ctx context.Context, filter RegistrationFilter) ([]*models.Registration, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*models.Registration, 0, len(s.byID))
	for _, registration := range s.byID {
		if filter.PaymentStatus != "" && registration.PaymentStatus != filter.PaymentStatus {
			continue
		}
		if filter.Approval != "" && registration.Approval != filter.Approval {
			continue
		}
		matched = append(matched, registration)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	start, end := pageBounds(filter.Page, filter.Limit, total)
	page := make([]*models.Registration, 0, end-start)
	for _, registration := range matched[start:end] {
		page = append(page, cloneRegistration(registration))
	}
	return page, total, nil
}

func (s *InMemoryRegistrations) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID), nil
}

func (s *InMemoryRegistrations) CountByPayment(ctx context.Context) (map[models.PaymentStatus]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[models.PaymentStatus]int)
	for _, registration := range s.byID {
		counts[registration.PaymentStatus]++
	}
	return counts, nil
}

func pageBounds(page, limit, total int) (int, int) {
	if limit <= 0 {
		return 0, total
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return start, end
}

// InMemoryStudents is the development and test student store.
type InMemoryStudents struct {
	mu   sync.RWMutex
	byID map[string]*models.Student
}

func NewInMemoryStudents() *InMemoryStudents {
	return &InMemoryStudents{byID: make(map[string]*models.Student)}
}

func cloneStudent(s *models.Student) *models.Student {
	clone := *s
	return &clone
}

func (s *InMemoryStudents) Create(ctx context.Context, student *models.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[student.ID]; exists {
		return sentinel.ErrConflict
	}
	s.byID[student.ID] = cloneStudent(student)
	return nil
}

func (s *InMemoryStudents) CreateBatch(ctx context.Context, students []*models.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, student := range students {
		if _, exists := s.byID[student.ID]; exists {
			return sentinel.ErrConflict
		}
	}
	for _, student := range students {
		s.byID[student.ID] = cloneStudent(student)
	}
	return nil
}

func (s *InMemoryStudents) FindByID(ctx context.Context, id string) (*models.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	student, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneStudent(student), nil
}

func (s *InMemoryStudents) FindByIDs(ctx context.Context, ids []string) ([]*models.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	students := make([]*models.Student, 0, len(ids))
	for _, id := range ids {
		if student, ok := s.byID[id]; ok {
			students = append(students, cloneStudent(student))
		}
	}
	return students, nil
}

func (s *InMemoryStudents) Update(ctx context.Context, student *models.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[student.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.byID[student.ID] = cloneStudent(student)
	return nil
}

func (s *InMemoryStudents) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.byID, id)
	return nil
}

func (s *InMemoryStudents) UpdateStatusByRegistration(ctx context.Context, registrationID string, status models.StudentStatus, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, student := range s.byID {
		if student.RegistrationID == registrationID {
			student.Status = status
			student.UpdatedAt = now
		}
	}
	return nil
}

func (s *InMemoryStudents) List(ctx context.Context, filter StudentFilter) ([]*models.Student, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*models.Student, 0, len(s.byID))
	for _, student := range s.byID {
		if filter.RegistrationID != "" && student.RegistrationID != filter.RegistrationID {
			continue
		}
		if filter.Status != "" && student.Status != filter.Status {
			continue
		}
		if filter.Category != "" && string(student.Category) != filter.Category {
			continue
		}
		if filter.Grade != 0 && student.Grade != filter.Grade {
			continue
		}
		matched = append(matched, student)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].PublicID < matched[j].PublicID
	})

	total := len(matched)
	start, end := pageBounds(filter.Page, filter.Limit, total)
	page := make([]*models.Student, 0, end-start)
	for _, student := range matched[start:end] {
		page = append(page, cloneStudent(student))
	}
	return page, total, nil
}

func (s *InMemoryStudents) MaxSequence(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var max int64
	for _, student := range s.byID {
		if n, ok := domain.ParseStudentID(student.PublicID); ok && n > max {
			max = n
		}
	}
	return max, nil
}

func (s *InMemoryStudents) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID), nil
}
