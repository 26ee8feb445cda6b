package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/EmilyMartinsDev/Coachpro-app-sub000/internal/domain"
	"github.com/EmilyMartinsDev/Coachpro-app-sub000/internal/repository"
	"github.com/EmilyMartinsDev/Coachpro-app-sub000/pkg/logger"
	"github.com/google/uuid"
)

// StudentService интерфейс сервиса для работы с учениками
type StudentService interface {
	Create(ctx context.Context, coachID uuid.UUID, name, email string) (*domain.Student, error)
	GetByID(ctx context.Context, scope Scope, id uuid.UUID) (*domain.Student, error)
	List(ctx context.Context, coachID uuid.UUID, search string) ([]domain.Student, error)
}

type studentService struct {
	repo repository.StudentRepository
	now  func() time.Time
	log  *logger.Logger
}

// NewStudentService создает новый сервис для работы с учениками
func NewStudentService(repo repository.StudentRepository, log *logger.Logger) StudentService {
	return &studentService{
		repo: repo,
		now:  time.Now,
		log:  log,
	}
}

func (s *studentService) Create(ctx context.Context, coachID uuid.UUID, name, email string) (*domain.Student, error) {
	s.log.Debug("Creating student with email: %s", email)

	errs := domain.ValidationErrors{}
	if strings.TrimSpace(name) == "" {
		errs.Add("name", "is required")
	}
	if strings.TrimSpace(email) == "" {
		errs.Add("email", "is required")
	}
	if errs.HasErrors() {
		return nil, errs.AsLifecycleError()
	}

	student := domain.NewStudent(coachID, name, email, s.now())
	if err := s.repo.Create(ctx, student); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			s.log.Warn("Student email already registered: %s", student.Email)
			return nil, domain.NewError(domain.KindValidation, student.Email, "email is already registered")
		}
		return nil, fmt.Errorf("failed to create student: %w", err)
	}

	s.log.Infow("Student created", "studentID", student.ID, "coachID", coachID)
	return student, nil
}

func (s *studentService) GetByID(ctx context.Context, scope Scope, id uuid.UUID) (*domain.Student, error) {
	s.log.Debug("Getting student by ID: %s", id)

	student, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, translateNotFound(err, domain.KindStudentNotFound, id, "student not found")
	}
	if scope.CoachID != uuid.Nil && student.CoachID != scope.CoachID {
		return nil, domain.NewError(domain.KindForbidden, id.String(), "student belongs to another coach")
	}
	if scope.StudentID != uuid.Nil && student.ID != scope.StudentID {
		return nil, domain.NewError(domain.KindForbidden, id.String(), "access denied")
	}
	return student, nil
}

func (s *studentService) List(ctx context.Context, coachID uuid.UUID, search string) ([]domain.Student, error) {
	s.log.Debug("Listing students for coach: %s", coachID)
	return s.repo.ListByCoach(ctx, coachID, strings.TrimSpace(search))
}
