package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Student (aluno) ученик тренера
type Student struct {
	ID        uuid.UUID `db:"id" json:"id"`
	CoachID   uuid.UUID `db:"coach_id" json:"coach_id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// NewStudent создает ученика с нормализованным email
func NewStudent(coachID uuid.UUID, name, email string, now time.Time) *Student {
	return &Student{
		ID:        uuid.New(),
		CoachID:   coachID,
		Name:      strings.TrimSpace(name),
		Email:     strings.ToLower(strings.TrimSpace(email)),
		CreatedAt: now,
	}
}

// Matches проверяет совпадение со строкой поиска по имени или email
func (s *Student) Matches(search string) bool {
	if search == "" {
		return true
	}
	q := strings.ToLower(search)
	return strings.Contains(strings.ToLower(s.Name), q) || strings.Contains(s.Email, q)
}
