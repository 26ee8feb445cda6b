package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/EmilyMartinsDev/Coachpro-app-sub000/internal/domain"
	"github.com/EmilyMartinsDev/Coachpro-app-sub000/pkg/logger"
	"github.com/google/uuid"
)

// memoryDB общее состояние in-memory хранилища.
// Репозитории ссылаются друг на друга (поиск по ученику, подсчет подписок плана),
// поэтому все таблицы живут под одним мьютексом.
type memoryDB struct {
	mutex            sync.RWMutex
	subscriptions    map[uuid.UUID]domain.Subscription
	proofs           map[uuid.UUID]domain.PaymentProof
	plans            map[uuid.UUID]domain.Plan
	installmentPlans map[uuid.UUID]domain.InstallmentPlan
	students         map[uuid.UUID]domain.Student
}

// NewInMemoryStore создает хранилище в памяти. Используется в тестах и при database.driver=memory.
func NewInMemoryStore(log *logger.Logger) *Store {
	db := &memoryDB{
		subscriptions:    make(map[uuid.UUID]domain.Subscription),
		proofs:           make(map[uuid.UUID]domain.PaymentProof),
		plans:            make(map[uuid.UUID]domain.Plan),
		installmentPlans: make(map[uuid.UUID]domain.InstallmentPlan),
		students:         make(map[uuid.UUID]domain.Student),
	}
	log.Debug("Using in-memory store")
	return &Store{
		Subscriptions: &InMemorySubscriptionRepository{db: db, log: log},
		Proofs:        &InMemoryProofRepository{db: db, log: log},
		Plans:         &InMemoryPlanRepository{db: db, log: log},
		Students:      &InMemoryStudentRepository{db: db, log: log},
	}
}

// InMemorySubscriptionRepository реализация репозитория подписок в памяти
type InMemorySubscriptionRepository struct {
	db  *memoryDB
	log *logger.Logger
}

// Create создает новую подписку
func (r *InMemorySubscriptionRepository) Create(ctx context.Context, sub *domain.Subscription) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	if _, exists := r.db.subscriptions[sub.ID]; exists {
		return ErrDuplicate
	}
	if _, exists := r.db.installmentPlans[sub.InstallmentPlanID]; !exists {
		return ErrInvalidData
	}
	if _, exists := r.db.students[sub.StudentID]; !exists {
		return ErrInvalidData
	}

	r.db.subscriptions[sub.ID] = *sub
	r.log.Debugw("Subscription created", "subscriptionID", sub.ID)
	return nil
}

// GetByID возвращает подписку по ID
func (r *InMemorySubscriptionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Subscription, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	sub, exists := r.db.subscriptions[id]
	if !exists {
		return nil, ErrNotFound
	}
	return &sub, nil
}

// Update обновляет существующую подписку
func (r *InMemorySubscriptionRepository) Update(ctx context.Context, sub *domain.Subscription) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	existing, exists := r.db.subscriptions[sub.ID]
	if !exists {
		return ErrNotFound
	}

	existing.Status = sub.Status
	existing.CurrentInstallmentIndex = sub.CurrentInstallmentIndex
	existing.CancelledAt = sub.CancelledAt
	existing.UpdatedAt = sub.UpdatedAt
	r.db.subscriptions[sub.ID] = existing
	return nil
}

// List возвращает страницу подписок, новые первыми
func (r *InMemorySubscriptionRepository) List(ctx context.Context, filter domain.SubscriptionFilter) ([]domain.Subscription, int, error) {
	filter = filter.Normalize()

	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	matched := make([]domain.Subscription, 0)
	for _, sub := range r.db.subscriptions {
		if filter.Status != "" && sub.Status != filter.Status {
			continue
		}
		if filter.StudentID != uuid.Nil && sub.StudentID != filter.StudentID {
			continue
		}
		if filter.CoachID != uuid.Nil || filter.Search != "" {
			student, ok := r.db.students[sub.StudentID]
			if !ok || !student.Matches(filter.Search) {
				continue
			}
			if filter.CoachID != uuid.Nil && student.CoachID != filter.CoachID {
				continue
			}
		}
		matched = append(matched, sub)
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID.String() < matched[j].ID.String()
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	start := filter.Offset()
	if start >= total {
		return []domain.Subscription{}, total, nil
	}
	end := start + filter.PageSize
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

// CountByPlan считает подписки на варианты рассрочки плана
func (r *InMemorySubscriptionRepository) CountByPlan(ctx context.Context, planID uuid.UUID) (int, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	count := 0
	for _, sub := range r.db.subscriptions {
		if ip, ok := r.db.installmentPlans[sub.InstallmentPlanID]; ok && ip.PlanID == planID {
			count++
		}
	}
	return count, nil
}

// InMemoryProofRepository реализация репозитория чеков в памяти
type InMemoryProofRepository struct {
	db  *memoryDB
	log *logger.Logger
}

// Create сохраняет чек, не допуская второго PENDING на подписку
func (r *InMemoryProofRepository) Create(ctx context.Context, proof *domain.PaymentProof) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	if _, exists := r.db.subscriptions[proof.SubscriptionID]; !exists {
		return ErrInvalidData
	}
	if proof.IsPending() {
		for _, p := range r.db.proofs {
			if p.SubscriptionID == proof.SubscriptionID && p.IsPending() {
				return ErrDuplicate
			}
		}
	}

	r.db.proofs[proof.ID] = *proof
	r.log.Debugw("Payment proof created", "proofID", proof.ID, "subscriptionID", proof.SubscriptionID)
	return nil
}

// GetByID возвращает чек по ID
func (r *InMemoryProofRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.PaymentProof, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	proof, exists := r.db.proofs[id]
	if !exists {
		return nil, ErrNotFound
	}
	return &proof, nil
}

// Update сохраняет решение по чеку
func (r *InMemoryProofRepository) Update(ctx context.Context, proof *domain.PaymentProof) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	existing, exists := r.db.proofs[proof.ID]
	if !exists {
		return ErrNotFound
	}
	existing.Decision = proof.Decision
	existing.DecidedAt = proof.DecidedAt
	r.db.proofs[proof.ID] = existing
	return nil
}

// ListBySubscription возвращает историю чеков подписки
func (r *InMemoryProofRepository) ListBySubscription(ctx context.Context, subscriptionID uuid.UUID) ([]domain.PaymentProof, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	proofs := make([]domain.PaymentProof, 0)
	for _, p := range r.db.proofs {
		if p.SubscriptionID == subscriptionID {
			proofs = append(proofs, p)
		}
	}
	sortProofs(proofs)
	return proofs, nil
}

// sortProofs упорядочивает по индексу парцелы, затем по времени отправки
func sortProofs(proofs []domain.PaymentProof) {
	sort.SliceStable(proofs, func(i, j int) bool {
		if proofs[i].InstallmentIndex != proofs[j].InstallmentIndex {
			return proofs[i].InstallmentIndex < proofs[j].InstallmentIndex
		}
		a, b := proofs[i].SubmittedAt, proofs[j].SubmittedAt
		if a == nil || b == nil {
			return a == nil && b != nil
		}
		return a.Before(*b)
	})
}

// InMemoryPlanRepository реализация репозитория планов в памяти
type InMemoryPlanRepository struct {
	db  *memoryDB
	log *logger.Logger
}

// Create сохраняет план вместе с вариантами рассрочки
func (r *InMemoryPlanRepository) Create(ctx context.Context, plan *domain.Plan) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	if _, exists := r.db.plans[plan.ID]; exists {
		return ErrDuplicate
	}

	stored := *plan
	stored.InstallmentPlans = append([]domain.InstallmentPlan(nil), plan.InstallmentPlans...)
	r.db.plans[plan.ID] = stored
	for _, ip := range stored.InstallmentPlans {
		r.db.installmentPlans[ip.ID] = ip
	}
	r.log.Debugw("Plan created", "planID", plan.ID, "installmentPlans", len(stored.InstallmentPlans))
	return nil
}

// GetByID возвращает план с вариантами рассрочки
func (r *InMemoryPlanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Plan, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	plan, exists := r.db.plans[id]
	if !exists {
		return nil, ErrNotFound
	}
	plan.InstallmentPlans = append([]domain.InstallmentPlan(nil), plan.InstallmentPlans...)
	return &plan, nil
}

// GetInstallmentPlan возвращает вариант рассрочки по ID
func (r *InMemoryPlanRepository) GetInstallmentPlan(ctx context.Context, id uuid.UUID) (*domain.InstallmentPlan, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	ip, exists := r.db.installmentPlans[id]
	if !exists {
		return nil, ErrNotFound
	}
	return &ip, nil
}

// ListByCoach возвращает планы тренера, новые первыми
func (r *InMemoryPlanRepository) ListByCoach(ctx context.Context, coachID uuid.UUID) ([]domain.Plan, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	plans := make([]domain.Plan, 0)
	for _, plan := range r.db.plans {
		if plan.CoachID == coachID {
			plan.InstallmentPlans = append([]domain.InstallmentPlan(nil), plan.InstallmentPlans...)
			plans = append(plans, plan)
		}
	}
	sort.Slice(plans, func(i, j int) bool {
		return plans[i].CreatedAt.After(plans[j].CreatedAt)
	})
	return plans, nil
}

// Delete удаляет план и его варианты рассрочки
func (r *InMemoryPlanRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	plan, exists := r.db.plans[id]
	if !exists {
		return ErrNotFound
	}
	for _, ip := range plan.InstallmentPlans {
		delete(r.db.installmentPlans, ip.ID)
	}
	delete(r.db.plans, id)
	return nil
}

// InMemoryStudentRepository реализация репозитория учеников в памяти
type InMemoryStudentRepository struct {
	db  *memoryDB
	log *logger.Logger
}

// Create сохраняет ученика с уникальным email
func (r *InMemoryStudentRepository) Create(ctx context.Context, student *domain.Student) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	for _, s := range r.db.students {
		if s.Email == student.Email {
			return ErrDuplicate
		}
	}
	r.db.students[student.ID] = *student
	return nil
}

// GetByID возвращает ученика по ID
func (r *InMemoryStudentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Student, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	student, exists := r.db.students[id]
	if !exists {
		return nil, ErrNotFound
	}
	return &student, nil
}

// ListByCoach возвращает учеников тренера по имени
func (r *InMemoryStudentRepository) ListByCoach(ctx context.Context, coachID uuid.UUID, search string) ([]domain.Student, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	students := make([]domain.Student, 0)
	for _, s := range r.db.students {
		if s.CoachID == coachID && s.Matches(search) {
			students = append(students, s)
		}
	}
	sort.Slice(students, func(i, j int) bool {
		return students[i].Name < students[j].Name
	})
	return students, nil
}
