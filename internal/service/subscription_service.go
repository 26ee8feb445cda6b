package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/EmilyMartinsDev/Coachpro-app-sub000/internal/domain"
	"github.com/EmilyMartinsDev/Coachpro-app-sub000/internal/repository"
	"github.com/EmilyMartinsDev/Coachpro-app-sub000/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SubscriptionView подписка вместе с графиком парцел и историей чеков
type SubscriptionView struct {
	domain.Subscription
	InstallmentAmount decimal.Decimal       `json:"installment_amount"`
	Installments      []domain.Installment  `json:"installments"`
	Proofs            []domain.PaymentProof `json:"proofs"`
}

// Scope ограничивает операцию данными одного тренера или ученика.
// Пустой Scope - без ограничений.
type Scope struct {
	CoachID   uuid.UUID
	StudentID uuid.UUID
}

// CreateSubscriptionInput параметры новой подписки
type CreateSubscriptionInput struct {
	StudentID         uuid.UUID
	InstallmentPlanID uuid.UUID
	StartDate         time.Time
}

// LifecycleService оркестратор жизненного цикла подписок.
// Единственный компонент, который записывает Subscription.Status.
// Все мутации одной подписки выполняются под ее мьютексом.
type LifecycleService struct {
	subs     repository.SubscriptionRepository
	plans    repository.PlanRepository
	students repository.StudentRepository
	ledger   *ProofLedger
	locks    *subscriptionLocks
	events   EventPublisher
	metrics  LifecycleMetrics
	now      func() time.Time
	log      *logger.Logger
}

// Option настройка LifecycleService
type Option func(*LifecycleService)

// WithClock подменяет источник времени
func WithClock(now func() time.Time) Option {
	return func(s *LifecycleService) { s.now = now }
}

// WithPublisher задает публикатор событий
func WithPublisher(p EventPublisher) Option {
	return func(s *LifecycleService) { s.events = p }
}

// WithMetrics задает счетчики
func WithMetrics(m LifecycleMetrics) Option {
	return func(s *LifecycleService) { s.metrics = m }
}

// NewLifecycleService создает оркестратор поверх набора репозиториев
func NewLifecycleService(store *repository.Store, log *logger.Logger, opts ...Option) *LifecycleService {
	s := &LifecycleService{
		subs:     store.Subscriptions,
		plans:    store.Plans,
		students: store.Students,
		ledger:   NewProofLedger(store.Proofs, log),
		locks:    newSubscriptionLocks(),
		events:   NoopPublisher{},
		metrics:  noopMetrics{},
		now:      time.Now,
		log:      log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSubscription записывает ученика в вариант рассрочки с нулевым прогрессом
func (s *LifecycleService) CreateSubscription(ctx context.Context, scope Scope, in CreateSubscriptionInput) (*SubscriptionView, error) {
	s.log.Debug("Creating subscription for student: %s, installment plan: %s", in.StudentID, in.InstallmentPlanID)

	student, err := s.students.GetByID(ctx, in.StudentID)
	if err != nil {
		return nil, s.fail(translateNotFound(err, domain.KindStudentNotFound, in.StudentID, "student not found"))
	}
	if scope.CoachID != uuid.Nil && student.CoachID != scope.CoachID {
		return nil, s.fail(domain.NewError(domain.KindForbidden, in.StudentID.String(), "student belongs to another coach"))
	}

	ip, err := s.plans.GetInstallmentPlan(ctx, in.InstallmentPlanID)
	if err != nil {
		return nil, s.fail(translateNotFound(err, domain.KindInstallmentPlanNotFound, in.InstallmentPlanID, "installment plan not found"))
	}
	if ip.InstallmentCount <= 0 {
		return nil, s.fail(domain.NewError(domain.KindInvalidSchedule, ip.ID.String(), "installment plan has no installments"))
	}

	plan, err := s.plans.GetByID(ctx, ip.PlanID)
	if err != nil {
		return nil, s.fail(translateNotFound(err, domain.KindPlanNotFound, ip.PlanID, "plan not found"))
	}
	if scope.CoachID != uuid.Nil && plan.CoachID != scope.CoachID {
		return nil, s.fail(domain.NewError(domain.KindForbidden, plan.ID.String(), "plan belongs to another coach"))
	}

	now := s.now()
	sub := domain.NewSubscription(student.ID, *ip, plan.DurationMonths, in.StartDate, now)
	status, err := domain.DeriveStatus(sub, nil, now)
	if err != nil {
		return nil, s.fail(err)
	}
	sub.Status = status

	if err := s.subs.Create(ctx, sub); err != nil {
		s.log.Errorw("Failed to create subscription", "error", err, "studentID", student.ID)
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}

	s.metrics.SubscriptionCreated()
	s.publish(ctx, domain.NewLifecycleEvent(domain.EventSubscriptionCreated, sub, "", now))
	s.log.Infow("Subscription created", "subscriptionID", sub.ID, "studentID", sub.StudentID, "status", sub.Status)

	return s.view(sub, ip.InstallmentAmount, nil, now)
}

// SubmitProof регистрирует чек ученика и пересчитывает статус
func (s *LifecycleService) SubmitProof(ctx context.Context, scope Scope, subscriptionID uuid.UUID, installmentIndex int, fileReference string) (*domain.PaymentProof, error) {
	var (
		proof  *domain.PaymentProof
		events []domain.LifecycleEvent
	)

	err := s.withLock(subscriptionID, func() error {
		sub, err := s.load(ctx, subscriptionID)
		if err != nil {
			return err
		}
		if err := s.authorize(ctx, scope, sub); err != nil {
			return err
		}
		if _, err := s.admissible(ctx, sub, installmentIndex); err != nil {
			return err
		}

		now := s.now()
		proof, err = s.ledger.RecordSubmission(ctx, sub, installmentIndex, fileReference, now)
		if err != nil {
			return err
		}

		previous := sub.Status
		if _, err := s.persist(ctx, sub, now); err != nil {
			return err
		}

		s.metrics.ProofSubmitted()
		events = append(events, domain.NewLifecycleEvent(domain.EventProofSubmitted, sub, previous, now).WithProof(proof))
		return nil
	})
	if err != nil {
		return nil, s.fail(err)
	}

	s.publishAll(ctx, events)
	s.log.Infow("Payment proof submitted", "proofID", proof.ID, "subscriptionID", subscriptionID, "installment", installmentIndex)
	return proof, nil
}

// CheckSubmission проверяет, примет ли SubmitProof чек по парцеле, ничего не записывая.
// Результат не гарантирован: между проверкой и отправкой состояние может измениться.
func (s *LifecycleService) CheckSubmission(ctx context.Context, scope Scope, subscriptionID uuid.UUID, installmentIndex int) error {
	err := s.withLock(subscriptionID, func() error {
		sub, err := s.load(ctx, subscriptionID)
		if err != nil {
			return err
		}
		if err := s.authorize(ctx, scope, sub); err != nil {
			return err
		}
		proofs, err := s.admissible(ctx, sub, installmentIndex)
		if err != nil {
			return err
		}
		if domain.HasPending(proofs) {
			return domain.NewError(domain.KindDuplicatePendingProof, sub.ID.String(), "a proof is already pending approval for this subscription")
		}
		return nil
	})
	if err != nil {
		return s.fail(err)
	}
	return nil
}

// admissible проверяет подписку и индекс парцелы перед записью чека
func (s *LifecycleService) admissible(ctx context.Context, sub *domain.Subscription, installmentIndex int) ([]domain.PaymentProof, error) {
	if sub.IsCancelled() {
		return nil, domain.NewError(domain.KindSubscriptionCancelled, sub.ID.String(), "subscription is cancelled")
	}
	proofs, err := s.ledger.Proofs(ctx, sub.ID)
	if err != nil {
		return nil, err
	}
	sub.SyncInstallmentIndex(proofs)
	if installmentIndex < 1 || installmentIndex > sub.InstallmentCount {
		return nil, domain.NewError(domain.KindInvalidSchedule, sub.ID.String(),
			fmt.Sprintf("installment index must be between 1 and %d, got %d", sub.InstallmentCount, installmentIndex))
	}
	if installmentIndex <= sub.CurrentInstallmentIndex {
		return nil, domain.NewError(domain.KindAlreadyDecided, sub.ID.String(),
			fmt.Sprintf("installment %d is already approved", installmentIndex))
	}
	return proofs, nil
}

// ApproveProof одобряет чек и продвигает подписку на одну парцелу
func (s *LifecycleService) ApproveProof(ctx context.Context, scope Scope, proofID uuid.UUID) (*SubscriptionView, error) {
	return s.decide(ctx, scope, proofID, domain.DecisionApproved, domain.EventProofApproved)
}

// RejectProof отклоняет чек. Чек остается в истории, прогресс не меняется.
func (s *LifecycleService) RejectProof(ctx context.Context, scope Scope, proofID uuid.UUID) (*SubscriptionView, error) {
	return s.decide(ctx, scope, proofID, domain.DecisionRejected, domain.EventProofRejected)
}

func (s *LifecycleService) decide(ctx context.Context, scope Scope, proofID uuid.UUID, decision domain.Decision, eventType domain.LifecycleEventType) (*SubscriptionView, error) {
	// чек нужен до блокировки, чтобы узнать подписку; под блокировкой он перечитывается в ledger
	subscriptionID, err := s.ledger.SubscriptionOf(ctx, proofID)
	if err != nil {
		return nil, s.fail(err)
	}

	var (
		view   *SubscriptionView
		events []domain.LifecycleEvent
	)
	err = s.withLock(subscriptionID, func() error {
		sub, err := s.load(ctx, subscriptionID)
		if err != nil {
			return err
		}
		if err := s.authorize(ctx, scope, sub); err != nil {
			return err
		}
		if sub.IsCancelled() {
			return domain.NewError(domain.KindSubscriptionCancelled, sub.ID.String(), "subscription is cancelled")
		}
		if err := s.reconcile(ctx, sub); err != nil {
			return err
		}

		now := s.now()
		proof, err := s.ledger.Decide(ctx, sub, proofID, decision, now)
		if err != nil {
			return err
		}

		previous := sub.Status
		proofs, err := s.persist(ctx, sub, now)
		if err != nil {
			return err
		}

		s.metrics.ProofDecided(decision)
		events = append(events, domain.NewLifecycleEvent(eventType, sub, previous, now).WithProof(proof))

		view, err = s.viewWithAmount(ctx, sub, proofs, now)
		return err
	})
	if err != nil {
		return nil, s.fail(err)
	}

	s.publishAll(ctx, events)
	s.log.Infow("Payment proof decided", "proofID", proofID, "decision", decision, "subscriptionID", subscriptionID, "status", view.Status)
	return view, nil
}

// Cancel переводит подписку в CANCELADA. Переходов из CANCELADA нет.
func (s *LifecycleService) Cancel(ctx context.Context, scope Scope, subscriptionID uuid.UUID) (*SubscriptionView, error) {
	var (
		view   *SubscriptionView
		events []domain.LifecycleEvent
	)

	err := s.withLock(subscriptionID, func() error {
		sub, err := s.load(ctx, subscriptionID)
		if err != nil {
			return err
		}
		if err := s.authorize(ctx, scope, sub); err != nil {
			return err
		}
		if sub.IsCancelled() {
			return domain.NewError(domain.KindSubscriptionCancelled, sub.ID.String(), "subscription is already cancelled")
		}

		now := s.now()
		cancelledAt := now
		sub.CancelledAt = &cancelledAt

		previous := sub.Status
		proofs, err := s.persist(ctx, sub, now)
		if err != nil {
			return err
		}
		events = append(events, domain.NewLifecycleEvent(domain.EventSubscriptionCancelled, sub, previous, now))

		view, err = s.viewWithAmount(ctx, sub, proofs, now)
		return err
	})
	if err != nil {
		return nil, s.fail(err)
	}

	s.publishAll(ctx, events)
	s.log.Infow("Subscription cancelled", "subscriptionID", subscriptionID)
	return view, nil
}

// GetSubscription возвращает подписку со свежевычисленным статусом.
// Если сохраненный статус устарел, он перезаписывается.
func (s *LifecycleService) GetSubscription(ctx context.Context, scope Scope, subscriptionID uuid.UUID) (*SubscriptionView, error) {
	var (
		view   *SubscriptionView
		events []domain.LifecycleEvent
	)

	err := s.withLock(subscriptionID, func() error {
		sub, err := s.load(ctx, subscriptionID)
		if err != nil {
			return err
		}
		if err := s.authorize(ctx, scope, sub); err != nil {
			return err
		}

		now := s.now()
		proofs, event, err := s.refresh(ctx, sub, now)
		if err != nil {
			return err
		}
		if event != nil {
			events = append(events, *event)
		}

		view, err = s.viewWithAmount(ctx, sub, proofs, now)
		return err
	})
	if err != nil {
		return nil, s.fail(err)
	}

	s.publishAll(ctx, events)
	return view, nil
}

// ListSubscriptions возвращает страницу подписок со свежевычисленными статусами
func (s *LifecycleService) ListSubscriptions(ctx context.Context, scope Scope, filter domain.SubscriptionFilter) ([]SubscriptionView, int, error) {
	if scope.CoachID != uuid.Nil {
		filter.CoachID = scope.CoachID
	}
	if scope.StudentID != uuid.Nil {
		filter.StudentID = scope.StudentID
	}
	filter = filter.Normalize()

	// фильтр по статусу работает по сохраненному значению, поэтому сначала
	// приводим сохраненные статусы в соответствие с текущим временем
	if filter.Status != "" {
		if err := s.refreshAll(ctx, filter); err != nil {
			return nil, 0, err
		}
	}

	subs, total, err := s.subs.List(ctx, filter)
	if err != nil {
		s.log.Errorw("Failed to list subscriptions", "error", err)
		return nil, 0, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	views := make([]SubscriptionView, 0, len(subs))
	for i := range subs {
		view, err := s.GetSubscription(ctx, Scope{}, subs[i].ID)
		if err != nil {
			if errors.Is(err, domain.ErrSubscriptionNotFound) {
				total--
				continue
			}
			return nil, 0, err
		}
		if filter.Status != "" && view.Status != filter.Status {
			total--
			continue
		}
		views = append(views, *view)
	}

	return views, total, nil
}

// ListProofs возвращает историю чеков подписки
func (s *LifecycleService) ListProofs(ctx context.Context, scope Scope, subscriptionID uuid.UUID) ([]domain.PaymentProof, error) {
	sub, err := s.load(ctx, subscriptionID)
	if err != nil {
		return nil, s.fail(err)
	}
	if err := s.authorize(ctx, scope, sub); err != nil {
		return nil, s.fail(err)
	}
	return s.ledger.Proofs(ctx, sub.ID)
}

// refreshAll пересчитывает статусы всех подписок под фильтром без учета статуса
func (s *LifecycleService) refreshAll(ctx context.Context, filter domain.SubscriptionFilter) error {
	scan := filter
	scan.Status = ""
	scan.PageSize = domain.MaxPageSize

	for page := 1; ; page++ {
		scan.Page = page
		subs, total, err := s.subs.List(ctx, scan)
		if err != nil {
			return fmt.Errorf("failed to scan subscriptions: %w", err)
		}
		for i := range subs {
			if _, err := s.GetSubscription(ctx, Scope{}, subs[i].ID); err != nil && !errors.Is(err, domain.ErrSubscriptionNotFound) {
				return err
			}
		}
		if scan.Offset()+len(subs) >= total || len(subs) == 0 {
			return nil
		}
	}
}

// refresh пересчитывает статус и индекс парцелы и сохраняет подписку, если что-то изменилось
func (s *LifecycleService) refresh(ctx context.Context, sub *domain.Subscription, now time.Time) ([]domain.PaymentProof, *domain.LifecycleEvent, error) {
	proofs, err := s.ledger.Proofs(ctx, sub.ID)
	if err != nil {
		return nil, nil, err
	}

	healed := sub.SyncInstallmentIndex(proofs)
	status, err := domain.DeriveStatus(sub, proofs, now)
	if err != nil {
		return nil, nil, err
	}
	if status == sub.Status && !healed {
		return proofs, nil, nil
	}

	previous := sub.Status
	sub.Status = status
	sub.UpdatedAt = now
	if err := s.subs.Update(ctx, sub); err != nil {
		return nil, nil, fmt.Errorf("failed to persist subscription status: %w", err)
	}
	if healed {
		s.log.Warnw("Installment index restored from ledger", "subscriptionID", sub.ID, "currentInstallment", sub.CurrentInstallmentIndex)
	}
	if status == previous {
		return proofs, nil, nil
	}
	s.metrics.StatusTransition(previous, status)
	s.log.Infow("Subscription status refreshed", "subscriptionID", sub.ID, "from", previous, "to", status)

	event := domain.NewLifecycleEvent(domain.EventSubscriptionStatusChanged, sub, previous, now)
	return proofs, &event, nil
}

// persist пересчитывает статус после мутации и сохраняет подписку
func (s *LifecycleService) persist(ctx context.Context, sub *domain.Subscription, now time.Time) ([]domain.PaymentProof, error) {
	proofs, err := s.ledger.Proofs(ctx, sub.ID)
	if err != nil {
		return nil, err
	}

	sub.SyncInstallmentIndex(proofs)
	status, err := domain.DeriveStatus(sub, proofs, now)
	if err != nil {
		return nil, err
	}

	previous := sub.Status
	sub.Status = status
	sub.UpdatedAt = now
	if err := s.subs.Update(ctx, sub); err != nil {
		s.log.Errorw("Failed to persist subscription", "error", err, "subscriptionID", sub.ID)
		return nil, fmt.Errorf("failed to persist subscription: %w", err)
	}
	if previous != status {
		s.metrics.StatusTransition(previous, status)
	}
	return proofs, nil
}

// reconcile подтягивает CurrentInstallmentIndex к журналу чеков в памяти.
// Сохраняет его последующий persist.
func (s *LifecycleService) reconcile(ctx context.Context, sub *domain.Subscription) error {
	proofs, err := s.ledger.Proofs(ctx, sub.ID)
	if err != nil {
		return err
	}
	sub.SyncInstallmentIndex(proofs)
	return nil
}

func (s *LifecycleService) load(ctx context.Context, id uuid.UUID) (*domain.Subscription, error) {
	sub, err := s.subs.GetByID(ctx, id)
	if err != nil {
		return nil, translateNotFound(err, domain.KindSubscriptionNotFound, id, "subscription not found")
	}
	return sub, nil
}

func (s *LifecycleService) authorize(ctx context.Context, scope Scope, sub *domain.Subscription) error {
	if scope.StudentID != uuid.Nil && sub.StudentID != scope.StudentID {
		return domain.NewError(domain.KindForbidden, sub.ID.String(), "subscription belongs to another student")
	}
	if scope.CoachID != uuid.Nil {
		student, err := s.students.GetByID(ctx, sub.StudentID)
		if err != nil {
			return translateNotFound(err, domain.KindStudentNotFound, sub.StudentID, "student not found")
		}
		if student.CoachID != scope.CoachID {
			return domain.NewError(domain.KindForbidden, sub.ID.String(), "subscription belongs to another coach")
		}
	}
	return nil
}

func (s *LifecycleService) viewWithAmount(ctx context.Context, sub *domain.Subscription, proofs []domain.PaymentProof, now time.Time) (*SubscriptionView, error) {
	amount := decimal.Zero
	ip, err := s.plans.GetInstallmentPlan(ctx, sub.InstallmentPlanID)
	switch {
	case err == nil:
		amount = ip.InstallmentAmount
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("failed to load installment plan: %w", err)
	}
	return s.view(sub, amount, proofs, now)
}

func (s *LifecycleService) view(sub *domain.Subscription, amount decimal.Decimal, proofs []domain.PaymentProof, now time.Time) (*SubscriptionView, error) {
	schedule, err := domain.BuildSchedule(sub, amount, proofs, now)
	if err != nil {
		return nil, err
	}
	if proofs == nil {
		proofs = []domain.PaymentProof{}
	}
	return &SubscriptionView{
		Subscription:      *sub,
		InstallmentAmount: amount,
		Installments:      schedule,
		Proofs:            proofs,
	}, nil
}

// ActiveLocks количество подписок, по которым сейчас идет или ждет операция
func (s *LifecycleService) ActiveLocks() int {
	return s.locks.size()
}

func (s *LifecycleService) withLock(subscriptionID uuid.UUID, fn func() error) error {
	unlock := s.locks.Lock(subscriptionID)
	defer unlock()
	return fn()
}

// publishAll публикует события после снятия блокировки; ошибки только логируются
func (s *LifecycleService) publishAll(ctx context.Context, events []domain.LifecycleEvent) {
	for _, event := range events {
		s.publish(ctx, event)
	}
}

func (s *LifecycleService) publish(ctx context.Context, event domain.LifecycleEvent) {
	if err := s.events.Publish(ctx, event); err != nil {
		s.log.Warnw("Failed to publish lifecycle event", "error", err, "type", event.Type, "subscriptionID", event.SubscriptionID)
	}
}

// fail учитывает ошибку предметной области в метриках
func (s *LifecycleService) fail(err error) error {
	if kind, ok := domain.KindOf(err); ok {
		s.metrics.LifecycleError(kind)
		s.log.Debugw("Lifecycle operation rejected", "kind", kind, "error", err)
	}
	return err
}

// translateNotFound переводит repository.ErrNotFound в ошибку нужного типа
func translateNotFound(err error, kind domain.ErrorKind, id uuid.UUID, message string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return domain.NewError(kind, id.String(), message)
	}
	return err
}
