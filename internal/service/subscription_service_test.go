package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/EmilyMartinsDev/Coachpro-app-sub000/internal/domain"
	"github.com/EmilyMartinsDev/Coachpro-app-sub000/internal/repository"
	"github.com/EmilyMartinsDev/Coachpro-app-sub000/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.LifecycleEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event domain.LifecycleEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) types() []domain.LifecycleEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.LifecycleEventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type countingMetrics struct {
	noopMetrics
	mu     sync.Mutex
	errors map[domain.ErrorKind]int
}

func (m *countingMetrics) LifecycleError(kind domain.ErrorKind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[kind]++
}

type env struct {
	ctx       context.Context
	store     *repository.Store
	svc       *LifecycleService
	clock     *testClock
	events    *recordingPublisher
	metrics   *countingMetrics
	coachID   uuid.UUID
	studentID uuid.UUID
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 10, 0, 0, 0, time.UTC)
}

func newEnv(t *testing.T) *env {
	t.Helper()
	log := logger.NewNop()
	store := repository.NewInMemoryStore(log)
	clock := &testClock{t: day(2024, time.January, 1)}
	events := &recordingPublisher{}
	metrics := &countingMetrics{errors: make(map[domain.ErrorKind]int)}

	e := &env{
		ctx:     context.Background(),
		store:   store,
		clock:   clock,
		events:  events,
		metrics: metrics,
		coachID: uuid.New(),
		svc:     NewLifecycleService(store, log, WithClock(clock.Now), WithPublisher(events), WithMetrics(metrics)),
	}

	student, err := NewStudentService(store.Students, log).Create(e.ctx, e.coachID, "Bruno Lima", "bruno@example.com")
	if err != nil {
		t.Fatalf("create student: %v", err)
	}
	e.studentID = student.ID
	return e
}

// installmentPlan создает план на 12 месяцев с одним вариантом рассрочки
func (e *env) installmentPlan(t *testing.T, count int) uuid.UUID {
	t.Helper()
	plan, err := NewPlanService(e.store.Plans, e.store.Subscriptions, logger.NewNop()).Create(e.ctx, e.coachID, CreatePlanInput{
		Name:             "Consultoria",
		DurationMonths:   12,
		InstallmentPlans: []domain.InstallmentOption{{Amount: decimal.NewFromInt(200), Count: count}},
	})
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}
	return plan.InstallmentPlans[0].ID
}

func (e *env) subscribe(t *testing.T, count int) *SubscriptionView {
	t.Helper()
	view, err := e.svc.CreateSubscription(e.ctx, Scope{CoachID: e.coachID}, CreateSubscriptionInput{
		StudentID:         e.studentID,
		InstallmentPlanID: e.installmentPlan(t, count),
		StartDate:         day(2024, time.January, 1),
	})
	if err != nil {
		t.Fatalf("CreateSubscription: %v", err)
	}
	return view
}

func (e *env) submit(t *testing.T, subID uuid.UUID, idx int) *domain.PaymentProof {
	t.Helper()
	proof, err := e.svc.SubmitProof(e.ctx, Scope{StudentID: e.studentID}, subID, idx, "https://files.example.com/proof.pdf")
	if err != nil {
		t.Fatalf("SubmitProof(%d): %v", idx, err)
	}
	return proof
}

func (e *env) status(t *testing.T, subID uuid.UUID) *SubscriptionView {
	t.Helper()
	view, err := e.svc.GetSubscription(e.ctx, Scope{}, subID)
	if err != nil {
		t.Fatalf("GetSubscription: %v", err)
	}
	return view
}

func expectKind(t *testing.T, err error, want error) {
	t.Helper()
	if !errors.Is(err, want) {
		t.Fatalf("error = %v, want %v", err, want)
	}
}

func TestHappyPath(t *testing.T) {
	e := newEnv(t)

	sub := e.subscribe(t, 2)
	if sub.Status != domain.StatusPendente {
		t.Fatalf("initial status = %s, want PENDENTE", sub.Status)
	}
	if sub.CurrentInstallmentIndex != 0 {
		t.Fatalf("initial index = %d, want 0", sub.CurrentInstallmentIndex)
	}
	if !sub.EndDate.Equal(time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("end date = %s, want 2025-01-01", sub.EndDate)
	}

	p1 := e.submit(t, sub.ID, 1)
	if got := e.status(t, sub.ID).Status; got != domain.StatusPendenteAprovacao {
		t.Fatalf("after submit status = %s, want PENDENTE_APROVACAO", got)
	}
	if !p1.DueDate.Equal(time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("proof due date = %s, want 2024-01-01", p1.DueDate)
	}

	e.clock.Set(day(2024, time.February, 10))
	view, err := e.svc.ApproveProof(e.ctx, Scope{CoachID: e.coachID}, p1.ID)
	if err != nil {
		t.Fatalf("ApproveProof: %v", err)
	}
	if view.CurrentInstallmentIndex != 1 || view.Status != domain.StatusPendente {
		t.Fatalf("after first approval index=%d status=%s, want 1/PENDENTE", view.CurrentInstallmentIndex, view.Status)
	}
	if view.Installments[1].DueDate.Format(time.DateOnly) != "2024-07-01" {
		t.Errorf("second due date = %s, want 2024-07-01", view.Installments[1].DueDate.Format(time.DateOnly))
	}

	p2 := e.submit(t, sub.ID, 2)
	view, err = e.svc.ApproveProof(e.ctx, Scope{CoachID: e.coachID}, p2.ID)
	if err != nil {
		t.Fatalf("ApproveProof(2): %v", err)
	}
	if view.CurrentInstallmentIndex != 2 || view.Status != domain.StatusAtiva {
		t.Fatalf("after second approval index=%d status=%s, want 2/ATIVA", view.CurrentInstallmentIndex, view.Status)
	}

	want := []domain.LifecycleEventType{
		domain.EventSubscriptionCreated,
		domain.EventProofSubmitted,
		domain.EventProofApproved,
		domain.EventProofSubmitted,
		domain.EventProofApproved,
	}
	got := e.events.types()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestMissedPaymentIsPersistedOnRead(t *testing.T) {
	e := newEnv(t)
	sub := e.subscribe(t, 2)

	e.clock.Set(day(2024, time.January, 2))
	if got := e.status(t, sub.ID).Status; got != domain.StatusInativa {
		t.Fatalf("status = %s, want INATIVA", got)
	}

	stored, err := e.store.Subscriptions.GetByID(e.ctx, sub.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != domain.StatusInativa {
		t.Errorf("persisted status = %s, want INATIVA", stored.Status)
	}

	types := e.events.types()
	if types[len(types)-1] != domain.EventSubscriptionStatusChanged {
		t.Errorf("last event = %s, want %s", types[len(types)-1], domain.EventSubscriptionStatusChanged)
	}
}

func TestRejectionThenResubmission(t *testing.T) {
	e := newEnv(t)
	sub := e.subscribe(t, 2)

	first := e.submit(t, sub.ID, 1)
	view, err := e.svc.RejectProof(e.ctx, Scope{}, first.ID)
	if err != nil {
		t.Fatalf("RejectProof: %v", err)
	}
	if view.Status != domain.StatusPendente || view.CurrentInstallmentIndex != 0 {
		t.Fatalf("after rejection status=%s index=%d, want PENDENTE/0", view.Status, view.CurrentInstallmentIndex)
	}

	e.clock.Set(day(2024, time.January, 5))
	if got := e.status(t, sub.ID).Status; got != domain.StatusInativa {
		t.Fatalf("status after due date = %s, want INATIVA", got)
	}

	e.submit(t, sub.ID, 1)
	if got := e.status(t, sub.ID).Status; got != domain.StatusPendenteAprovacao {
		t.Fatalf("status after resubmission = %s, want PENDENTE_APROVACAO", got)
	}

	proofs, err := e.svc.ListProofs(e.ctx, Scope{StudentID: e.studentID}, sub.ID)
	if err != nil {
		t.Fatalf("ListProofs: %v", err)
	}
	if len(proofs) != 2 {
		t.Fatalf("len(proofs) = %d, want 2", len(proofs))
	}
	if proofs[0].Decision != domain.DecisionRejected || proofs[1].Decision != domain.DecisionPending {
		t.Errorf("decisions = %s, %s; want REJECTED, PENDING", proofs[0].Decision, proofs[1].Decision)
	}
}

func TestCancellationIsTerminal(t *testing.T) {
	e := newEnv(t)
	sub := e.subscribe(t, 3)
	pending := e.submit(t, sub.ID, 1)

	view, err := e.svc.Cancel(e.ctx, Scope{CoachID: e.coachID}, sub.ID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if view.Status != domain.StatusCancelada {
		t.Fatalf("status = %s, want CANCELADA", view.Status)
	}

	_, err = e.svc.SubmitProof(e.ctx, Scope{}, sub.ID, 2, "ref")
	expectKind(t, err, domain.ErrSubscriptionCancelled)
	_, err = e.svc.ApproveProof(e.ctx, Scope{}, pending.ID)
	expectKind(t, err, domain.ErrSubscriptionCancelled)
	_, err = e.svc.RejectProof(e.ctx, Scope{}, pending.ID)
	expectKind(t, err, domain.ErrSubscriptionCancelled)
	_, err = e.svc.Cancel(e.ctx, Scope{}, sub.ID)
	expectKind(t, err, domain.ErrSubscriptionCancelled)

	e.clock.Set(day(2026, time.January, 1))
	if got := e.status(t, sub.ID).Status; got != domain.StatusCancelada {
		t.Errorf("status years later = %s, want CANCELADA", got)
	}
	if e.metrics.errors[domain.KindSubscriptionCancelled] != 4 {
		t.Errorf("cancelled errors counted = %d, want 4", e.metrics.errors[domain.KindSubscriptionCancelled])
	}
}

func TestMonotonicAdvancement(t *testing.T) {
	e := newEnv(t)
	sub := e.subscribe(t, 3)

	ahead := e.submit(t, sub.ID, 2)
	_, err := e.svc.ApproveProof(e.ctx, Scope{}, ahead.ID)
	expectKind(t, err, domain.ErrOutOfOrderApproval)
	if got := e.status(t, sub.ID).CurrentInstallmentIndex; got != 0 {
		t.Fatalf("index after out-of-order approval = %d, want 0", got)
	}

	if _, err := e.svc.RejectProof(e.ctx, Scope{}, ahead.ID); err != nil {
		t.Fatalf("RejectProof: %v", err)
	}
	first := e.submit(t, sub.ID, 1)
	if _, err := e.svc.ApproveProof(e.ctx, Scope{}, first.ID); err != nil {
		t.Fatalf("ApproveProof: %v", err)
	}

	_, err = e.svc.ApproveProof(e.ctx, Scope{}, first.ID)
	expectKind(t, err, domain.ErrAlreadyDecided)
	_, err = e.svc.RejectProof(e.ctx, Scope{}, first.ID)
	expectKind(t, err, domain.ErrAlreadyDecided)
	_, err = e.svc.SubmitProof(e.ctx, Scope{}, sub.ID, 1, "ref")
	expectKind(t, err, domain.ErrAlreadyDecided)

	if got := e.status(t, sub.ID).CurrentInstallmentIndex; got != 1 {
		t.Errorf("index = %d, want 1", got)
	}
}

func TestSubmitProofValidation(t *testing.T) {
	e := newEnv(t)
	sub := e.subscribe(t, 2)

	tests := []struct {
		name  string
		subID uuid.UUID
		index int
		ref   string
		want  error
	}{
		{name: "index zero", subID: sub.ID, index: 0, ref: "ref", want: domain.ErrInvalidSchedule},
		{name: "index past schedule", subID: sub.ID, index: 3, ref: "ref", want: domain.ErrInvalidSchedule},
		{name: "empty file reference", subID: sub.ID, index: 1, ref: "  ", want: domain.ErrInvalidProof},
		{name: "unknown subscription", subID: uuid.New(), index: 1, ref: "ref", want: domain.ErrSubscriptionNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.svc.SubmitProof(e.ctx, Scope{}, tt.subID, tt.index, tt.ref)
			expectKind(t, err, tt.want)
		})
	}

	e.submit(t, sub.ID, 1)
	_, err := e.svc.SubmitProof(e.ctx, Scope{}, sub.ID, 2, "ref")
	expectKind(t, err, domain.ErrDuplicatePendingProof)

	_, err = e.svc.ApproveProof(e.ctx, Scope{}, uuid.New())
	expectKind(t, err, domain.ErrProofNotFound)
}

func TestConcurrentSubmissionsAllowOnePending(t *testing.T) {
	e := newEnv(t)
	sub := e.subscribe(t, 4)

	const workers = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		dupes     int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_, err := e.svc.SubmitProof(e.ctx, Scope{}, sub.ID, idx%4+1, "ref")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, domain.ErrDuplicatePendingProof):
				dupes++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if succeeded != 1 || dupes != workers-1 {
		t.Fatalf("succeeded=%d duplicates=%d, want 1 and %d", succeeded, dupes, workers-1)
	}

	proofs, err := e.svc.ListProofs(e.ctx, Scope{}, sub.ID)
	if err != nil {
		t.Fatal(err)
	}
	pending := 0
	for _, p := range proofs {
		if p.IsPending() {
			pending++
		}
	}
	if pending != 1 {
		t.Errorf("pending proofs = %d, want 1", pending)
	}
}

func TestScopeChecks(t *testing.T) {
	e := newEnv(t)
	sub := e.subscribe(t, 2)

	_, err := e.svc.GetSubscription(e.ctx, Scope{StudentID: uuid.New()}, sub.ID)
	expectKind(t, err, domain.ErrForbidden)
	_, err = e.svc.Cancel(e.ctx, Scope{CoachID: uuid.New()}, sub.ID)
	expectKind(t, err, domain.ErrForbidden)

	_, err = e.svc.CreateSubscription(e.ctx, Scope{CoachID: uuid.New()}, CreateSubscriptionInput{
		StudentID:         e.studentID,
		InstallmentPlanID: sub.InstallmentPlanID,
		StartDate:         day(2024, time.January, 1),
	})
	expectKind(t, err, domain.ErrForbidden)
}

func TestCreateSubscriptionErrors(t *testing.T) {
	e := newEnv(t)
	ipID := e.installmentPlan(t, 2)

	_, err := e.svc.CreateSubscription(e.ctx, Scope{}, CreateSubscriptionInput{StudentID: uuid.New(), InstallmentPlanID: ipID})
	expectKind(t, err, domain.ErrStudentNotFound)

	_, err = e.svc.CreateSubscription(e.ctx, Scope{}, CreateSubscriptionInput{StudentID: e.studentID, InstallmentPlanID: uuid.New()})
	expectKind(t, err, domain.ErrInstallmentPlanNotFound)
}

func TestCreateSubscriptionInThePast(t *testing.T) {
	e := newEnv(t)
	e.clock.Set(day(2024, time.March, 1))

	sub := e.subscribe(t, 2)
	if sub.Status != domain.StatusInativa {
		t.Errorf("status = %s, want INATIVA for a start date already overdue", sub.Status)
	}
}

func TestListSubscriptionsRederivesStatus(t *testing.T) {
	e := newEnv(t)
	withProof := e.subscribe(t, 2)
	without := e.subscribe(t, 2)
	e.submit(t, withProof.ID, 1)

	e.clock.Set(day(2024, time.February, 1))

	items, total, err := e.svc.ListSubscriptions(e.ctx, Scope{CoachID: e.coachID}, domain.SubscriptionFilter{Status: domain.StatusInativa})
	if err != nil {
		t.Fatalf("ListSubscriptions: %v", err)
	}
	if total != 1 || len(items) != 1 || items[0].ID != without.ID {
		t.Fatalf("INATIVA list = %d items (total %d), want only %s", len(items), total, without.ID)
	}

	items, total, err = e.svc.ListSubscriptions(e.ctx, Scope{CoachID: e.coachID}, domain.SubscriptionFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 || len(items) != 2 {
		t.Errorf("unfiltered list = %d items (total %d), want 2", len(items), total)
	}

	_, total, _ = e.svc.ListSubscriptions(e.ctx, Scope{CoachID: uuid.New()}, domain.SubscriptionFilter{})
	if total != 0 {
		t.Errorf("other coach sees %d subscriptions", total)
	}
}

func TestPublishFailureDoesNotFailOperation(t *testing.T) {
	e := newEnv(t)
	e.events.err = errors.New("broker down")

	sub := e.subscribe(t, 2)
	if _, err := e.svc.SubmitProof(e.ctx, Scope{}, sub.ID, 1, "ref"); err != nil {
		t.Fatalf("SubmitProof with failing publisher: %v", err)
	}
}

// flakySubscriptions отклоняет очередной Update, пока failNext взведен
type flakySubscriptions struct {
	repository.SubscriptionRepository
	mu       sync.Mutex
	failNext bool
}

func (f *flakySubscriptions) Update(ctx context.Context, sub *domain.Subscription) error {
	f.mu.Lock()
	fail := f.failNext
	f.failNext = false
	f.mu.Unlock()
	if fail {
		return errors.New("connection reset")
	}
	return f.SubscriptionRepository.Update(ctx, sub)
}

func TestInstallmentIndexRecoveredAfterFailedUpdate(t *testing.T) {
	e := newEnv(t)
	flaky := &flakySubscriptions{SubscriptionRepository: e.store.Subscriptions}
	store := *e.store
	store.Subscriptions = flaky
	e.svc = NewLifecycleService(&store, logger.NewNop(), WithClock(e.clock.Now), WithPublisher(e.events), WithMetrics(e.metrics))

	sub := e.subscribe(t, 2)
	first := e.submit(t, sub.ID, 1)

	flaky.mu.Lock()
	flaky.failNext = true
	flaky.mu.Unlock()
	if _, err := e.svc.ApproveProof(e.ctx, Scope{}, first.ID); err == nil {
		t.Fatal("ApproveProof succeeded although the subscription update failed")
	}

	view := e.status(t, sub.ID)
	if view.CurrentInstallmentIndex != 1 || view.Status != domain.StatusPendente {
		t.Fatalf("after recovery index=%d status=%s, want 1/PENDENTE", view.CurrentInstallmentIndex, view.Status)
	}
	stored, err := e.store.Subscriptions.GetByID(e.ctx, sub.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.CurrentInstallmentIndex != 1 {
		t.Errorf("persisted index = %d, want 1", stored.CurrentInstallmentIndex)
	}

	_, err = e.svc.SubmitProof(e.ctx, Scope{StudentID: e.studentID}, sub.ID, 1, "ref")
	expectKind(t, err, domain.ErrAlreadyDecided)

	second := e.submit(t, sub.ID, 2)
	view, err = e.svc.ApproveProof(e.ctx, Scope{}, second.ID)
	if err != nil {
		t.Fatalf("ApproveProof second: %v", err)
	}
	if view.CurrentInstallmentIndex != 2 || view.Status != domain.StatusAtiva {
		t.Errorf("after second approval index=%d status=%s, want 2/ATIVA", view.CurrentInstallmentIndex, view.Status)
	}
}

func TestIndexRecoveredBeforeApproval(t *testing.T) {
	e := newEnv(t)
	flaky := &flakySubscriptions{SubscriptionRepository: e.store.Subscriptions}
	store := *e.store
	store.Subscriptions = flaky
	e.svc = NewLifecycleService(&store, logger.NewNop(), WithClock(e.clock.Now), WithPublisher(e.events), WithMetrics(e.metrics))

	sub := e.subscribe(t, 3)
	first := e.submit(t, sub.ID, 1)

	flaky.mu.Lock()
	flaky.failNext = true
	flaky.mu.Unlock()
	if _, err := e.svc.ApproveProof(e.ctx, Scope{}, first.ID); err == nil {
		t.Fatal("expected update failure")
	}

	// следующая мутация идет без промежуточного чтения
	second := e.submit(t, sub.ID, 2)
	view, err := e.svc.ApproveProof(e.ctx, Scope{}, second.ID)
	if err != nil {
		t.Fatalf("ApproveProof second: %v", err)
	}
	if view.CurrentInstallmentIndex != 2 {
		t.Errorf("index = %d, want 2", view.CurrentInstallmentIndex)
	}
}
