package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/jonboulle/clockwork"

	"adhan-alarm/internal/domain"
	"adhan-alarm/internal/logging"
)

// SchedulerUseCase is the primary port for trigger scheduling.
type SchedulerUseCase interface {
	Schedule(ctx context.Context, t domain.Trigger) error
	Cancel(ctx context.Context, name string) error
	ListPending(ctx context.Context) ([]domain.Trigger, error)
	Get(ctx context.Context, name string) (domain.Trigger, error)
	RecoverAfterRestart(ctx context.Context) (RecoveryReport, error)
}

// RecoveryReport summarizes a restart recovery pass.
type RecoveryReport struct {
	Registered []string
	PastDue    []string
	Failed     []string
}

// schedulerInteractor implements SchedulerUseCase.
// It holds no state of its own: correctness rests on the store and the
// registrar both replacing by name.
type schedulerInteractor struct {
	store   domain.TriggerStore
	wakeups domain.WakeupRegistrar
	service *domain.SchedulerService
	clock   clockwork.Clock
}

// NewSchedulerUseCase creates a new scheduler use case.
func NewSchedulerUseCase(
	store domain.TriggerStore,
	wakeups domain.WakeupRegistrar,
	clock clockwork.Clock,
) (SchedulerUseCase, error) {
	if store == nil || wakeups == nil {
		return nil, errors.New("store and wake-up registrar are required")
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &schedulerInteractor{
		store:   store,
		wakeups: wakeups,
		service: domain.NewSchedulerService(),
		clock:   clock,
	}, nil
}

// Schedule persists the trigger, then registers its wake-up.
func (s *schedulerInteractor) Schedule(ctx context.Context, t domain.Trigger) error {
	if err := t.Validate(); err != nil {
		return err
	}
	t = t.Normalized()

	if err := s.store.Put(ctx, t); err != nil {
		return fmt.Errorf("schedule %s: %w: %w", t.Name, domain.ErrPersistence, err)
	}

	if err := s.wakeups.Register(ctx, domain.WakeupFor(t)); err != nil {
		if errors.Is(err, domain.ErrPermissionDenied) {
			logging.Warnf("exact wake-up denied for %s; caller must fall back or prompt", t.Name)
		}
		return fmt.Errorf("schedule %s: %w", t.Name, err)
	}

	logging.Infof("scheduled %s (%s, sound=%s) at %s", t.Name, t.Kind, t.Sound, t.FireAt.Format("2006-01-02 15:04:05.000"))
	return nil
}

// Cancel removes the trigger and its wake-up. Unknown names are not an error.
func (s *schedulerInteractor) Cancel(ctx context.Context, name string) error {
	if err := s.store.Remove(ctx, name); err != nil {
		return fmt.Errorf("cancel %s: %w: %w", name, domain.ErrPersistence, err)
	}
	if err := s.wakeups.Cancel(ctx, name); err != nil {
		return fmt.Errorf("cancel %s: %w", name, err)
	}
	logging.Infof("cancelled %s", name)
	return nil
}

// ListPending returns stored triggers whose fire time is strictly in the future.
func (s *schedulerInteractor) ListPending(ctx context.Context) ([]domain.Trigger, error) {
	all, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w: %w", domain.ErrPersistence, err)
	}
	return s.service.Pending(all, s.clock.Now()), nil
}

// Get returns the stored trigger, fired or not, or domain.ErrNotFound.
func (s *schedulerInteractor) Get(ctx context.Context, name string) (domain.Trigger, error) {
	t, ok, err := s.store.Get(ctx, name)
	if err != nil {
		return domain.Trigger{}, fmt.Errorf("get %s: %w: %w", name, domain.ErrPersistence, err)
	}
	if !ok {
		return domain.Trigger{}, fmt.Errorf("get %s: %w", name, domain.ErrNotFound)
	}
	return t, nil
}

// RecoverAfterRestart re-registers every stored future trigger. Past-due triggers
// are left in place for the next Schedule call to overwrite; they never fire late.
func (s *schedulerInteractor) RecoverAfterRestart(ctx context.Context) (RecoveryReport, error) {
	var report RecoveryReport

	all, err := s.store.ListAll(ctx)
	if err != nil {
		return report, fmt.Errorf("recover: %w: %w", domain.ErrPersistence, err)
	}

	future, pastDue := s.service.Partition(all, s.clock.Now())
	for _, t := range pastDue {
		report.PastDue = append(report.PastDue, t.Name)
		logging.Debugf("recover: leaving past-due %s (%s)", t.Name, t.FireAt.Format("2006-01-02 15:04:05"))
	}

	var result *multierror.Error
	for _, t := range future {
		if err := s.wakeups.Register(ctx, domain.WakeupFor(t)); err != nil {
			report.Failed = append(report.Failed, t.Name)
			result = multierror.Append(result, fmt.Errorf("re-register %s: %w", t.Name, err))
			logging.Errorf("recover: re-register %s failed: %v", t.Name, err)
			continue
		}
		report.Registered = append(report.Registered, t.Name)
	}

	logging.Infof("recover: %d re-registered, %d past-due, %d failed",
		len(report.Registered), len(report.PastDue), len(report.Failed))
	return report, result.ErrorOrNil()
}
