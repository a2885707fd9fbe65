package service

import (
	"context"
	"time"

	"github.com/labcompare/push-dispatcher/internal/domain"
	"github.com/labcompare/push-dispatcher/internal/provider"
)

type fakeTaskRepo struct {
	createFn       func(ctx context.Context, t *domain.ScheduledTask) error
	createBatchFn  func(ctx context.Context, tasks []*domain.ScheduledTask) error
	getDueFn       func(ctx context.Context, now time.Time, limit int) ([]domain.ScheduledTask, error)
	deleteFn       func(ctx context.Context, id string) error
	countPendingFn func(ctx context.Context) (int64, error)
}

func (f *fakeTaskRepo) Create(ctx context.Context, t *domain.ScheduledTask) error {
	if f.createFn != nil {
		return f.createFn(ctx, t)
	}
	return nil
}

func (f *fakeTaskRepo) CreateBatch(ctx context.Context, tasks []*domain.ScheduledTask) error {
	if f.createBatchFn != nil {
		return f.createBatchFn(ctx, tasks)
	}
	return nil
}

func (f *fakeTaskRepo) GetDue(ctx context.Context, now time.Time, limit int) ([]domain.ScheduledTask, error) {
	if f.getDueFn != nil {
		return f.getDueFn(ctx, now, limit)
	}
	return nil, nil
}

func (f *fakeTaskRepo) Delete(ctx context.Context, id string) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id)
	}
	return nil
}

func (f *fakeTaskRepo) CountPending(ctx context.Context) (int64, error) {
	if f.countPendingFn != nil {
		return f.countPendingFn(ctx)
	}
	return 0, nil
}

type fakeUserRepo struct {
	getByIDFn             func(ctx context.Context, id string) (*domain.User, error)
	addSubscriptionFn     func(ctx context.Context, userID string, sub domain.Subscription) (bool, error)
	removeSubscriptionsFn func(ctx context.Context, userID string, endpoints []string) error
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeUserRepo) AddSubscription(ctx context.Context, userID string, sub domain.Subscription) (bool, error) {
	if f.addSubscriptionFn != nil {
		return f.addSubscriptionFn(ctx, userID, sub)
	}
	return false, nil
}

func (f *fakeUserRepo) RemoveSubscriptions(ctx context.Context, userID string, endpoints []string) error {
	if f.removeSubscriptionsFn != nil {
		return f.removeSubscriptionsFn(ctx, userID, endpoints)
	}
	return nil
}

type fakeJourneyRepo struct {
	createFn  func(ctx context.Context, j *domain.Journey) error
	getByIDFn func(ctx context.Context, id string) (*domain.Journey, error)
	listFn    func(ctx context.Context) ([]domain.Journey, error)
}

func (f *fakeJourneyRepo) Create(ctx context.Context, j *domain.Journey) error {
	if f.createFn != nil {
		return f.createFn(ctx, j)
	}
	return nil
}

func (f *fakeJourneyRepo) GetByID(ctx context.Context, id string) (*domain.Journey, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeJourneyRepo) List(ctx context.Context) ([]domain.Journey, error) {
	if f.listFn != nil {
		return f.listFn(ctx)
	}
	return nil, nil
}

type fakeProvider struct {
	sendFn func(ctx context.Context, sub domain.Subscription, payload domain.Payload) (*provider.Response, error)
}

func (f *fakeProvider) Send(ctx context.Context, sub domain.Subscription, payload domain.Payload) (*provider.Response, error) {
	if f.sendFn != nil {
		return f.sendFn(ctx, sub, payload)
	}
	return &provider.Response{StatusCode: 201}, nil
}

type fakeRateLimiter struct {
	allowFn func(ctx context.Context, scope string) (bool, error)
	waitFn  func(ctx context.Context, scope string) error
}

func (f *fakeRateLimiter) Allow(ctx context.Context, scope string) (bool, error) {
	if f.allowFn != nil {
		return f.allowFn(ctx, scope)
	}
	return true, nil
}

func (f *fakeRateLimiter) Wait(ctx context.Context, scope string) error {
	if f.waitFn != nil {
		return f.waitFn(ctx, scope)
	}
	return nil
}

type fakeCycleLock struct {
	acquireFn func(ctx context.Context) (func(context.Context), bool, error)
}

func (f *fakeCycleLock) Acquire(ctx context.Context) (func(context.Context), bool, error) {
	if f.acquireFn != nil {
		return f.acquireFn(ctx)
	}
	return func(context.Context) {}, true, nil
}
