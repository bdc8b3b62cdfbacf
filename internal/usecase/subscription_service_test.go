package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/wekeepgrowing/subscription-billing/internal/domain/entity"
	domainErrors "github.com/wekeepgrowing/subscription-billing/internal/domain/errors"
	"go.uber.org/zap"
)

type subscriptionFixture struct {
	subRepo  *MockSubscriptionRepository
	planRepo *MockPlanRepository
	svc      *SubscriptionService
	now      time.Time
}

func newSubscriptionFixture() *subscriptionFixture {
	f := &subscriptionFixture{
		subRepo:  new(MockSubscriptionRepository),
		planRepo: new(MockPlanRepository),
		now:      time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
	}
	f.svc = NewSubscriptionService(f.subRepo, f.planRepo, zap.NewNop())
	f.svc.now = func() time.Time { return f.now }
	return f
}

func TestApplyPayment_PurchaseActivates(t *testing.T) {
	f := newSubscriptionFixture()
	userID := uuid.New()
	plan := testPlan()

	payment := &entity.Payment{
		ID:          7,
		UserID:      userID,
		PlanID:      plan.ID,
		Action:      entity.ActionPurchase,
		AmountCents: plan.AmountCents,
		Status:      entity.PaymentStatusCompleted,
	}

	created := &entity.Subscription{ID: 42, UserID: userID, PlanID: plan.ID, Status: entity.SubscriptionStatusActive}

	f.planRepo.On("GetByID", mock.Anything, plan.ID).Return(plan, nil)
	f.subRepo.On("Activate", mock.Anything,
		mock.MatchedBy(func(sub *entity.Subscription) bool {
			return sub.UserID == userID &&
				sub.PlanID == plan.ID &&
				sub.Status == entity.SubscriptionStatusActive &&
				sub.EndDate.Equal(f.now.AddDate(0, 0, plan.DurationDays))
		}),
		mock.MatchedBy(func(entry *entity.BillingEntry) bool {
			return entry.PaymentID == payment.ID &&
				entry.Kind == entity.BillingKindActivation &&
				entry.AmountCents == payment.AmountCents
		}),
	).Return(created, nil)

	got, err := f.svc.ApplyPayment(context.Background(), payment)

	assert.NoError(t, err)
	assert.Equal(t, created, got)
}

func TestApplyPayment_RenewDelegatesCapAndArithmetic(t *testing.T) {
	f := newSubscriptionFixture()
	plan := testPlan()
	plan.RenewalCapPerMonth = 2
	subID := int64(5)

	payment := &entity.Payment{
		ID:             7,
		UserID:         uuid.New(),
		PlanID:         plan.ID,
		SubscriptionID: &subID,
		Action:         entity.ActionRenew,
		AmountCents:    plan.AmountCents,
		Status:         entity.PaymentStatusCompleted,
	}

	renewed := &entity.Subscription{ID: subID, Status: entity.SubscriptionStatusActive}

	f.planRepo.On("GetByID", mock.Anything, plan.ID).Return(plan, nil)
	f.subRepo.On("Renew", mock.Anything, subID, plan.DurationDays, 2,
		mock.MatchedBy(func(entry *entity.BillingEntry) bool {
			return entry.Kind == entity.BillingKindRenewal && entry.PaymentID == payment.ID
		}), f.now).Return(renewed, nil)

	got, err := f.svc.ApplyPayment(context.Background(), payment)

	assert.NoError(t, err)
	assert.Equal(t, renewed, got)
}

func TestApplyPayment_RenewCapConflictSurfaces(t *testing.T) {
	f := newSubscriptionFixture()
	plan := testPlan()
	plan.RenewalCapPerMonth = 2
	subID := int64(5)

	payment := &entity.Payment{
		ID:             7,
		UserID:         uuid.New(),
		PlanID:         plan.ID,
		SubscriptionID: &subID,
		Action:         entity.ActionRenew,
		Status:         entity.PaymentStatusCompleted,
	}

	f.planRepo.On("GetByID", mock.Anything, plan.ID).Return(plan, nil)
	f.subRepo.On("Renew", mock.Anything, subID, plan.DurationDays, 2, mock.Anything, f.now).
		Return(nil, domainErrors.Conflict("monthly renewal cap reached"))

	got, err := f.svc.ApplyPayment(context.Background(), payment)

	assert.Nil(t, got)
	assert.Equal(t, domainErrors.CodeConflict, domainErrors.CodeOf(err))
}

func TestApplyPayment_RenewWithoutTarget(t *testing.T) {
	f := newSubscriptionFixture()
	plan := testPlan()

	payment := &entity.Payment{
		ID:     7,
		PlanID: plan.ID,
		Action: entity.ActionRenew,
		Status: entity.PaymentStatusCompleted,
	}

	f.planRepo.On("GetByID", mock.Anything, plan.ID).Return(plan, nil)

	got, err := f.svc.ApplyPayment(context.Background(), payment)

	assert.Nil(t, got)
	assert.Equal(t, domainErrors.CodeInvalidArgument, domainErrors.CodeOf(err))
}

func TestApplyPayment_Upgrade(t *testing.T) {
	f := newSubscriptionFixture()
	userID := uuid.New()
	subID := int64(5)

	basic := testPlan()
	premium := &entity.Plan{ID: 3, Name: "premium", AmountCents: 99900, Currency: "INR", DurationDays: 30, TierPriority: 3, Active: true}

	payment := &entity.Payment{
		ID:             7,
		UserID:         userID,
		PlanID:         premium.ID,
		SubscriptionID: &subID,
		Action:         entity.ActionUpgrade,
		AmountCents:    premium.AmountCents,
		Status:         entity.PaymentStatusCompleted,
	}

	old := &entity.Subscription{ID: subID, UserID: userID, PlanID: basic.ID, Status: entity.SubscriptionStatusActive}
	replacement := &entity.Subscription{ID: 43, UserID: userID, PlanID: premium.ID, Status: entity.SubscriptionStatusActive}

	f.planRepo.On("GetByID", mock.Anything, premium.ID).Return(premium, nil)
	f.planRepo.On("GetByID", mock.Anything, basic.ID).Return(basic, nil)
	f.subRepo.On("GetByID", mock.Anything, subID).Return(old, nil)
	f.subRepo.On("Upgrade", mock.Anything, subID,
		mock.MatchedBy(func(sub *entity.Subscription) bool {
			return sub.PlanID == premium.ID && sub.Status == entity.SubscriptionStatusActive
		}),
		mock.MatchedBy(func(entry *entity.BillingEntry) bool {
			return entry.Kind == entity.BillingKindUpgrade
		}),
	).Return(replacement, nil)

	got, err := f.svc.ApplyPayment(context.Background(), payment)

	assert.NoError(t, err)
	assert.Equal(t, replacement, got)
}

func TestApplyPayment_UpgradeDuplicateActiveConflictSurfaces(t *testing.T) {
	f := newSubscriptionFixture()
	userID := uuid.New()
	subID := int64(5)

	basic := testPlan()
	premium := &entity.Plan{ID: 3, Name: "premium", AmountCents: 99900, Currency: "INR", DurationDays: 30, TierPriority: 3, Active: true}

	payment := &entity.Payment{
		ID:             7,
		UserID:         userID,
		PlanID:         premium.ID,
		SubscriptionID: &subID,
		Action:         entity.ActionUpgrade,
		AmountCents:    premium.AmountCents,
		Status:         entity.PaymentStatusCompleted,
	}

	old := &entity.Subscription{ID: subID, UserID: userID, PlanID: basic.ID, Status: entity.SubscriptionStatusActive}

	f.planRepo.On("GetByID", mock.Anything, premium.ID).Return(premium, nil)
	f.planRepo.On("GetByID", mock.Anything, basic.ID).Return(basic, nil)
	f.subRepo.On("GetByID", mock.Anything, subID).Return(old, nil)
	f.subRepo.On("Upgrade", mock.Anything, subID, mock.Anything, mock.Anything).
		Return(nil, domainErrors.Conflict("an active subscription already exists for this plan"))

	got, err := f.svc.ApplyPayment(context.Background(), payment)

	assert.Nil(t, got)
	assert.Equal(t, domainErrors.CodeConflict, domainErrors.CodeOf(err))
}

func TestApplyPayment_UpgradeToLowerTierRefused(t *testing.T) {
	f := newSubscriptionFixture()
	userID := uuid.New()
	subID := int64(5)

	basic := testPlan()
	premium := &entity.Plan{ID: 3, Name: "premium", AmountCents: 99900, TierPriority: 3, Active: true}

	payment := &entity.Payment{
		ID:             7,
		UserID:         userID,
		PlanID:         basic.ID,
		SubscriptionID: &subID,
		Action:         entity.ActionUpgrade,
		Status:         entity.PaymentStatusCompleted,
	}

	f.planRepo.On("GetByID", mock.Anything, basic.ID).Return(basic, nil)
	f.planRepo.On("GetByID", mock.Anything, premium.ID).Return(premium, nil)
	f.subRepo.On("GetByID", mock.Anything, subID).Return(&entity.Subscription{
		ID: subID, UserID: userID, PlanID: premium.ID,
	}, nil)

	got, err := f.svc.ApplyPayment(context.Background(), payment)

	assert.Nil(t, got)
	assert.Equal(t, domainErrors.CodeConflict, domainErrors.CodeOf(err))
	f.subRepo.AssertNotCalled(t, "Upgrade", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCancel(t *testing.T) {
	userID := uuid.New()
	subID := int64(5)

	t.Run("owner cancels", func(t *testing.T) {
		f := newSubscriptionFixture()
		f.subRepo.On("GetByID", mock.Anything, subID).Return(&entity.Subscription{
			ID: subID, UserID: userID, Status: entity.SubscriptionStatusActive,
		}, nil)
		f.subRepo.On("Cancel", mock.Anything, subID, "too expensive", f.now).Return(nil)

		err := f.svc.Cancel(context.Background(), userID, subID, "too expensive", false)
		assert.NoError(t, err)
	})

	t.Run("default reason", func(t *testing.T) {
		f := newSubscriptionFixture()
		f.subRepo.On("GetByID", mock.Anything, subID).Return(&entity.Subscription{
			ID: subID, UserID: userID, Status: entity.SubscriptionStatusActive,
		}, nil)
		f.subRepo.On("Cancel", mock.Anything, subID, "cancelled by user", f.now).Return(nil)

		err := f.svc.Cancel(context.Background(), userID, subID, "", false)
		assert.NoError(t, err)
	})

	t.Run("non-owner refused", func(t *testing.T) {
		f := newSubscriptionFixture()
		f.subRepo.On("GetByID", mock.Anything, subID).Return(&entity.Subscription{
			ID: subID, UserID: uuid.New(), Status: entity.SubscriptionStatusActive,
		}, nil)

		err := f.svc.Cancel(context.Background(), userID, subID, "", false)
		assert.Equal(t, domainErrors.CodeConflict, domainErrors.CodeOf(err))
		f.subRepo.AssertNotCalled(t, "Cancel", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("admin cancels any subscription", func(t *testing.T) {
		f := newSubscriptionFixture()
		f.subRepo.On("GetByID", mock.Anything, subID).Return(&entity.Subscription{
			ID: subID, UserID: uuid.New(), Status: entity.SubscriptionStatusActive,
		}, nil)
		f.subRepo.On("Cancel", mock.Anything, subID, "chargeback", f.now).Return(nil)

		err := f.svc.Cancel(context.Background(), userID, subID, "chargeback", true)
		assert.NoError(t, err)
	})
}

func TestExpireDue(t *testing.T) {
	f := newSubscriptionFixture()

	f.subRepo.On("ExpireDue", mock.Anything, f.now).Return(int64(3), nil)

	expired, err := f.svc.ExpireDue(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, int64(3), expired)
}

func TestGetSubscription_Ownership(t *testing.T) {
	f := newSubscriptionFixture()
	owner := uuid.New()

	f.subRepo.On("GetByID", mock.Anything, int64(5)).Return(&entity.Subscription{
		ID: 5, UserID: owner,
	}, nil)

	got, err := f.svc.GetSubscription(context.Background(), uuid.New(), 5)

	assert.Nil(t, got)
	assert.Equal(t, domainErrors.CodeNotFound, domainErrors.CodeOf(err))
}
