package usecase

import (
	"context"
	"testing"

	"telegram-legal-assistant/internal/domain/model"
)

func TestUserUseCase_RegisterOrFetch(t *testing.T) {
	ctx := context.Background()

	t.Run("registers a new user", func(t *testing.T) {
		users := newMemUserRepo()
		uc := NewUserUseCase(users, newTestLogger())

		u, err := uc.RegisterOrFetch(ctx, "42", "Ann", "Lee", "ann")
		if err != nil {
			t.Fatalf("register: %v", err)
		}
		if u.ID != "42" || u.FirstName != "Ann" {
			t.Fatalf("user = %+v", u)
		}
		if _, err := users.FindByID(ctx, "42"); err != nil {
			t.Fatalf("user not persisted: %v", err)
		}
	})

	t.Run("re-registration keeps subscription state", func(t *testing.T) {
		users := newMemUserRepo()
		u, _ := model.NewUser("42", "Ann", "", "ann")
		u.SubscriptionActive = true
		u.Subscription = model.SubscriptionInfo{Type: "basic", Start: "2025-01-01", End: "2025-01-31"}
		_ = users.Save(ctx, u)
		uc := NewUserUseCase(users, newTestLogger())

		got, err := uc.RegisterOrFetch(ctx, "42", "Ann", "Lee", "ann_lee")
		if err != nil {
			t.Fatalf("refetch: %v", err)
		}
		if !got.SubscriptionActive || got.Subscription.Type != "basic" {
			t.Fatal("subscription state must survive re-registration")
		}
		if got.LastName != "Lee" || got.Username != "ann_lee" {
			t.Fatalf("profile not refreshed: %+v", got)
		}
	})
}

func TestUserUseCase_AcceptAgreement(t *testing.T) {
	ctx := context.Background()
	users := newMemUserRepo()
	u, _ := model.NewUser("42", "Ann", "", "ann")
	_ = users.Save(ctx, u)
	uc := NewUserUseCase(users, newTestLogger())

	if err := uc.AcceptAgreement(ctx, "42"); err != nil {
		t.Fatalf("accept: %v", err)
	}
	got, _ := users.FindByID(ctx, "42")
	if !got.HasAcceptedAgreement() {
		t.Fatal("agreement time must be recorded")
	}
}
