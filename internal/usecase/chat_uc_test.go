package usecase

import (
	"context"
	"errors"
	"testing"

	"telegram-legal-assistant/internal/domain"
	"telegram-legal-assistant/internal/domain/model"
)

func TestChatUseCase_Ask(t *testing.T) {
	ctx := context.Background()

	t.Run("answers and opens a session", func(t *testing.T) {
		users := newMemUserRepo()
		u, _ := model.NewUser("u1", "Ann", "", "ann")
		_ = users.Save(ctx, u)
		ai := &mockAI{reply: "You have 14 days to return the goods."}
		uc := NewChatUseCase(ai, users, newTestLogger())

		answer, err := uc.Ask(ctx, "u1", "Can I return a defective phone?")
		if err != nil {
			t.Fatalf("ask: %v", err)
		}
		if answer != "You have 14 days to return the goods." {
			t.Fatalf("answer = %q", answer)
		}

		got, _ := users.FindByID(ctx, "u1")
		if len(got.Sessions) != 1 {
			t.Fatalf("sessions = %d, want 1", len(got.Sessions))
		}
		sess := got.Sessions[0]
		if sess.InitialQuestion != "Can I return a defective phone?" || sess.Type != "question" {
			t.Fatalf("session = %+v", sess)
		}
		if len(sess.Dialog) != 2 || sess.Dialog[1].Role != "bot" {
			t.Fatalf("dialog = %+v", sess.Dialog)
		}
		if sess.ID == "" {
			t.Fatal("session must get an id")
		}

		if len(ai.lastMsg) != 2 || ai.lastMsg[0].Role != "system" {
			t.Fatalf("model messages = %+v", ai.lastMsg)
		}
	})

	t.Run("rejects empty question", func(t *testing.T) {
		uc := NewChatUseCase(&mockAI{}, newMemUserRepo(), newTestLogger())
		if _, err := uc.Ask(ctx, "u1", ""); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("error = %v, want ErrInvalidArgument", err)
		}
	})

	t.Run("surfaces model failures", func(t *testing.T) {
		users := newMemUserRepo()
		u, _ := model.NewUser("u1", "Ann", "", "ann")
		_ = users.Save(ctx, u)
		uc := NewChatUseCase(&mockAI{err: errors.New("model overloaded")}, users, newTestLogger())

		if _, err := uc.Ask(ctx, "u1", "question"); err == nil {
			t.Fatal("expected error")
		}
		got, _ := users.FindByID(ctx, "u1")
		if len(got.Sessions) != 0 {
			t.Fatal("failed consultations must not be recorded")
		}
	})
}

func TestChatUseCase_FollowUp(t *testing.T) {
	ctx := context.Background()

	t.Run("replays the prior dialog", func(t *testing.T) {
		users := newMemUserRepo()
		u, _ := model.NewUser("u1", "Ann", "", "ann")
		u.Sessions = []model.ConsultSession{{
			ID:              "s1",
			InitialQuestion: "Can I return a phone?",
			Type:            "question",
			Dialog: []model.DialogTurn{
				{Role: "user", Message: "Can I return a phone?"},
				{Role: "bot", Message: "Yes, within 14 days."},
			},
		}}
		_ = users.Save(ctx, u)
		ai := &mockAI{reply: "The receipt is not strictly required."}
		uc := NewChatUseCase(ai, users, newTestLogger())

		answer, err := uc.FollowUp(ctx, "u1", "What if I lost the receipt?")
		if err != nil {
			t.Fatalf("follow up: %v", err)
		}
		if answer == "" {
			t.Fatal("empty answer")
		}

		// system + 2 prior turns + new question
		if len(ai.lastMsg) != 4 {
			t.Fatalf("model messages = %d, want 4", len(ai.lastMsg))
		}
		if ai.lastMsg[2].Role != "assistant" {
			t.Fatalf("bot turn must map to assistant role, got %q", ai.lastMsg[2].Role)
		}

		got, _ := users.FindByID(ctx, "u1")
		if len(got.Sessions) != 1 || len(got.Sessions[0].Dialog) != 4 {
			t.Fatalf("dialog = %+v", got.Sessions[0].Dialog)
		}
	})

	t.Run("falls back to a new session without history", func(t *testing.T) {
		users := newMemUserRepo()
		u, _ := model.NewUser("u1", "Ann", "", "ann")
		_ = users.Save(ctx, u)
		uc := NewChatUseCase(&mockAI{}, users, newTestLogger())

		if _, err := uc.FollowUp(ctx, "u1", "A question"); err != nil {
			t.Fatalf("follow up: %v", err)
		}
		got, _ := users.FindByID(ctx, "u1")
		if len(got.Sessions) != 1 {
			t.Fatalf("sessions = %d, want 1 new session", len(got.Sessions))
		}
	})
}

func TestChatUseCase_History(t *testing.T) {
	ctx := context.Background()
	users := newMemUserRepo()
	u, _ := model.NewUser("u1", "Ann", "", "ann")
	u.Sessions = []model.ConsultSession{{ID: "s1"}, {ID: "s2"}}
	_ = users.Save(ctx, u)
	uc := NewChatUseCase(&mockAI{}, users, newTestLogger())

	sessions, err := uc.History(ctx, "u1")
	if err != nil || len(sessions) != 2 {
		t.Fatalf("history = (%d,%v), want 2 sessions", len(sessions), err)
	}
	if _, err := uc.History(ctx, "ghost"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}
