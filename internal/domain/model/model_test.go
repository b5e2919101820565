package model

import (
	"errors"
	"testing"
	"time"

	"telegram-legal-assistant/internal/domain"
)

func TestDateLayouts(t *testing.T) {
	d, err := ParseWireDate("01.06.2025")
	if err != nil {
		t.Fatalf("parse wire: %v", err)
	}
	if FormatISODate(d) != "2025-06-01" {
		t.Fatalf("iso = %q", FormatISODate(d))
	}
	if FormatWireDate(d) != "01.06.2025" {
		t.Fatalf("wire roundtrip = %q", FormatWireDate(d))
	}

	iso, err := ParseISODate("2025-06-01")
	if err != nil {
		t.Fatalf("parse iso: %v", err)
	}
	if !iso.Equal(d) {
		t.Fatalf("layouts disagree: %v vs %v", iso, d)
	}

	if _, err := ParseWireDate("2025-06-01"); err == nil {
		t.Fatal("wire parser must reject iso input")
	}
}

func TestDateOnly(t *testing.T) {
	in := time.Date(2025, 6, 1, 23, 59, 7, 12, time.UTC)
	got := DateOnly(in)
	if got.Hour() != 0 || got.Minute() != 0 || got.Second() != 0 || got.Nanosecond() != 0 {
		t.Fatalf("not truncated: %v", got)
	}
	if got.Year() != 2025 || got.Month() != time.June || got.Day() != 1 {
		t.Fatalf("wrong day: %v", got)
	}
}

func TestParseTariff(t *testing.T) {
	if tr, err := ParseTariff("basic"); err != nil || tr != TariffBasic {
		t.Fatalf("got (%v,%v)", tr, err)
	}
	if _, err := ParseTariff("gold"); !errors.Is(err, domain.ErrUnknownTariff) {
		t.Fatalf("error = %v, want ErrUnknownTariff", err)
	}
}

func TestPendingPaymentAge(t *testing.T) {
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	p, err := NewPendingPayment("p1", "u1", TariffBasic, created)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if age := p.Age(created.Add(3 * time.Minute)); age != 3*time.Minute {
		t.Fatalf("age = %v", age)
	}
}

func TestUserHelpers(t *testing.T) {
	if _, err := NewUser("", "A", "", "a"); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("error = %v, want ErrInvalidArgument", err)
	}

	u, err := NewUser("1", "A", "", "a")
	if err != nil {
		t.Fatalf("new user: %v", err)
	}
	if u.HasAcceptedAgreement() {
		t.Fatal("fresh user has not accepted the agreement")
	}
	if u.LastSession() != nil {
		t.Fatal("fresh user has no sessions")
	}

	u.SubscriptionActive = true
	u.Subscription.Type = "basic"
	if !u.HasTariff(TariffBasic) || u.HasTariff(TariffPremium) {
		t.Fatal("tariff check wrong")
	}

	u.Sessions = []ConsultSession{{ID: "s1"}, {ID: "s2"}}
	if u.LastSession().ID != "s2" {
		t.Fatalf("last session = %q", u.LastSession().ID)
	}
}
