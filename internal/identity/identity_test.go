package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/example/ride-booking/internal/apperr"
	"github.com/example/ride-booking/internal/logging"
	"github.com/example/ride-booking/internal/models"
	"github.com/example/ride-booking/internal/storage"
)

func newService() *Service {
	return &Service{Store: storage.NewMemoryStore(), Log: logging.Discard()}
}

func TestRegister(t *testing.T) {
	s := newService()
	ctx := context.Background()
	u, err := s.Register(ctx, RegisterInput{Name: "Rina", Email: "Rina@Example.com"})
	if err != nil {
		t.Fatal(err)
	}
	if u.Role != models.RoleRider || u.Email != "rina@example.com" {
		t.Fatalf("user = %+v", u)
	}
	if _, err := s.Register(ctx, RegisterInput{Name: "Rina Two", Email: "rina@example.com"}); !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("duplicate err = %v", err)
	}
	if _, err := s.Register(ctx, RegisterInput{Name: "X", Email: "x@example.com"}); !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("short name err = %v", err)
	}
	if _, err := s.Register(ctx, RegisterInput{Name: "Valid", Email: "not-an-email"}); !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("bad email err = %v", err)
	}
}

func TestToggleBlock(t *testing.T) {
	s := newService()
	ctx := context.Background()
	u, _ := s.Register(ctx, RegisterInput{Name: "Rina", Email: "rina@example.com"})
	got, err := s.ToggleBlock(ctx, u.ID)
	if err != nil || !got.IsBlocked {
		t.Fatalf("first toggle = %+v, %v", got, err)
	}
	got, _ = s.ToggleBlock(ctx, u.ID)
	if got.IsBlocked {
		t.Fatal("second toggle should unblock")
	}
	if _, err := s.ToggleBlock(ctx, "missing"); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("missing err = %v", err)
	}
}

func TestSeedAdminIsIdempotent(t *testing.T) {
	s := newService()
	ctx := context.Background()
	a, err := s.SeedAdmin(ctx, "admin@example.com", "Admin")
	if err != nil {
		t.Fatal(err)
	}
	b, err := s.SeedAdmin(ctx, "ADMIN@example.com", "Admin")
	if err != nil || a.ID != b.ID || b.Role != models.RoleAdmin {
		t.Fatalf("second seed = %+v, %v", b, err)
	}
	users, _ := s.ListUsers(ctx)
	if len(users) != 1 {
		t.Fatalf("users = %d", len(users))
	}
}

func TestDriverApplicationFlow(t *testing.T) {
	s := newService()
	ctx := context.Background()
	u, _ := s.Register(ctx, RegisterInput{Name: "Dipu", Email: "dipu@example.com"})
	in := ApplyInput{VehicleNumber: "DHA-11", VehicleModel: "Axio", LicenseNumber: "L-99"}

	d, err := s.Apply(ctx, u.ID, in)
	if err != nil {
		t.Fatal(err)
	}
	if d.ApplicationStatus != models.ApplicationPending || !d.IsOnline {
		t.Fatalf("profile = %+v", d)
	}
	if _, err := s.Apply(ctx, u.ID, in); !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("duplicate apply err = %v", err)
	}

	if _, err := s.Approve(ctx, d.ID); err != nil {
		t.Fatal(err)
	}
	got, _ := s.GetUser(ctx, u.ID)
	if got.Role != models.RoleDriver {
		t.Fatalf("role = %s, want DRIVER", got.Role)
	}
	if _, err := s.Reject(ctx, d.ID, RejectInput{RejectionReason: "documents expired"}); !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("decide twice err = %v", err)
	}
	if _, err := s.Approve(ctx, "missing"); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("missing err = %v", err)
	}
}

type roleFailStore struct {
	*storage.MemoryStore
	failures int
}

func (f *roleFailStore) SetUserRole(ctx context.Context, id string, role models.Role) error {
	if f.failures > 0 {
		f.failures--
		return errors.New("connection reset")
	}
	return f.MemoryStore.SetUserRole(ctx, id, role)
}

func TestApproveRetryAfterRoleFailure(t *testing.T) {
	st := &roleFailStore{MemoryStore: storage.NewMemoryStore(), failures: 1}
	s := &Service{Store: st, Log: logging.Discard()}
	ctx := context.Background()
	u, _ := s.Register(ctx, RegisterInput{Name: "Dipu", Email: "dipu@example.com"})
	d, err := s.Apply(ctx, u.ID, ApplyInput{VehicleNumber: "DHA-11", VehicleModel: "Axio", LicenseNumber: "L-99"})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.Approve(ctx, d.ID); !apperr.Is(err, apperr.KindInternal) {
		t.Fatalf("first approve err = %v", err)
	}
	if got, _ := s.GetUser(ctx, u.ID); got.Role != models.RoleRider {
		t.Fatalf("role after failed grant = %s", got.Role)
	}

	got, err := s.Approve(ctx, d.ID)
	if err != nil || got.ApplicationStatus != models.ApplicationApproved {
		t.Fatalf("retry = %+v, %v", got, err)
	}
	if u2, _ := s.GetUser(ctx, u.ID); u2.Role != models.RoleDriver {
		t.Fatalf("role after retry = %s, want DRIVER", u2.Role)
	}
}

func TestRejectNeedsReason(t *testing.T) {
	s := newService()
	ctx := context.Background()
	u, _ := s.Register(ctx, RegisterInput{Name: "Dipu", Email: "dipu@example.com"})
	d, _ := s.Apply(ctx, u.ID, ApplyInput{VehicleNumber: "DHA-11", VehicleModel: "Axio", LicenseNumber: "L-99"})
	if _, err := s.Reject(ctx, d.ID, RejectInput{RejectionReason: "no"}); !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("short reason err = %v", err)
	}
	got, err := s.Reject(ctx, d.ID, RejectInput{RejectionReason: "license photo unreadable"})
	if err != nil || got.ApplicationStatus != models.ApplicationRejected || got.RejectionReason == "" {
		t.Fatalf("reject = %+v, %v", got, err)
	}
}

func TestApplyBlockedUser(t *testing.T) {
	s := newService()
	ctx := context.Background()
	u, _ := s.Register(ctx, RegisterInput{Name: "Dipu", Email: "dipu@example.com"})
	_, _ = s.ToggleBlock(ctx, u.ID)
	if _, err := s.Apply(ctx, u.ID, ApplyInput{VehicleNumber: "A", VehicleModel: "B", LicenseNumber: "C"}); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("err = %v", err)
	}
}

func TestAvailabilityAndEarnings(t *testing.T) {
	s := newService()
	ctx := context.Background()
	u, _ := s.Register(ctx, RegisterInput{Name: "Dipu", Email: "dipu@example.com"})
	d, _ := s.Apply(ctx, u.ID, ApplyInput{VehicleNumber: "A", VehicleModel: "B", LicenseNumber: "C"})

	got, err := s.SetOnline(ctx, u.ID, false)
	if err != nil || got.IsOnline {
		t.Fatalf("offline = %+v, %v", got, err)
	}
	e, err := s.Earnings(ctx, u.ID)
	if err != nil || e.Earnings != 0 || e.DriverID != d.ID {
		t.Fatalf("earnings = %+v, %v", e, err)
	}
	if _, err := s.SetSuspended(ctx, d.ID, true); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Earnings(ctx, u.ID); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("suspended earnings err = %v", err)
	}
	if _, err := s.SetOnline(ctx, "not-a-driver", true); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("non-driver err = %v", err)
	}
}
