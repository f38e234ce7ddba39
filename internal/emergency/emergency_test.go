package emergency

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/example/ride-booking/internal/apperr"
	"github.com/example/ride-booking/internal/models"
	"github.com/example/ride-booking/internal/storage"
)

func setup(t *testing.T) (*Service, string) {
	t.Helper()
	st := storage.NewMemoryStore()
	u := &models.User{Name: "Rina", Email: "rina@example.com", Role: models.RoleRider}
	if err := st.CreateUser(context.Background(), u); err != nil {
		t.Fatal(err)
	}
	return &Service{Store: st}, u.ID
}

func contact(i int) CreateInput {
	return CreateInput{Name: fmt.Sprintf("Contact %d", i), Phone: fmt.Sprintf("+88017000000%02d", i), Relationship: models.RelFamily}
}

func primaries(list []models.EmergencyContact) int {
	n := 0
	for _, c := range list {
		if c.IsPrimary {
			n++
		}
	}
	return n
}

func TestFirstContactIsPrimaryAndLimit(t *testing.T) {
	s, uid := setup(t)
	ctx := context.Background()
	first, err := s.Create(ctx, uid, contact(1))
	if err != nil {
		t.Fatal(err)
	}
	if !first.IsPrimary {
		t.Fatal("first contact must be primary")
	}
	for i := 2; i <= MaxContacts; i++ {
		if _, err := s.Create(ctx, uid, contact(i)); err != nil {
			t.Fatalf("contact %d: %v", i, err)
		}
	}
	if _, err := s.Create(ctx, uid, contact(6)); !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("sixth contact err = %v", err)
	}
	list, _ := s.List(ctx, uid)
	if len(list) != MaxContacts || primaries(list) != 1 || list[0].ID != first.ID {
		t.Fatalf("list = %+v", list)
	}
}

func TestNewPrimaryDemotesOld(t *testing.T) {
	s, uid := setup(t)
	ctx := context.Background()
	_, _ = s.Create(ctx, uid, contact(1))
	in := contact(2)
	in.IsPrimary = true
	second, _ := s.Create(ctx, uid, in)
	list, _ := s.List(ctx, uid)
	if primaries(list) != 1 || list[0].ID != second.ID {
		t.Fatalf("list = %+v", list)
	}
}

func TestDeletePrimaryPromotesAnother(t *testing.T) {
	s, uid := setup(t)
	ctx := context.Background()
	first, _ := s.Create(ctx, uid, contact(1))
	second, _ := s.Create(ctx, uid, contact(2))
	if err := s.Delete(ctx, uid, first.ID); err != nil {
		t.Fatal(err)
	}
	list, _ := s.List(ctx, uid)
	if len(list) != 1 || list[0].ID != second.ID || !list[0].IsPrimary {
		t.Fatalf("list = %+v", list)
	}
	if err := s.Delete(ctx, uid, first.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("deleted contact err = %v", err)
	}
}

func TestValidationAndOwnership(t *testing.T) {
	s, uid := setup(t)
	ctx := context.Background()
	bad := contact(1)
	bad.Phone = "017"
	if _, err := s.Create(ctx, uid, bad); !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("bad phone err = %v", err)
	}
	bad = contact(1)
	bad.Relationship = "COUSIN"
	if _, err := s.Create(ctx, uid, bad); !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("bad relationship err = %v", err)
	}
	c, _ := s.Create(ctx, uid, contact(1))
	name := "Someone Else"
	if _, err := s.Update(ctx, "other-user", c.ID, UpdateInput{Name: &name}); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("foreign update err = %v", err)
	}
	got, err := s.Update(ctx, uid, c.ID, UpdateInput{Name: &name})
	if err != nil || got.Name != name {
		t.Fatalf("update = %+v, %v", got, err)
	}
	if _, err := s.Create(ctx, "ghost", contact(2)); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("missing user err = %v", err)
	}
}

func TestConcurrentCreateHonoursLimit(t *testing.T) {
	s, uid := setup(t)
	ctx := context.Background()

	const attempts = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	created, limited := 0, 0
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Create(ctx, uid, contact(i))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case apperr.Is(err, apperr.KindBadRequest):
				limited++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()
	if created != MaxContacts || limited != attempts-MaxContacts {
		t.Fatalf("created=%d limited=%d", created, limited)
	}
	list, _ := s.List(ctx, uid)
	if len(list) != MaxContacts {
		t.Fatalf("stored %d contacts, want %d", len(list), MaxContacts)
	}
}
