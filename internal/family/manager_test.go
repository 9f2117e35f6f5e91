package family

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mmynk/finduo/internal/domain"
	"github.com/mmynk/finduo/internal/models"
	"github.com/mmynk/finduo/internal/storage"
	"github.com/mmynk/finduo/internal/storage/memory"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestManager(t *testing.T, opts ...Option) (*Manager, *domain.Store, *memory.Store) {
	t.Helper()

	tab := memory.New()
	store := domain.New(tab, domain.Options{Location: time.UTC, Logger: discard})
	if err := store.EnsureHeaders(context.Background()); err != nil {
		t.Fatalf("EnsureHeaders failed: %v", err)
	}
	for id, name := range map[int64]string{1: "Ana", 2: "Beto", 3: "Caro", 4: "Dani"} {
		if _, _, err := store.RegisterUser(context.Background(), id, name); err != nil {
			t.Fatalf("RegisterUser failed: %v", err)
		}
	}
	return NewManager(store, discard, opts...), store, tab
}

func TestNewInvitationCode(t *testing.T) {
	for range 200 {
		code, err := NewInvitationCode()
		if err != nil {
			t.Fatalf("NewInvitationCode failed: %v", err)
		}
		if !IsValidCode(code) {
			t.Fatalf("Invalid code %q", code)
		}
	}
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	m, _, tab := newTestManager(t)

	t.Run("creator is the only member", func(t *testing.T) {
		g, err := m.Create(ctx, 1, "  Casa Lopez ")
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if g.Name != "Casa Lopez" {
			t.Errorf("Expected trimmed name, got %q", g.Name)
		}
		if len(g.ID) != 8 {
			t.Errorf("Expected 8 character id, got %q", g.ID)
		}
		if !IsValidCode(g.InvitationCode) {
			t.Errorf("Invalid invitation code %q", g.InvitationCode)
		}
		if !slices.Equal(g.MemberIDs, []int64{1}) || !slices.Equal(g.MemberNames, []string{"Ana"}) {
			t.Errorf("Unexpected members %v %v", g.MemberIDs, g.MemberNames)
		}
		if !g.IsActive() {
			t.Error("Expected new group to be active")
		}

		rows, _ := tab.Partition(storage.PartitionGroups).ListAll(ctx)
		if len(rows) != 1 || rows[0][4] != "1" {
			t.Errorf("Expected persisted group with members \"1\", got %v", rows)
		}
	})

	t.Run("creator already grouped", func(t *testing.T) {
		_, err := m.Create(ctx, 1, "Second")
		if !errors.Is(err, ErrAlreadyInOtherGroup) || !errors.Is(err, models.ErrConflict) {
			t.Errorf("Expected conflict, got %v", err)
		}
	})

	t.Run("name bounds", func(t *testing.T) {
		tests := []struct {
			name   string
			reason string
		}{
			{"ab", "too_short"},
			{"   ", "too_short"},
			{strings.Repeat("x", 51), "too_long"},
		}
		for _, tt := range tests {
			_, err := m.Create(ctx, 2, tt.name)
			var verr *models.ValidationError
			if !errors.As(err, &verr) || verr.Reason != tt.reason {
				t.Errorf("Create(%q) error = %v, want reason %s", tt.name, err, tt.reason)
			}
		}
		if _, err := m.Create(ctx, 2, strings.Repeat("ñ", 50)); err != nil {
			t.Errorf("Expected 50 characters to be accepted, got %v", err)
		}
	})
}

func TestCreateRedrawsCollidingCode(t *testing.T) {
	ctx := context.Background()
	codes := []string{"AAAA1111", "AAAA1111", "BBBB2222"}
	var mu sync.Mutex
	gen := func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		code := codes[0]
		codes = codes[1:]
		return code, nil
	}
	m, _, _ := newTestManager(t, WithCodeGenerator(gen))

	first, err := m.Create(ctx, 1, "Casa Uno")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	second, err := m.Create(ctx, 2, "Casa Dos")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if first.InvitationCode != "AAAA1111" || second.InvitationCode != "BBBB2222" {
		t.Errorf("Expected redraw on collision, got %s and %s", first.InvitationCode, second.InvitationCode)
	}
}

func TestCreateCodeSpaceExhausted(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(t, WithCodeGenerator(func() (string, error) { return "SAME0000", nil }))

	if _, err := m.Create(ctx, 1, "Casa Uno"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := m.Create(ctx, 2, "Casa Dos"); !errors.Is(err, ErrCodeSpaceExhausted) {
		t.Errorf("Expected ErrCodeSpaceExhausted, got %v", err)
	}
	if m.GroupOf(ctx, 2) != nil {
		t.Error("Expected failed create to leave user ungrouped")
	}
}

func TestJoin(t *testing.T) {
	ctx := context.Background()
	m, _, tab := newTestManager(t)

	casa, err := m.Create(ctx, 1, "Casa")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	otra, err := m.Create(ctx, 3, "Otra")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	t.Run("normalizes and joins", func(t *testing.T) {
		g, err := m.Join(ctx, 2, "  "+strings.ToLower(casa.InvitationCode)+" ")
		if err != nil {
			t.Fatalf("Join failed: %v", err)
		}
		if !slices.Equal(g.MemberIDs, []int64{1, 2}) || !slices.Equal(g.MemberNames, []string{"Ana", "Beto"}) {
			t.Errorf("Unexpected members %v %v", g.MemberIDs, g.MemberNames)
		}
		if got := m.GroupOf(ctx, 2); got == nil || got.ID != casa.ID {
			t.Errorf("Expected reverse index to point at %s, got %+v", casa.ID, got)
		}

		rows, _ := tab.Partition(storage.PartitionGroups).ListAll(ctx)
		if len(rows) != 2 {
			t.Fatalf("Expected join to update the existing row, got %d rows", len(rows))
		}
		if rows[0][4] != "1,2" {
			t.Errorf("Expected persisted members 1,2, got %q", rows[0][4])
		}
	})

	t.Run("unknown code", func(t *testing.T) {
		_, err := m.Join(ctx, 4, "ZZZZZZZZ")
		if !errors.Is(err, ErrInvalidCode) || !errors.Is(err, models.ErrNotFound) {
			t.Errorf("Expected not found, got %v", err)
		}
	})

	t.Run("wrong length", func(t *testing.T) {
		_, err := m.Join(ctx, 4, "ABC")
		if !errors.Is(err, models.ErrValidation) {
			t.Errorf("Expected validation error, got %v", err)
		}
	})

	t.Run("already a member", func(t *testing.T) {
		_, err := m.Join(ctx, 2, casa.InvitationCode)
		if !errors.Is(err, ErrAlreadyMember) {
			t.Errorf("Expected ErrAlreadyMember, got %v", err)
		}
	})

	t.Run("member of another group leaves both unchanged", func(t *testing.T) {
		_, err := m.Join(ctx, 3, casa.InvitationCode)
		if !errors.Is(err, ErrAlreadyInOtherGroup) || !errors.Is(err, models.ErrConflict) {
			t.Fatalf("Expected conflict, got %v", err)
		}
		if g := m.GroupOf(ctx, 1); !slices.Equal(g.MemberIDs, []int64{1, 2}) {
			t.Errorf("Expected target group unchanged, got %v", g.MemberIDs)
		}
		if g := m.GroupOf(ctx, 3); g.ID != otra.ID || !slices.Equal(g.MemberIDs, []int64{3}) {
			t.Errorf("Expected own group unchanged, got %+v", g)
		}
	})

	t.Run("inactive groups are not joinable", func(t *testing.T) {
		_ = m.store.Atomically(ctx, func(tx *domain.Tx) error {
			g := tx.Group(otra.ID)
			g.Status = models.GroupStatusInactive
			return tx.SaveGroup(g)
		})
		_, err := m.Join(ctx, 4, otra.InvitationCode)
		if !errors.Is(err, ErrInvalidCode) {
			t.Errorf("Expected inactive group code to be unknown, got %v", err)
		}
		if m.GroupOf(ctx, 3) != nil {
			t.Error("Expected members of an inactive group to be ungrouped")
		}
	})
}

func TestJoinConcurrent(t *testing.T) {
	ctx := context.Background()
	m, store, _ := newTestManager(t)

	for id := int64(10); id < 30; id++ {
		_, _, _ = store.RegisterUser(ctx, id, fmt.Sprintf("Member%d", id))
	}
	g, err := m.Create(ctx, 1, "Casa")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	var wg sync.WaitGroup
	for id := int64(10); id < 30; id++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.Join(ctx, id, g.InvitationCode); err != nil {
				t.Errorf("Join(%d) failed: %v", id, err)
			}
		}()
	}
	wg.Wait()

	got := m.GroupOf(ctx, 1)
	if len(got.MemberIDs) != 21 || len(got.MemberNames) != 21 {
		t.Errorf("Expected 21 synchronized members, got %d ids and %d names", len(got.MemberIDs), len(got.MemberNames))
	}
}

func TestMembers(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(t)

	if got := m.Members(ctx, 4); !slices.Equal(got, []Member{{ID: 4, Name: "Dani"}}) {
		t.Errorf("Expected ungrouped user alone, got %v", got)
	}

	g, _ := m.Create(ctx, 1, "Casa")
	_, _ = m.Join(ctx, 2, g.InvitationCode)
	want := []Member{{ID: 1, Name: "Ana"}, {ID: 2, Name: "Beto"}}
	if got := m.Members(ctx, 2); !slices.Equal(got, want) {
		t.Errorf("Members() = %v, want %v", got, want)
	}
}
