package domain

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/mmynk/finduo/internal/models"
	"github.com/mmynk/finduo/internal/storage"
)

// EnsureHeaders writes the header row of every domain partition.
// A partition whose header differs is reset by the adapter.
func (s *Store) EnsureHeaders(ctx context.Context) error {
	for _, name := range slices.Sorted(maps.Keys(Headers)) {
		cctx, cancel := s.withTimeout(ctx)
		err := s.tab.Partition(name).EnsureHeaders(cctx, Headers[name])
		cancel()
		if err != nil {
			return fmt.Errorf("failed to ensure headers of %s: %w", name, err)
		}
	}
	return nil
}

// Load reads every domain partition once and replaces the in-memory state.
// Malformed rows are logged, counted and skipped. A partition that cannot
// be read is logged and left empty; Load never aborts on a single partition.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	p := rowParser{loc: s.loc, now: s.Now()}

	s.users = make(map[int64]*models.User)
	s.groups = make(map[string]*models.FamilyGroup)
	s.userGroup = make(map[int64]string)
	s.budgets = make(map[int64]map[string]float64)
	s.goals = make(map[int64][]models.Goal)
	s.categories = make(map[int64]map[models.RecordType][]string)
	s.paydays = make(map[int64]*models.PaydaySchedule)

	for _, row := range s.listPartition(ctx, storage.PartitionUsers) {
		u, err := p.user(row, s.defaults)
		if err != nil {
			s.skipRow(storage.PartitionUsers, row, err)
			continue
		}
		s.users[u.ID] = u
	}

	for _, row := range s.listPartition(ctx, storage.PartitionGroups) {
		g, err := p.group(row)
		if err != nil {
			s.skipRow(storage.PartitionGroups, row, err)
			continue
		}
		s.loadGroup(g)
	}

	for _, row := range s.listPartition(ctx, storage.PartitionBudgets) {
		b, err := p.budget(row)
		if err != nil {
			s.skipRow(storage.PartitionBudgets, row, err)
			continue
		}
		if s.budgets[b.userID] == nil {
			s.budgets[b.userID] = make(map[string]float64)
		}
		s.budgets[b.userID][b.category] = b.amount
	}

	for _, row := range s.listPartition(ctx, storage.PartitionGoals) {
		userID, g, err := p.goal(row)
		if err != nil {
			s.skipRow(storage.PartitionGoals, row, err)
			continue
		}
		s.goals[userID] = append(s.goals[userID], g)
	}

	for _, row := range s.listPartition(ctx, storage.PartitionCategories) {
		c, err := p.category(row)
		if err != nil {
			s.skipRow(storage.PartitionCategories, row, err)
			continue
		}
		if s.categories[c.userID] == nil {
			s.categories[c.userID] = make(map[models.RecordType][]string)
		}
		if !slices.Contains(s.categories[c.userID][c.recordType], c.name) {
			s.categories[c.userID][c.recordType] = append(s.categories[c.userID][c.recordType], c.name)
		}
	}

	for _, row := range s.listPartition(ctx, storage.PartitionPaydays) {
		pd, err := p.payday(row)
		if err != nil {
			s.skipRow(storage.PartitionPaydays, row, err)
			continue
		}
		s.paydays[pd.UserID] = pd
	}

	// Users that only carry the legacy day-of-month on their own row get a
	// monthly schedule.
	for id, u := range s.users {
		if _, ok := s.paydays[id]; ok || u.PaydayDay < 1 || u.PaydayDay > 31 {
			continue
		}
		s.paydays[id] = &models.PaydaySchedule{UserID: id, Day: u.PaydayDay}
	}

	s.logger.Info("domain store loaded",
		"users", len(s.users),
		"groups", len(s.groups),
		"goals", countGoals(s.goals),
		"paydays", len(s.paydays),
		"duration", time.Since(start),
	)
	return nil
}

func (s *Store) listPartition(ctx context.Context, name string) []storage.Row {
	start := time.Now()
	defer func() { s.metrics.RecordStoreLatency("list", time.Since(start)) }()

	cctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.tab.Partition(name).ListAll(cctx)
	if err != nil {
		s.logger.Warn("failed to load partition",
			"partition", name,
			"error", fmt.Errorf("%w: %w", models.ErrBackendUnavailable, err),
		)
		s.metrics.RecordSyncFailure(name)
		return nil
	}
	return rows
}

// loadGroup indexes a loaded group. Member names are resolved from users.
// A user listed in two active groups keeps the first one.
func (s *Store) loadGroup(g *models.FamilyGroup) {
	var (
		ids   []int64
		names []string
	)
	for _, id := range g.MemberIDs {
		if g.IsActive() {
			if other, ok := s.userGroup[id]; ok && other != g.ID {
				s.logger.Warn("user listed in two groups, keeping the first",
					"user_id", id,
					"group_id", g.ID,
					"kept_group_id", other,
				)
				continue
			}
		}
		name := models.PlaceholderName(id)
		if u, ok := s.users[id]; ok {
			name = u.DisplayName
		}
		ids = append(ids, id)
		names = append(names, name)
	}
	g.MemberIDs = ids
	g.MemberNames = names

	s.groups[g.ID] = g
	if g.IsActive() {
		for _, id := range g.MemberIDs {
			s.userGroup[id] = g.ID
		}
	}
}

func (s *Store) skipRow(partition string, row storage.Row, err error) {
	s.logger.Warn("skipping malformed row",
		"partition", partition,
		"cells", len(row),
		"error", err,
	)
	s.metrics.RecordRowSkipped(partition)
}

func countGoals(goals map[int64][]models.Goal) int {
	n := 0
	for _, g := range goals {
		n += len(g)
	}
	return n
}
