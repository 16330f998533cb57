package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/reconcile-backend/internal/domain/ledger"
)

// repositories runs each test against SQLite and the in-memory mock so the
// two stay interchangeable.
func repositories(t *testing.T) map[string]func(t *testing.T) Repository {
	return map[string]func(t *testing.T) Repository{
		"sqlite": func(t *testing.T) Repository {
			tmpDB := createTempDB(t)
			t.Cleanup(func() { os.Remove(tmpDB) })

			store, err := NewStorage(tmpDB)
			require.NoError(t, err)
			t.Cleanup(func() { store.Close() })
			return store
		},
		"mock": func(t *testing.T) Repository {
			return NewMockRepository()
		},
	}
}

func entry(id string, side ledger.Side, amount string, day int) ledger.Entry {
	return ledger.Entry{
		ID:          id,
		OwnerID:     "owner-1",
		Side:        side,
		Date:        ledger.NewDate(2024, time.January, day),
		Description: "desc " + id,
		Amount:      decimal.RequireFromString(amount),
	}
}

func match(id, bank, internal, group string) ledger.MatchRecord {
	return ledger.MatchRecord{
		ID:              id,
		OwnerID:         "owner-1",
		BankEntryID:     bank,
		InternalEntryID: internal,
		MatchType:       ledger.MatchManual,
		GroupID:         group,
		CreatedAt:       time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
	}
}

func seed(t *testing.T, repo Repository) {
	t.Helper()
	internal := entry("f1", ledger.SideInternal, "50.00", 10)
	internal.SubGroup = "Invoice ABC1D23"

	err := repo.InsertEntries(context.Background(), []ledger.Entry{
		entry("b1", ledger.SideBank, "30.00", 10),
		entry("b2", ledger.SideBank, "20.00", 10),
		entry("b3", ledger.SideBank, "-12.34", 11),
		internal,
		entry("f2", ledger.SideInternal, "-12.34", 11),
	})
	require.NoError(t, err)
}

func TestRepository_EntriesRoundTrip(t *testing.T) {
	for name, open := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			// Arrange
			repo := open(t)
			ctx := context.Background()
			seed(t, repo)

			// Act
			bank, err := repo.ListEntries(ctx, "owner-1", ledger.SideBank)
			require.NoError(t, err)
			internal, err := repo.ListEntries(ctx, "owner-1", ledger.SideInternal)
			require.NoError(t, err)

			// Assert
			require.Len(t, bank, 3)
			assert.Equal(t, []string{"b1", "b2", "b3"}, []string{bank[0].ID, bank[1].ID, bank[2].ID})
			assert.Equal(t, ledger.NewDate(2024, time.January, 11), bank[2].Date)
			assert.True(t, bank[2].Amount.Equal(decimal.RequireFromString("-12.34")))
			assert.Equal(t, ledger.SideBank, bank[0].Side)

			require.Len(t, internal, 2)
			assert.Equal(t, "Invoice ABC1D23", internal[0].SubGroup)

			other, err := repo.ListEntries(ctx, "owner-2", ledger.SideBank)
			require.NoError(t, err)
			assert.Empty(t, other)
		})
	}
}

func TestRepository_InsertEntriesIsAtomic(t *testing.T) {
	for name, open := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			repo := open(t)
			ctx := context.Background()

			err := repo.InsertEntries(ctx, []ledger.Entry{
				entry("b1", ledger.SideBank, "1.00", 1),
				entry("x1", ledger.Side("OTHER"), "1.00", 1),
			})
			require.Error(t, err)

			bank, err := repo.ListEntries(ctx, "owner-1", ledger.SideBank)
			require.NoError(t, err)
			assert.Empty(t, bank)
		})
	}
}

func TestRepository_UnmatchLocality(t *testing.T) {
	for name, open := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			// A three-member group loses one record; the other two remain.
			repo := open(t)
			ctx := context.Background()
			seed(t, repo)
			require.NoError(t, repo.InsertMatches(ctx, []ledger.MatchRecord{
				match("m1", "b1", "f1", "g1"),
				match("m2", "b2", "f1", "g1"),
				match("m3", "b3", "f1", "g1"),
			}))

			require.NoError(t, repo.DeleteMatch(ctx, "owner-1", "m2"))

			matches, err := repo.ListMatches(ctx, "owner-1")
			require.NoError(t, err)
			require.Len(t, matches, 2)
			assert.Equal(t, "m1", matches[0].ID)
			assert.Equal(t, "m3", matches[1].ID)
			assert.Equal(t, "g1", matches[1].GroupID)

			got, err := repo.GetMatch(ctx, "owner-1", "m3")
			require.NoError(t, err)
			assert.Equal(t, ledger.MatchManual, got.MatchType)
			assert.True(t, got.CreatedAt.Equal(time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)))

			assert.ErrorIs(t, repo.DeleteMatch(ctx, "owner-1", "m2"), ErrNotFound)
			_, err = repo.GetMatch(ctx, "owner-1", "m2")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestRepository_DeleteMatchIsOwnerScoped(t *testing.T) {
	for name, open := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			repo := open(t)
			ctx := context.Background()
			seed(t, repo)
			require.NoError(t, repo.InsertMatches(ctx, []ledger.MatchRecord{match("m1", "b1", "f1", "g1")}))

			assert.ErrorIs(t, repo.DeleteMatch(ctx, "owner-2", "m1"), ErrNotFound)

			matches, err := repo.ListMatches(ctx, "owner-1")
			require.NoError(t, err)
			assert.Len(t, matches, 1)
		})
	}
}

func TestRepository_InsertMatchesConflict(t *testing.T) {
	for name, open := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			repo := open(t)
			ctx := context.Background()
			seed(t, repo)
			require.NoError(t, repo.InsertMatches(ctx, []ledger.MatchRecord{match("m1", "b1", "f1", "g1")}))

			// b1 is already in g1; a second pass claiming it again must fail
			// and leave nothing from its batch behind.
			err := repo.InsertMatches(ctx, []ledger.MatchRecord{
				match("m2", "b3", "f2", "g2"),
				match("m3", "b1", "f2", "g2"),
			})
			assert.ErrorIs(t, err, ErrMatchConflict)

			// The exact same pair again is a conflict too.
			err = repo.InsertMatches(ctx, []ledger.MatchRecord{match("m4", "b1", "f1", "g1")})
			assert.ErrorIs(t, err, ErrMatchConflict)

			matches, err := repo.ListMatches(ctx, "owner-1")
			require.NoError(t, err)
			require.Len(t, matches, 1)
			assert.Equal(t, "m1", matches[0].ID)
		})
	}
}

func TestRepository_InsertMatchesRejectsUnknownType(t *testing.T) {
	for name, open := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			repo := open(t)
			ctx := context.Background()
			seed(t, repo)

			bad := match("m2", "b3", "f2", "g2")
			bad.MatchType = "FUZZY"
			err := repo.InsertMatches(ctx, []ledger.MatchRecord{match("m1", "b1", "f1", "g1"), bad})
			assert.ErrorIs(t, err, ErrInvalidMatchType)

			matches, err := repo.ListMatches(ctx, "owner-1")
			require.NoError(t, err)
			assert.Empty(t, matches)

			_, err = repo.GetMatch(ctx, "owner-1", "m1")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestRepository_DeleteOwnerData(t *testing.T) {
	for name, open := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			repo := open(t)
			ctx := context.Background()
			seed(t, repo)

			otherOwner := entry("b9", ledger.SideBank, "9.00", 1)
			otherOwner.OwnerID = "owner-2"
			require.NoError(t, repo.InsertEntries(ctx, []ledger.Entry{otherOwner}))
			require.NoError(t, repo.InsertMatches(ctx, []ledger.MatchRecord{match("m1", "b1", "f1", "g1")}))

			require.NoError(t, repo.DeleteOwnerData(ctx, "owner-1"))

			bank, err := repo.ListEntries(ctx, "owner-1", ledger.SideBank)
			require.NoError(t, err)
			assert.Empty(t, bank)
			matches, err := repo.ListMatches(ctx, "owner-1")
			require.NoError(t, err)
			assert.Empty(t, matches)

			kept, err := repo.ListEntries(ctx, "owner-2", ledger.SideBank)
			require.NoError(t, err)
			assert.Len(t, kept, 1)
		})
	}
}

func TestRepository_Rules(t *testing.T) {
	for name, open := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			repo := open(t)
			ctx := context.Background()

			_, err := repo.GetRules(ctx, "owner-1")
			assert.ErrorIs(t, err, ErrNotFound)

			rules := ledger.DefaultRules("owner-1")
			rules.UpdatedAt = time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC)
			require.NoError(t, repo.SaveRules(ctx, rules))

			rules.ValueTolerance = decimal.RequireFromString("0.10")
			rules.DateToleranceDays = 3
			require.NoError(t, repo.SaveRules(ctx, rules))

			got, err := repo.GetRules(ctx, "owner-1")
			require.NoError(t, err)
			assert.True(t, got.ValueTolerance.Equal(decimal.RequireFromString("0.10")))
			assert.Equal(t, 3, got.DateToleranceDays)
			assert.Equal(t, "owner-1", got.OwnerID)
		})
	}
}

func TestRepository_ImportRuns(t *testing.T) {
	for name, open := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			repo := open(t)
			ctx := context.Background()

			first := &ImportRun{OwnerID: "owner-1", Side: "BANK", FileName: "a.xlsx", Format: "GENERIC", Status: ImportStatusImported, Accepted: 10, Rejected: 2}
			second := &ImportRun{OwnerID: "owner-1", Side: "INTERNAL", FileName: "b.xlsx", Format: "ERP", Status: ImportStatusFailed, Error: "corrupt"}
			require.NoError(t, repo.RecordImportRun(ctx, first))
			require.NoError(t, repo.RecordImportRun(ctx, second))
			assert.NotZero(t, first.ID)
			assert.Greater(t, second.ID, first.ID)

			runs, err := repo.ListImportRuns(ctx, "owner-1", 0)
			require.NoError(t, err)
			require.Len(t, runs, 2)
			assert.Equal(t, "b.xlsx", runs[0].FileName)
			assert.Equal(t, "corrupt", runs[0].Error)
			assert.Equal(t, 10, runs[1].Accepted)

			runs, err = repo.ListImportRuns(ctx, "owner-1", 1)
			require.NoError(t, err)
			assert.Len(t, runs, 1)
		})
	}
}
