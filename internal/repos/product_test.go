package repos

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/Kelvin-Wepo/ZillaPrice/internal/repos/testutil"
	"github.com/Kelvin-Wepo/ZillaPrice/internal/types"
)

func TestProductRepo_NormalizedNameLookupAndSearch(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewProductRepo(db, testutil.Logger(t))
	ctx := context.Background()

	created, err := repo.Create(ctx, tx, &types.Product{
		Name:           "Apple iPhone 15 Pro",
		NormalizedName: "apple iphone 15 pro",
		Brand:          "Apple",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.GetByNormalizedName(ctx, tx, "apple iphone 15 pro")
	if err != nil || got == nil || got.ID != created.ID {
		t.Fatalf("GetByNormalizedName: %+v %v", got, err)
	}

	missing, err := repo.GetByNormalizedName(ctx, tx, "no such product")
	if err != nil || missing != nil {
		t.Fatalf("expected nil for unknown normalized name, got %+v %v", missing, err)
	}

	found, err := repo.SearchByName(ctx, tx, "IPHONE", 5)
	if err != nil {
		t.Fatalf("SearchByName: %v", err)
	}
	if len(found) != 1 || found[0].ID != created.ID {
		t.Fatalf("SearchByName should match case-insensitively, got %+v", found)
	}
}

func TestProductRepo_IncrementSearchCount(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewProductRepo(db, testutil.Logger(t))
	ctx := context.Background()

	a, err := repo.Create(ctx, tx, &types.Product{Name: "A", NormalizedName: "inc-a"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	b, err := repo.Create(ctx, tx, &types.Product{Name: "B", NormalizedName: "inc-b"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := repo.IncrementSearchCount(ctx, tx, []uuid.UUID{a.ID, b.ID}); err != nil {
		t.Fatalf("IncrementSearchCount: %v", err)
	}
	if err := repo.IncrementSearchCount(ctx, tx, []uuid.UUID{a.ID}); err != nil {
		t.Fatalf("IncrementSearchCount: %v", err)
	}
	if err := repo.IncrementSearchCount(ctx, tx, nil); err != nil {
		t.Fatalf("IncrementSearchCount with no ids: %v", err)
	}

	gotA, _ := repo.GetByID(ctx, tx, a.ID)
	gotB, _ := repo.GetByID(ctx, tx, b.ID)
	if gotA.SearchCount != 2 || gotB.SearchCount != 1 {
		t.Fatalf("search counts = %d/%d, want 2/1", gotA.SearchCount, gotB.SearchCount)
	}
}
