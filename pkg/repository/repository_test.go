package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"idlezoo/pkg/db/option"
	"idlezoo/services/testutil"
)

type widget struct {
	ID        string `gorm:"column:id;primaryKey"`
	Owner     string `gorm:"column:owner;index"`
	Size      int64  `gorm:"column:size"`
	CreatedAt time.Time
}

func TestStoreRoundTrip(t *testing.T) {
	db := testutil.NewTestDB(t, &widget{})
	repo := ProvideStore[widget](db)
	ctx := context.Background()

	require.NoError(t, repo.BatchCreate(ctx, []*widget{
		{ID: "w1", Owner: "a", Size: 1},
		{ID: "w2", Owner: "a", Size: 5},
		{ID: "w3", Owner: "b", Size: 3},
	}))

	found, err := repo.Find(ctx, &widget{Owner: "a"},
		option.ApplyOperator(option.Condition{Field: "size", Operator: option.GT, Value: 2}))
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, "w2", found[0].ID)

	missing, err := repo.FindOne(ctx, &widget{ID: "nope"})
	require.NoError(t, err)
	require.Nil(t, missing)

	require.NoError(t, repo.Update(ctx, "w1", map[string]any{"size": 9}))
	w1, err := repo.FindOne(ctx, &widget{ID: "w1"}, option.WithLockingUpdate())
	require.NoError(t, err)
	require.Equal(t, int64(9), w1.Size)

	require.ErrorIs(t, repo.Update(ctx, "nope", map[string]any{"size": 1}), gorm.ErrRecordNotFound)

	count, err := repo.Count(ctx, &widget{Owner: "a"})
	require.NoError(t, err)
	require.Equal(t, int64(2), count)
}

func TestStoreSortAndLimit(t *testing.T) {
	db := testutil.NewTestDB(t, &widget{})
	repo := ProvideStore[widget](db)
	ctx := context.Background()

	require.NoError(t, repo.BatchCreate(ctx, []*widget{
		{ID: "w1", Owner: "a", Size: 1},
		{ID: "w2", Owner: "a", Size: 5},
		{ID: "w3", Owner: "a", Size: 3},
	}))

	found, err := repo.Find(ctx, &widget{Owner: "a"},
		option.WithSortBy(option.QuerySortBy{SortBy: "size", OrderBy: "desc", Allow: map[string]bool{"size": true}}),
		option.WithLimit(2))
	require.NoError(t, err)
	require.Len(t, found, 2)
	require.Equal(t, "w2", found[0].ID)
	require.Equal(t, "w3", found[1].ID)
}

func TestWithTrxRollback(t *testing.T) {
	db := testutil.NewTestDB(t, &widget{})
	repo := ProvideStore[widget](db)
	ctx := context.Background()

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := repo.WithTrx(tx).Create(ctx, &widget{ID: "w1", Owner: "a"}); err != nil {
			return err
		}
		return gorm.ErrInvalidData
	})
	require.ErrorIs(t, err, gorm.ErrInvalidData)

	count, err := repo.Count(ctx, &widget{})
	require.NoError(t, err)
	require.Zero(t, count)
}
