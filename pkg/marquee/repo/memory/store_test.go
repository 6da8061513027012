package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavespeak/marquee/pkg/marquee"
	"github.com/wavespeak/marquee/pkg/marquee/repo/memory"
)

func beginUow(t *testing.T, store *memory.Store) marquee.UnitOfWork {
	t.Helper()
	uow, err := store.Begin(context.Background())
	require.NoError(t, err)
	return uow
}

func TestResourceRepositoryLifecycle(t *testing.T) {
	store := memory.New()
	uow := beginUow(t, store)
	ctx := context.Background()
	repo := uow.ResourceRepository()

	id, err := repo.Insert(ctx, "m1", marquee.ResourceTypeMember, 1)
	require.NoError(t, err)
	assert.Equal(t, marquee.ResourceID("m1"), id)

	_, err = repo.Insert(ctx, "m1", marquee.ResourceTypeMember, 1)
	assert.ErrorIs(t, err, marquee.ErrAlreadyExists)

	// Same id under a different kind is a distinct record.
	_, err = repo.Insert(ctx, "m1", marquee.ResourceTypeArticle, 1)
	require.NoError(t, err)

	exists, err := repo.Contains(ctx, "m1", marquee.ResourceTypeMember)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, repo.Delete(ctx, "m1", marquee.ResourceTypeMember))

	exists, err = repo.Contains(ctx, "m1", marquee.ResourceTypeMember)
	require.NoError(t, err)
	assert.False(t, exists)

	assert.ErrorIs(t, repo.Delete(ctx, "m1", marquee.ResourceTypeMember), marquee.ErrNotFound)

	// Re-inserting after a soft delete starts a fresh live record.
	_, err = repo.Insert(ctx, "m1", marquee.ResourceTypeMember, 2)
	require.NoError(t, err)
}

func TestResourceRepositoryUpdateSeq(t *testing.T) {
	store := memory.New()
	uow := beginUow(t, store)
	ctx := context.Background()
	repo := uow.ResourceRepository()

	_, err := repo.Insert(ctx, "m1", marquee.ResourceTypeMember, 1)
	require.NoError(t, err)

	require.NoError(t, repo.UpdateSeq(ctx, "m1", 9))
	assert.ErrorIs(t, repo.UpdateSeq(ctx, "missing", 9), marquee.ErrNotFound)
}

func TestContentRepositoryLifecycle(t *testing.T) {
	store := memory.New()
	uow := beginUow(t, store)
	ctx := context.Background()
	repo := uow.ContentRepository()

	_, err := repo.Insert(ctx, "m1", marquee.ContentData(`{"name":"Boris"}`), marquee.LanguageZH)
	require.NoError(t, err)

	_, err = repo.Insert(ctx, "m1", marquee.ContentData(`{}`), marquee.LanguageZH)
	assert.ErrorIs(t, err, marquee.ErrAlreadyExists)

	// The other language slot is independent.
	_, err = repo.Insert(ctx, "m1", marquee.ContentData(`{"name":"Boris"}`), marquee.LanguageEN)
	require.NoError(t, err)

	data, err := repo.Get(ctx, "m1", marquee.LanguageZH)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Boris"}`, string(data))

	require.NoError(t, repo.Update(ctx, "m1", marquee.ContentData(`{"name":"Ada"}`), marquee.LanguageZH))
	data, err = repo.Get(ctx, "m1", marquee.LanguageZH)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Ada"}`, string(data))

	assert.ErrorIs(t, repo.Update(ctx, "missing", marquee.ContentData(`{}`), marquee.LanguageZH), marquee.ErrNotFound)

	_, err = repo.Get(ctx, "missing", marquee.LanguageZH)
	assert.ErrorIs(t, err, marquee.ErrNotFound)

	entries, err := repo.List(ctx, marquee.LanguageZH)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestAvatarRepositoryUpsert(t *testing.T) {
	store := memory.New()
	uow := beginUow(t, store)
	ctx := context.Background()
	repo := uow.AvatarRepository()

	// Absence is not an error.
	avatar, err := repo.Get(ctx, "m1")
	require.NoError(t, err)
	assert.Nil(t, avatar)

	_, err = repo.Save(ctx, "m1", marquee.AvatarData{LargeImage: "l1", SmallImage: "s1"})
	require.NoError(t, err)

	_, err = repo.Save(ctx, "m1", marquee.AvatarData{LargeImage: "l2", SmallImage: "s2"})
	require.NoError(t, err)

	avatar, err = repo.Get(ctx, "m1")
	require.NoError(t, err)
	require.NotNil(t, avatar)
	assert.Equal(t, "l2", avatar.LargeImage)
	assert.Equal(t, "s2", avatar.SmallImage)
}

func TestViewRepositorySave(t *testing.T) {
	store := memory.New()
	uow := beginUow(t, store)
	ctx := context.Background()

	id1, err := uow.ViewRepository().Save(ctx, "a1", "203.0.113.9", "curl/8")
	require.NoError(t, err)
	id2, err := uow.ViewRepository().Save(ctx, "a1", "203.0.113.9", "curl/8")
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	// Views land in the store only on commit.
	assert.Empty(t, store.Views())
	require.NoError(t, uow.Commit(ctx))
	assert.Len(t, store.Views(), 2)
}

func TestWritesInvisibleUntilCommit(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	uow := beginUow(t, store)
	_, err := uow.ResourceRepository().Insert(ctx, "m1", marquee.ResourceTypeMember, 1)
	require.NoError(t, err)
	_, err = uow.ContentRepository().Insert(ctx, "m1", marquee.ContentData(`{"name":"Boris"}`), marquee.LanguageZH)
	require.NoError(t, err)

	// The writing unit of work reads its own staged state.
	res, err := uow.GetResource(ctx, "m1", marquee.LanguageZH, marquee.ResourceTypeMember)
	require.NoError(t, err)
	assert.Equal(t, "m1", res.ID)

	// Another unit of work does not, until the first commits.
	other := beginUow(t, store)
	_, err = other.GetResource(ctx, "m1", marquee.LanguageZH, marquee.ResourceTypeMember)
	assert.ErrorIs(t, err, marquee.ErrNotFound)
	require.NoError(t, other.Rollback(ctx))

	require.NoError(t, uow.Commit(ctx))

	after := beginUow(t, store)
	defer after.Rollback(ctx)
	res, err = after.GetResource(ctx, "m1", marquee.LanguageZH, marquee.ResourceTypeMember)
	require.NoError(t, err)
	assert.Equal(t, "m1", res.ID)
}

func TestRollbackDiscardsStagedWrites(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	uow := beginUow(t, store)
	_, err := uow.ResourceRepository().Insert(ctx, "m1", marquee.ResourceTypeMember, 1)
	require.NoError(t, err)
	_, err = uow.ContentRepository().Insert(ctx, "m1", marquee.ContentData(`{"name":"Boris"}`), marquee.LanguageZH)
	require.NoError(t, err)
	_, err = uow.AvatarRepository().Save(ctx, "m1", marquee.AvatarData{LargeImage: "l", SmallImage: "s"})
	require.NoError(t, err)
	_, err = uow.ViewRepository().Save(ctx, "a1", "203.0.113.9", "curl/8")
	require.NoError(t, err)
	require.NoError(t, uow.Rollback(ctx))

	after := beginUow(t, store)
	defer after.Rollback(ctx)

	_, err = after.GetResource(ctx, "m1", marquee.LanguageZH, marquee.ResourceTypeMember)
	assert.ErrorIs(t, err, marquee.ErrNotFound)
	_, err = after.ContentRepository().Get(ctx, "m1", marquee.LanguageZH)
	assert.ErrorIs(t, err, marquee.ErrNotFound)
	avatar, err := after.AvatarRepository().Get(ctx, "m1")
	require.NoError(t, err)
	assert.Nil(t, avatar)
	assert.Empty(t, store.Views())
}

func TestRollbackKeepsSoftDeleteInPlace(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	setup := beginUow(t, store)
	_, err := setup.ResourceRepository().Insert(ctx, "m1", marquee.ResourceTypeMember, 1)
	require.NoError(t, err)
	_, err = setup.ContentRepository().Insert(ctx, "m1", marquee.ContentData(`{"name":"Boris"}`), marquee.LanguageZH)
	require.NoError(t, err)
	require.NoError(t, setup.Commit(ctx))

	del := beginUow(t, store)
	require.NoError(t, del.ResourceRepository().Delete(ctx, "m1", marquee.ResourceTypeMember))
	require.NoError(t, del.Commit(ctx))

	// A rolled-back re-insert of the deleted id must not resurrect it. The
	// resource insert succeeds within the unit of work, the surviving content
	// row then rejects the content insert, and the rollback discards both.
	recreate := beginUow(t, store)
	_, err = recreate.ResourceRepository().Insert(ctx, "m1", marquee.ResourceTypeMember, 2)
	require.NoError(t, err)
	_, err = recreate.ContentRepository().Insert(ctx, "m1", marquee.ContentData(`{"name":"Mallory"}`), marquee.LanguageZH)
	assert.ErrorIs(t, err, marquee.ErrAlreadyExists)
	require.NoError(t, recreate.Rollback(ctx))

	after := beginUow(t, store)
	defer after.Rollback(ctx)
	_, err = after.GetResource(ctx, "m1", marquee.LanguageZH, marquee.ResourceTypeMember)
	assert.ErrorIs(t, err, marquee.ErrNotFound)
}

func TestUnitOfWorkRejectsUseAfterFinalize(t *testing.T) {
	ctx := context.Background()

	t.Run("after commit", func(t *testing.T) {
		store := memory.New()
		uow := beginUow(t, store)
		require.NoError(t, uow.Commit(ctx))

		_, err := uow.ResourceRepository().Insert(ctx, "m1", marquee.ResourceTypeMember, 1)
		assert.ErrorIs(t, err, marquee.ErrTxDone)
		assert.ErrorIs(t, uow.Commit(ctx), marquee.ErrTxDone)
		assert.ErrorIs(t, uow.Rollback(ctx), marquee.ErrTxDone)
	})

	t.Run("after rollback", func(t *testing.T) {
		store := memory.New()
		uow := beginUow(t, store)
		require.NoError(t, uow.Rollback(ctx))

		_, err := uow.GetResource(ctx, "m1", marquee.LanguageZH, marquee.ResourceTypeMember)
		assert.ErrorIs(t, err, marquee.ErrTxDone)

		_, err = uow.ListResources(ctx, marquee.LanguageZH, marquee.ResourceTypeMember, "", marquee.PaginationAll())
		assert.ErrorIs(t, err, marquee.ErrTxDone)

		_, err = uow.CountResources(ctx, marquee.LanguageZH, marquee.ResourceTypeMember)
		assert.ErrorIs(t, err, marquee.ErrTxDone)
	})
}

func TestFailingStoreInjectsErrors(t *testing.T) {
	store := memory.NewFailing()
	uow := beginUow(t, store)
	ctx := context.Background()

	_, err := uow.ResourceRepository().Insert(ctx, "m1", marquee.ResourceTypeMember, 1)
	require.Error(t, err)
	assert.NotErrorIs(t, err, marquee.ErrTxDone)

	_, err = uow.ContentRepository().Get(ctx, "m1", marquee.LanguageZH)
	require.Error(t, err)
}
