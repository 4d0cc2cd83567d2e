package inmemory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MyNameIsWhaaat/bachub/internal/forum/model"
	"github.com/MyNameIsWhaaat/bachub/internal/forum/storage"
)

func ptr[T any](v T) *T { return &v }

func TestIncrementReportsIsAtomic(t *testing.T) {
	ctx := context.Background()
	repo := New()
	q, err := repo.CreateQuestion(ctx, model.Question{SubjectID: 1, Content: "q"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = repo.IncrementReports(ctx, model.KindQuestion, q.ID)
		}()
	}
	wg.Wait()

	got, err := repo.GetQuestion(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, got.Reports)

	_, err = repo.IncrementReports(ctx, model.KindReply, 999)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDeleteCascadeReply(t *testing.T) {
	ctx := context.Background()
	repo := New()
	q, _ := repo.CreateQuestion(ctx, model.Question{SubjectID: 1, Content: "q"})
	r1, _ := repo.CreateReply(ctx, model.Reply{QuestionID: q.ID, Content: "r1"})
	r2, _ := repo.CreateReply(ctx, model.Reply{QuestionID: q.ID, ParentID: ptr(r1.ID), Content: "r2"})
	r3, _ := repo.CreateReply(ctx, model.Reply{QuestionID: q.ID, ParentID: ptr(r2.ID), Content: "r3"})
	other, _ := repo.CreateReply(ctx, model.Reply{QuestionID: q.ID, Content: "other"})

	a1, err := repo.AddAttachment(ctx, model.Attachment{OwnerKind: model.KindReply, OwnerID: r3.ID, Path: "a1"})
	require.NoError(t, err)
	_, err = repo.AddAttachment(ctx, model.Attachment{OwnerKind: model.KindReply, OwnerID: other.ID, Path: "a2"})
	require.NoError(t, err)

	removed, err := repo.DeleteCascade(ctx, model.KindReply, r1.ID)
	require.NoError(t, err)
	require.Len(t, removed, 1)
	assert.Equal(t, a1.ID, removed[0].ID)

	left, err := repo.ListReplies(ctx, q.ID)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, other.ID, left[0].ID)

	atts, _ := repo.ListAttachments(ctx, model.KindReply, other.ID)
	assert.Len(t, atts, 1)

	_, err = repo.DeleteCascade(ctx, model.KindReply, r1.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDeleteCascadeQuestion(t *testing.T) {
	ctx := context.Background()
	repo := New()
	q, _ := repo.CreateQuestion(ctx, model.Question{SubjectID: 1, Content: "q"})
	r1, _ := repo.CreateReply(ctx, model.Reply{QuestionID: q.ID, Content: "r1"})
	_, _ = repo.CreateReply(ctx, model.Reply{QuestionID: q.ID, ParentID: ptr(r1.ID), Content: "r2"})
	_, _ = repo.AddAttachment(ctx, model.Attachment{OwnerKind: model.KindQuestion, OwnerID: q.ID, Path: "q"})
	_, _ = repo.AddAttachment(ctx, model.Attachment{OwnerKind: model.KindReply, OwnerID: r1.ID, Path: "r"})

	removed, err := repo.DeleteCascade(ctx, model.KindQuestion, q.ID)
	require.NoError(t, err)
	assert.Len(t, removed, 2)

	left, _ := repo.ListReplies(ctx, q.ID)
	assert.Empty(t, left)
	_, err = repo.GetQuestion(ctx, q.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestResourceLinkIsUnique(t *testing.T) {
	ctx := context.Background()
	repo := New()
	_, err := repo.CreateResource(ctx, model.Resource{Name: "a", Link: "https://x.test/a"})
	require.NoError(t, err)
	_, err = repo.CreateResource(ctx, model.Resource{Name: "b", Link: "https://x.test/a"})
	assert.ErrorIs(t, err, storage.ErrConflict)
}
