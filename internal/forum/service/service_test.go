package service

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MyNameIsWhaaat/bachub/internal/forum/blob"
	"github.com/MyNameIsWhaaat/bachub/internal/forum/model"
	"github.com/MyNameIsWhaaat/bachub/internal/forum/ratelimit"
	"github.com/MyNameIsWhaaat/bachub/internal/forum/storage"
	inm "github.com/MyNameIsWhaaat/bachub/internal/forum/storage/inmemory"
	"github.com/MyNameIsWhaaat/bachub/internal/forum/tree"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	svc   ForumService
	repo  *inm.Repo
	clock *clock
	dir   string
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	c := &clock{t: time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)}
	repo := inm.New()
	dir := t.TempDir()
	blobs, err := blob.NewLocalStore(dir, "/media")
	require.NoError(t, err)
	limiter := ratelimit.New(ratelimit.NewMemoryStore(), nil, ratelimit.WithClock(c.Now))
	return &fixture{svc: New(repo, limiter, blobs, opts...), repo: repo, clock: c, dir: dir}
}

var (
	alice = model.UserActor(1, false)
	bob   = model.UserActor(2, false)
	staff = model.UserActor(3, true)
	anon  = model.AnonymousActor("198.51.100.4")
)

func ptr[T any](v T) *T { return &v }

func (f *fixture) question(t *testing.T, actor model.Actor) model.Question {
	t.Helper()
	q, err := f.svc.CreateQuestion(context.Background(), actor, model.NewQuestion{SubjectID: 1, Content: "how do limits work"})
	require.NoError(t, err)
	return q
}

func (f *fixture) reply(t *testing.T, actor model.Actor, questionID int64, parent *int64) model.ReplyNode {
	t.Helper()
	r, err := f.svc.CreateReply(context.Background(), actor, model.NewReply{QuestionID: questionID, ParentID: parent, Content: "answer"})
	require.NoError(t, err)
	return r
}

func (f *fixture) resource(t *testing.T, actor model.Actor) model.Resource {
	t.Helper()
	r, err := f.svc.CreateResource(context.Background(), actor, model.NewResource{
		Name:        "Algebra summary",
		Description: "chapter one",
		SubjectID:   4,
		Type:        model.ResourceSummary,
		Link:        "https://files.example.com/algebra.pdf",
	})
	require.NoError(t, err)
	return r
}

func TestReportResourceSixTimesDeletes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	res := f.resource(t, alice)

	for want := 1; want <= 5; want++ {
		out, err := f.svc.ReportResource(ctx, anon, res.ID)
		require.NoError(t, err)
		assert.Equal(t, model.ReportOutcome{Count: want}, out)
		f.clock.Advance(24 * time.Hour)
	}

	out, err := f.svc.ReportResource(ctx, anon, res.ID)
	require.NoError(t, err)
	assert.True(t, out.Deleted)

	_, err = f.svc.GetResource(ctx, res.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReportWithinCooldownIsRateLimited(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	q := f.question(t, alice)
	r := f.reply(t, alice, q.ID, nil)

	_, err := f.svc.ReportReply(ctx, anon, r.ID)
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	_, err = f.svc.ReportReply(ctx, anon, r.ID)
	require.ErrorIs(t, err, ErrRateLimited)
	var rl *RateLimitError
	require.True(t, errors.As(err, &rl))
	assert.Equal(t, 2*time.Hour, rl.Window)
	assert.Equal(t, time.Hour, rl.RetryAfter)

	got, err := f.svc.GetReply(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Reports)

	// another actor is not affected
	_, err = f.svc.ReportReply(ctx, bob, r.ID)
	assert.NoError(t, err)
}

func TestConcurrentReportsFromSameActor(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	q := f.question(t, alice)
	r := f.reply(t, alice, q.ID, nil)

	var ok, limited atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.ReportReply(ctx, bob, r.ID)
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, ErrRateLimited):
				limited.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(1), limited.Load())
	got, _ := f.repo.GetReply(ctx, r.ID)
	assert.Equal(t, 1, got.Reports)
}

func TestReportQuestionRequiresAuthentication(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	q := f.question(t, alice)

	_, err := f.svc.ReportQuestion(ctx, anon, q.ID)
	assert.ErrorIs(t, err, ErrAuthRequired)

	out, err := f.svc.ReportQuestion(ctx, bob, q.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Count)
}

func TestAnonymousReportPolicyIsConfigurable(t *testing.T) {
	ctx := context.Background()
	p := DefaultPolicy()
	p.AnonymousReports[model.KindResource] = false
	f := newFixture(t, WithPolicy(p))
	res := f.resource(t, alice)

	_, err := f.svc.ReportResource(ctx, anon, res.ID)
	assert.ErrorIs(t, err, ErrAuthRequired)
}

func TestReportMissingContent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.ReportReply(ctx, anon, 404)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.ReportResource(ctx, anon, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestThresholdDeletionOfQuestionCascades(t *testing.T) {
	ctx := context.Background()
	p := DefaultPolicy()
	p.Threshold = 1
	f := newFixture(t, WithPolicy(p))
	q := f.question(t, alice)
	r1 := f.reply(t, alice, q.ID, nil)
	f.reply(t, bob, q.ID, &r1.ID)

	_, err := f.svc.ReportQuestion(ctx, bob, q.ID)
	require.NoError(t, err)
	out, err := f.svc.ReportQuestion(ctx, staff, q.ID)
	require.NoError(t, err)
	assert.True(t, out.Deleted)

	nodes, err := f.svc.RepliesOfQuestion(ctx, q.ID)
	require.NoError(t, err)
	assert.Empty(t, nodes)
	_, err = f.svc.GetReply(ctx, r1.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReplyTreeScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	q := f.question(t, alice)
	r1 := f.reply(t, alice, q.ID, nil)
	r2 := f.reply(t, alice, q.ID, &r1.ID)

	assert.NotNil(t, r2.Children)
	assert.Empty(t, r2.Children)

	nodes, err := f.svc.RepliesOfQuestion(ctx, q.ID)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, r1.ID, nodes[0].ID)
	require.Len(t, nodes[0].Children, 1)
	assert.Equal(t, r2.ID, nodes[0].Children[0].ID)
}

func TestRepliesOfQuestionCountsEveryReplyOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	q := f.question(t, alice)

	top1 := f.reply(t, alice, q.ID, nil)
	top2 := f.reply(t, bob, q.ID, nil)
	a := f.reply(t, bob, q.ID, &top1.ID)
	f.reply(t, alice, q.ID, &a.ID)
	f.reply(t, alice, q.ID, &top2.ID)
	f.reply(t, alice, q.ID, &top1.ID)

	nodes, err := f.svc.RepliesOfQuestion(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, tree.Count(nodes))
	require.Len(t, nodes, 2)
	assert.Equal(t, []int64{top1.ID, top2.ID}, []int64{nodes[0].ID, nodes[1].ID})
	assert.Equal(t, a.ID, nodes[0].Children[0].ID)
}

func TestCreateReplyRejectsCrossQuestionParent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	q1 := f.question(t, alice)
	q2 := f.question(t, alice)
	other := f.reply(t, alice, q2.ID, nil)

	_, err := f.svc.CreateReply(ctx, bob, model.NewReply{QuestionID: q1.ID, ParentID: &other.ID, Content: "hi"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.ErrorIs(t, err, ErrCrossQuestionParent)
	assert.ErrorIs(t, err, tree.ErrCrossQuestionParent)

	left, _ := f.repo.ListReplies(ctx, q1.ID)
	assert.Empty(t, left)
}

func TestCreateReplyValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	q := f.question(t, alice)

	cases := map[string]model.NewReply{
		"blank content":    {QuestionID: q.ID, Content: "   "},
		"missing question": {QuestionID: 999, Content: "x"},
		"missing parent":   {QuestionID: q.ID, ParentID: ptr(int64(999)), Content: "x"},
		"zero question":    {Content: "x"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.CreateReply(ctx, alice, in)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}

	_, err := f.svc.CreateReply(ctx, anon, model.NewReply{QuestionID: q.ID, Content: "x"})
	assert.ErrorIs(t, err, ErrAuthRequired)
}

func TestTextIsStoredAsTyped(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	typed := `Why is x < 5 && y > 2 "true"? It's odd`
	q, err := f.svc.CreateQuestion(ctx, alice, model.NewQuestion{SubjectID: 1, Content: typed})
	require.NoError(t, err)
	assert.Equal(t, typed, q.Content)

	got, err := f.svc.GetQuestion(ctx, q.ID)
	require.NoError(t, err)
	updated, err := f.svc.UpdateQuestion(ctx, alice, q.ID, model.QuestionPatch{Content: &got.Content})
	require.NoError(t, err)
	assert.Equal(t, typed, updated.Content)

	r, err := f.svc.CreateReply(ctx, alice, model.NewReply{QuestionID: q.ID, Content: "<script>x()</script><b>bold</b> & more"})
	require.NoError(t, err)
	assert.Equal(t, "bold & more", r.Content)
}

func TestTextLimitCountsTypedCharacters(t *testing.T) {
	f := newFixture(t)

	// escaped, each ampersand would take five runes and break both limits
	_, err := f.svc.CreateResource(context.Background(), alice, model.NewResource{
		Name:        strings.Repeat("&", maxNameLen),
		Description: strings.Repeat("&", 2001),
		SubjectID:   4,
		Type:        model.ResourceNotes,
		Link:        "https://files.example.com/amp.pdf",
	})
	assert.NoError(t, err)
}

func TestDeleteReplyCascades(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	q := f.question(t, alice)
	r1 := f.reply(t, alice, q.ID, nil)
	r2 := f.reply(t, bob, q.ID, &r1.ID)
	r3 := f.reply(t, bob, q.ID, &r2.ID)
	keep := f.reply(t, bob, q.ID, nil)

	atts, err := f.svc.AddImages(ctx, bob, model.KindReply, r3.ID, []Upload{
		{Filename: "a.png", ContentType: "image/png", Size: 3, Body: strings.NewReader("png")},
	})
	require.NoError(t, err)
	require.Len(t, atts, 1)
	blobPath := filepath.Join(f.dir, filepath.FromSlash(atts[0].Path))
	_, err = os.Stat(blobPath)
	require.NoError(t, err)

	require.ErrorIs(t, f.svc.Delete(ctx, bob, model.KindReply, r1.ID), ErrForbidden)
	require.NoError(t, f.svc.Delete(ctx, alice, model.KindReply, r1.ID))

	nodes, err := f.svc.RepliesOfQuestion(ctx, q.ID)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, keep.ID, nodes[0].ID)

	for _, id := range []int64{r1.ID, r2.ID, r3.ID} {
		_, err := f.repo.GetReply(ctx, id)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	}
	left, _ := f.repo.ListAttachments(ctx, model.KindReply, r3.ID)
	assert.Empty(t, left)
	_, err = os.Stat(blobPath)
	assert.True(t, os.IsNotExist(err))
}

func TestDeletePermissions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	q := f.question(t, alice)

	assert.ErrorIs(t, f.svc.Delete(ctx, anon, model.KindQuestion, q.ID), ErrAuthRequired)
	assert.ErrorIs(t, f.svc.Delete(ctx, bob, model.KindQuestion, q.ID), ErrForbidden)
	assert.NoError(t, f.svc.Delete(ctx, staff, model.KindQuestion, q.ID))
	assert.ErrorIs(t, f.svc.Delete(ctx, staff, model.KindQuestion, q.ID), ErrNotFound)
}

func TestUpdateDropsImmutableFields(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	q1 := f.question(t, alice)
	q2 := f.question(t, alice)
	r1 := f.reply(t, alice, q1.ID, nil)
	r2 := f.reply(t, alice, q1.ID, &r1.ID)

	updated, err := f.svc.UpdateReply(ctx, alice, r2.ID, model.ReplyPatch{
		QuestionID: &q2.ID,
		ParentID:   ptr(int64(0)),
		Content:    ptr("edited"),
	})
	require.NoError(t, err)
	assert.Equal(t, "edited", updated.Content)
	assert.Equal(t, q1.ID, updated.QuestionID)
	require.NotNil(t, updated.ParentID)
	assert.Equal(t, r1.ID, *updated.ParentID)

	q, err := f.svc.UpdateQuestion(ctx, alice, q1.ID, model.QuestionPatch{SubjectID: ptr(int64(77)), Content: ptr("new")})
	require.NoError(t, err)
	assert.Equal(t, int64(1), q.SubjectID)
	assert.Equal(t, "new", q.Content)

	_, err = f.svc.UpdateQuestion(ctx, staff, q1.ID, model.QuestionPatch{Content: ptr("staff edit")})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.UpdateReply(ctx, alice, r1.ID, model.ReplyPatch{Content: ptr("  ")})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestResourceLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	res := f.resource(t, alice)
	require.NotNil(t, res.AuthorID)
	assert.Equal(t, alice.UserID, *res.AuthorID)

	_, err := f.svc.CreateResource(ctx, bob, model.NewResource{
		Name: "dup", Description: "d", SubjectID: 4, Type: model.ResourceExam, Link: res.Link,
	})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.CreateResource(ctx, bob, model.NewResource{
		Name: "bad", Description: "d", SubjectID: 4, Type: "POSTER", Link: "https://x.example.com",
	})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.CreateResource(ctx, bob, model.NewResource{
		Name: "bad", Description: "d", SubjectID: 4, Type: model.ResourceExam, Link: "not a url",
	})
	assert.ErrorIs(t, err, ErrInvalidInput)

	grouped, err := f.svc.ResourcesByType(ctx)
	require.NoError(t, err)
	assert.Len(t, grouped, len(model.ResourceTypes))
	assert.Len(t, grouped[model.ResourceSummary], 1)
	assert.Empty(t, grouped[model.ResourceVideo])

	_, err = f.svc.UpdateResource(ctx, bob, res.ID, model.ResourcePatch{Name: ptr("mine now")})
	assert.ErrorIs(t, err, ErrForbidden)
	updated, err := f.svc.UpdateResource(ctx, alice, res.ID, model.ResourcePatch{Name: ptr("Algebra v2")})
	require.NoError(t, err)
	assert.Equal(t, "Algebra v2", updated.Name)

	byAuthor, err := f.svc.ListResources(ctx, model.Filter{AuthorID: ptr(alice.UserID)})
	require.NoError(t, err)
	assert.Len(t, byAuthor, 1)
}

func TestImages(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	q := f.question(t, alice)

	_, err := f.svc.AddImages(ctx, bob, model.KindQuestion, q.ID, []Upload{
		{Filename: "a.png", ContentType: "image/png", Body: strings.NewReader("x")},
	})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.AddImages(ctx, alice, model.KindQuestion, q.ID, []Upload{
		{Filename: "a.png", ContentType: "image/png", Body: strings.NewReader("x")},
		{Filename: "b.txt", ContentType: "text/plain", Body: strings.NewReader("y")},
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
	none, _ := f.svc.ListImages(ctx, model.KindQuestion, q.ID)
	assert.Empty(t, none)

	atts, err := f.svc.AddImages(ctx, staff, model.KindQuestion, q.ID, []Upload{
		{Filename: "a.png", ContentType: "image/png", Body: strings.NewReader("x")},
		{Filename: "b.jpg", ContentType: "image/jpeg", Body: strings.NewReader("y")},
	})
	require.NoError(t, err)
	require.Len(t, atts, 2)
	assert.True(t, strings.HasPrefix(atts[0].URL, "/media/images/question/"))

	n, err := f.svc.DeleteImages(ctx, alice, model.KindQuestion, q.ID, []int64{atts[0].ID, 12345})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	left, err := f.svc.ListImages(ctx, model.KindQuestion, q.ID)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, atts[1].ID, left[0].ID)

	_, err = f.svc.ListImages(ctx, model.KindResource, 1)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

// failingPuts wraps a local store and fails every Put after the first n.
type failingPuts struct {
	*blob.LocalStore
	n     int
	calls int
}

func (s *failingPuts) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	s.calls++
	if s.calls > s.n {
		return errors.New("disk full")
	}
	return s.LocalStore.Put(ctx, key, body, size, contentType)
}

func TestAddImagesIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	local, err := blob.NewLocalStore(dir, "/media")
	require.NoError(t, err)
	repo := inm.New()
	svc := New(repo, ratelimit.New(ratelimit.NewMemoryStore(), nil), &failingPuts{LocalStore: local, n: 1})

	q, err := svc.CreateQuestion(ctx, alice, model.NewQuestion{SubjectID: 1, Content: "q"})
	require.NoError(t, err)

	atts, err := svc.AddImages(ctx, alice, model.KindQuestion, q.ID, []Upload{
		{Filename: "a.png", ContentType: "image/png", Body: strings.NewReader("a")},
		{Filename: "b.png", ContentType: "image/png", Body: strings.NewReader("b")},
	})
	require.EqualError(t, err, "disk full")
	assert.Nil(t, atts)

	left, err := svc.ListImages(ctx, model.KindQuestion, q.ID)
	require.NoError(t, err)
	assert.Empty(t, left)

	var files []string
	require.NoError(t, filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			files = append(files, p)
		}
		return err
	}))
	assert.Empty(t, files)
}
