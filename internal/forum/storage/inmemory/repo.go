package inmemory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/MyNameIsWhaaat/bachub/internal/forum/model"
	"github.com/MyNameIsWhaaat/bachub/internal/forum/storage"
	"github.com/MyNameIsWhaaat/bachub/internal/forum/tree"
)

type Repo struct {
	mu sync.RWMutex

	nextID      int64
	resources   map[int64]model.Resource
	questions   map[int64]model.Question
	replies     map[int64]model.Reply
	attachments map[int64]model.Attachment

	now func() time.Time
}

func New() *Repo {
	return &Repo{
		nextID:      1,
		resources:   make(map[int64]model.Resource),
		questions:   make(map[int64]model.Question),
		replies:     make(map[int64]model.Reply),
		attachments: make(map[int64]model.Attachment),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (r *Repo) idLocked() int64 {
	id := r.nextID
	r.nextID++
	return id
}

func (r *Repo) CreateResource(ctx context.Context, res model.Resource) (model.Resource, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.linkTakenLocked(res.Link, 0) {
		return model.Resource{}, storage.ErrConflict
	}
	res.ID = r.idLocked()
	res.CreatedAt = r.now()
	res.Reports = 0
	r.resources[res.ID] = res
	return res, nil
}

func (r *Repo) linkTakenLocked(link string, except int64) bool {
	for id, res := range r.resources {
		if id != except && res.Link == link {
			return true
		}
	}
	return false
}

func (r *Repo) GetResource(ctx context.Context, id int64) (model.Resource, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	res, ok := r.resources[id]
	if !ok {
		return model.Resource{}, storage.ErrNotFound
	}
	return res, nil
}

func (r *Repo) ListResources(ctx context.Context, f model.Filter) ([]model.Resource, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Resource, 0, len(r.resources))
	for _, res := range r.resources {
		if matches(f, res.AuthorID, res.SubjectID) {
			out = append(out, res)
		}
	}
	// newest first, like the library listing
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func matches(f model.Filter, authorID *int64, subjectID int64) bool {
	if f.AuthorID != nil && (authorID == nil || *authorID != *f.AuthorID) {
		return false
	}
	if f.SubjectID != nil && subjectID != *f.SubjectID {
		return false
	}
	return true
}

func (r *Repo) UpdateResource(ctx context.Context, id int64, p model.ResourcePatch) (model.Resource, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.resources[id]
	if !ok {
		return model.Resource{}, storage.ErrNotFound
	}
	if p.Link != nil && r.linkTakenLocked(*p.Link, id) {
		return model.Resource{}, storage.ErrConflict
	}
	setIf(&res.Name, p.Name)
	setIf(&res.Description, p.Description)
	setIf(&res.SubjectID, p.SubjectID)
	setIf(&res.Type, p.Type)
	setIf(&res.Labels, p.Labels)
	setIf(&res.Link, p.Link)
	if p.AdditionalLink != nil {
		v := *p.AdditionalLink
		res.AdditionalLink = &v
	}
	r.resources[id] = res
	return res, nil
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func (r *Repo) CreateQuestion(ctx context.Context, q model.Question) (model.Question, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	q.ID = r.idLocked()
	q.CreatedAt = r.now()
	q.Reports = 0
	r.questions[q.ID] = q
	return q, nil
}

func (r *Repo) GetQuestion(ctx context.Context, id int64) (model.Question, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	q, ok := r.questions[id]
	if !ok {
		return model.Question{}, storage.ErrNotFound
	}
	return q, nil
}

func (r *Repo) ListQuestions(ctx context.Context, f model.Filter) ([]model.Question, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Question, 0, len(r.questions))
	for _, q := range r.questions {
		if matches(f, q.AuthorID, q.SubjectID) {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *Repo) UpdateQuestion(ctx context.Context, id int64, p model.QuestionPatch) (model.Question, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	q, ok := r.questions[id]
	if !ok {
		return model.Question{}, storage.ErrNotFound
	}
	setIf(&q.SubjectID, p.SubjectID)
	setIf(&q.Content, p.Content)
	r.questions[id] = q
	return q, nil
}

func (r *Repo) CreateReply(ctx context.Context, rep model.Reply) (model.Reply, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.questions[rep.QuestionID]; !ok {
		return model.Reply{}, storage.ErrNotFound
	}
	if rep.ParentID != nil {
		if _, ok := r.replies[*rep.ParentID]; !ok {
			return model.Reply{}, storage.ErrNotFound
		}
	}
	rep.ID = r.idLocked()
	rep.CreatedAt = r.now()
	rep.Reports = 0
	r.replies[rep.ID] = rep
	return rep, nil
}

func (r *Repo) GetReply(ctx context.Context, id int64) (model.Reply, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	rep, ok := r.replies[id]
	if !ok {
		return model.Reply{}, storage.ErrNotFound
	}
	return rep, nil
}

func (r *Repo) ListReplies(ctx context.Context, questionID int64) ([]model.Reply, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.questionRepliesLocked(questionID), nil
}

func (r *Repo) questionRepliesLocked(questionID int64) []model.Reply {
	out := make([]model.Reply, 0)
	for _, rep := range r.replies {
		if rep.QuestionID == questionID {
			out = append(out, rep)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (r *Repo) GetSubtree(ctx context.Context, id int64) ([]model.Reply, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	root, ok := r.replies[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	x := tree.NewIndex(r.questionRepliesLocked(root.QuestionID))
	ids := x.Descendants(id)
	out := make([]model.Reply, 0, len(ids))
	for _, cid := range ids {
		out = append(out, r.replies[cid])
	}
	return out, nil
}

func (r *Repo) UpdateReply(ctx context.Context, id int64, p model.ReplyPatch) (model.Reply, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	rep, ok := r.replies[id]
	if !ok {
		return model.Reply{}, storage.ErrNotFound
	}
	setIf(&rep.Content, p.Content)
	r.replies[id] = rep
	return rep, nil
}

func (r *Repo) AddAttachment(ctx context.Context, a model.Attachment) (model.Attachment, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.existsLocked(a.OwnerKind, a.OwnerID) {
		return model.Attachment{}, storage.ErrNotFound
	}
	a.ID = r.idLocked()
	a.CreatedAt = r.now()
	r.attachments[a.ID] = a
	return a, nil
}

func (r *Repo) existsLocked(kind model.Kind, id int64) bool {
	var ok bool
	switch kind {
	case model.KindResource:
		_, ok = r.resources[id]
	case model.KindQuestion:
		_, ok = r.questions[id]
	case model.KindReply:
		_, ok = r.replies[id]
	}
	return ok
}

func (r *Repo) ListAttachments(ctx context.Context, kind model.Kind, ownerID int64) ([]model.Attachment, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Attachment, 0)
	for _, a := range r.attachments {
		if a.OwnerKind == kind && a.OwnerID == ownerID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *Repo) DeleteAttachments(ctx context.Context, kind model.Kind, ownerID int64, ids []int64) ([]model.Attachment, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]model.Attachment, 0, len(ids))
	for _, id := range ids {
		a, ok := r.attachments[id]
		if !ok || a.OwnerKind != kind || a.OwnerID != ownerID {
			continue
		}
		delete(r.attachments, id)
		out = append(out, a)
	}
	return out, nil
}

func (r *Repo) IncrementReports(ctx context.Context, kind model.Kind, id int64) (int, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	switch kind {
	case model.KindResource:
		res, ok := r.resources[id]
		if !ok {
			return 0, storage.ErrNotFound
		}
		res.Reports++
		r.resources[id] = res
		return res.Reports, nil
	case model.KindQuestion:
		q, ok := r.questions[id]
		if !ok {
			return 0, storage.ErrNotFound
		}
		q.Reports++
		r.questions[id] = q
		return q.Reports, nil
	case model.KindReply:
		rep, ok := r.replies[id]
		if !ok {
			return 0, storage.ErrNotFound
		}
		rep.Reports++
		r.replies[id] = rep
		return rep.Reports, nil
	}
	return 0, storage.ErrNotFound
}

func (r *Repo) DeleteCascade(ctx context.Context, kind model.Kind, id int64) ([]model.Attachment, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.existsLocked(kind, id) {
		return nil, storage.ErrNotFound
	}

	var replyIDs []int64
	switch kind {
	case model.KindQuestion:
		for _, rep := range r.questionRepliesLocked(id) {
			replyIDs = append(replyIDs, rep.ID)
		}
	case model.KindReply:
		x := tree.NewIndex(r.questionRepliesLocked(r.replies[id].QuestionID))
		replyIDs = x.Descendants(id)
	}

	owned := make(map[model.Kind]map[int64]bool, 2)
	owned[kind] = map[int64]bool{id: true}
	if owned[model.KindReply] == nil {
		owned[model.KindReply] = make(map[int64]bool, len(replyIDs))
	}
	for _, rid := range replyIDs {
		owned[model.KindReply][rid] = true
	}

	// attachments first, then replies deepest first, then the owner
	removed := make([]model.Attachment, 0)
	for aid, a := range r.attachments {
		if owned[a.OwnerKind][a.OwnerID] {
			removed = append(removed, a)
			delete(r.attachments, aid)
		}
	}
	sort.Slice(removed, func(i, j int) bool { return removed[i].ID < removed[j].ID })

	for i := len(replyIDs) - 1; i >= 0; i-- {
		delete(r.replies, replyIDs[i])
	}
	switch kind {
	case model.KindResource:
		delete(r.resources, id)
	case model.KindQuestion:
		delete(r.questions, id)
	}

	return removed, nil
}
