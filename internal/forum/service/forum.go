package service

import (
	"context"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/MyNameIsWhaaat/bachub/internal/forum/blob"
	"github.com/MyNameIsWhaaat/bachub/internal/forum/ledger"
	"github.com/MyNameIsWhaaat/bachub/internal/forum/model"
	"github.com/MyNameIsWhaaat/bachub/internal/forum/ratelimit"
	"github.com/MyNameIsWhaaat/bachub/internal/forum/storage"
)

// Policy holds the moderation knobs.
type Policy struct {
	Threshold int
	// AnonymousReports lists the kinds that unauthenticated callers may report.
	AnonymousReports map[model.Kind]bool
}

func DefaultPolicy() Policy {
	return Policy{
		Threshold: ledger.DefaultThreshold,
		AnonymousReports: map[model.Kind]bool{
			model.KindResource: true,
			model.KindQuestion: false,
			model.KindReply:    true,
		},
	}
}

type forumService struct {
	repo     storage.Repository
	limiter  *ratelimit.Limiter
	ledger   *ledger.Ledger
	blobs    blob.Store
	policy   Policy
	log      zerolog.Logger
	sanitize *bluemonday.Policy
}

type Option func(*forumService)

func WithPolicy(p Policy) Option {
	return func(s *forumService) { s.policy = p }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *forumService) { s.log = l }
}

func New(repo storage.Repository, limiter *ratelimit.Limiter, blobs blob.Store, opts ...Option) ForumService {
	s := &forumService{
		repo:     repo,
		limiter:  limiter,
		blobs:    blobs,
		policy:   DefaultPolicy(),
		log:      zerolog.Nop(),
		sanitize: bluemonday.StrictPolicy(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ledger = ledger.New(repo, s, s.policy.Threshold)
	return s
}

func (s *forumService) ReportResource(ctx context.Context, actor model.Actor, id int64) (model.ReportOutcome, error) {
	return s.report(ctx, actor, model.KindResource, id)
}

func (s *forumService) ReportQuestion(ctx context.Context, actor model.Actor, id int64) (model.ReportOutcome, error) {
	return s.report(ctx, actor, model.KindQuestion, id)
}

func (s *forumService) ReportReply(ctx context.Context, actor model.Actor, id int64) (model.ReportOutcome, error) {
	return s.report(ctx, actor, model.KindReply, id)
}

// report checks, in order: auth policy, existence, cooldown. Only then is the
// counter touched, so a refused report never counts.
func (s *forumService) report(ctx context.Context, actor model.Actor, kind model.Kind, id int64) (model.ReportOutcome, error) {
	if id <= 0 {
		return model.ReportOutcome{}, invalid("invalid %s id", kind)
	}
	if !actor.Authenticated && !s.policy.AnonymousReports[kind] {
		return model.ReportOutcome{}, ErrAuthRequired
	}
	if _, err := s.authorOf(ctx, kind, id); err != nil {
		return model.ReportOutcome{}, err
	}

	d, err := s.limiter.Allow(ctx, actor.ID, kind, id)
	if err != nil {
		return model.ReportOutcome{}, err
	}
	if !d.Allowed {
		s.log.Debug().Str("actor", actor.ID).Str("kind", string(kind)).Int64("id", id).
			Dur("retry_after", d.RetryAfter).Msg("report throttled")
		return model.ReportOutcome{}, &RateLimitError{Kind: kind, Window: s.limiter.Window(kind), RetryAfter: d.RetryAfter}
	}

	out, err := s.ledger.Report(ctx, kind, id)
	if err != nil {
		return model.ReportOutcome{}, fromStorage(err, kind)
	}

	ev := s.log.Info().Str("actor", actor.ID).Str("kind", string(kind)).Int64("id", id)
	if out.Deleted {
		ev.Msg("content removed after passing report threshold")
	} else {
		ev.Int("reports", out.Count).Msg("report accepted")
	}
	return out, nil
}

func (s *forumService) Delete(ctx context.Context, actor model.Actor, kind model.Kind, id int64) error {
	if !actor.Authenticated {
		return ErrAuthRequired
	}
	author, err := s.authorOf(ctx, kind, id)
	if err != nil {
		return err
	}
	if !actor.IsAuthor(author) && !actor.Staff {
		return ErrForbidden
	}
	return fromStorage(s.DeleteContent(ctx, kind, id), kind)
}

// DeleteContent removes the item with its descendant replies and attachment
// rows in one store operation, then collects the blobs. A failure while
// collecting leaves only orphaned blobs behind.
func (s *forumService) DeleteContent(ctx context.Context, kind model.Kind, id int64) error {
	removed, err := s.repo.DeleteCascade(ctx, kind, id)
	if err != nil {
		return err
	}
	s.collectBlobs(ctx, removed)
	return nil
}

func (s *forumService) collectBlobs(ctx context.Context, atts []model.Attachment) {
	if len(atts) == 0 || s.blobs == nil {
		return
	}
	var g errgroup.Group
	g.SetLimit(4)
	for _, a := range atts {
		g.Go(func() error {
			if err := s.blobs.Delete(ctx, a.Path); err != nil {
				s.log.Warn().Err(err).Str("key", a.Path).Msg("blob cleanup failed")
				return err
			}
			return nil
		})
	}
	_ = g.Wait()
}

// authorOf loads the item and returns its author.
func (s *forumService) authorOf(ctx context.Context, kind model.Kind, id int64) (*int64, error) {
	var (
		author *int64
		err    error
	)
	switch kind {
	case model.KindResource:
		var r model.Resource
		r, err = s.repo.GetResource(ctx, id)
		author = r.AuthorID
	case model.KindQuestion:
		var q model.Question
		q, err = s.repo.GetQuestion(ctx, id)
		author = q.AuthorID
	case model.KindReply:
		var r model.Reply
		r, err = s.repo.GetReply(ctx, id)
		author = r.AuthorID
	default:
		return nil, invalid("unknown content kind %q", kind)
	}
	if err != nil {
		return nil, fromStorage(err, kind)
	}
	return author, nil
}
