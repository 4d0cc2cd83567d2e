package service

import (
	"context"

	"github.com/MyNameIsWhaaat/bachub/internal/forum/model"
)

func (s *forumService) CreateQuestion(ctx context.Context, actor model.Actor, in model.NewQuestion) (model.Question, error) {
	if !actor.Authenticated {
		return model.Question{}, ErrAuthRequired
	}
	if err := validateID("subject", in.SubjectID); err != nil {
		return model.Question{}, err
	}
	content, err := s.text("content", in.Content, maxContentLen)
	if err != nil {
		return model.Question{}, err
	}

	author := actor.UserID
	q, err := s.repo.CreateQuestion(ctx, model.Question{
		AuthorID:  &author,
		SubjectID: in.SubjectID,
		Content:   content,
	})
	return q, fromStorage(err, model.KindQuestion)
}

func (s *forumService) GetQuestion(ctx context.Context, id int64) (model.Question, error) {
	q, err := s.repo.GetQuestion(ctx, id)
	return q, fromStorage(err, model.KindQuestion)
}

func (s *forumService) ListQuestions(ctx context.Context, f model.Filter) ([]model.Question, error) {
	return s.repo.ListQuestions(ctx, f)
}

// UpdateQuestion edits the content only; a subject in the patch is dropped.
func (s *forumService) UpdateQuestion(ctx context.Context, actor model.Actor, id int64, p model.QuestionPatch) (model.Question, error) {
	if !actor.Authenticated {
		return model.Question{}, ErrAuthRequired
	}
	author, err := s.authorOf(ctx, model.KindQuestion, id)
	if err != nil {
		return model.Question{}, err
	}
	if !actor.IsAuthor(author) {
		return model.Question{}, ErrForbidden
	}

	p.SubjectID = nil
	if p.Content != nil {
		v, err := s.text("content", *p.Content, maxContentLen)
		if err != nil {
			return model.Question{}, err
		}
		p.Content = &v
	}

	q, err := s.repo.UpdateQuestion(ctx, id, p)
	return q, fromStorage(err, model.KindQuestion)
}
