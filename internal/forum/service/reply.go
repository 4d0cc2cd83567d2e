package service

import (
	"context"
	"errors"

	"github.com/MyNameIsWhaaat/bachub/internal/forum/model"
	"github.com/MyNameIsWhaaat/bachub/internal/forum/storage"
	"github.com/MyNameIsWhaaat/bachub/internal/forum/tree"
)

// CreateReply adds a reply under a question, optionally below another reply
// of the same question. Parents are fixed at creation, which keeps the
// relation acyclic.
func (s *forumService) CreateReply(ctx context.Context, actor model.Actor, in model.NewReply) (model.ReplyNode, error) {
	if !actor.Authenticated {
		return model.ReplyNode{}, ErrAuthRequired
	}
	if err := validateID("question", in.QuestionID); err != nil {
		return model.ReplyNode{}, err
	}
	content, err := s.text("content", in.Content, maxContentLen)
	if err != nil {
		return model.ReplyNode{}, err
	}

	if _, err := s.repo.GetQuestion(ctx, in.QuestionID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return model.ReplyNode{}, invalid("question %d does not exist", in.QuestionID)
		}
		return model.ReplyNode{}, err
	}
	if in.ParentID != nil {
		if err := validateID("parent", *in.ParentID); err != nil {
			return model.ReplyNode{}, err
		}
		parent, err := s.repo.GetReply(ctx, *in.ParentID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return model.ReplyNode{}, invalid("parent reply %d does not exist", *in.ParentID)
			}
			return model.ReplyNode{}, err
		}
		if err := tree.CheckParent(parent, in.QuestionID); err != nil {
			return model.ReplyNode{}, ErrCrossQuestionParent
		}
	}

	author := actor.UserID
	r, err := s.repo.CreateReply(ctx, model.Reply{
		QuestionID: in.QuestionID,
		ParentID:   in.ParentID,
		AuthorID:   &author,
		Content:    content,
	})
	if err != nil {
		// question or parent removed in between
		if errors.Is(err, storage.ErrNotFound) {
			return model.ReplyNode{}, invalid("question or parent reply no longer exists")
		}
		return model.ReplyNode{}, err
	}
	return model.ReplyNode{Reply: r, Children: []model.ReplyNode{}}, nil
}

func (s *forumService) GetReply(ctx context.Context, id int64) (model.ReplyNode, error) {
	replies, err := s.repo.GetSubtree(ctx, id)
	if err != nil {
		return model.ReplyNode{}, fromStorage(err, model.KindReply)
	}
	n, ok := tree.NewIndex(replies).Node(id)
	if !ok {
		return model.ReplyNode{}, fromStorage(storage.ErrNotFound, model.KindReply)
	}
	return n, nil
}

// RepliesOfQuestion returns the top-level replies with their descendants
// nested. A missing question has no replies.
func (s *forumService) RepliesOfQuestion(ctx context.Context, questionID int64) ([]model.ReplyNode, error) {
	replies, err := s.repo.ListReplies(ctx, questionID)
	if err != nil {
		return nil, err
	}
	return tree.NewIndex(replies).Build(), nil
}

// UpdateReply edits the content only; question and parent in the patch are
// dropped.
func (s *forumService) UpdateReply(ctx context.Context, actor model.Actor, id int64, p model.ReplyPatch) (model.ReplyNode, error) {
	if !actor.Authenticated {
		return model.ReplyNode{}, ErrAuthRequired
	}
	author, err := s.authorOf(ctx, model.KindReply, id)
	if err != nil {
		return model.ReplyNode{}, err
	}
	if !actor.IsAuthor(author) {
		return model.ReplyNode{}, ErrForbidden
	}

	p.QuestionID = nil
	p.ParentID = nil
	if p.Content != nil {
		v, err := s.text("content", *p.Content, maxContentLen)
		if err != nil {
			return model.ReplyNode{}, err
		}
		p.Content = &v
	}

	if _, err := s.repo.UpdateReply(ctx, id, p); err != nil {
		return model.ReplyNode{}, fromStorage(err, model.KindReply)
	}
	return s.GetReply(ctx, id)
}
