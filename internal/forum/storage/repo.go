package storage

import (
	"context"
	"errors"

	"github.com/MyNameIsWhaaat/bachub/internal/forum/model"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

type Repository interface {
	CreateResource(ctx context.Context, r model.Resource) (model.Resource, error)
	GetResource(ctx context.Context, id int64) (model.Resource, error)
	ListResources(ctx context.Context, f model.Filter) ([]model.Resource, error)
	UpdateResource(ctx context.Context, id int64, p model.ResourcePatch) (model.Resource, error)

	CreateQuestion(ctx context.Context, q model.Question) (model.Question, error)
	GetQuestion(ctx context.Context, id int64) (model.Question, error)
	ListQuestions(ctx context.Context, f model.Filter) ([]model.Question, error)
	UpdateQuestion(ctx context.Context, id int64, p model.QuestionPatch) (model.Question, error)

	CreateReply(ctx context.Context, r model.Reply) (model.Reply, error)
	GetReply(ctx context.Context, id int64) (model.Reply, error)
	// ListReplies returns every reply of a question, oldest first.
	ListReplies(ctx context.Context, questionID int64) ([]model.Reply, error)
	// GetSubtree returns the reply and all of its descendants, oldest first.
	GetSubtree(ctx context.Context, id int64) ([]model.Reply, error)
	UpdateReply(ctx context.Context, id int64, p model.ReplyPatch) (model.Reply, error)

	AddAttachment(ctx context.Context, a model.Attachment) (model.Attachment, error)
	ListAttachments(ctx context.Context, kind model.Kind, ownerID int64) ([]model.Attachment, error)
	// DeleteAttachments removes the listed attachments of one owner and returns what was removed.
	DeleteAttachments(ctx context.Context, kind model.Kind, ownerID int64, ids []int64) ([]model.Attachment, error)

	// IncrementReports atomically adds one report and returns the new count.
	IncrementReports(ctx context.Context, kind model.Kind, id int64) (int, error)
	// DeleteCascade removes the item, its descendant replies and every attachment
	// they own. It returns the removed attachments so their blobs can be collected.
	DeleteCascade(ctx context.Context, kind model.Kind, id int64) ([]model.Attachment, error)
}
