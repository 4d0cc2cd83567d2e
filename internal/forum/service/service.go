package service

import (
	"context"

	"github.com/MyNameIsWhaaat/bachub/internal/forum/model"
)

type ForumService interface {
	ReportResource(ctx context.Context, actor model.Actor, id int64) (model.ReportOutcome, error)
	ReportQuestion(ctx context.Context, actor model.Actor, id int64) (model.ReportOutcome, error)
	ReportReply(ctx context.Context, actor model.Actor, id int64) (model.ReportOutcome, error)
	Delete(ctx context.Context, actor model.Actor, kind model.Kind, id int64) error

	CreateResource(ctx context.Context, actor model.Actor, in model.NewResource) (model.Resource, error)
	GetResource(ctx context.Context, id int64) (model.Resource, error)
	ListResources(ctx context.Context, f model.Filter) ([]model.Resource, error)
	ResourcesByType(ctx context.Context) (map[model.ResourceType][]model.Resource, error)
	UpdateResource(ctx context.Context, actor model.Actor, id int64, p model.ResourcePatch) (model.Resource, error)

	CreateQuestion(ctx context.Context, actor model.Actor, in model.NewQuestion) (model.Question, error)
	GetQuestion(ctx context.Context, id int64) (model.Question, error)
	ListQuestions(ctx context.Context, f model.Filter) ([]model.Question, error)
	UpdateQuestion(ctx context.Context, actor model.Actor, id int64, p model.QuestionPatch) (model.Question, error)

	CreateReply(ctx context.Context, actor model.Actor, in model.NewReply) (model.ReplyNode, error)
	GetReply(ctx context.Context, id int64) (model.ReplyNode, error)
	RepliesOfQuestion(ctx context.Context, questionID int64) ([]model.ReplyNode, error)
	UpdateReply(ctx context.Context, actor model.Actor, id int64, p model.ReplyPatch) (model.ReplyNode, error)

	AddImages(ctx context.Context, actor model.Actor, kind model.Kind, ownerID int64, files []Upload) ([]model.Attachment, error)
	ListImages(ctx context.Context, kind model.Kind, ownerID int64) ([]model.Attachment, error)
	DeleteImages(ctx context.Context, actor model.Actor, kind model.Kind, ownerID int64, ids []int64) (int, error)
}
