package service

import (
	"context"

	"github.com/MyNameIsWhaaat/bachub/internal/forum/model"
)

func (s *forumService) CreateResource(ctx context.Context, actor model.Actor, in model.NewResource) (model.Resource, error) {
	if !actor.Authenticated {
		return model.Resource{}, ErrAuthRequired
	}

	var (
		res model.Resource
		err error
	)
	if res.Name, err = s.text("name", in.Name, maxNameLen); err != nil {
		return model.Resource{}, err
	}
	if res.Description, err = s.text("description", in.Description, maxContentLen); err != nil {
		return model.Resource{}, err
	}
	if res.Labels, err = s.optionalText("labels", in.Labels, maxLabelsLen); err != nil {
		return model.Resource{}, err
	}
	if err := validateID("subject", in.SubjectID); err != nil {
		return model.Resource{}, err
	}
	if !in.Type.Valid() {
		return model.Resource{}, invalid("unknown resource type %q", in.Type)
	}
	if res.Link, err = validateLink("link", in.Link); err != nil {
		return model.Resource{}, err
	}
	if in.AdditionalLink != nil && *in.AdditionalLink != "" {
		link, err := validateLink("additional_link", *in.AdditionalLink)
		if err != nil {
			return model.Resource{}, err
		}
		res.AdditionalLink = &link
	}
	res.SubjectID = in.SubjectID
	res.Type = in.Type
	author := actor.UserID
	res.AuthorID = &author

	out, err := s.repo.CreateResource(ctx, res)
	if err != nil {
		return model.Resource{}, fromStorage(err, model.KindResource)
	}
	return out, nil
}

func (s *forumService) GetResource(ctx context.Context, id int64) (model.Resource, error) {
	res, err := s.repo.GetResource(ctx, id)
	return res, fromStorage(err, model.KindResource)
}

func (s *forumService) ListResources(ctx context.Context, f model.Filter) ([]model.Resource, error) {
	return s.repo.ListResources(ctx, f)
}

// ResourcesByType groups the whole library by type, newest first; every type
// is present even when empty.
func (s *forumService) ResourcesByType(ctx context.Context) (map[model.ResourceType][]model.Resource, error) {
	all, err := s.repo.ListResources(ctx, model.Filter{})
	if err != nil {
		return nil, err
	}
	out := make(map[model.ResourceType][]model.Resource, len(model.ResourceTypes))
	for _, t := range model.ResourceTypes {
		out[t] = []model.Resource{}
	}
	for _, r := range all {
		out[r.Type] = append(out[r.Type], r)
	}
	return out, nil
}

func (s *forumService) UpdateResource(ctx context.Context, actor model.Actor, id int64, p model.ResourcePatch) (model.Resource, error) {
	if !actor.Authenticated {
		return model.Resource{}, ErrAuthRequired
	}
	author, err := s.authorOf(ctx, model.KindResource, id)
	if err != nil {
		return model.Resource{}, err
	}
	if !actor.IsAuthor(author) {
		return model.Resource{}, ErrForbidden
	}

	if p.Name != nil {
		v, err := s.text("name", *p.Name, maxNameLen)
		if err != nil {
			return model.Resource{}, err
		}
		p.Name = &v
	}
	if p.Description != nil {
		v, err := s.text("description", *p.Description, maxContentLen)
		if err != nil {
			return model.Resource{}, err
		}
		p.Description = &v
	}
	if p.Labels != nil {
		v, err := s.optionalText("labels", *p.Labels, maxLabelsLen)
		if err != nil {
			return model.Resource{}, err
		}
		p.Labels = &v
	}
	if p.SubjectID != nil {
		if err := validateID("subject", *p.SubjectID); err != nil {
			return model.Resource{}, err
		}
	}
	if p.Type != nil && !p.Type.Valid() {
		return model.Resource{}, invalid("unknown resource type %q", *p.Type)
	}
	if p.Link != nil {
		v, err := validateLink("link", *p.Link)
		if err != nil {
			return model.Resource{}, err
		}
		p.Link = &v
	}
	if p.AdditionalLink != nil && *p.AdditionalLink != "" {
		v, err := validateLink("additional_link", *p.AdditionalLink)
		if err != nil {
			return model.Resource{}, err
		}
		p.AdditionalLink = &v
	}

	res, err := s.repo.UpdateResource(ctx, id, p)
	return res, fromStorage(err, model.KindResource)
}
