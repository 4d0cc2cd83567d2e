package service

import (
	"context"
	"io"
	"strings"

	"github.com/MyNameIsWhaaat/bachub/internal/forum/blob"
	"github.com/MyNameIsWhaaat/bachub/internal/forum/model"
)

const MaxImageSize = 10 << 20

type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

func imageOwner(kind model.Kind) error {
	if kind != model.KindQuestion && kind != model.KindReply {
		return invalid("images can only be attached to questions and replies")
	}
	return nil
}

// AddImages stores every upload or none: all files are checked before the
// first one is written.
func (s *forumService) AddImages(ctx context.Context, actor model.Actor, kind model.Kind, ownerID int64, files []Upload) ([]model.Attachment, error) {
	if err := imageOwner(kind); err != nil {
		return nil, err
	}
	if !actor.Authenticated {
		return nil, ErrAuthRequired
	}
	author, err := s.authorOf(ctx, kind, ownerID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAuthor(author) && !actor.Staff {
		return nil, ErrForbidden
	}

	if len(files) == 0 {
		return nil, invalid("no images provided")
	}
	for _, f := range files {
		if !strings.HasPrefix(f.ContentType, "image/") {
			return nil, invalid("%s is not an image", f.Filename)
		}
		if f.Size > MaxImageSize {
			return nil, invalid("%s is larger than %d bytes", f.Filename, MaxImageSize)
		}
	}

	out := make([]model.Attachment, 0, len(files))
	for _, f := range files {
		key := blob.NewKey(kind, ownerID, f.Filename)
		if err := s.blobs.Put(ctx, key, f.Body, f.Size, f.ContentType); err != nil {
			s.rollbackImages(ctx, kind, ownerID, append(out, model.Attachment{Path: key}))
			return nil, err
		}
		a, err := s.repo.AddAttachment(ctx, model.Attachment{OwnerKind: kind, OwnerID: ownerID, Path: key})
		if err != nil {
			s.rollbackImages(ctx, kind, ownerID, append(out, model.Attachment{Path: key}))
			return nil, fromStorage(err, kind)
		}
		a.URL = s.blobs.URL(a.Path)
		out = append(out, a)
	}
	return out, nil
}

// rollbackImages undoes a partial upload: rows first, then blobs. Attachments
// with a zero ID only have a blob. It runs even if ctx is already cancelled.
func (s *forumService) rollbackImages(ctx context.Context, kind model.Kind, ownerID int64, atts []model.Attachment) {
	ctx = context.WithoutCancel(ctx)
	ids := make([]int64, 0, len(atts))
	for _, a := range atts {
		if a.ID != 0 {
			ids = append(ids, a.ID)
		}
	}
	if len(ids) > 0 {
		if _, err := s.repo.DeleteAttachments(ctx, kind, ownerID, ids); err != nil {
			s.log.Warn().Err(err).Str("kind", string(kind)).Int64("owner", ownerID).Msg("image rollback failed")
		}
	}
	s.collectBlobs(ctx, atts)
}

func (s *forumService) ListImages(ctx context.Context, kind model.Kind, ownerID int64) ([]model.Attachment, error) {
	if err := imageOwner(kind); err != nil {
		return nil, err
	}
	atts, err := s.repo.ListAttachments(ctx, kind, ownerID)
	if err != nil {
		return nil, err
	}
	for i := range atts {
		atts[i].URL = s.blobs.URL(atts[i].Path)
	}
	return atts, nil
}

// DeleteImages removes the listed images of one owner and returns how many
// were removed. Ids owned by something else are ignored.
func (s *forumService) DeleteImages(ctx context.Context, actor model.Actor, kind model.Kind, ownerID int64, ids []int64) (int, error) {
	if err := imageOwner(kind); err != nil {
		return 0, err
	}
	if !actor.Authenticated {
		return 0, ErrAuthRequired
	}
	author, err := s.authorOf(ctx, kind, ownerID)
	if err != nil {
		return 0, err
	}
	if !actor.IsAuthor(author) && !actor.Staff {
		return 0, ErrForbidden
	}
	if len(ids) == 0 {
		return 0, nil
	}

	removed, err := s.repo.DeleteAttachments(ctx, kind, ownerID, ids)
	if err != nil {
		return 0, err
	}
	s.collectBlobs(ctx, removed)
	return len(removed), nil
}
