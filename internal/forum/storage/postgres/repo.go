package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/MyNameIsWhaaat/bachub/internal/forum/model"
	"github.com/MyNameIsWhaaat/bachub/internal/forum/storage"
)

const (
	resourceCols   = "id, author_id, name, description, subject_id, type, labels, link, additional_link, created_at, reports"
	questionCols   = "id, author_id, subject_id, content, created_at, reports"
	replyCols      = "id, question_id, parent_id, author_id, content, created_at, reports"
	attachmentCols = "id, owner_kind, owner_id, path, created_at"
)

type Repo struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

func New(db *sql.DB) *Repo {
	return &Repo{db: db, sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar)}
}

// Open connects through the pgx stdlib driver and checks the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanResource(s scanner) (model.Resource, error) {
	var res model.Resource
	err := s.Scan(&res.ID, &res.AuthorID, &res.Name, &res.Description, &res.SubjectID, &res.Type,
		&res.Labels, &res.Link, &res.AdditionalLink, &res.CreatedAt, &res.Reports)
	return res, err
}

func scanQuestion(s scanner) (model.Question, error) {
	var q model.Question
	err := s.Scan(&q.ID, &q.AuthorID, &q.SubjectID, &q.Content, &q.CreatedAt, &q.Reports)
	return q, err
}

func scanReply(s scanner) (model.Reply, error) {
	var r model.Reply
	err := s.Scan(&r.ID, &r.QuestionID, &r.ParentID, &r.AuthorID, &r.Content, &r.CreatedAt, &r.Reports)
	return r, err
}

func scanAttachment(s scanner) (model.Attachment, error) {
	var a model.Attachment
	err := s.Scan(&a.ID, &a.OwnerKind, &a.OwnerID, &a.Path, &a.CreatedAt)
	return a, err
}

func collect[T any](rows *sql.Rows, scan func(scanner) (T, error)) ([]T, error) {
	defer rows.Close()

	out := make([]T, 0)
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// mapErr translates driver errors into storage errors.
func mapErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return storage.ErrConflict
		case "23503":
			return storage.ErrNotFound
		}
	}
	return err
}

func table(kind model.Kind) (string, error) {
	switch kind {
	case model.KindResource:
		return "resources", nil
	case model.KindQuestion:
		return "questions", nil
	case model.KindReply:
		return "replies", nil
	}
	return "", fmt.Errorf("unknown content kind %q", kind)
}

func (r *Repo) CreateResource(ctx context.Context, res model.Resource) (model.Resource, error) {
	out, err := scanResource(r.db.QueryRowContext(ctx, `
		INSERT INTO resources(author_id, name, description, subject_id, type, labels, link, additional_link)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+resourceCols,
		res.AuthorID, res.Name, res.Description, res.SubjectID, res.Type, res.Labels, res.Link, res.AdditionalLink))
	if err != nil {
		return model.Resource{}, mapErr(err)
	}
	return out, nil
}

func (r *Repo) GetResource(ctx context.Context, id int64) (model.Resource, error) {
	res, err := scanResource(r.db.QueryRowContext(ctx,
		`SELECT `+resourceCols+` FROM resources WHERE id=$1`, id))
	if err != nil {
		return model.Resource{}, mapErr(err)
	}
	return res, nil
}

func filtered(b sq.SelectBuilder, f model.Filter) sq.SelectBuilder {
	if f.AuthorID != nil {
		b = b.Where(sq.Eq{"author_id": *f.AuthorID})
	}
	if f.SubjectID != nil {
		b = b.Where(sq.Eq{"subject_id": *f.SubjectID})
	}
	return b
}

func (r *Repo) ListResources(ctx context.Context, f model.Filter) ([]model.Resource, error) {
	query, args, err := filtered(r.sb.Select(resourceCols).From("resources"), f).
		OrderBy("created_at DESC", "id DESC").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanResource)
}

func (r *Repo) UpdateResource(ctx context.Context, id int64, p model.ResourcePatch) (model.Resource, error) {
	if p.Empty() {
		return r.GetResource(ctx, id)
	}
	b := r.sb.Update("resources").Where(sq.Eq{"id": id}).Suffix("RETURNING " + resourceCols)
	b = set(b, "name", p.Name)
	b = set(b, "description", p.Description)
	b = set(b, "subject_id", p.SubjectID)
	b = set(b, "type", p.Type)
	b = set(b, "labels", p.Labels)
	b = set(b, "link", p.Link)
	b = set(b, "additional_link", p.AdditionalLink)

	query, args, err := b.ToSql()
	if err != nil {
		return model.Resource{}, err
	}
	res, err := scanResource(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return model.Resource{}, mapErr(err)
	}
	return res, nil
}

func set[T any](b sq.UpdateBuilder, col string, v *T) sq.UpdateBuilder {
	if v == nil {
		return b
	}
	return b.Set(col, *v)
}

func (r *Repo) CreateQuestion(ctx context.Context, q model.Question) (model.Question, error) {
	out, err := scanQuestion(r.db.QueryRowContext(ctx, `
		INSERT INTO questions(author_id, subject_id, content)
		VALUES ($1, $2, $3)
		RETURNING `+questionCols,
		q.AuthorID, q.SubjectID, q.Content))
	if err != nil {
		return model.Question{}, mapErr(err)
	}
	return out, nil
}

func (r *Repo) GetQuestion(ctx context.Context, id int64) (model.Question, error) {
	q, err := scanQuestion(r.db.QueryRowContext(ctx,
		`SELECT `+questionCols+` FROM questions WHERE id=$1`, id))
	if err != nil {
		return model.Question{}, mapErr(err)
	}
	return q, nil
}

func (r *Repo) ListQuestions(ctx context.Context, f model.Filter) ([]model.Question, error) {
	query, args, err := filtered(r.sb.Select(questionCols).From("questions"), f).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanQuestion)
}

func (r *Repo) UpdateQuestion(ctx context.Context, id int64, p model.QuestionPatch) (model.Question, error) {
	if p.Empty() {
		return r.GetQuestion(ctx, id)
	}
	b := r.sb.Update("questions").Where(sq.Eq{"id": id}).Suffix("RETURNING " + questionCols)
	b = set(b, "subject_id", p.SubjectID)
	b = set(b, "content", p.Content)

	query, args, err := b.ToSql()
	if err != nil {
		return model.Question{}, err
	}
	q, err := scanQuestion(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return model.Question{}, mapErr(err)
	}
	return q, nil
}

func (r *Repo) CreateReply(ctx context.Context, rep model.Reply) (model.Reply, error) {
	out, err := scanReply(r.db.QueryRowContext(ctx, `
		INSERT INTO replies(question_id, parent_id, author_id, content)
		VALUES ($1, $2, $3, $4)
		RETURNING `+replyCols,
		rep.QuestionID, rep.ParentID, rep.AuthorID, rep.Content))
	if err != nil {
		return model.Reply{}, mapErr(err)
	}
	return out, nil
}

func (r *Repo) GetReply(ctx context.Context, id int64) (model.Reply, error) {
	rep, err := scanReply(r.db.QueryRowContext(ctx,
		`SELECT `+replyCols+` FROM replies WHERE id=$1`, id))
	if err != nil {
		return model.Reply{}, mapErr(err)
	}
	return rep, nil
}

func (r *Repo) ListReplies(ctx context.Context, questionID int64) ([]model.Reply, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+replyCols+`
		FROM replies
		WHERE question_id=$1
		ORDER BY created_at ASC, id ASC
	`, questionID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanReply)
}

func (r *Repo) GetSubtree(ctx context.Context, id int64) ([]model.Reply, error) {
	rows, err := r.db.QueryContext(ctx, `
		WITH RECURSIVE t AS (
			SELECT `+replyCols+`
			FROM replies
			WHERE id = $1

			UNION ALL

			SELECT c.id, c.question_id, c.parent_id, c.author_id, c.content, c.created_at, c.reports
			FROM replies c
			JOIN t ON c.parent_id = t.id
		)
		SELECT `+replyCols+`
		FROM t
		ORDER BY created_at ASC, id ASC
	`, id)
	if err != nil {
		return nil, err
	}
	out, err := collect(rows, scanReply)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, storage.ErrNotFound
	}
	return out, nil
}

func (r *Repo) UpdateReply(ctx context.Context, id int64, p model.ReplyPatch) (model.Reply, error) {
	if p.Content == nil {
		return r.GetReply(ctx, id)
	}
	rep, err := scanReply(r.db.QueryRowContext(ctx, `
		UPDATE replies SET content=$2 WHERE id=$1
		RETURNING `+replyCols, id, *p.Content))
	if err != nil {
		return model.Reply{}, mapErr(err)
	}
	return rep, nil
}

func (r *Repo) AddAttachment(ctx context.Context, a model.Attachment) (model.Attachment, error) {
	tbl, err := table(a.OwnerKind)
	if err != nil {
		return model.Attachment{}, err
	}
	// owner check and insert in one statement; no row means the owner is gone
	out, err := scanAttachment(r.db.QueryRowContext(ctx, `
		INSERT INTO attachments(owner_kind, owner_id, path)
		SELECT $1, id, $3 FROM `+tbl+` WHERE id = $2
		RETURNING `+attachmentCols,
		a.OwnerKind, a.OwnerID, a.Path))
	if err != nil {
		return model.Attachment{}, mapErr(err)
	}
	return out, nil
}

func (r *Repo) ListAttachments(ctx context.Context, kind model.Kind, ownerID int64) ([]model.Attachment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+attachmentCols+`
		FROM attachments
		WHERE owner_kind=$1 AND owner_id=$2
		ORDER BY id ASC
	`, kind, ownerID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanAttachment)
}

func (r *Repo) DeleteAttachments(ctx context.Context, kind model.Kind, ownerID int64, ids []int64) ([]model.Attachment, error) {
	rows, err := r.db.QueryContext(ctx, `
		DELETE FROM attachments
		WHERE owner_kind=$1 AND owner_id=$2 AND id = ANY($3)
		RETURNING `+attachmentCols,
		kind, ownerID, ids)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanAttachment)
}

func (r *Repo) IncrementReports(ctx context.Context, kind model.Kind, id int64) (int, error) {
	tbl, err := table(kind)
	if err != nil {
		return 0, err
	}
	var n int
	err = r.db.QueryRowContext(ctx,
		`UPDATE `+tbl+` SET reports = reports + 1 WHERE id=$1 RETURNING reports`, id).Scan(&n)
	if err != nil {
		return 0, mapErr(err)
	}
	return n, nil
}

func (r *Repo) DeleteCascade(ctx context.Context, kind model.Kind, id int64) (removed []model.Attachment, err error) {
	tbl, err := table(kind)
	if err != nil {
		return nil, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var one int
	if err = tx.QueryRowContext(ctx, `SELECT 1 FROM `+tbl+` WHERE id=$1 FOR UPDATE`, id).Scan(&one); err != nil {
		return nil, mapErr(err)
	}

	var replyIDs []int64
	switch kind {
	case model.KindQuestion:
		replyIDs, err = queryIDs(ctx, tx, `SELECT id FROM replies WHERE question_id=$1`, id)
	case model.KindReply:
		replyIDs, err = queryIDs(ctx, tx, `
			WITH RECURSIVE t AS (
				SELECT id FROM replies WHERE id=$1
				UNION ALL
				SELECT c.id FROM replies c JOIN t ON c.parent_id = t.id
			)
			SELECT id FROM t
		`, id)
	}
	if err != nil {
		return nil, err
	}

	rows, err := tx.QueryContext(ctx, `
		DELETE FROM attachments
		WHERE (owner_kind=$1 AND owner_id=$2)
		   OR (owner_kind=$3 AND owner_id = ANY($4))
		RETURNING `+attachmentCols,
		kind, id, model.KindReply, replyIDs)
	if err != nil {
		return nil, err
	}
	if removed, err = collect(rows, scanAttachment); err != nil {
		return nil, err
	}

	if len(replyIDs) > 0 {
		if _, err = tx.ExecContext(ctx, `DELETE FROM replies WHERE id = ANY($1)`, replyIDs); err != nil {
			return nil, err
		}
	}
	if kind != model.KindReply {
		if _, err = tx.ExecContext(ctx, `DELETE FROM `+tbl+` WHERE id=$1`, id); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return removed, nil
}

func queryIDs(ctx context.Context, tx *sql.Tx, query string, args ...any) ([]int64, error) {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
