package model

import "time"

type Kind string

const (
	KindResource Kind = "resource"
	KindQuestion Kind = "question"
	KindReply    Kind = "reply"
)

func (k Kind) Valid() bool {
	switch k {
	case KindResource, KindQuestion, KindReply:
		return true
	}
	return false
}

type ResourceType string

const (
	ResourceTextBooks ResourceType = "TEXT_BOOKS"
	ResourceNotes     ResourceType = "NOTES"
	ResourceVideo     ResourceType = "VIDEO"
	ResourceSummary   ResourceType = "SUMMARY"
	ResourceExam      ResourceType = "EXAM"
)

// ResourceTypes lists every type in the order the library groups them.
var ResourceTypes = []ResourceType{
	ResourceExam,
	ResourceSummary,
	ResourceNotes,
	ResourceTextBooks,
	ResourceVideo,
}

func (t ResourceType) Valid() bool {
	for _, v := range ResourceTypes {
		if v == t {
			return true
		}
	}
	return false
}

type Resource struct {
	ID             int64        `json:"id"`
	AuthorID       *int64       `json:"author"`
	Name           string       `json:"name"`
	Description    string       `json:"description"`
	SubjectID      int64        `json:"subject"`
	Type           ResourceType `json:"type"`
	Labels         string       `json:"labels"`
	Link           string       `json:"link"`
	AdditionalLink *string      `json:"additional_link"`
	CreatedAt      time.Time    `json:"created_at"`
	Reports        int          `json:"reports"`
}

type Question struct {
	ID        int64     `json:"id"`
	AuthorID  *int64    `json:"author"`
	SubjectID int64     `json:"subject"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"date_posted"`
	Reports   int       `json:"reports"`
}

// Reply belongs to exactly one question. ParentID is nil for top-level replies
// and never changes after creation.
type Reply struct {
	ID         int64     `json:"id"`
	QuestionID int64     `json:"question"`
	ParentID   *int64    `json:"parent"`
	AuthorID   *int64    `json:"author"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"date_posted"`
	Reports    int       `json:"reports"`
}

type ReplyNode struct {
	Reply
	Children []ReplyNode `json:"children"`
}

// Attachment is an image owned by a question or a reply. Path is the blob key.
type Attachment struct {
	ID        int64     `json:"id"`
	OwnerKind Kind      `json:"owner_kind"`
	OwnerID   int64     `json:"owner_id"`
	Path      string    `json:"img"`
	URL       string    `json:"url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type ReportOutcome struct {
	Count   int  `json:"count"`
	Deleted bool `json:"deleted"`
}

type Filter struct {
	AuthorID  *int64
	SubjectID *int64
}
