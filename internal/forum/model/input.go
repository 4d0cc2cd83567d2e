package model

type NewResource struct {
	Name           string       `json:"name"`
	Description    string       `json:"description"`
	SubjectID      int64        `json:"subject"`
	Type           ResourceType `json:"type"`
	Labels         string       `json:"labels"`
	Link           string       `json:"link"`
	AdditionalLink *string      `json:"additional_link"`
}

type NewQuestion struct {
	SubjectID int64  `json:"subject"`
	Content   string `json:"content"`
}

type NewReply struct {
	QuestionID int64  `json:"question"`
	ParentID   *int64 `json:"parent"`
	Content    string `json:"content"`
}

// Patches carry only the fields present in the request body.

type ResourcePatch struct {
	Name           *string       `json:"name"`
	Description    *string       `json:"description"`
	SubjectID      *int64        `json:"subject"`
	Type           *ResourceType `json:"type"`
	Labels         *string       `json:"labels"`
	Link           *string       `json:"link"`
	AdditionalLink *string       `json:"additional_link"`
}

type QuestionPatch struct {
	SubjectID *int64  `json:"subject"`
	Content   *string `json:"content"`
}

type ReplyPatch struct {
	QuestionID *int64  `json:"question"`
	ParentID   *int64  `json:"parent"`
	Content    *string `json:"content"`
}

func (p ResourcePatch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.SubjectID == nil && p.Type == nil &&
		p.Labels == nil && p.Link == nil && p.AdditionalLink == nil
}

func (p QuestionPatch) Empty() bool { return p.SubjectID == nil && p.Content == nil }

func (p ReplyPatch) Empty() bool { return p.QuestionID == nil && p.ParentID == nil && p.Content == nil }
