package model

import "strconv"

// Actor is whoever issued a request. Anonymous actors carry an address-derived ID
// and UserID 0; ID is empty when nothing identifies the caller.
type Actor struct {
	ID            string
	UserID        int64
	Authenticated bool
	Staff         bool
}

func UserActor(userID int64, staff bool) Actor {
	return Actor{
		ID:            "user:" + strconv.FormatInt(userID, 10),
		UserID:        userID,
		Authenticated: true,
		Staff:         staff,
	}
}

func AnonymousActor(addr string) Actor {
	if addr == "" {
		return Actor{}
	}
	return Actor{ID: "ip:" + addr}
}

func (a Actor) IsAuthor(authorID *int64) bool {
	return a.Authenticated && authorID != nil && *authorID == a.UserID
}
