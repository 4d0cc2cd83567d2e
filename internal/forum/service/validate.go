package service

import (
	"html"
	"net/url"
	"strings"
	"unicode/utf8"
)

const (
	maxNameLen    = 100
	maxLabelsLen  = 100
	maxContentLen = 10000
)

// plain strips markup from v. The policy escapes what it keeps, so the result
// is unescaped again: text is stored as the user typed it.
func (s *forumService) plain(v string) string {
	return strings.TrimSpace(html.UnescapeString(s.sanitize.Sanitize(v)))
}

// text strips markup from v and checks it is non-blank and at most max runes.
func (s *forumService) text(field, v string, max int) (string, error) {
	t := s.plain(v)
	if t == "" {
		return "", invalid("%s is required", field)
	}
	if utf8.RuneCountInString(t) > max {
		return "", invalid("%s must be at most %d characters", field, max)
	}
	return t, nil
}

func (s *forumService) optionalText(field, v string, max int) (string, error) {
	t := s.plain(v)
	if utf8.RuneCountInString(t) > max {
		return "", invalid("%s must be at most %d characters", field, max)
	}
	return t, nil
}

func validateLink(field, v string) (string, error) {
	v = strings.TrimSpace(v)
	u, err := url.Parse(v)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", invalid("%s must be a valid URL", field)
	}
	return v, nil
}

func validateID(field string, id int64) error {
	if id <= 0 {
		return invalid("%s must be a positive id", field)
	}
	return nil
}
