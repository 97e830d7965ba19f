package bot

import (
	"fmt"
	"regexp"
	"strings"
)

// ProfileMatcher recognizes subscription messages: a bare profile URL of
// the form http://<host>/users/<token>, where token is one or more word
// characters and nothing follows it.
type ProfileMatcher struct {
	re *regexp.Regexp
}

// NewProfileMatcher builds a matcher for profiles hosted on host.
func NewProfileMatcher(host string) (*ProfileMatcher, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return nil, fmt.Errorf("profile host is required")
	}
	re, err := regexp.Compile(`^http://` + regexp.QuoteMeta(host) + `/users/\w+$`)
	if err != nil {
		return nil, fmt.Errorf("compile profile pattern: %w", err)
	}
	return &ProfileMatcher{re: re}, nil
}

// Match returns the profile URL contained in text.
// Surrounding whitespace is ignored.
func (m *ProfileMatcher) Match(text string) (string, bool) {
	s := strings.TrimSpace(text)
	if !m.re.MatchString(s) {
		return "", false
	}
	return s, true
}
