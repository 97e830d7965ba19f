package bot

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestProfileMatcher(t *testing.T) {
	m, err := NewProfileMatcher("knigilub.ru")
	if err != nil {
		t.Fatalf("new matcher: %v", err)
	}

	tests := []struct {
		name   string
		text   string
		want   string
		wantOK bool
	}{
		{name: "numeric token", text: "http://knigilub.ru/users/42", want: "http://knigilub.ru/users/42", wantOK: true},
		{name: "word token", text: "http://knigilub.ru/users/ivan_petrov", want: "http://knigilub.ru/users/ivan_petrov", wantOK: true},
		{name: "surrounding whitespace", text: "  http://knigilub.ru/users/42\n", want: "http://knigilub.ru/users/42", wantOK: true},
		{name: "trailing slash", text: "http://knigilub.ru/users/42/"},
		{name: "extra path segment", text: "http://knigilub.ru/users/42/books"},
		{name: "empty token", text: "http://knigilub.ru/users/"},
		{name: "literal w plus is not special", text: "http://knigilub.ru/users/w+", wantOK: false},
		{name: "other host", text: "http://example.com/users/42"},
		{name: "host dot is literal", text: "http://knigilubxru/users/42"},
		{name: "https", text: "https://knigilub.ru/users/42"},
		{name: "text before url", text: "please watch http://knigilub.ru/users/42"},
		{name: "command", text: "/start"},
		{name: "empty", text: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := m.Match(tt.text)
			if diff := cmp.Diff(tt.wantOK, ok); diff != "" {
				t.Errorf("match mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("profile mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNewProfileMatcherRequiresHost(t *testing.T) {
	if _, err := NewProfileMatcher("  "); err == nil {
		t.Fatal("expected error for empty host")
	}
}
