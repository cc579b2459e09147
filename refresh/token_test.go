package refresh

import (
	"errors"
	"strings"
	"testing"
)

func TestNewTokenParseRoundTrip(t *testing.T) {
	token, err := NewToken("3f6c7a1e-subject")
	if err != nil {
		t.Fatalf("new token: %v", err)
	}
	subject, err := ParseToken(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if subject != "3f6c7a1e-subject" {
		t.Fatalf("unexpected subject %q", subject)
	}

	other, _ := NewToken("3f6c7a1e-subject")
	if other == token {
		t.Fatal("expected tokens to be unique")
	}
	if Digest(token) == Digest(other) {
		t.Fatal("expected distinct digests")
	}
	if strings.Contains(Digest(token), token) {
		t.Fatal("digest must not contain the token")
	}
}

func TestNewTokenRejectsBadSubject(t *testing.T) {
	if _, err := NewToken(""); err == nil {
		t.Fatal("expected empty subject to fail")
	}
	if _, err := NewToken(strings.Repeat("x", maxSubjectLength+1)); err == nil {
		t.Fatal("expected oversize subject to fail")
	}
}

func TestParseTokenMalformed(t *testing.T) {
	for _, in := range []string{"", ".", "abc", "abc.", ".abc", "dTE.short", "!!!.AAAA"} {
		if _, err := ParseToken(in); !errors.Is(err, ErrMalformedToken) {
			t.Fatalf("%q: expected ErrMalformedToken, got %v", in, err)
		}
	}
}

// FuzzParseToken must never panic, and anything it accepts has a bounded subject.
func FuzzParseToken(f *testing.F) {
	valid, err := NewToken("u-1")
	if err != nil {
		f.Fatal(err)
	}
	f.Add(valid)
	f.Add("")
	f.Add("abc.def")
	f.Add("AAAA.AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")

	f.Fuzz(func(t *testing.T, input string) {
		subject, err := ParseToken(input)
		if err != nil {
			return
		}
		if subject == "" || len(subject) > maxSubjectLength {
			t.Fatalf("accepted invalid subject %q", subject)
		}
	})
}
