package challenge_test

import (
	"encoding/base64"
	"errors"
	"reflect"
	"strings"
	"testing"

	"trivia-duel-service/internal/challenge"
	"trivia-duel-service/internal/domain"
)

func TestClassicRoundTrip(t *testing.T) {
	cases := []domain.ClassicChallenge{
		{QuestionIndices: []int{0}, ScoreToBeat: 0},
		{QuestionIndices: []int{3, 1, 4, 1, 5}, ScoreToBeat: 500, Wager: 0.25, Challenger: "alice"},
		{QuestionIndices: []int{12, 7}, ScoreToBeat: 900, Wager: 10, Challenger: "Bob Smith", Message: "beat this | if you can / 100% ?"},
		{QuestionIndices: []int{2}, ScoreToBeat: 100, Challenger: "José", Message: "¿Listo? ñandú 🎉"},
	}
	for _, want := range cases {
		token, err := challenge.EncodeClassic(want)
		if err != nil {
			t.Fatalf("encode %+v: %v", want, err)
		}
		if strings.ContainsAny(token, "+/=") {
			t.Fatalf("token %q is not url-safe", token)
		}
		got, err := challenge.DecodeClassic(token)
		if err != nil {
			t.Fatalf("decode %q: %v", token, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, want)
		}
	}
}

func TestDecodeAcceptsPaddedToken(t *testing.T) {
	token := base64.URLEncoding.EncodeToString([]byte("classic|1,2|300|0|carol|"))
	got, err := challenge.DecodeClassic(token)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ScoreToBeat != 300 || got.Challenger != "carol" || len(got.QuestionIndices) != 2 {
		t.Fatalf("unexpected decode %+v", got)
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	enc := func(s string) string { return base64.RawURLEncoding.EncodeToString([]byte(s)) }
	cases := map[string]string{
		"not base64":    "***",
		"wrong tag":     enc("ai|1,2|300|0|x|"),
		"missing index": enc("classic||300|0|x|"),
		"missing score": enc("classic|1,2||0|x|"),
		"short":         enc("classic|1"),
		"bad index":     enc("classic|1,a|300|0|x|"),
		"bad score":     enc("classic|1|lots|0|x|"),
		"bad wager":     enc("classic|1|300|much|x|"),
		"bad escape":    enc("classic|1|300|0|x|%zz"),
	}
	for name, token := range cases {
		if _, err := challenge.DecodeClassic(token); !errors.Is(err, domain.ErrChallengeNotFound) {
			t.Fatalf("%s: expected not found, got %v", name, err)
		}
	}
}

func TestEncodeRejectsInvalidInput(t *testing.T) {
	if _, err := challenge.EncodeClassic(domain.ClassicChallenge{}); !domain.IsValidation(err) {
		t.Fatalf("expected validation error without indices, got %v", err)
	}
	if _, err := challenge.EncodeClassic(domain.ClassicChallenge{QuestionIndices: []int{1}, Challenger: "a|b"}); !domain.IsValidation(err) {
		t.Fatalf("expected validation error for delimiter in name, got %v", err)
	}
}

func TestResolveClassic(t *testing.T) {
	bank := []domain.Question{
		{Text: "q0", CorrectAnswer: "a", Options: []string{"a", "b", "c", "d"}},
		{Text: "q1", CorrectAnswer: "b", Options: []string{"a", "b", "c", "d"}},
		{Text: "q2", CorrectAnswer: "c", Options: []string{"a", "b", "c", "d"}},
	}
	token, err := challenge.EncodeClassic(domain.ClassicChallenge{QuestionIndices: []int{2, 0}, ScoreToBeat: 100, Challenger: "dan", Message: "hi"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	ch, err := challenge.ResolveClassic(token, bank)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(ch.Questions) != 2 || ch.Questions[0].Text != "q2" || ch.Questions[1].Text != "q0" {
		t.Fatalf("unexpected questions %+v", ch.Questions)
	}
	if got := challenge.IndicesOf(ch.Questions); !reflect.DeepEqual(got, []int{2, 0}) {
		t.Fatalf("expected original indices preserved, got %v", got)
	}
	if ch.AIGame || ch.Challenger != "dan" || ch.Message != "hi" {
		t.Fatalf("unexpected challenge %+v", ch)
	}

	outOfRange, _ := challenge.EncodeClassic(domain.ClassicChallenge{QuestionIndices: []int{0, 3}, ScoreToBeat: 100})
	if _, err := challenge.ResolveClassic(outOfRange, bank); !errors.Is(err, domain.ErrChallengeNotFound) {
		t.Fatalf("expected not found for index past the bank, got %v", err)
	}
}
