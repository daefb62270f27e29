package i18n_test

import (
	"context"
	"testing"

	"trivia-duel-service/internal/i18n"
)

func TestTranslateWithParams(t *testing.T) {
	c := i18n.MustLoad()

	got := c.T("en", "notifications.level_up.description", map[string]any{"level": 3})
	if got != "You reached level 3. Keep it going!" {
		t.Fatalf("unexpected translation %q", got)
	}
	got = c.T("es", "notifications.challenge_won.description", map[string]any{"challenger": "Ana"})
	if got != "Superaste la puntuación de Ana. ¡Bien jugado!" {
		t.Fatalf("unexpected spanish translation %q", got)
	}
}

func TestFallbacks(t *testing.T) {
	c := i18n.MustLoad()

	if got := c.T("es", "achievements.items.top-player.name", nil); got != "Top Player" {
		t.Fatalf("expected english fallback for missing key, got %q", got)
	}
	if got := c.T("fr", "summary.title.tie", nil); got != "It's a tie!" {
		t.Fatalf("expected default locale for unknown locale, got %q", got)
	}
	if got := c.T("en", "no.such.key", nil); got != "no.such.key" {
		t.Fatalf("expected key echoed back, got %q", got)
	}
	if got := c.T("en", "summary.title", nil); got != "summary.title" {
		t.Fatalf("non-string node must not translate, got %q", got)
	}
}

func TestResolve(t *testing.T) {
	c := i18n.MustLoad()
	cases := map[string]string{"es-MX": "es", "ES": "es", "en_US": "en", "": "en", "de": "en"}
	for in, want := range cases {
		if got := c.Resolve(in); got != want {
			t.Fatalf("Resolve(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestClassicBanksAligned(t *testing.T) {
	c := i18n.MustLoad()
	en, _ := c.LoadBank(context.Background(), "en")
	es, _ := c.LoadBank(context.Background(), "es")

	if len(en) < 12 || len(en) != len(es) {
		t.Fatalf("expected aligned banks of at least 12, got en=%d es=%d", len(en), len(es))
	}
	for i := range en {
		if len(en[i].Options) != 4 || len(es[i].Options) != 4 {
			t.Fatalf("question %d must have four options", i)
		}
		if indexOf(en[i].Options, en[i].CorrectAnswer) != indexOf(es[i].Options, es[i].CorrectAnswer) {
			t.Fatalf("question %d answer position differs between locales", i)
		}
		if indexOf(en[i].Options, en[i].CorrectAnswer) < 0 {
			t.Fatalf("question %d answer missing from options", i)
		}
	}

	en[0].Options[0] = "mutated"
	again := c.Questions("en")
	if again[0].Options[0] == "mutated" {
		t.Fatalf("bank must be copied per call")
	}
}

func indexOf(opts []string, v string) int {
	for i, o := range opts {
		if o == v {
			return i
		}
	}
	return -1
}
