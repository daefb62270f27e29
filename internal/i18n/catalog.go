package i18n

import (
	"context"
	"embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"trivia-duel-service/internal/domain"
)

// DefaultLocale is consulted whenever a key is missing from the requested locale.
const DefaultLocale = "en"

//go:embed locales/*.yaml
var localeFS embed.FS

// Catalog resolves message keys and classic question banks per locale.
type Catalog struct {
	fallback  string
	messages  map[string]map[string]any
	questions map[string][]domain.Question
}

type localeFile struct {
	Messages         map[string]any    `yaml:"messages"`
	ClassicQuestions []domain.Question `yaml:"classic_questions"`
}

// Load parses the embedded catalogs.
func Load() (*Catalog, error) {
	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, err
	}
	c := &Catalog{
		fallback:  DefaultLocale,
		messages:  make(map[string]map[string]any),
		questions: make(map[string][]domain.Question),
	}
	for _, e := range entries {
		name := e.Name()
		if !strings.HasSuffix(name, ".yaml") {
			continue
		}
		data, err := localeFS.ReadFile("locales/" + name)
		if err != nil {
			return nil, err
		}
		if err := c.add(strings.TrimSuffix(name, ".yaml"), data); err != nil {
			return nil, err
		}
	}
	if _, ok := c.messages[c.fallback]; !ok {
		return nil, fmt.Errorf("i18n: fallback locale %q missing", c.fallback)
	}
	want := len(c.questions[c.fallback])
	for locale, qs := range c.questions {
		if len(qs) != want {
			return nil, fmt.Errorf("i18n: locale %q has %d classic questions, %s has %d", locale, len(qs), c.fallback, want)
		}
	}
	return c, nil
}

// MustLoad is Load for process start-up.
func MustLoad() *Catalog {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalog) add(locale string, data []byte) error {
	var f localeFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("i18n: parse %s: %w", locale, err)
	}
	c.messages[locale] = f.Messages
	c.questions[locale] = f.ClassicQuestions
	return nil
}

// Locales lists the available locales.
func (c *Catalog) Locales() []string {
	out := make([]string, 0, len(c.messages))
	for l := range c.messages {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// Resolve maps a requested locale such as "es-MX" to a supported one.
func (c *Catalog) Resolve(locale string) string {
	locale = strings.ToLower(strings.TrimSpace(locale))
	if i := strings.IndexAny(locale, "-_"); i > 0 {
		locale = locale[:i]
	}
	if _, ok := c.messages[locale]; ok {
		return locale
	}
	return c.fallback
}

// T translates key, falling back to the default locale and then to the key
// itself. {name} placeholders are replaced from params.
func (c *Catalog) T(locale, key string, params map[string]any) string {
	msg, ok := lookup(c.messages[c.Resolve(locale)], key)
	if !ok {
		msg, ok = lookup(c.messages[c.fallback], key)
	}
	if !ok {
		return key
	}
	for name, v := range params {
		msg = strings.ReplaceAll(msg, "{"+name+"}", fmt.Sprint(v))
	}
	return msg
}

// Questions returns a copy of the classic bank for a locale.
func (c *Catalog) Questions(locale string) []domain.Question {
	src := c.questions[c.Resolve(locale)]
	out := make([]domain.Question, len(src))
	for i, q := range src {
		out[i] = q.Clone()
	}
	return out
}

// LoadBank serves the catalog as the classic question source.
func (c *Catalog) LoadBank(_ context.Context, locale string) ([]domain.Question, error) {
	return c.Questions(locale), nil
}

func lookup(tree map[string]any, key string) (string, bool) {
	var node any = tree
	for _, part := range strings.Split(key, ".") {
		m, ok := node.(map[string]any)
		if !ok {
			return "", false
		}
		if node, ok = m[part]; !ok {
			return "", false
		}
	}
	s, ok := node.(string)
	return s, ok
}
