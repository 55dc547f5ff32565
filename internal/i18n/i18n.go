// Package i18n translates user-facing strings from embedded YAML dictionaries.
package i18n

import (
	"embed"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/dokzlo13/lumictl/internal/storage/kv"
)

// DefaultLanguage is used when nothing else matches and as the lookup fallback.
const DefaultLanguage = "en"

const storageKey = "language"

//go:embed locales/*.yaml
var localeFS embed.FS

// supported lists languages in matcher preference order; the first is the default.
var supported = []language.Tag{language.English, language.Chinese}

var matcher = language.NewMatcher(supported)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)

// Translator looks up dot-path keys in the active language.
type Translator struct {
	bucket kv.Bucket
	dicts  map[string]map[string]string

	mu   sync.RWMutex
	lang string
}

// New loads the dictionaries and resolves the initial language:
// the stored preference, else the process locale, else English.
func New(bucket kv.Bucket) (*Translator, error) {
	dicts, err := loadDictionaries()
	if err != nil {
		return nil, err
	}

	t := &Translator{bucket: bucket, dicts: dicts, lang: DefaultLanguage}

	stored, err := kv.GetString(bucket, storageKey)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read language preference")
	}
	switch {
	case stored != "" && t.isSupported(stored):
		t.lang = stored
	case stored != "":
		log.Warn().Str("language", stored).Msg("Ignoring unsupported stored language")
		fallthrough
	default:
		t.lang = DetectLanguage()
	}
	return t, nil
}

func loadDictionaries() (map[string]map[string]string, error) {
	dicts := make(map[string]map[string]string, len(supported))
	for _, tag := range supported {
		base, _ := tag.Base()
		code := base.String()

		data, err := localeFS.ReadFile("locales/" + code + ".yaml")
		if err != nil {
			return nil, fmt.Errorf("missing dictionary for %s: %w", code, err)
		}

		var tree map[string]any
		if err := yaml.Unmarshal(data, &tree); err != nil {
			return nil, fmt.Errorf("invalid dictionary for %s: %w", code, err)
		}

		flat := make(map[string]string)
		flatten("", tree, flat)
		dicts[code] = flat
	}
	return dicts, nil
}

func flatten(prefix string, tree map[string]any, out map[string]string) {
	for key, value := range tree {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		switch v := value.(type) {
		case map[string]any:
			flatten(path, v, out)
		case string:
			out[path] = v
		default:
			out[path] = fmt.Sprint(v)
		}
	}
}

// DetectLanguage matches LC_ALL, LC_MESSAGES and LANG against the supported languages.
func DetectLanguage() string {
	for _, env := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		value := os.Getenv(env)
		if value == "" {
			continue
		}
		return matchLocale(value)
	}
	return DefaultLanguage
}

// matchLocale maps a POSIX locale such as "zh_CN.UTF-8" to a supported code.
func matchLocale(locale string) string {
	if i := strings.IndexAny(locale, ".@"); i >= 0 {
		locale = locale[:i]
	}
	locale = strings.ReplaceAll(locale, "_", "-")
	if locale == "" || locale == "C" || locale == "POSIX" {
		return DefaultLanguage
	}

	tag, err := language.Parse(locale)
	if err != nil {
		return DefaultLanguage
	}
	_, idx, confidence := matcher.Match(tag)
	if confidence == language.No {
		return DefaultLanguage
	}
	base, _ := supported[idx].Base()
	return base.String()
}

// T translates a key. Lookup falls back to the default language, then to the key itself.
// {{name}} placeholders are filled from params; unknown placeholders are kept.
func (t *Translator) T(key string, params map[string]any) string {
	t.mu.RLock()
	lang := t.lang
	t.mu.RUnlock()

	text, ok := t.dicts[lang][key]
	if !ok {
		text, ok = t.dicts[DefaultLanguage][key]
	}
	if !ok {
		return key
	}
	return interpolate(text, params)
}

func interpolate(text string, params map[string]any) string {
	if len(params) == 0 || !strings.Contains(text, "{{") {
		return text
	}
	return placeholderPattern.ReplaceAllStringFunc(text, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		if v, ok := params[name]; ok {
			return fmt.Sprint(v)
		}
		return match
	})
}

// Language returns the active language code.
func (t *Translator) Language() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lang
}

// Supported returns the available language codes.
func (t *Translator) Supported() []string {
	codes := make([]string, 0, len(supported))
	for _, tag := range supported {
		base, _ := tag.Base()
		codes = append(codes, base.String())
	}
	return codes
}

func (t *Translator) isSupported(lang string) bool {
	_, ok := t.dicts[lang]
	return ok
}

// SetLanguage switches and persists the active language.
func (t *Translator) SetLanguage(lang string) error {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if !t.isSupported(lang) {
		return fmt.Errorf("unsupported language %q: want one of %s", lang, strings.Join(t.Supported(), ", "))
	}
	if err := t.bucket.Store(storageKey, lang, nil); err != nil {
		return fmt.Errorf("failed to save language: %w", err)
	}

	t.mu.Lock()
	t.lang = lang
	t.mu.Unlock()
	return nil
}
