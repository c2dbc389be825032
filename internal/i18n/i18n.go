package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var embedded embed.FS

// Translator resolves localized strings using dot-separated keys.
type Translator interface {
	T(key string) string
	Tf(key string, args ...any) string
	Lang() string
}

// Manager stores all available translations.
type Manager struct {
	translations map[string]map[string]string
	defaultLang  string

	// supported lists the loaded languages, default first, in matcher order.
	supported []string
	matcher   language.Matcher
}

// Load loads the catalogs compiled into the binary.
func Load(defaultLang string) (*Manager, error) {
	sub, err := fs.Sub(embedded, "locales")
	if err != nil {
		return nil, fmt.Errorf("i18n: embedded locales: %w", err)
	}
	return LoadFS(sub, defaultLang)
}

// LoadFS loads translations from the YAML files at the root of fsys.
func LoadFS(fsys fs.FS, defaultLang string) (*Manager, error) {
	catalog, err := parseFS(fsys)
	if err != nil {
		return nil, err
	}

	if defaultLang == "" {
		defaultLang = "ru"
	}
	defaultLang = normalize(defaultLang)

	if _, ok := catalog[defaultLang]; !ok {
		return nil, fmt.Errorf("i18n: default language %q is missing", defaultLang)
	}

	supported := []string{defaultLang}
	for lang := range catalog {
		if lang != defaultLang {
			supported = append(supported, lang)
		}
	}
	sort.Strings(supported[1:])

	tags := make([]language.Tag, 0, len(supported))
	for _, lang := range supported {
		tag, err := language.Parse(lang)
		if err != nil {
			return nil, fmt.Errorf("i18n: catalog language %q: %w", lang, err)
		}
		tags = append(tags, tag)
	}

	return &Manager{
		translations: catalog,
		defaultLang:  defaultLang,
		supported:    supported,
		matcher:      language.NewMatcher(tags),
	}, nil
}

// Translator returns a translator for the requested language. Region subtags are
// ignored and unknown languages fall back to the default one.
func (m *Manager) Translator(lang string) Translator {
	if m == nil {
		return translator{}
	}

	norm := normalize(lang)
	if norm == "" || m.translations[norm] == nil {
		norm = m.defaultLang
	}

	return translator{
		lang:         norm,
		fallback:     m.defaultLang,
		translations: m.translations,
	}
}

// Negotiate picks the loaded language that best matches an Accept-Language header value,
// honouring quality weights. Unparsable or unmatched headers get the default language.
func (m *Manager) Negotiate(acceptLanguage string) Translator {
	if m == nil {
		return translator{}
	}

	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return m.Translator(m.defaultLang)
	}

	_, index, confidence := m.matcher.Match(tags...)
	if confidence == language.No {
		return m.Translator(m.defaultLang)
	}

	return m.Translator(m.supported[index])
}

// Languages returns all loaded languages.
func (m *Manager) Languages() []string {
	if m == nil {
		return nil
	}

	languages := make([]string, 0, len(m.translations))
	for lang := range m.translations {
		languages = append(languages, lang)
	}
	return languages
}

// DefaultLang returns the fallback language.
func (m *Manager) DefaultLang() string {
	if m == nil {
		return ""
	}
	return m.defaultLang
}

func normalize(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if primary, _, ok := strings.Cut(lang, "-"); ok {
		return primary
	}
	if primary, _, ok := strings.Cut(lang, "_"); ok {
		return primary
	}
	return lang
}

type translator struct {
	lang         string
	fallback     string
	translations map[string]map[string]string
}

func (t translator) Lang() string {
	return t.lang
}

func (t translator) T(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}

	if value := t.lookup(t.lang, key); value != "" {
		return value
	}

	if value := t.lookup(t.fallback, key); value != "" {
		return value
	}

	return key
}

func (t translator) Tf(key string, args ...any) string {
	return fmt.Sprintf(t.T(key), args...)
}

func (t translator) lookup(lang, key string) string {
	if lang == "" || t.translations == nil {
		return ""
	}

	if entries := t.translations[lang]; entries != nil {
		if value, ok := entries[key]; ok {
			return value
		}
	}

	return ""
}

func parseFS(fsys fs.FS) (map[string]map[string]string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("i18n: read dir: %w", err)
	}

	catalog := make(map[string]map[string]string)
	var processed bool

	for _, entry := range entries {
		if entry.IsDir() || !isYAML(entry.Name()) {
			continue
		}

		processed = true

		fileCatalog, err := parseFile(fsys, entry.Name())
		if err != nil {
			return nil, err
		}

		for lang, translations := range fileCatalog {
			if _, ok := catalog[lang]; !ok {
				catalog[lang] = make(map[string]string)
			}
			for key, value := range translations {
				catalog[lang][key] = value
			}
		}
	}

	if !processed {
		return nil, fmt.Errorf("i18n: no yaml files found")
	}

	return catalog, nil
}

func isYAML(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

func parseFile(fsys fs.FS, name string) (map[string]map[string]string, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("i18n: read file %s: %w", name, err)
	}

	if strings.TrimSpace(string(data)) == "" {
		return map[string]map[string]string{}, nil
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("i18n: parse file %s: %w", name, err)
	}

	catalog := make(map[string]map[string]string)
	for lang, value := range raw {
		langKey := normalize(lang)
		if langKey == "" {
			continue
		}

		section, ok := value.(map[string]any)
		if !ok || len(section) == 0 {
			continue
		}

		flattened := make(map[string]string)
		flatten("", section, flattened)
		if len(flattened) > 0 {
			catalog[langKey] = flattened
		}
	}

	return catalog, nil
}

func flatten(prefix string, in map[string]any, out map[string]string) {
	for key, value := range in {
		if key == "" {
			continue
		}

		nextKey := key
		if prefix != "" {
			nextKey = prefix + "." + key
		}

		switch v := value.(type) {
		case string:
			out[nextKey] = v
		case map[string]any:
			flatten(nextKey, v, out)
		}
	}
}
