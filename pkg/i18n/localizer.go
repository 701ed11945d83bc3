package i18n

import (
	"embed"
	"log/slog"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.toml
var localeFS embed.FS

type Localizer struct {
	bundle     *i18n.Bundle
	localizers map[string]*i18n.Localizer
}

// NewLocalizer loads the embedded message files for langs. Unknown languages
// fall back to DEFAULT_LANG at lookup time.
func NewLocalizer(langs ...string) *Localizer {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	l := &Localizer{
		bundle:     bundle,
		localizers: make(map[string]*i18n.Localizer),
	}
	for _, lang := range append(langs, DEFAULT_LANG) {
		if _, exist := l.localizers[lang]; exist {
			continue
		}
		if _, err := bundle.LoadMessageFileFS(localeFS, "locales/"+lang+".toml"); err != nil {
			slog.Error("failed to load locale file", slog.String("lang", lang), slog.String("error", err.Error()))
			continue
		}
		l.localizers[lang] = i18n.NewLocalizer(bundle, lang)
	}
	return l
}

// Get returns the translated message for id, or id itself when no translation exists.
func (l *Localizer) Get(lang, id string) string {
	loc, ok := l.localizers[lang]
	if !ok {
		loc = l.localizers[DEFAULT_LANG]
	}
	if loc == nil {
		return id
	}
	msg, err := loc.Localize(&i18n.LocalizeConfig{MessageID: id})
	if err != nil || msg == "" {
		return id
	}
	return msg
}

// Match picks the best supported language for an Accept-Language header value.
func (l *Localizer) Match(acceptLanguage string) string {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return DEFAULT_LANG
	}
	supported := []language.Tag{language.English, language.SimplifiedChinese}
	_, idx, conf := language.NewMatcher(supported).Match(tags...)
	if conf == language.No {
		return DEFAULT_LANG
	}
	if idx == 1 {
		return "zh-CN"
	}
	return DEFAULT_LANG
}
