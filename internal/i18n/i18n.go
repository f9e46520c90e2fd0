package i18n

import (
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/iamwavecut/cheatlog/resources"
)

const translationsFile = "i18n/translations.yml"

// English message text doubles as the key; translations map it per
// upper-case locale code.
var state = struct {
	once         sync.Once
	translations map[string]map[string]string
}{}

func load() {
	state.translations = map[string]map[string]string{}
	content, err := resources.FS.ReadFile(translationsFile)
	if err != nil {
		log.WithError(err).Errorln("cant load i18n")
		return
	}
	if err := yaml.Unmarshal(content, &state.translations); err != nil {
		log.WithError(err).Errorln("cant unmarshal i18n")
	}
}

func Get(key, lang string) string {
	lang = strings.ToUpper(strings.TrimSpace(lang))
	if lang == "" || lang == "EN" {
		return key
	}
	state.once.Do(load)
	if res, ok := state.translations[key][lang]; ok && res != "" {
		return res
	}
	log.Tracef(`no %s translation for key "%s"`, lang, key)
	return key
}

// Languages lists the locale codes that have at least one translation, plus en.
func Languages() []string {
	state.once.Do(load)
	seen := map[string]struct{}{"en": {}}
	out := []string{"en"}
	for _, byLang := range state.translations {
		for code := range byLang {
			code = strings.ToLower(code)
			if _, ok := seen[code]; ok {
				continue
			}
			seen[code] = struct{}{}
			out = append(out, code)
		}
	}
	return out
}
