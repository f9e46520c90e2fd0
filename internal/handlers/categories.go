package handlers

import (
	"github.com/iamwavecut/cheatlog/internal/db"
	"github.com/iamwavecut/cheatlog/internal/i18n"
)

// CategoryName is the human-readable name of a category.
func CategoryName(c db.Category, lang string) string {
	switch c {
	case db.KilledByCheater:
		return i18n.Get("Killed by Cheater", lang)
	case db.KilledACheater:
		return i18n.Get("Killed a Cheater", lang)
	case db.SusAsFuck:
		return i18n.Get("Sus as Fuck", lang)
	case db.StreamSniper:
		return i18n.Get("Probable Stream Sniper", lang)
	case db.WordOfMouth:
		return i18n.Get("Word of Mouth", lang)
	default:
		return string(c)
	}
}
