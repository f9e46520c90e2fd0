package i18n

import "testing"

func TestGet(t *testing.T) {
	t.Parallel()

	tests := []struct {
		key  string
		lang string
		want string
	}{
		{key: "Word of Mouth", lang: "en", want: "Word of Mouth"},
		{key: "Word of Mouth", lang: "", want: "Word of Mouth"},
		{key: "Word of Mouth", lang: "ru", want: "Слухи"},
		{key: "Word of Mouth", lang: "RU", want: "Слухи"},
		{key: "Word of Mouth", lang: "de", want: "Word of Mouth"},
		{key: "no such key", lang: "ru", want: "no such key"},
	}
	for _, tt := range tests {
		if got := Get(tt.key, tt.lang); got != tt.want {
			t.Fatalf("Get(%q, %q) = %q, want %q", tt.key, tt.lang, got, tt.want)
		}
	}
}

func TestLanguages(t *testing.T) {
	t.Parallel()

	langs := Languages()
	if len(langs) != 2 || langs[0] != "en" || langs[1] != "ru" {
		t.Fatalf("unexpected languages: %v", langs)
	}
	if GetLanguageName("RU") != "Russian" || GetLanguageName("xx") != "xx" {
		t.Fatalf("unexpected language names")
	}
}
