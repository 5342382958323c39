package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTranslate(t *testing.T) {
	i := GetInstance()

	assert.Equal(t, "附件下载失败", i.Translate("attachment_download", LangZhCN))
	assert.NotEqual(t, "attachment_download", i.Translate("attachment_download", LangEnUS))
	assert.Equal(t, "no_such_key", i.Translate("no_such_key", LangEnUS))
}

func TestLanguagesHaveSameKeys(t *testing.T) {
	for key := range translations[LangZhCN] {
		_, ok := translations[LangEnUS][key]
		assert.True(t, ok, "en-US missing %s", key)
	}
	assert.Len(t, translations[LangEnUS], len(translations[LangZhCN]))
}

func TestSetDefaultLanguage(t *testing.T) {
	i := GetInstance()
	prev := i.GetDefaultLanguage()
	t.Cleanup(func() { i.SetDefaultLanguage(prev) })

	i.SetDefaultLanguage(LangEnUS)
	assert.Equal(t, LangEnUS, i.GetDefaultLanguage())

	i.SetDefaultLanguage("xx-YY")
	assert.Equal(t, LangEnUS, i.GetDefaultLanguage())
	assert.True(t, i.IsSupportedLanguage(LangZhCN))
	assert.False(t, i.IsSupportedLanguage("xx-YY"))
}
