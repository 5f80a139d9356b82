package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTranslations_DefaultMessages(t *testing.T) {
	trans, err := NewTranslations("en")
	require.NoError(t, err)

	msg := trans.GetMessage("review_published", 0, map[string]interface{}{
		"PRNumber": 42,
	})
	assert.Equal(t, "Review published to PR #42", msg)
}

func TestGetMessage_Plural(t *testing.T) {
	trans, err := NewTranslations("en")
	require.NoError(t, err)

	one := trans.GetMessage("analyzing_files", 1, map[string]interface{}{"Count": 1})
	many := trans.GetMessage("analyzing_files", 3, map[string]interface{}{"Count": 3})

	assert.Equal(t, "Analyzing 1 file...", one)
	assert.Equal(t, "Analyzing 3 files...", many)
}

func TestGetMessage_Missing(t *testing.T) {
	trans, err := NewTranslations("en")
	require.NoError(t, err)

	msg := trans.GetMessage("does_not_exist", 0, nil)
	assert.Contains(t, msg, "Translation missing")
}

func TestSetLanguage_Unsupported(t *testing.T) {
	trans, err := NewTranslations("en")
	require.NoError(t, err)

	assert.Error(t, trans.SetLanguage("xx"))
	assert.NoError(t, trans.SetLanguage("en"))
}
