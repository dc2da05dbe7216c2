package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestDirectConversationKeyOrderIndependent(t *testing.T) {
	a := uuid.New()
	b := uuid.New()

	assert.Equal(t, DirectConversationKey(a, b), DirectConversationKey(b, a))
	assert.NotEqual(t, DirectConversationKey(a, b), DirectConversationKey(a, uuid.New()))
}

func TestLanguageIsValid(t *testing.T) {
	for _, l := range SupportedLanguages {
		assert.True(t, l.IsValid(), "language %s", l)
	}
	assert.False(t, Language("xx").IsValid())
	assert.False(t, Language("").IsValid())
}

func TestToneIsValid(t *testing.T) {
	assert.True(t, ToneCasual.IsValid())
	assert.True(t, ToneStandard.IsValid())
	assert.True(t, ToneFormal.IsValid())
	assert.False(t, Tone("sarcastic").IsValid())
}
