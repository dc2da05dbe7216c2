package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerify(t *testing.T) {
	hash, err := Hash("s3cretpass")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cretpass", hash)

	assert.True(t, Verify("s3cretpass", hash))
	assert.False(t, Verify("wrongpass1", hash))
	assert.False(t, Verify("s3cretpass", "not-a-hash"))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate("passw0rd"))
	assert.Error(t, Validate("sh0rt"), "too short")
	assert.Error(t, Validate("onlyletters"), "missing digit")
	assert.Error(t, Validate("12345678"), "missing letter")
}
