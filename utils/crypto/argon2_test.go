package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestGenerateFromPassword 测试哈希格式
func TestGenerateFromPassword(t *testing.T) {
	hash, err := GenerateFromPassword("mysecretpassword123")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$"))
	assert.Contains(t, hash, "$v=")
	assert.Contains(t, hash, "$m=")
}

// TestGenerateFromPassword_DifferentHashes 相同密码因盐值不同产生不同哈希
func TestGenerateFromPassword_DifferentHashes(t *testing.T) {
	hash1, err := GenerateFromPassword("samepassword123")
	require.NoError(t, err)
	hash2, err := GenerateFromPassword("samepassword123")
	require.NoError(t, err)
	assert.NotEqual(t, hash1, hash2)
}

// TestComparePasswordAndHash 测试校验往返
func TestComparePasswordAndHash(t *testing.T) {
	hash, err := GenerateFromPassword("correctpassword123")
	require.NoError(t, err)

	match, err := ComparePasswordAndHash("correctpassword123", hash)
	require.NoError(t, err)
	assert.True(t, match)

	match, err = ComparePasswordAndHash("wrongpassword123", hash)
	require.NoError(t, err)
	assert.False(t, match)
}

// TestComparePasswordAndHash_InvalidFormat 测试非法哈希串
func TestComparePasswordAndHash_InvalidFormat(t *testing.T) {
	_, err := ComparePasswordAndHash("password", "not-a-hash")
	assert.Error(t, err)

	_, err = ComparePasswordAndHash("password", "$bcrypt$v=19$m=1,t=1,p=1$abc$def")
	assert.Error(t, err)
}
