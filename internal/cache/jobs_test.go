package cache

import (
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeysEmbedVersion(t *testing.T) {
	assert.Equal(t, "niena:matches:757365722d31:v3:10", matchKey(3, "user-1", 10))
	assert.Equal(t, "niena:search:v0:20:40:golang", searchKey(0, "golang", 20, 40))
	assert.NotEqual(t, matchKey(1, "u", 10), matchKey(2, "u", 10))
}

func TestUserMatchesPatternCoversEveryVersion(t *testing.T) {
	pattern := userMatchesPattern("user-1")
	assert.Equal(t, "niena:matches:757365722d31:v*", pattern)

	for _, key := range []string{matchKey(0, "user-1", 10), matchKey(42, "user-1", 50)} {
		ok, err := path.Match(pattern, key)
		assert.NoError(t, err)
		assert.True(t, ok, key)
	}
}

// path.Match follows the same *, ? and [ ] rules as Redis SCAN MATCH for keys without '/'
func TestUserMatchesPatternIsolatesUsers(t *testing.T) {
	tests := []struct {
		name  string
		user  string
		other string
	}{
		{name: "suffix of another id", user: "a", other: "x:a"},
		{name: "prefix of another id", user: "a", other: "a:v1"},
		{name: "star", user: "*", other: "user-2"},
		{name: "question mark", user: "?", other: "b"},
		{name: "character class", user: "[a-z]", other: "q"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := path.Match(userMatchesPattern(tt.user), matchKey(3, tt.other, 10))
			assert.NoError(t, err)
			assert.False(t, ok)

			ok, err = path.Match(userMatchesPattern(tt.user), matchKey(3, tt.user, 10))
			assert.NoError(t, err)
			assert.True(t, ok)
		})
	}
}
