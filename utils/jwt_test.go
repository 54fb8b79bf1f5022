package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/lireddit/config"
)

func TestGenerateAndParseToken(t *testing.T) {
	config.Set(config.AppConfig{JWTSecret: "test-secret"})

	token, err := GenerateToken(7, "reader", time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "reader", claims.Username)
	assert.NotEmpty(t, claims.ID)

	other, err := GenerateToken(7, "reader", time.Hour)
	require.NoError(t, err)
	otherClaims, err := ParseToken(other)
	require.NoError(t, err)
	assert.NotEqual(t, claims.ID, otherClaims.ID, "every token gets its own id")
}

func TestParseToken_Rejects(t *testing.T) {
	config.Set(config.AppConfig{JWTSecret: "test-secret"})

	expired, err := GenerateToken(7, "reader", -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(expired)
	assert.Error(t, err)

	_, err = ParseToken("not-a-token")
	assert.Error(t, err)

	token, err := GenerateToken(7, "reader", time.Hour)
	require.NoError(t, err)
	config.Set(config.AppConfig{JWTSecret: "rotated"})
	_, err = ParseToken(token)
	assert.Error(t, err)
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)
	assert.True(t, CheckPassword(hash, "correct horse"))
	assert.False(t, CheckPassword(hash, "wrong horse"))
}

func TestSanitizeAndMarkdown(t *testing.T) {
	assert.Equal(t, "hello", PlainText("<b>hello</b>"))
	assert.Equal(t, "Q&A: is 1 < 2?", PlainText("Q&A: is 1 < 2?"))
	assert.Equal(t, "", PlainText("<script>alert(1)</script>"))

	html := RenderMarkdown("**bold** <script>alert(1)</script>")
	assert.Contains(t, html, "<strong>bold</strong>")
	assert.NotContains(t, html, "<script>")

	html = RenderMarkdown("> quote\n\n`a && b`")
	assert.Contains(t, html, "<blockquote>")
	assert.Contains(t, html, "<code>a &amp;&amp; b</code>")

	assert.Equal(t, []uint{3, 1, 2}, UniqueUint([]uint{3, 1, 3, 2, 1}))
}
