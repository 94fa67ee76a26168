package logger

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPolicyRedactsSecrets(t *testing.T) {
	out := policy{}.apply([]interface{}{"openai_api_key", "sk-123", "path", "/api/chat"})
	assert.Equal(t, []interface{}{"openai_api_key", "[REDACTED]", "path", "/api/chat"}, out)
}

func TestPolicyMasksDSN(t *testing.T) {
	out := policy{}.apply([]interface{}{"database_url", "postgres://app:hunter2@db:5432/recipes"})
	assert.Equal(t, "postgres://app:****@db:5432/recipes", out[1])
}

func TestPolicyHashesClientIP(t *testing.T) {
	out := policy{salt: "pepper"}.apply([]interface{}{"client_ip", "10.0.0.1"})
	s, ok := out[1].(string)
	assert.True(t, ok)
	assert.True(t, strings.HasPrefix(s, "hash:"))
	assert.NotContains(t, s, "10.0.0.1")

	other := policy{}.apply([]interface{}{"client_ip", "10.0.0.1"})
	assert.NotEqual(t, s, other[1], "salt changes the digest")
}

func TestPolicyClipsRecipeText(t *testing.T) {
	long := strings.Repeat("stir ", 60)
	out := policy{}.apply([]interface{}{"content", long, "query", "short"})
	clipped := out[1].(string)
	assert.True(t, strings.HasPrefix(clipped, long[:maxTextLen]))
	assert.Contains(t, clipped, "…(+180)")
	assert.Equal(t, "short", out[3])
}

func TestPolicyOddLength(t *testing.T) {
	out := policy{}.apply([]interface{}{"path", "/x", "dangling"})
	assert.Equal(t, []interface{}{"path", "/x", "dangling"}, out)
}

func TestPolicyDisabledPassesThrough(t *testing.T) {
	kv := []interface{}{"password", "pw"}
	assert.Equal(t, kv, policy{disabled: true}.apply(kv))
}

func TestPolicyFromEnv(t *testing.T) {
	t.Setenv("LOG_REDACTION_ENABLED", "off")
	t.Setenv("LOG_HASH_SALT", " s ")
	p := policyFromEnv()
	assert.True(t, p.disabled)
	assert.Equal(t, "s", p.salt)
}

func TestRedactDSNWithoutPassword(t *testing.T) {
	assert.Equal(t, "sqlite://file.db", redactDSN("sqlite://file.db"))
	assert.Equal(t, "postgres://app@db/x", redactDSN("postgres://app@db/x"))
}

func TestWithKeepsPolicy(t *testing.T) {
	l := NewNop().With("service", "x")
	assert.False(t, l.policy.disabled)
}
