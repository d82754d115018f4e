package middleware_test

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"io"
	"testing"

	"github.com/aretw0/stepgraph/pkg/adapters/memory"
	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/aretw0/stepgraph/pkg/persistence/middleware"
	"github.com/aretw0/stepgraph/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKey(t *testing.T) []byte {
	k := make([]byte, middleware.KeySize)
	_, err := io.ReadFull(rand.Reader, k)
	require.NoError(t, err)
	return k
}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	mw := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	ports.RunRunStoreContract(t, mw(memory.NewRunStore()))
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlying := memory.NewRunStore()
	secure := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlying)
	ctx := context.Background()

	run := domain.NewRun("r1", "g1", domain.State{"secret": "my-secret-sauce"})
	run.Log = append(run.Log, domain.LogEntry{NodeID: "a", StateSnapshot: domain.State{"secret": "my-secret-sauce"}})
	run.Status = domain.RunCompleted
	require.NoError(t, secure.Put(ctx, run))

	// At rest only the envelope and the identifying fields are visible.
	stored, err := underlying.Get(ctx, "r1")
	require.NoError(t, err)
	assert.NotContains(t, stored.State, "secret")
	assert.Contains(t, stored.State, middleware.EnvelopeKey)
	assert.Empty(t, stored.Log)
	assert.Equal(t, "g1", stored.GraphID)
	assert.Equal(t, domain.RunCompleted, stored.Status)

	loaded, err := secure.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "my-secret-sauce", loaded.State["secret"])
	require.Len(t, loaded.Log, 1)
	assert.Equal(t, "my-secret-sauce", loaded.Log[0].StateSnapshot["secret"])
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlying := memory.NewRunStore()
	oldKey, newKey := generateKey(t), generateKey(t)
	ctx := context.Background()

	old := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: oldKey})(underlying)
	require.NoError(t, old.Put(ctx, domain.NewRun("r1", "g1", domain.State{"data": "old"})))

	rotated := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})(underlying)
	loaded, err := rotated.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "old", loaded.State["data"])

	withoutFallback := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: newKey})(underlying)
	_, err = withoutFallback.Get(ctx, "r1")
	assert.ErrorContains(t, err, "decryption failed")
}

func TestEncryptionMiddleware_Errors(t *testing.T) {
	underlying := memory.NewRunStore()
	secure := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlying)
	ctx := context.Background()

	require.NoError(t, underlying.Put(ctx, domain.NewRun("plain", "g1", domain.State{"a": 1})))
	_, err := secure.Get(ctx, "plain")
	assert.ErrorContains(t, err, "missing encrypted data envelope")

	_, err = secure.Get(ctx, "absent")
	assert.ErrorIs(t, err, domain.ErrRunNotFound)

	assert.Panics(t, func() {
		middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short")})
	})
}

func TestParseKey(t *testing.T) {
	key := generateKey(t)
	parsed, err := middleware.ParseKey(base64.StdEncoding.EncodeToString(key))
	require.NoError(t, err)
	assert.Equal(t, key, parsed)

	_, err = middleware.ParseKey("not base64!")
	assert.Error(t, err)

	_, err = middleware.ParseKey(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.ErrorContains(t, err, "must be 32 bytes")
}
