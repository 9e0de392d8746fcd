package correlation

import (
	"context"
	"strings"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureMintsULID(t *testing.T) {
	ctx, id := Ensure(context.Background(), "")
	_, err := ulid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, id, FromContext(ctx))
}

func TestEnsureKeepsIncoming(t *testing.T) {
	_, id := Ensure(context.Background(), " req-42.a_b ")
	assert.Equal(t, "req-42.a_b", id)
}

func TestEnsureFallsBackToContext(t *testing.T) {
	ctx := WithID(context.Background(), "upstream")
	_, id := Ensure(ctx, "")
	assert.Equal(t, "upstream", id)
}

func TestEnsureReplacesUnsafeIDs(t *testing.T) {
	for _, incoming := range []string{"bad id", "<script>", strings.Repeat("a", 65)} {
		_, id := Ensure(context.Background(), incoming)
		assert.NotEqual(t, incoming, id)
		_, err := ulid.Parse(id)
		assert.NoError(t, err, incoming)
	}
}
