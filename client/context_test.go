package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBackgroundHasNoScope(t *testing.T) {
	assert.Nil(t, mergedContext(Background()))
}

func TestWithRequestContextSetsScope(t *testing.T) {
	ctx := WithRequestContext(Background(), map[string]any{"request_id": "abc"})
	assert.Equal(t, map[string]any{"request_id": "abc"}, mergedContext(ctx))
}

func TestWithRequestContextReplacesPriorScopeEntirely(t *testing.T) {
	ctx := WithRequestContext(Background(), map[string]any{"request_id": "abc", "path": "/x"})
	ctx2 := WithRequestContext(ctx, map[string]any{"request_id": "def"})

	merged := mergedContext(ctx2)
	assert.Equal(t, map[string]any{"request_id": "def"}, merged)
}

func TestWithUserContextMergesOntoExistingScope(t *testing.T) {
	ctx := WithRequestContext(Background(), map[string]any{"request_id": "abc"})
	ctx2 := WithUserContext(ctx, map[string]any{"user_id": "u1"})

	merged := mergedContext(ctx2)
	assert.Equal(t, "abc", merged["request_id"])
	assert.Equal(t, "u1", merged["user_id"])
}

func TestOriginalContextUnaffectedByChildScope(t *testing.T) {
	ctx := WithRequestContext(Background(), map[string]any{"request_id": "abc"})
	_ = WithUserContext(ctx, map[string]any{"user_id": "u1"})

	merged := mergedContext(ctx)
	_, hasUser := merged["user_id"]
	assert.False(t, hasUser)
}
