package arcgisdl_test

import (
	"encoding/json"
	"testing"

	"github.com/fwojciec/arcgisdl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocument_AppendFeatures(t *testing.T) {
	t.Parallel()

	doc := arcgisdl.Document{"features": []any{"A", "B"}}

	doc.AppendFeatures([]any{"C"})
	doc.AppendFeatures([]any{"D", "E"})

	assert.Equal(t, []any{"A", "B", "C", "D", "E"}, doc.Features())
}

func TestDocument_ExceededTransferLimit(t *testing.T) {
	t.Parallel()

	assert.True(t, arcgisdl.Document{"exceededTransferLimit": true}.ExceededTransferLimit())
	assert.False(t, arcgisdl.Document{"exceededTransferLimit": false}.ExceededTransferLimit())
	assert.False(t, arcgisdl.Document{}.ExceededTransferLimit())
}

func TestDocument_StripTransferLimit(t *testing.T) {
	t.Parallel()

	doc := arcgisdl.Document{"exceededTransferLimit": true, "features": []any{}}

	doc.StripTransferLimit()

	b, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"features": []}`, string(b))
}

func TestDocument_HasFeatures(t *testing.T) {
	t.Parallel()

	assert.True(t, arcgisdl.Document{"features": []any{}}.HasFeatures())
	assert.False(t, arcgisdl.Document{"count": 3}.HasFeatures())
}
