package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventID_Deterministic(t *testing.T) {
	payload := map[string]any{"id": "a", "balance": int64(100)}

	id1, err := EventID("accounts", 7, KindAccountUpdated, payload)
	require.NoError(t, err)
	id2, err := EventID("accounts", 7, KindAccountUpdated, map[string]any{"balance": int64(100), "id": "a"})
	require.NoError(t, err)

	assert.Equal(t, id1, id2)
	assert.Len(t, id1, 64)
}

func TestEventID_DiffersBySeq(t *testing.T) {
	id1, err := EventID("accounts", 1, KindAccountUpdated, nil)
	require.NoError(t, err)
	id2, err := EventID("accounts", 2, KindAccountUpdated, nil)
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)
}

func TestEventID_RejectsFloatPayload(t *testing.T) {
	_, err := EventID("accounts", 1, KindAccountUpdated, map[string]any{"x": 0.5})
	assert.Error(t, err)
}

func TestAccountTopic(t *testing.T) {
	assert.Equal(t, "account:acc-1", AccountTopic("acc-1"))
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "12.05", FormatAmount(1205))
	assert.Equal(t, "-0.50", FormatAmount(-50))
	assert.Equal(t, "0.00", FormatAmount(0))
}

func TestClonePayload(t *testing.T) {
	orig := map[string]any{
		"id":     "a",
		"nested": map[string]any{"balance": int64(10)},
		"tags":   []any{"x", map[string]any{"k": "v"}},
	}
	cp := ClonePayload(orig)
	require.Equal(t, orig, cp)

	cp["id"] = "b"
	cp["nested"].(map[string]any)["balance"] = int64(-1)
	cp["tags"].([]any)[0] = "y"
	cp["tags"].([]any)[1].(map[string]any)["k"] = "w"

	assert.Equal(t, "a", orig["id"])
	assert.Equal(t, int64(10), orig["nested"].(map[string]any)["balance"])
	assert.Equal(t, "x", orig["tags"].([]any)[0])
	assert.Equal(t, "v", orig["tags"].([]any)[1].(map[string]any)["k"])

	assert.Nil(t, ClonePayload(nil))
}
