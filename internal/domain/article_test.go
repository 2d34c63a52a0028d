package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEpoch_UnmarshalJSON(t *testing.T) {
	var v struct {
		Str  Epoch `json:"str"`
		Num  Epoch `json:"num"`
		Null Epoch `json:"null"`
	}

	err := json.Unmarshal([]byte(`{"str":"1704067200","num":1704153600,"null":null}`), &v)

	require.NoError(t, err)
	assert.Equal(t, Epoch("1704067200"), v.Str)
	assert.Equal(t, Epoch("1704153600"), v.Num)
	assert.Equal(t, Epoch(""), v.Null)
}

func TestEpoch_Time(t *testing.T) {
	got, ok := Epoch("1704067200").Time()
	assert.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), got)

	for _, bad := range []Epoch{"", "  ", "0", "-1", "abc", "12.5", "invalid_timestamp"} {
		_, ok := bad.Time()
		assert.False(t, ok, "value %q", bad)
	}
}
