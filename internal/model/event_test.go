package model

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressPayload_LenientNumbers(t *testing.T) {
	data := []byte(`{"item_id":"p1","reports":{
		"s1":{"state":"running","value":"3","max":4},
		"s2":{"state":"running","value":1,"max":2},
		"s3":{"state":"running","value":"lots","max":null},
		"s4":{"state":"running","value":true,"max":{}},
		"s5":7,
		"s6":{"state":5,"value":1,"max":1}
	}}`)

	var payload ProgressPayload
	require.NoError(t, json.Unmarshal(data, &payload))
	assert.Equal(t, "p1", payload.ItemID)
	require.Len(t, payload.Reports, 6)

	assert.Equal(t, ProgressReport{State: "running", Value: 3, Max: 4}, payload.Reports["s1"])
	assert.Equal(t, ProgressReport{State: "running", Value: 1, Max: 2}, payload.Reports["s2"])

	s3 := payload.Reports["s3"]
	assert.True(t, math.IsNaN(s3.Value))
	assert.Equal(t, 0.0, s3.Max)

	s4 := payload.Reports["s4"]
	assert.True(t, math.IsNaN(s4.Value))
	assert.True(t, math.IsNaN(s4.Max))

	assert.Equal(t, ProgressReport{}, payload.Reports["s5"])
	assert.Equal(t, "", payload.Reports["s6"].State)
}
