package builtin

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alessiogrespi/llmtoolkit/internal/core"
	"github.com/alessiogrespi/llmtoolkit/internal/tools"
)

func TestClockTool(t *testing.T) {
	fixed := time.Date(2024, 3, 1, 22, 30, 0, 0, time.UTC)
	reg := tools.NewRegistry(nil)
	require.NoError(t, Clock{Now: func() time.Time { return fixed }}.Register(reg))

	spec := reg.List()[0]
	assert.Equal(t, ClockToolName, spec.Name)
	assert.Empty(t, spec.Required)

	res := reg.Execute(context.Background(), core.ToolCall{ID: "1", Name: ClockToolName, Input: map[string]any{"timezone": "Asia/Tokyo"}})
	require.True(t, res.Success, res.Error)
	info := res.Payload.(map[string]any)
	assert.Equal(t, "2024-03-01 22:30:00", info["gmt_time"])
	assert.Equal(t, "Friday", info["gmt_day_of_week"])
	assert.Equal(t, "2024-03-02 07:30:00", info["local_time"])
	assert.Equal(t, "Saturday", info["local_day_of_week"])
	assert.Equal(t, "+0900", info["timezone_offset"])
	assert.Equal(t, "JST", info["timezone_name"])

	bad := reg.Execute(context.Background(), core.ToolCall{ID: "2", Name: ClockToolName, Input: map[string]any{"timezone": "Mars/Olympus"}})
	assert.False(t, bad.Success)
	assert.Contains(t, bad.Error, "Mars/Olympus")
}

func TestClockFormats(t *testing.T) {
	fixed := time.Date(2024, 3, 1, 22, 30, 0, 0, time.UTC)
	reg := tools.NewRegistry(nil)
	require.NoError(t, Clock{Now: func() time.Time { return fixed }}.Register(reg))

	res := reg.Execute(context.Background(), core.ToolCall{ID: "1", Name: ClockToolName, Input: map[string]any{"timezone": "UTC", "format": "rfc3339"}})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "2024-03-01T22:30:00Z", res.Payload.(map[string]any)["gmt_time"])

	res = reg.Execute(context.Background(), core.ToolCall{ID: "2", Name: ClockToolName, Input: map[string]any{"timezone": "Asia/Tokyo", "format": "date"}})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "2024-03-02", res.Payload.(map[string]any)["local_time"])

	bad := reg.Execute(context.Background(), core.ToolCall{ID: "3", Name: ClockToolName, Input: map[string]any{"format": "unix"}})
	assert.False(t, bad.Success)
}
