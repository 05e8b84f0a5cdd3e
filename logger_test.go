package pantrycook

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileConsumptionLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewFileConsumptionLogger(&buf)

	require.NoError(t, logger.LogConsumption(ConsumptionLog{Timestamp: time.Now(), RecipeID: "omelet", Ingredient: "egg", Status: "satisfied"}))
	require.NoError(t, logger.LogConsumption(ConsumptionLog{Timestamp: time.Now(), RecipeID: "omelet", Ingredient: "milk", Status: "missing"}))
	assert.Zero(t, buf.Len(), "nothing written before Flush")

	require.NoError(t, logger.Flush())

	var doc struct {
		Session struct {
			Entries []ConsumptionLog `json:"entries"`
		} `json:"consumption_session"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	require.Len(t, doc.Session.Entries, 2)
	assert.Equal(t, "milk", doc.Session.Entries[1].Ingredient)

	buf.Reset()
	require.NoError(t, logger.Flush())
	assert.Contains(t, buf.String(), `"entries": []`)
}

func TestStdoutConsumptionLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := &StdoutConsumptionLogger{out: &buf}

	require.NoError(t, logger.LogConsumption(ConsumptionLog{Ingredient: "egg", Status: "satisfied"}))
	require.NoError(t, logger.LogConsumption(ConsumptionLog{Ingredient: "flour", Status: "insufficient", Warnings: []string{"short"}}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	var entry ConsumptionLog
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &entry))
	assert.Equal(t, "flour", entry.Ingredient)
	assert.Equal(t, []string{"short"}, entry.Warnings)
}

func TestNewConsumptionLogFilePath(t *testing.T) {
	path := NewConsumptionLogFilePath("Pancake Stack")
	assert.True(t, strings.HasPrefix(path, "./logs/"))
	assert.True(t, strings.HasSuffix(path, ".pancake_stack.json"))
}
