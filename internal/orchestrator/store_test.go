package orchestrator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectStore_SaveClaimResultRoundTrip(t *testing.T) {
	root := t.TempDir()
	store := NewSelectStore(root)

	req := &SelectorRequest{SelectorID: "sel-1", UserMessage: "hi"}
	require.NoError(t, store.SaveIncoming(req))
	_, err := store.LoadResult("sel-1")
	require.Error(t, err)

	require.NoError(t, store.ClaimProcessing("sel-1"))
	assert.NoFileExists(t, filepath.Join(root, "orchestrator", "select", "incoming", "sel-1.json"))
	assert.FileExists(t, filepath.Join(root, "orchestrator", "select", "processing", "sel-1.json"))

	res := &SelectorResult{SelectorID: "sel-1", Status: SelectorSelected, Action: ActionNoResponse}
	require.NoError(t, store.SaveResult(res))

	loaded, err := store.LoadResult("sel-1")
	require.NoError(t, err)
	assert.Equal(t, SelectorSelected, loaded.Status)
}

func TestSelectStore_ClaimProcessing_MissingIncoming(t *testing.T) {
	store := NewSelectStore(t.TempDir())
	err := store.ClaimProcessing("nope")
	require.Error(t, err)
}

func TestSelectStore_AppendLog_WritesJSONLines(t *testing.T) {
	root := t.TempDir()
	store := NewSelectStore(root)
	store.AppendLog("sel-1", "claimed")
	store.AppendLog("sel-1", "selected")

	data, err := os.ReadFile(filepath.Join(root, "orchestrator", "select", "logs", "select.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"selectorId":"sel-1"`)
	assert.Contains(t, string(data), `"event":"claimed"`)
	assert.Contains(t, string(data), `"event":"selected"`)
}
