package commands

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/keystone/internal/engine"
	"github.com/scrypster/keystone/pkg/types"
)

var seedsDir = filepath.Join("..", "..", "..", "seeds")

// execute runs a fresh command tree against an isolated sqlite data dir.
func execute(t *testing.T, dataDir string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("KEYSTONE_STORAGE_ENGINE", "sqlite")
	t.Setenv("KEYSTONE_SEEDS_PATH", "")
	t.Setenv("KEYSTONE_LIVEDATA_SOURCE", "none")

	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--env", filepath.Join(t.TempDir(), "none.env"), "--data", dataDir}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestSeedThenStats(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, dir, "seed", seedsDir)
	require.NoError(t, err)
	assert.Equal(t, "Loaded 4 qa records and 4 variations from 1 file(s)\n", out)

	out, err = execute(t, dir, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "qa")
	assert.Regexp(t, `(?m)^qa\s+4$`, out)
	assert.Regexp(t, `(?m)^variation\s+4$`, out)
	assert.Regexp(t, `(?m)^total\s+8$`, out)
}

func TestSeed_MissingPath(t *testing.T) {
	_, err := execute(t, t.TempDir(), "seed", filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestAsk(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, dir, "--seeds", seedsDir, "ask", "How", "much", "does", "it", "cost", "to", "build", "a", "house", "in", "Houston?")
	require.NoError(t, err)
	assert.Contains(t, out, "Residential construction in Houston")
	assert.Contains(t, out, "Match: similar")
	assert.Contains(t, out, "Sources: Houston Builders Association")
	assert.Contains(t, out, "You might also ask:")
}

func TestAsk_JSON(t *testing.T) {
	out, err := execute(t, t.TempDir(), "--seeds", seedsDir, "ask", "--json", "asdlkj qwe")
	require.NoError(t, err)

	var resp types.Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, types.MatchNone, resp.MatchType)
	assert.Equal(t, engine.ClarifyingResponse, resp.Text)
}

func TestAsk_RequiresQuestion(t *testing.T) {
	_, err := execute(t, t.TempDir(), "ask")
	assert.Error(t, err)
}

func TestFollowUps(t *testing.T) {
	out, err := execute(t, t.TempDir(), "followups", "market_trends")
	require.NoError(t, err)

	want := "market:\n"
	for _, s := range engine.Suggest(engine.FollowUpMarket) {
		want += "  - " + s + "\n"
	}
	assert.Equal(t, want, out)

	out, err = execute(t, t.TempDir(), "followups")
	require.NoError(t, err)
	assert.Contains(t, out, "general:\n")
}

func TestSnapshot(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, dir, "seed", seedsDir)
	require.NoError(t, err)

	// A snapshot named keystone.db is a usable data directory on its own.
	copyDir := t.TempDir()
	dest := filepath.Join(copyDir, "keystone.db")
	out, err := execute(t, dir, "snapshot", dest)
	require.NoError(t, err)
	assert.Contains(t, out, "Snapshot written to "+dest)

	out, err = execute(t, copyDir, "stats")
	require.NoError(t, err)
	assert.Regexp(t, `(?m)^qa\s+4$`, out)
}

func TestSnapshot_DefaultDestination(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, dir, "snapshot")
	require.NoError(t, err)

	matches, err := filepath.Glob(filepath.Join(dir, "snapshots", "keystone-*.db"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestSnapshot_NeedsSQLite(t *testing.T) {
	_, err := execute(t, t.TempDir(), "--storage", "memory", "snapshot")
	assert.Error(t, err)
}

func TestUnknownStorage(t *testing.T) {
	_, err := execute(t, t.TempDir(), "--storage", "bolt", "stats")
	assert.Error(t, err)
}
