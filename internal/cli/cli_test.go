package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	scanFile, scanRedacted, scanThreshold = "", false, 0

	var out bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestScanStdin(t *testing.T) {
	out, err := execute(t, "mail me at someone@example.com", "scan")
	require.NoError(t, err)

	var result struct {
		HasSensitiveData bool           `json:"has_sensitive_data"`
		RiskLevel        float64        `json:"risk_level"`
		Counts           map[string]int `json:"counts"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.True(t, result.HasSensitiveData)
	assert.Equal(t, 1, result.Counts["EMAIL"])
	assert.NotContains(t, out, "someone@example.com", "matched values are not echoed outside redacted_content")
}

func TestScanFileRedacted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.txt")
	require.NoError(t, os.WriteFile(path, []byte("call 555-123-4567 tonight"), 0o600))

	out, err := execute(t, "", "scan", "--file", path, "--redacted")
	require.NoError(t, err)
	assert.Equal(t, "call [REDACTED_PHONE] tonight\n", out)
}

func TestScanFailAbove(t *testing.T) {
	_, err := execute(t, "a@b.co c@d.co", "scan", "--fail-above", "0.5")
	assert.ErrorContains(t, err, "exceeds")

	_, err = execute(t, "nothing to see", "scan", "--fail-above", "0.5")
	assert.NoError(t, err)
}

func TestPolicyValidate(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	require.NoError(t, os.WriteFile(good, []byte(
		"policies:\n  sacred:\n    classification: SACRED\n    encryption_required: true\n    access_controls: [AUTHENTICATED, OWNER_ONLY]\n    two_factor_required: true\n",
	), 0o600))

	out, err := execute(t, "", "policy", "validate", good)
	require.NoError(t, err)
	assert.Contains(t, out, "OK (sha256:")
	assert.Contains(t, out, "sacred")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("policies:\n  x:\n    classification: SECRET\n"), 0o600))
	_, err = execute(t, "", "policy", "validate", bad)
	assert.Error(t, err)
}

func TestPolicyDefaults(t *testing.T) {
	out, err := execute(t, "", "policy", "defaults")
	require.NoError(t, err)
	assert.Contains(t, out, "policies:")
	assert.Contains(t, out, "classification: SACRED")
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "sanctum"`)
}
