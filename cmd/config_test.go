package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/joescharf/hcm/internal/output"
)

// testEnv sets up isolated config dir, viper, output and logger for testing.
func testEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	// Override configDirFunc for tests
	origFunc := configDirFunc
	configDirFunc = func() (string, error) { return dir, nil }
	t.Cleanup(func() { configDirFunc = origFunc })

	// Reset viper
	viper.Reset()
	bindEnv()
	setDefaults(dir)
	viper.SetDefault("campaign.workspace_dir", filepath.Join(dir, "work"))

	// Initialize output with captured streams
	ui = output.New()
	ui.In = strings.NewReader("")
	ui.Out = &bytes.Buffer{}
	ui.ErrOut = &bytes.Buffer{}
	logger = zap.NewNop()

	// Reset package state touched by commands
	dryRun = false
	startClient, startJob, startYes = "", "", false
	listClient, listStatus, listLimit, listPrune = "", "", 0, false
	dataStore = nil
	origManager := managerFunc
	t.Cleanup(func() {
		managerFunc = origManager
		if dataStore != nil {
			_ = dataStore.Close()
			dataStore = nil
		}
	})

	return dir
}

// outText returns everything written to ui.Out so far.
func outText() string {
	return ui.Out.(*bytes.Buffer).String()
}

// allText returns everything written to ui.Out and ui.ErrOut so far.
func allText() string {
	return outText() + ui.ErrOut.(*bytes.Buffer).String()
}

func TestConfigInit_CreatesFile(t *testing.T) {
	dir := testEnv(t)

	err := configInitRun()
	require.NoError(t, err)

	cfgPath := filepath.Join(dir, "config.yaml")
	_, err = os.Stat(cfgPath)
	assert.NoError(t, err, "config file should exist")

	data, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hcm configuration")
	assert.Contains(t, string(data), "pr_org: \"Hogarth-Worldwide\"")
	assert.Contains(t, string(data), "branch_prefix: \"campaign\"")
}

func TestConfigInit_RefusesOverwrite(t *testing.T) {
	dir := testEnv(t)

	// Create existing file
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("existing"), 0644))

	configForce = false
	err := configInitRun()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestConfigInit_ForceOverwrite(t *testing.T) {
	dir := testEnv(t)

	// Create existing file
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("existing"), 0644))

	configForce = true
	err := configInitRun()
	require.NoError(t, err)

	data, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hcm configuration")
}

func TestConfigShow_NoFile(t *testing.T) {
	testEnv(t)

	err := configShowRun()
	assert.NoError(t, err)
}

func TestConfigShow_WithFile(t *testing.T) {
	testEnv(t)

	// Create config first
	require.NoError(t, configInitRun())

	err := configShowRun()
	assert.NoError(t, err)
	assert.Contains(t, outText(), "(file)")
}

func TestConfigShow_EnvSource(t *testing.T) {
	testEnv(t)
	t.Setenv("HCM_GITHUB_ORG", "Other-Org")

	require.NoError(t, configShowRun())
	out := outText()
	assert.Contains(t, out, "Other-Org")
	assert.Contains(t, out, "(env: HCM_GITHUB_ORG)")
}

func TestConfigEdit_NoEditor(t *testing.T) {
	testEnv(t)

	// Unset EDITOR and VISUAL
	origEditor := os.Getenv("EDITOR")
	origVisual := os.Getenv("VISUAL")
	_ = os.Unsetenv("EDITOR")
	_ = os.Unsetenv("VISUAL")
	t.Cleanup(func() {
		if origEditor != "" {
			_ = os.Setenv("EDITOR", origEditor)
		}
		if origVisual != "" {
			_ = os.Setenv("VISUAL", origVisual)
		}
	})

	err := configEditRun()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "$EDITOR is not set")
}

func TestConfigEdit_NoConfigFile(t *testing.T) {
	testEnv(t)

	_ = os.Setenv("EDITOR", "echo") // harmless command
	t.Cleanup(func() { _ = os.Unsetenv("EDITOR") })

	err := configEditRun()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestConfigEdit_EditorWithArgs(t *testing.T) {
	dir := testEnv(t)
	require.NoError(t, configInitRun())

	t.Setenv("EDITOR", `sh -c 'echo "# edited" >> "$0"'`)

	require.NoError(t, configEditRun())
	data, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(data), "# edited\n"))
}

func TestDetectSource(t *testing.T) {
	fileValues := map[string]bool{"key_a": true}

	// From env
	os.Setenv("HCM_TEST_KEY", "val")
	defer os.Unsetenv("HCM_TEST_KEY")
	assert.Contains(t, detectSource("test_key", "HCM_TEST_KEY", fileValues), "env")

	// From file
	assert.Contains(t, detectSource("key_a", "HCM_KEY_A_NONEXISTENT", fileValues), "file")

	// Default
	assert.Contains(t, detectSource("key_b", "HCM_KEY_B_NONEXISTENT", fileValues), "default")
}

func TestEnvVarFor(t *testing.T) {
	assert.Equal(t, "HCM_GITHUB_PR_ORG", envVarFor("github.pr_org"))
	assert.Equal(t, "HCM_OPENER", envVarFor("opener"))
}

func TestConfigKeys_HaveDefaults(t *testing.T) {
	testEnv(t)
	for _, key := range configKeys {
		assert.True(t, viper.IsSet(key), key)
	}
}

func TestFlattenKeys(t *testing.T) {
	input := map[string]any{
		"top": "val",
		"nested": map[string]any{
			"a": "1",
			"b": "2",
		},
	}

	result := make(map[string]bool)
	flattenKeys("", input, result)

	assert.True(t, result["top"])
	assert.True(t, result["nested.a"])
	assert.True(t, result["nested.b"])
	assert.False(t, result["nested"])
}

func TestConfigInit_DryRun(t *testing.T) {
	dir := testEnv(t)
	dryRun = true
	ui.DryRun = true
	defer func() { dryRun = false }()

	err := configInitRun()
	require.NoError(t, err)

	// File should NOT have been created
	cfgPath := filepath.Join(dir, "config.yaml")
	_, err = os.Stat(cfgPath)
	assert.True(t, os.IsNotExist(err), "config file should not exist in dry-run mode")
}
