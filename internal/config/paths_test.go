package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- ParseConfigPath extended tests ---

func TestParseConfigPath_Extended(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr bool
	}{
		{"single segment", "gateway", []string{"gateway"}, false},
		{"two segments", "gateway.port", []string{"gateway", "port"}, false},
		{"three segments", "gateway.tls.certPath", []string{"gateway", "tls", "certPath"}, false},
		{"empty", "", nil, true},
		{"empty segment", "gateway..port", nil, true},
		{"leading dot", ".gateway", nil, true},
		{"trailing dot", "gateway.", nil, true},
		{"blocked __proto__", "foo.__proto__.bar", nil, true},
		{"blocked prototype", "prototype.x", nil, true},
		{"blocked constructor", "constructor", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseConfigPath(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				var ce *ConfigError
				assert.ErrorAs(t, err, &ce)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

// --- GetValueAtPath extended tests ---

func TestGetValueAtPath_Extended(t *testing.T) {
	root := map[string]any{
		"gateway": map[string]any{
			"port": 8080,
			"tls": map[string]any{
				"certPath": "cert.pem",
			},
		},
		"simple": "value",
	}

	tests := []struct {
		name string
		path []string
		want any
		ok   bool
	}{
		{"nested value", []string{"gateway", "port"}, 8080, true},
		{"deeply nested", []string{"gateway", "tls", "certPath"}, "cert.pem", true},
		{"top level", []string{"simple"}, "value", true},
		{"missing key", []string{"nonexistent"}, nil, false},
		{"missing nested", []string{"gateway", "nonexistent"}, nil, false},
		{"non-map intermediate", []string{"simple", "sub"}, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			val, ok := GetValueAtPath(root, tt.path)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, val)
			}
		})
	}
}

// --- SetValueAtPath extended tests ---

func TestSetValueAtPath_Update(t *testing.T) {
	root := map[string]any{
		"gateway": map[string]any{
			"port": 8080,
		},
	}

	SetValueAtPath(root, []string{"gateway", "port"}, 9999)
	val, ok := GetValueAtPath(root, []string{"gateway", "port"})
	assert.True(t, ok)
	assert.Equal(t, 9999, val)
}

func TestSetValueAtPath_CreatesIntermediates(t *testing.T) {
	root := map[string]any{}

	SetValueAtPath(root, []string{"a", "b", "c"}, "deep")
	val, ok := GetValueAtPath(root, []string{"a", "b", "c"})
	assert.True(t, ok)
	assert.Equal(t, "deep", val)
}

func TestSetValueAtPath_OverwritesNonMap(t *testing.T) {
	root := map[string]any{
		"gateway": "string-not-map",
	}

	SetValueAtPath(root, []string{"gateway", "port"}, 8080)
	val, ok := GetValueAtPath(root, []string{"gateway", "port"})
	assert.True(t, ok)
	assert.Equal(t, 8080, val)
}

func TestSetValueAtPath_SingleKey(t *testing.T) {
	root := map[string]any{}

	SetValueAtPath(root, []string{"version"}, "1.0.0")
	assert.Equal(t, "1.0.0", root["version"])
}

// --- UnsetValueAtPath extended tests ---

func TestUnsetValueAtPath_PreserveSiblings(t *testing.T) {
	root := map[string]any{
		"gateway": map[string]any{
			"port": 8080,
			"bind": "loopback",
		},
	}

	ok := UnsetValueAtPath(root, []string{"gateway", "port"})
	assert.True(t, ok)

	_, found := GetValueAtPath(root, []string{"gateway", "port"})
	assert.False(t, found)

	val, found := GetValueAtPath(root, []string{"gateway", "bind"})
	assert.True(t, found)
	assert.Equal(t, "loopback", val)
}

func TestUnsetValueAtPath_NotFound(t *testing.T) {
	root := map[string]any{
		"gateway": map[string]any{
			"port": 8080,
		},
	}

	ok := UnsetValueAtPath(root, []string{"gateway", "nonexistent"})
	assert.False(t, ok)
}

func TestUnsetValueAtPath_MissingIntermediate(t *testing.T) {
	root := map[string]any{}
	ok := UnsetValueAtPath(root, []string{"a", "b", "c"})
	assert.False(t, ok)
}

func TestUnsetValueAtPath_NonMapIntermediate(t *testing.T) {
	root := map[string]any{
		"gateway": "string",
	}
	ok := UnsetValueAtPath(root, []string{"gateway", "port"})
	assert.False(t, ok)
}

// --- ResolvePaths extended tests ---

func TestResolvePaths_AllFields(t *testing.T) {
	t.Setenv("OAGATE_HOME", "")

	paths, err := ResolvePaths()
	require.NoError(t, err)

	home, _ := os.UserHomeDir()
	assert.Equal(t, filepath.Join(home, ".oagate"), paths.Base)
	assert.Equal(t, filepath.Join(home, ".oagate", "config.yaml"), paths.Config)
	assert.Equal(t, filepath.Join(home, ".oagate", "cache"), paths.Cache)
	assert.Equal(t, filepath.Join(home, ".oagate", "data"), paths.Data)
	assert.Equal(t, filepath.Join(home, ".oagate", "logs"), paths.Logs)
}

func TestResolvePaths_CustomHome(t *testing.T) {
	t.Setenv("OAGATE_HOME", "/tmp/testoa")

	paths, err := ResolvePaths()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/testoa", paths.Base)
	assert.Equal(t, "/tmp/testoa/config.yaml", paths.Config)
	assert.Equal(t, "/tmp/testoa/cache", paths.Cache)
	assert.Equal(t, "/tmp/testoa/data", paths.Data)
	assert.Equal(t, "/tmp/testoa/logs", paths.Logs)
	assert.Equal(t, "/tmp/testoa/data/oagate.db", paths.Database())
}

func TestEnsureDirs_CreatesAll(t *testing.T) {
	t.Setenv("OAGATE_HOME", filepath.Join(t.TempDir(), "home"))
	paths, err := ResolvePaths()
	require.NoError(t, err)

	require.NoError(t, paths.EnsureDirs())
	for _, dir := range []string{paths.Base, paths.Cache, paths.Data, paths.Logs} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
		assert.Equal(t, os.FileMode(0o700), info.Mode().Perm())
	}
	require.NoError(t, paths.EnsureDirs()) // second call should succeed
}

// --- blockedKeys tests ---

func TestBlockedKeys(t *testing.T) {
	assert.True(t, blockedKeys["__proto__"])
	assert.True(t, blockedKeys["prototype"])
	assert.True(t, blockedKeys["constructor"])
	assert.False(t, blockedKeys["gateway"])
	assert.False(t, blockedKeys["port"])
}
