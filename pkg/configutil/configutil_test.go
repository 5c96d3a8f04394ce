package configutil

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	BaseUrl  string `json:"base_url"`
	Username string `json:"username"`
	PageSize int    `json:"page_size"`
}

func TestReadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "forumdl.json5")

	_, err := ReadConfig[testConfig](path)
	require.True(t, errors.Is(err, os.ErrNotExist))

	err = os.WriteFile(path, []byte(`{
		// comments are allowed
		base_url: "https://forum.example",
		username: "someone",
		page_size: 25,
	}`), 0600)
	require.Nil(t, err)

	cfg, err := ReadConfig[testConfig](path)
	require.Nil(t, err)
	require.Equal(t, testConfig{BaseUrl: "https://forum.example", Username: "someone", PageSize: 25}, cfg)

	err = os.WriteFile(filepath.Join(dir, "forumdl.local.json5"), []byte(`{ username: "other" }`), 0600)
	require.Nil(t, err)

	cfg, err = ReadConfig[testConfig](path)
	require.Nil(t, err)
	require.Equal(t, testConfig{BaseUrl: "https://forum.example", Username: "other", PageSize: 25}, cfg)
}

func TestLocalPath(t *testing.T) {
	require.Equal(t, "a/forumdl.local.json5", LocalPath("a/forumdl.json5"))
	require.Equal(t, "config.local", LocalPath("config"))
}
