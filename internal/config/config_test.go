package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/xmdb/internal/config"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func Test_Load_Returns_Defaults_When_No_Files(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	cfg, err := config.Load(config.LoadInput{WorkDirOverride: dir, Env: map[string]string{}})
	require.NoError(t, err)

	require.Equal(t, filepath.Join(dir, ".xmdb"), cfg.DataDirAbs)
	require.Equal(t, "content", cfg.ContentDB)
	require.Equal(t, "audit", cfg.AuditDB)
	require.Equal(t, 60*time.Second, cfg.TTL)
	require.Equal(t, logrus.WarnLevel, cfg.Level)
	require.Equal(t, 256, cfg.MaxTreeDepth)
	require.Empty(t, cfg.Sources.Global)
	require.Empty(t, cfg.Sources.Project)
}

func Test_Load_Applies_Precedence_When_All_Sources_Present(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	xdg := t.TempDir()

	writeFile(t, filepath.Join(xdg, "xmdb", "config.json"), `{
		// global
		"data_dir": "global-data",
		"log_level": "info",
		"cache_ttl": "5s",
	}`)
	writeFile(t, filepath.Join(dir, ".xmdb.json"), `{"data_dir": "project-data", "content_db": "docs"}`)

	cfg, err := config.Load(config.LoadInput{
		WorkDirOverride: dir,
		Env:             map[string]string{"XDG_CONFIG_HOME": xdg},
	})
	require.NoError(t, err)

	require.Equal(t, filepath.Join(dir, "project-data"), cfg.DataDirAbs)
	require.Equal(t, "docs", cfg.ContentDB)
	require.Equal(t, logrus.InfoLevel, cfg.Level)
	require.Equal(t, 5*time.Second, cfg.TTL)
	require.Equal(t, filepath.Join(xdg, "xmdb", "config.json"), cfg.Sources.Global)
	require.Equal(t, filepath.Join(dir, ".xmdb.json"), cfg.Sources.Project)

	cfg, err = config.Load(config.LoadInput{
		WorkDirOverride: dir,
		DataDirOverride: "/abs/flag-data",
		Env:             map[string]string{"XDG_CONFIG_HOME": xdg},
	})
	require.NoError(t, err)
	require.Equal(t, "/abs/flag-data", cfg.DataDirAbs)
}

func Test_Load_Uses_Explicit_File_When_Config_Flag_Set(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	writeFile(t, filepath.Join(dir, ".xmdb.json"), `{"content_db": "ignored"}`)
	writeFile(t, filepath.Join(dir, "custom.json"), `{"content_db": "custom", "max_tree_depth": 8}`)

	cfg, err := config.Load(config.LoadInput{WorkDirOverride: dir, ConfigPath: "custom.json", Env: map[string]string{}})
	require.NoError(t, err)
	require.Equal(t, "custom", cfg.ContentDB)
	require.Equal(t, 8, cfg.MaxTreeDepth)

	_, err = config.Load(config.LoadInput{WorkDirOverride: dir, ConfigPath: "missing.json", Env: map[string]string{}})
	require.ErrorIs(t, err, config.ErrConfigFileNotFound)
}

func Test_Load_Returns_Error_When_File_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    error
	}{
		{name: "syntax", content: `{"data_dir": `, want: config.ErrConfigInvalid},
		{name: "empty data dir", content: `{"data_dir": ""}`, want: config.ErrDataDirEmpty},
		{name: "bad ttl", content: `{"cache_ttl": "soon"}`, want: config.ErrConfigInvalid},
		{name: "bad level", content: `{"log_level": "loud"}`, want: config.ErrConfigInvalid},
		{name: "negative depth", content: `{"max_tree_depth": -1}`, want: config.ErrConfigInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			writeFile(t, filepath.Join(dir, ".xmdb.json"), tt.content)

			_, err := config.Load(config.LoadInput{WorkDirOverride: dir, Env: map[string]string{}})
			require.Error(t, err)

			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func Test_Store_Maps_Fields_When_Config_Resolved(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	cfg, err := config.Load(config.LoadInput{WorkDirOverride: dir, Env: map[string]string{}})
	require.NoError(t, err)

	sc := cfg.Store(logrus.New())
	require.Equal(t, cfg.DataDirAbs, sc.Dir)
	require.Equal(t, []string{"content"}, sc.Databases)
	require.Equal(t, "audit", sc.AuditDatabase)
	require.Equal(t, cfg.TTL, sc.CacheTTL)
}
