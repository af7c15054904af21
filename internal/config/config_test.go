package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))
	return dir
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, []string{"US"}, cfg.Languages)
	assert.False(t, cfg.DisableMovieTracking)
	assert.Equal(t, 60, cfg.MovieTrackingMaxTimeoutActive)
	assert.Equal(t, 3600, cfg.MovieTrackingTimeoutInactive)
	assert.Equal(t, 1, cfg.MovieTrackingMinTimeout)
	assert.True(t, cfg.HideMoviesNoImdb)
	assert.Equal(t, 30, cfg.HideMoviesBelowRuntime)
	assert.Equal(t, 2, cfg.ImportMovieMaxDepth)
	assert.Equal(t, "magnetarr", cfg.Qbittorrent.Category)
}

func TestLoadYamlOverridesDefaults(t *testing.T) {
	dir := writeConfig(t, `
qbittorrent:
  username: admin
  password: secret
  url: http://qbit:8080
  category: downloads
movies_path: /movies
hide_movies_below_runtime: 45
languages:
  - US
  - FR
subtitle_language_map:
  fr: "(?i)french"
`)

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "admin", cfg.Qbittorrent.Username)
	assert.Equal(t, "downloads", cfg.Qbittorrent.Category)
	assert.Equal(t, "/movies", cfg.MoviesPath)
	assert.Equal(t, 45, cfg.HideMoviesBelowRuntime)
	assert.Equal(t, []string{"US", "FR"}, cfg.Languages)

	patterns, err := cfg.SubtitlePatterns()
	require.NoError(t, err)
	assert.True(t, patterns["fr"].MatchString("Movie.FRENCH.srt"))
}

func TestLoadEnvOverridesYaml(t *testing.T) {
	dir := writeConfig(t, "qbittorrent:\n  username: fromyaml\n")
	t.Setenv("QBITTORRENT_USERNAME", "fromenv")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "fromenv", cfg.Qbittorrent.Username)
}

func TestValidateCategoryCollision(t *testing.T) {
	dir := writeConfig(t, `
qbittorrent:
  category: magnetarr
category_after_import: magnetarr
`)

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "category_after_import")
}

func TestValidateDeleteFilesWithoutDelete(t *testing.T) {
	dir := writeConfig(t, `
delete_torrent_after_import: false
delete_torrent_files: true
`)

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delete_torrent_files")
}

func TestValidateBadSubtitlePattern(t *testing.T) {
	dir := writeConfig(t, `
subtitle_language_map:
  fr: "(unclosed"
`)

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "subtitle_language_map")
}

func TestMovieFilters(t *testing.T) {
	cfg := Config{
		HideMoviesNoImdb:       true,
		HideMoviesBelowRuntime: 30,
		Languages:              []string{"US", "FR"},
	}

	filters := cfg.MovieFilters()
	assert.True(t, filters.HideNoImdb)
	assert.Equal(t, uint16(30), filters.MinRuntime)
	assert.True(t, filters.Languages["FR"])
	assert.False(t, filters.Languages["DE"])
}
