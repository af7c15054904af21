// Package config loads settings from config.yaml overlaid with environment
// variables and validates the combinations that would misbehave at runtime.
package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/viper"

	"github.com/magnetarr/magnetarr/internal/models"
)

// Qbittorrent holds the download client connection settings.
type Qbittorrent struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	URL      string `mapstructure:"url"`
	Category string `mapstructure:"category"`
}

// Config is the full application configuration.
type Config struct {
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`
	CacheDB  string `mapstructure:"cache_db"`

	Qbittorrent Qbittorrent `mapstructure:"qbittorrent"`

	RemoteDownloadPath string `mapstructure:"remote_download_path"`
	LocalDownloadPath  string `mapstructure:"local_download_path"`
	MoviesPath         string `mapstructure:"movies_path"`

	Languages []string `mapstructure:"languages"`

	DisableMovieTracking          bool `mapstructure:"disable_movie_tracking"`
	MovieTrackingMaxTimeoutActive int  `mapstructure:"movie_tracking_max_timeout_active"`
	MovieTrackingTimeoutInactive  int  `mapstructure:"movie_tracking_timeout_inactive"`
	MovieTrackingMinTimeout       int  `mapstructure:"movie_tracking_min_timeout"`

	DeleteTorrentAfterImport bool   `mapstructure:"delete_torrent_after_import"`
	DeleteTorrentFiles       bool   `mapstructure:"delete_torrent_files"`
	CategoryAfterImport      string `mapstructure:"category_after_import"`

	HideMoviesNoImdb       bool `mapstructure:"hide_movies_no_imdb"`
	HideMoviesBelowRuntime int  `mapstructure:"hide_movies_below_runtime"`

	ImportMovieMaxDepth int               `mapstructure:"import_movie_max_depth"`
	SubtitleLanguageMap map[string]string `mapstructure:"subtitle_language_map"`
}

// Load reads config.yaml from dir (if present), overlays environment
// variables, and validates the result.
func Load(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("cache_db", "data/cache.db")
	v.SetDefault("qbittorrent.category", "magnetarr")
	v.SetDefault("languages", []string{"US"})
	v.SetDefault("disable_movie_tracking", false)
	v.SetDefault("movie_tracking_max_timeout_active", 60)
	v.SetDefault("movie_tracking_timeout_inactive", 3600)
	v.SetDefault("movie_tracking_min_timeout", 1)
	v.SetDefault("delete_torrent_after_import", false)
	v.SetDefault("delete_torrent_files", false)
	v.SetDefault("hide_movies_no_imdb", true)
	v.SetDefault("hide_movies_below_runtime", 30)
	v.SetDefault("import_movie_max_depth", 2)
}

// bindEnvKeys registers every recognized key so Unmarshal sees environment
// values even for keys absent from the config file.
func bindEnvKeys(v *viper.Viper) {
	for _, key := range []string{
		"port", "log_level", "cache_db",
		"qbittorrent.username", "qbittorrent.password", "qbittorrent.url", "qbittorrent.category",
		"remote_download_path", "local_download_path", "movies_path",
		"languages",
		"disable_movie_tracking",
		"movie_tracking_max_timeout_active", "movie_tracking_timeout_inactive", "movie_tracking_min_timeout",
		"delete_torrent_after_import", "delete_torrent_files", "category_after_import",
		"hide_movies_no_imdb", "hide_movies_below_runtime",
		"import_movie_max_depth",
	} {
		_ = v.BindEnv(key)
	}
}

// Validate rejects configurations that would misroute imports.
func (c *Config) Validate() error {
	if c.CategoryAfterImport != "" && c.CategoryAfterImport == c.Qbittorrent.Category {
		return fmt.Errorf("category_after_import must differ from qbittorrent.category (%q)", c.Qbittorrent.Category)
	}
	if c.DeleteTorrentFiles && !c.DeleteTorrentAfterImport {
		return fmt.Errorf("delete_torrent_files requires delete_torrent_after_import")
	}
	if _, err := c.SubtitlePatterns(); err != nil {
		return err
	}
	return nil
}

// SubtitlePatterns compiles the subtitle language map.
func (c *Config) SubtitlePatterns() (map[string]*regexp.Regexp, error) {
	patterns := make(map[string]*regexp.Regexp, len(c.SubtitleLanguageMap))
	for lang, expr := range c.SubtitleLanguageMap {
		pattern, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("subtitle_language_map[%s]: invalid pattern: %w", lang, err)
		}
		patterns[lang] = pattern
	}
	return patterns, nil
}

// MovieFilters exports the metadata post-filter settings.
func (c *Config) MovieFilters() models.MovieFilters {
	languages := make(map[string]bool, len(c.Languages))
	for _, lang := range c.Languages {
		languages[lang] = true
	}
	return models.MovieFilters{
		HideNoImdb: c.HideMoviesNoImdb,
		MinRuntime: uint16(c.HideMoviesBelowRuntime),
		Languages:  languages,
	}
}
