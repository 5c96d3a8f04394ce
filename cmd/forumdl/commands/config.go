package commands

import (
	"fmt"
	"forumdl/internal/catalog"
	"forumdl/internal/components/telemetry"
	"forumdl/internal/scrapers/ipboard/markup"
	"path/filepath"
)

const (
	CACHE_JSON   = "json"
	CACHE_SQLITE = "sqlite"
)

type CacheConfig struct {
	Backend string `json:"backend"`
	Dir     string `json:"dir"`
}

type Config struct {
	BaseUrl  string `json:"base_url"`
	Version  string `json:"version"`
	Username string `json:"username"`
	Password string `json:"password"`

	RequestsPerSecond float64             `json:"requests_per_second"`
	PageDelay         catalog.DelayWindow `json:"page_delay"`
	DownloadDelay     catalog.DelayWindow `json:"download_delay"`
	PageSize          int                 `json:"page_size"`

	DownloadDir string      `json:"download_dir"`
	Cache       CacheConfig `json:"cache"`
	DumpDir     string      `json:"dump_dir"`

	Telemetry telemetry.Config `json:"telemetry"`
}

func (c Config) withDefaults() Config {
	if c.Version == "" {
		c.Version = markup.VERSION_4
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = 2
	}
	if c.PageDelay == (catalog.DelayWindow{}) {
		c.PageDelay = catalog.DelayWindow{MinMs: 1000, MaxMs: 3000}
	}
	if c.DownloadDelay == (catalog.DelayWindow{}) {
		c.DownloadDelay = catalog.DelayWindow{MinMs: 5000, MaxMs: 15000}
	}
	if c.PageSize <= 0 {
		c.PageSize = catalog.DefaultPageSize
	}
	if c.DownloadDir == "" {
		c.DownloadDir = "downloads"
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = CACHE_JSON
	}
	if c.Cache.Dir == "" {
		c.Cache.Dir = ".forumdl"
	}
	if c.DumpDir == "" {
		c.DumpDir = filepath.Join(c.Cache.Dir, "dumps")
	}
	return c
}

func (c Config) validate() error {
	if c.BaseUrl == "" {
		return fmt.Errorf("%w: base_url is required", catalog.ErrInvalidArgument)
	}
	switch c.Cache.Backend {
	case CACHE_JSON, CACHE_SQLITE:
	default:
		return fmt.Errorf("%w: unknown cache backend %q", catalog.ErrInvalidArgument, c.Cache.Backend)
	}
	return nil
}
