// Package config loads instance-level tuning for the storage core from an
// optional HCL file, with environment variable overrides applied on top.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

const (
	defaultGracePeriodDays      = 14
	defaultBootstrapPollMillis  = 200
	defaultBootstrapTimeoutSecs = 2
)

// Config holds the settings spec.md §6 calls "environment/flags recognized
// by the core". Every field has a default below; an absent config file is
// not an error.
type Config struct {
	GracePeriodDays       int
	DryRun                bool
	SkipMarker            bool
	IsDevBuild            bool
	ThumbnailRoot         string
	BootstrapPollInterval time.Duration
	BootstrapTimeout      time.Duration
}

// hclBody is the subset of fields gohcl actually decodes; Config mirrors it
// with the derived Duration fields spliced in afterward.
type hclBody struct {
	GracePeriodDays     int    `hcl:"grace_period_days,optional"`
	DryRun              bool   `hcl:"dry_run,optional"`
	SkipMarker          bool   `hcl:"skip_marker,optional"`
	IsDevBuild          bool   `hcl:"is_dev_build,optional"`
	ThumbnailRoot       string `hcl:"thumbnail_root,optional"`
	BootstrapPollMillis int    `hcl:"bootstrap_poll_millis,optional"`
	BootstrapTimeoutSec int    `hcl:"bootstrap_timeout_seconds,optional"`
}

// Default returns the built-in defaults, used when no config file exists.
func Default() Config {
	return Config{
		GracePeriodDays:       defaultGracePeriodDays,
		BootstrapPollInterval: defaultBootstrapPollMillis * time.Millisecond,
		BootstrapTimeout:      defaultBootstrapTimeoutSecs * time.Second,
	}
}

// Load reads path (if it exists) as HCL, falls back to defaults for a
// missing file, then applies NOTECOVE_* environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			body := hclBody{
				GracePeriodDays:     defaultGracePeriodDays,
				BootstrapPollMillis: defaultBootstrapPollMillis,
				BootstrapTimeoutSec: defaultBootstrapTimeoutSecs,
			}
			parser := hclparse.NewParser()
			f, diags := parser.ParseHCLFile(path)
			if diags.HasErrors() {
				return cfg, diagErr(diags)
			}
			if diags := gohcl.DecodeBody(f.Body, nil, &body); diags.HasErrors() {
				return cfg, diagErr(diags)
			}
			cfg.GracePeriodDays = body.GracePeriodDays
			cfg.DryRun = body.DryRun
			cfg.SkipMarker = body.SkipMarker
			cfg.IsDevBuild = body.IsDevBuild
			cfg.ThumbnailRoot = body.ThumbnailRoot
			cfg.BootstrapPollInterval = time.Duration(body.BootstrapPollMillis) * time.Millisecond
			cfg.BootstrapTimeout = time.Duration(body.BootstrapTimeoutSec) * time.Second
		} else if !os.IsNotExist(err) {
			return cfg, err
		}
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v, ok := os.LookupEnv("NOTECOVE_GRACE_PERIOD_DAYS"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.GracePeriodDays = n
		}
	}
	if v, ok := os.LookupEnv("NOTECOVE_DRY_RUN"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.DryRun = b
		}
	}
	if v, ok := os.LookupEnv("NOTECOVE_SKIP_MARKER"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.SkipMarker = b
		}
	}
	if v, ok := os.LookupEnv("NOTECOVE_IS_DEV_BUILD"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.IsDevBuild = b
		}
	}
	if v, ok := os.LookupEnv("NOTECOVE_THUMBNAIL_ROOT"); ok {
		cfg.ThumbnailRoot = v
	}
	if v, ok := os.LookupEnv("NOTECOVE_BOOTSTRAP_POLL_MILLIS"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.BootstrapPollInterval = time.Duration(n) * time.Millisecond
		}
	}
	if v, ok := os.LookupEnv("NOTECOVE_BOOTSTRAP_TIMEOUT_SECONDS"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.BootstrapTimeout = time.Duration(n) * time.Second
		}
	}
}

func diagErr(diags hcl.Diagnostics) error {
	return diags
}
