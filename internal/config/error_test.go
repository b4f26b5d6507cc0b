package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigError_Empty(t *testing.T) {
	e := &ConfigError{Path: "/etc/embytk/config.toml"}
	assert.False(t, e.HasErrors())
	assert.Empty(t, e.Error())
}

func TestConfigError_GroupsBySection(t *testing.T) {
	e := &ConfigError{
		Path:    "/etc/embytk/config.toml",
		Missing: []string{"EMBY_API_KEY", "TMDB_API_KEY"},
		Errors: []string{
			"tmdb.api_key: required",
			"emby.url: required",
			"emby.user_id: required",
			"schedule and timeout overlap",
		},
	}

	assert.Equal(t, map[string][]string{
		"emby":    {"emby.url: required", "emby.user_id: required"},
		"tmdb":    {"tmdb.api_key: required"},
		"general": {"schedule and timeout overlap"},
	}, e.Sections())

	assert.Equal(t, `/etc/embytk/config.toml:
  unset environment variables: EMBY_API_KEY, TMDB_API_KEY
  [emby]
    - emby.url: required
    - emby.user_id: required
  [general]
    - schedule and timeout overlap
  [tmdb]
    - tmdb.api_key: required`, e.Error())
}

func TestConfigError_MissingOnly(t *testing.T) {
	e := &ConfigError{Path: "config.toml", Missing: []string{"MOVIEPILOT_PASSWORD"}}
	assert.True(t, e.HasErrors())
	assert.Equal(t, "config.toml:\n  unset environment variables: MOVIEPILOT_PASSWORD", e.Error())
	assert.Empty(t, e.Sections())
}
