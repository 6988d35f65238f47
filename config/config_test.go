package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GITHUB_ACTIONS", "")
	t.Setenv("BESTIP_AUTOMATION", "")

	cfg := Load()
	assert.False(t, cfg.Automation)
	assert.Equal(t, "https://t1.y130.icu/t1/bestip", cfg.Session.TargetURL)
	assert.Equal(t, "official", cfg.Session.Source)
	assert.Equal(t, "443", cfg.Session.Port)
	assert.Equal(t, 350*time.Second, cfg.Poller.InitialDelay)
	assert.Equal(t, 30*time.Second, cfg.Poller.Interval)
	assert.Equal(t, 10, cfg.Poller.MaxChecks)
	assert.Equal(t, 650*time.Second, cfg.Poller.Budget())
	assert.Equal(t, "ip.txt", cfg.Logbook.Path)
	assert.Equal(t, 7, cfg.Logbook.RotateAfterDays)
	assert.Equal(t, DefaultUserAgent, cfg.Browser.UserAgent)
	assert.Equal(t, []string{"Image", "Font", "Media"}, cfg.Browser.BlockedResourceTypes)
	assert.Nil(t, cfg.Browser.ExtraHeaders)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_AutomationFromCI(t *testing.T) {
	t.Setenv("GITHUB_ACTIONS", "true")
	t.Setenv("BESTIP_AUTOMATION", "")
	assert.True(t, Load().Automation)

	t.Setenv("BESTIP_AUTOMATION", "false")
	assert.False(t, Load().Automation, "explicit flag wins over CI detection")
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("BESTIP_POLL_CHECKS", "4")
	t.Setenv("BESTIP_POLL_INTERVAL", "5s")
	t.Setenv("BESTIP_INITIAL_DELAY", "not-a-duration")
	t.Setenv("BESTIP_BLOCKED_RESOURCES", " Image , ,Font")
	t.Setenv("BESTIP_EXTRA_HEADERS", "Accept-Language=zh-CN, broken ,X-Trace = 1")

	cfg := Load()
	assert.Equal(t, 4, cfg.Poller.MaxChecks)
	assert.Equal(t, 5*time.Second, cfg.Poller.Interval)
	assert.Equal(t, 350*time.Second, cfg.Poller.InitialDelay, "invalid values fall back")
	assert.Equal(t, []string{"Image", "Font"}, cfg.Browser.BlockedResourceTypes)
	assert.Equal(t, map[string]string{"Accept-Language": "zh-CN", "X-Trace": "1"}, cfg.Browser.ExtraHeaders)
}
