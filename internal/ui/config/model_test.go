package config

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/readonme/internal/model"
)

func TestValidators(t *testing.T) {
	assert.NoError(t, validateURL("https://books.example.com"))
	assert.Error(t, validateURL(""))
	assert.Error(t, validateURL("books.example.com"))

	assert.NoError(t, validatePath("/api/notifications/stream"))
	assert.Error(t, validatePath("api/notifications/stream"))

	v := validatePositive("timeout")
	assert.NoError(t, v("10"))
	assert.EqualError(t, v("0"), "timeout must be positive")
	assert.EqualError(t, v("ten"), "timeout must be a number")
}

func TestApplyKeepsUneditedFields(t *testing.T) {
	base := model.AppConfig{
		Server: model.ServerConfig{BaseURL: "http://old", TimeoutSec: 10},
		Cache:  model.CacheConfig{Path: "/tmp/cache.db"},
	}
	m := New(80, 24)
	m.Start(base)
	m.fb.baseURL = " https://new.example.com/ "
	m.fb.timeoutSec = "20"
	m.fb.reconnectDelay = "3000"

	cfg := m.apply()
	assert.Equal(t, "https://new.example.com", cfg.Server.BaseURL)
	assert.Equal(t, 20, cfg.Server.TimeoutSec)
	assert.Equal(t, 3000, cfg.Stream.ReconnectDelayMs)
	assert.Equal(t, "/tmp/cache.db", cfg.Cache.Path)
}
