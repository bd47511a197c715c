package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.StorageDriver)
	assert.Equal(t, 60*time.Second, cfg.SyncInterval)
	assert.Equal(t, 30*time.Second, cfg.StatsRefreshInterval)
	assert.Equal(t, 100*time.Millisecond, cfg.BroadcastDelay)
	assert.Equal(t, 100, cfg.SyncPageSize)
	assert.Equal(t, "https://api.telegram.org/bot%s/%s", cfg.TelegramAPIEndpoint)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "Memory")
	t.Setenv("SYNC_INTERVAL", "2m")
	t.Setenv("SYNC_PAGE_SIZE", "50")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.StorageDriver)
	assert.Equal(t, 2*time.Minute, cfg.SyncInterval)
	assert.Equal(t, 50, cfg.SyncPageSize)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"unknown driver", Config{StorageDriver: "mongo", SyncPageSize: 10}, true},
		{"postgres without url", Config{StorageDriver: DriverPostgres, SyncPageSize: 10}, true},
		{"redis without addr", Config{StorageDriver: DriverRedis, SyncPageSize: 10}, true},
		{"page size too large", Config{StorageDriver: DriverMemory, SyncPageSize: 500}, true},
		{"negative delay", Config{StorageDriver: DriverMemory, SyncPageSize: 10, BroadcastDelay: -time.Second}, true},
		{"memory ok", Config{StorageDriver: DriverMemory, SyncPageSize: 10}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
