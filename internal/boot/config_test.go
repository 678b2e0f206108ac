package boot

import (
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	assert := assert.New(t)

	t.Run("Defaults", func(t *testing.T) {
		config, err := LoadFrom(envconfig.MapLookuper(map[string]string{}))
		assert.Nil(err)
		if assert.NotNil(config) {
			assert.True(config.IsDevelopment())
			assert.Equal("3000", config.Server.Port)
			assert.Equal(StoreDriverSQLite, config.Store.Driver)
			assert.Equal(30*time.Second, config.Sync.Interval)
			assert.Equal(10, config.Auth.BcryptCost)
			assert.Equal([]string{"*"}, config.AllowedOrigins())
		}
	})

	t.Run("Overrides", func(t *testing.T) {
		config, err := LoadFrom(envconfig.MapLookuper(map[string]string{
			"ENV":             "prod",
			"STORE_DRIVER":    "mongo",
			"SYNC_INTERVAL":   "5s",
			"ALLOWED_ORIGINS": "https://a.example, https://b.example",
		}))
		assert.Nil(err)
		if assert.NotNil(config) {
			assert.True(config.IsProduction())
			assert.Equal(StoreDriverMongo, config.Store.Driver)
			assert.Equal(5*time.Second, config.Sync.Interval)
			assert.Equal([]string{"https://a.example", "https://b.example"}, config.AllowedOrigins())
		}
	})

	t.Run("Unknown driver", func(t *testing.T) {
		_, err := LoadFrom(envconfig.MapLookuper(map[string]string{"STORE_DRIVER": "postgres"}))
		assert.NotNil(err)
	})
}
