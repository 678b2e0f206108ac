package boot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const (
	StoreDriverSQLite = "sqlite"
	StoreDriverMongo  = "mongo"
)

type Config struct {
	Env    string `env:"ENV,default=dev"`
	Server struct {
		Port        string `env:"PORT,default=3000"`
		MetricsPort string `env:"METRICS_PORT,default=8081"`
		Origins     string `env:"ALLOWED_ORIGINS,default=*"`
		StaticDir   string `env:"STATIC_DIR,default=public"`
	}
	Store struct {
		Driver     string `env:"STORE_DRIVER,default=sqlite"`
		DataDir    string `env:"DATA_DIR,default=."`
		SQLiteFile string `env:"SQLITE_FILE,default=users.db"`
	}
	Mongo struct {
		URI                    string        `env:"MONGO_URI,default=mongodb://localhost:27017"`
		Database               string        `env:"MONGO_DATABASE,default=liveusers"`
		ServerSelectionTimeout time.Duration `env:"MONGO_SERVER_SELECTION_TIMEOUT,default=5s"`
		SocketTimeout          time.Duration `env:"MONGO_SOCKET_TIMEOUT,default=45s"`
	}
	Sync struct {
		Interval time.Duration `env:"SYNC_INTERVAL,default=30s"`
	}
	Auth struct {
		BcryptCost int `env:"BCRYPT_COST,default=10"`
	}
	Session struct {
		Secret  string        `env:"SESSION_SECRET"`
		TTL     time.Duration `env:"SESSION_TTL,default=24h"`
		Enforce bool          `env:"SESSION_ENFORCE,default=false"`
	}
}

func Load() (*Config, error) {
	return LoadFrom(envconfig.OsLookuper())
}

// LoadFrom reads the configuration through lookuper, which lets tests supply
// a fixed environment.
func LoadFrom(lookuper envconfig.Lookuper) (*Config, error) {
	config := &Config{}
	if err := envconfig.ProcessWith(context.Background(), config, lookuper); err != nil {
		return nil, fmt.Errorf("parsing env vars: %w", err)
	}
	if config.Store.Driver != StoreDriverSQLite && config.Store.Driver != StoreDriverMongo {
		return nil, fmt.Errorf("unknown store driver: %s", config.Store.Driver)
	}
	return config, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "prod"
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "dev"
}

func (c *Config) AllowedOrigins() []string {
	origins := []string{}
	for _, o := range strings.Split(c.Server.Origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
