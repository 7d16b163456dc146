package config

import (
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Debug bool `env:"DEBUG" envDefault:"false"`

	Ops struct {
		Addr string `env:"OPS_ADDR" envDefault:":8080"`
	}

	Persist struct {
		// Backend selects where snapshots go: "file" or "redis".
		Backend  string `env:"PERSIST_BACKEND" envDefault:"file"`
		DataPath string `env:"DATA_PATH" envDefault:"store.json"`
	}

	Redis struct {
		Host     string `env:"REDIS_HOST" envDefault:"localhost"`
		Port     int    `env:"REDIS_PORT" envDefault:"6379"`
		Password string `env:"REDIS_PASSWORD" envDefault:""`
		DB       int    `env:"REDIS_DB" envDefault:"0"`
		Key      string `env:"REDIS_SNAPSHOT_KEY" envDefault:"logos:store"`
	}

	Wallet struct {
		DailyReward   int64         `env:"DAILY_REWARD" envDefault:"100"`
		DailyCooldown time.Duration `env:"DAILY_COOLDOWN" envDefault:"24h"`
	}
}

func Load() *Config {
	// A missing .env file is fine; in production the variables are set
	// directly in the environment.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		panic(err)
	}

	return cfg
}
