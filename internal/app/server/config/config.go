package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	envPath  = ".env"
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

type Config struct {
	Env    string
	DB     db
	Server server
	Sync   syncSettings
	Logger logger
}

type db struct {
	DatabaseURI string `env:"DATABASE_URI"`
	Migrations  string `env:"MIGRATIONS_PATH"`
}

type server struct {
	RunAddress string `env:"RUN_ADDRESS"`
	APIToken   string `env:"API_TOKEN"`
}

type syncSettings struct {
	BatchSize      int `env:"SYNC_BATCH_SIZE"`
	MaxSyncRecords int `env:"SYNC_MAX_RECORDS"`
	ConflictTTLH   int `env:"SYNC_CONFLICT_TTL_HOURS"`
}

type logger struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

func MustLoad() *Config {
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			log.Println("Ошибка загрузки .env файла, используем переменные окружения")
		}
	}

	viper.AutomaticEnv()

	viper.SetDefault("RUN_ADDRESS", "localhost:8080")
	viper.SetDefault("MIGRATIONS_PATH", "migrations")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("APP_ENV", EnvLocal)
	viper.SetDefault("SYNC_BATCH_SIZE", 200)
	viper.SetDefault("SYNC_MAX_RECORDS", 1000)
	viper.SetDefault("SYNC_CONFLICT_TTL_HOURS", 168)

	config := Config{
		Env: viper.GetString("APP_ENV"),
		DB: db{
			DatabaseURI: viper.GetString("DATABASE_URI"),
			Migrations:  viper.GetString("MIGRATIONS_PATH"),
		},
		Server: server{
			RunAddress: viper.GetString("RUN_ADDRESS"),
			APIToken:   viper.GetString("API_TOKEN"),
		},
		Sync: syncSettings{
			BatchSize:      viper.GetInt("SYNC_BATCH_SIZE"),
			MaxSyncRecords: viper.GetInt("SYNC_MAX_RECORDS"),
			ConflictTTLH:   viper.GetInt("SYNC_CONFLICT_TTL_HOURS"),
		},
		Logger: logger{LogLevel: viper.GetString("LOG_LEVEL")},
	}

	if config.DB.DatabaseURI == "" {
		log.Fatalln("DATABASE_URI обязателен")
	}

	return &config
}
