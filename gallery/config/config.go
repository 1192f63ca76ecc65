package config

import (
	"log"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type HTTPConfig struct {
	Address string        `yaml:"address" env:"HTTP_ADDRESS" env-default:":8080"`
	Timeout time.Duration `yaml:"timeout" env:"HTTP_TIMEOUT" env-default:"30s"`
}

type APIConfig struct {
	URL      string        `yaml:"url" env:"API_URL" env-default:"https://rickandmortyapi.com/api/character"`
	Timeout  time.Duration `yaml:"timeout" env:"API_TIMEOUT" env-default:"10s"`
	Attempts int           `yaml:"attempts" env:"API_ATTEMPTS" env-default:"3"`
}

type DBConfig struct {
	Driver  string `yaml:"driver" env:"DB_DRIVER" env-default:"sqlite"`
	Address string `yaml:"address" env:"DB_ADDRESS" env-default:"gallery.db"`
}

type SessionConfig struct {
	Secret string        `yaml:"secret" env:"SESSION_SECRET"`
	TTL    time.Duration `yaml:"ttl" env:"SESSION_TTL" env-default:"720h"`
	Idle   time.Duration `yaml:"idle" env:"SESSION_IDLE" env-default:"30m"`
}

type Config struct {
	LogLevel           string        `yaml:"log_level" env:"LOG_LEVEL" env-default:"DEBUG"`
	HTTPConfig         HTTPConfig    `yaml:"http_server"`
	GRPCAddress        string        `yaml:"grpc_address" env:"GRPC_ADDRESS" env-default:":8081"`
	API                APIConfig     `yaml:"api"`
	DB                 DBConfig      `yaml:"db"`
	BrokerAddress      string        `yaml:"broker_address" env:"BROKER_ADDRESS"`
	Session            SessionConfig `yaml:"session"`
	FilterConcurrency  int           `yaml:"filter_concurrency" env:"FILTER_CONCURRENCY" env-default:"8"`
	RequestConcurrency int           `yaml:"request_concurrency" env:"REQUEST_CONCURRENCY" env-default:"64"`
	EventRate          int           `yaml:"event_rate" env:"EVENT_RATE" env-default:"20"`
}

func MustLoad(configPath string) Config {
	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config %s: %s", configPath, err)
	}
	return cfg
}
