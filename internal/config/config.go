package config

import (
	"fmt"
	"log"
	"sync"

	"github.com/ilyakaznacheev/cleanenv"
)

type Listen struct {
	BindIp string `yaml:"bind_ip" env-default:"0.0.0.0"`
	Port   string `yaml:"port" env-default:"8080"`
}

type StripeConfig struct {
	WebhookSecret     string `yaml:"webhook_secret" env:"STRIPE_WEBHOOK_SECRET" env-default:""`
	TestMode          bool   `yaml:"test_mode" env-default:"false"`
	TestWebhookSecret string `yaml:"test_webhook_secret" env-default:""`
}

type MongoConfig struct {
	Enabled  bool   `yaml:"enabled" env-default:"true"`
	Host     string `yaml:"host" env-default:"localhost"`
	Port     string `yaml:"port" env-default:"27017"`
	User     string `yaml:"user" env-default:""`
	Password string `yaml:"password" env:"MONGO_PASSWORD" env-default:""`
	Database string `yaml:"database" env-default:"fundsync"`
}

type TelegramConfig struct {
	Enabled bool   `yaml:"enabled" env-default:"false"`
	ApiKey  string `yaml:"api_key" env:"TELEGRAM_API_KEY" env-default:""`
	ChatId  int64  `yaml:"chat_id" env-default:"0"`
}

type WorkerConfig struct {
	QueueSize int `yaml:"queue_size" env-default:"64"`
	Workers   int `yaml:"workers" env-default:"4"`
}

type Config struct {
	Stripe   StripeConfig   `yaml:"stripe"`
	Mongo    MongoConfig    `yaml:"mongo"`
	Telegram TelegramConfig `yaml:"telegram"`
	Worker   WorkerConfig   `yaml:"worker"`
	Listen   Listen         `yaml:"listen"`
	Env      string         `yaml:"env" env-default:"local"`
}

var instance *Config
var once sync.Once

func MustLoad(path string) *Config {
	var err error
	once.Do(func() {
		instance = &Config{}
		if err = cleanenv.ReadConfig(path, instance); err != nil {
			desc, _ := cleanenv.GetDescription(instance, nil)
			err = fmt.Errorf("config: %s; %s", err, desc)
			instance = nil
			log.Fatal(err)
		}
	})
	return instance
}
