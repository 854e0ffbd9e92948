package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/Astemirdum/library-desk/pkg/kafka"
	"github.com/Astemirdum/library-desk/pkg/logger"
	"github.com/Astemirdum/library-desk/pkg/postgres"
	"github.com/Astemirdum/library-desk/pkg/validate"
)

const (
	StorageFile     = "file"
	StoragePostgres = "postgres"
)

type HTTPServer struct {
	Enabled      bool          `yaml:"enabled" envconfig:"LIBRARY_HTTP_ENABLED"`
	Host         string        `yaml:"host" envconfig:"LIBRARY_HTTP_HOST" default:"localhost"`
	Port         string        `yaml:"port" envconfig:"LIBRARY_HTTP_PORT" default:"8080"`
	ReadTimeout  time.Duration `yaml:"readTimeout" envconfig:"HTTP_READ" default:"10s"`
	WriteTimeout time.Duration `yaml:"writeTimeout" envconfig:"HTTP_WRITE"`
}

type Store struct {
	Driver string `yaml:"driver" envconfig:"LIBRARY_STORAGE" default:"file" validate:"oneof=file postgres"`
	Path   string `yaml:"path" envconfig:"LIBRARY_STORE_PATH" default:"library.txt" validate:"required_if=Driver file"`
}

type Fines struct {
	GraceDays  float64 `yaml:"graceDays" envconfig:"LIBRARY_FINE_GRACE_DAYS" default:"7" validate:"gte=0"`
	RatePerDay float64 `yaml:"ratePerDay" envconfig:"LIBRARY_FINE_RATE_PER_DAY" default:"5" validate:"gte=0"`
}

type Desk struct {
	AdminUser      string `yaml:"adminUser" envconfig:"LIBRARY_ADMIN_USER" default:"admin" validate:"required"`
	AdminPassword  string `yaml:"adminPassword" envconfig:"LIBRARY_ADMIN_PASSWORD" default:"admin123" json:"-" validate:"required"`
	MemberPassword string `yaml:"memberPassword" envconfig:"LIBRARY_MEMBER_PASSWORD" default:"student123" json:"-" validate:"required"`
}

type Config struct {
	Server   HTTPServer  `yaml:"server"`
	Store    Store       `yaml:"store"`
	Fines    Fines       `yaml:"fines"`
	Desk     Desk        `yaml:"desk"`
	Database postgres.DB `yaml:"db"`
	Kafka    kafka.Config
	Log      logger.Log `yaml:"log"`
}

var (
	once sync.Once
	cfg  *Config
)

// NewConfig reads config from environment. Options set defaults that the environment may override.
func NewConfig(ops ...Option) *Config {
	once.Do(func() {
		config, err := load(ops...)
		if err != nil {
			log.Fatal("NewConfig ", err)
		}
		cfg = config
		printConfig(cfg)
	})

	return cfg
}

func load(ops ...Option) (*Config, error) {
	var config Config
	for _, op := range ops {
		op(&config)
	}
	if err := envconfig.Process("", &config); err != nil {
		return nil, err
	}
	if err := validate.New().Struct(config); err != nil {
		return nil, err
	}
	return &config, nil
}

// printConfig goes to stderr; stdout belongs to the console.
func printConfig(cfg *Config) {
	jscfg, _ := json.MarshalIndent(cfg, "", "	") //nolint:errcheck
	fmt.Fprintln(os.Stderr, string(jscfg))
}
