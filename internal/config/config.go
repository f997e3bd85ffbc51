// Package config загружает конфигурацию поллера.
//
// Источники в порядке приоритета: переменные окружения WEBPROBE_*
// (и .env), YAML файл, значения по умолчанию.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/shaiso/webprobe/internal/repo"
	"github.com/shaiso/webprobe/internal/transport"
)

// EnvPrefix — префикс переменных окружения.
const EnvPrefix = "WEBPROBE"

// Config — конфигурация процессов webprobe.
//
// Источники по возрастанию приоритета: значения по умолчанию, YAML файл,
// .env, переменные окружения WEBPROBE_*.
type Config struct {
	DB        DBConfig        `mapstructure:"db"`
	AMQP      AMQPConfig      `mapstructure:"amqp"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Poller    PollerConfig    `mapstructure:"poller"`
	Transport TransportConfig `mapstructure:"transport"`
}

// DBConfig — подключение к PostgreSQL.
type DBConfig struct {
	URL      string `mapstructure:"url" validate:"required,postgres-url"`
	MaxConns int32  `mapstructure:"max_conns" validate:"min=1,max=1000"`
}

// AMQPConfig — RabbitMQ. Пустой URL отключает отправку метрик и check-now.
type AMQPConfig struct {
	URL string `mapstructure:"url" validate:"omitempty,amqp-url"`
}

// HTTPConfig — HTTP сервер поллера.
type HTTPConfig struct {
	// Addr — адрес /healthz, /metrics и служебного API.
	Addr string `mapstructure:"addr" validate:"required,endpoint"`
}

// PollerConfig — пул воркеров и расписание.
type PollerConfig struct {
	// Workers — число параллельных прогонов в процессе.
	Workers int `mapstructure:"workers" validate:"min=1,max=1024"`
	// PollInterval — как часто свободный воркер проверяет очередь.
	PollInterval time.Duration `mapstructure:"poll_interval" validate:"min-time=100ms"`
	// FallbackDelay — задержка до следующей проверки, если интервал сценария невалиден.
	FallbackDelay time.Duration `mapstructure:"fallback_delay" validate:"min-time=1s"`
}

// TransportConfig — параметры HTTP транспорта, общие для всех сценариев.
// Каталоги сертификатов задают, где искать файлы ssl_cert_file и ssl_key_file
// сценариев.
type TransportConfig struct {
	MaxPageSize     datasize.ByteSize `mapstructure:"max_page_size" validate:"min-size=1KB"`
	MaxRedirects    int               `mapstructure:"max_redirects" validate:"min=1,max=100"`
	SSLCertLocation string            `mapstructure:"ssl_cert_location"`
	SSLKeyLocation  string            `mapstructure:"ssl_key_location"`
}

// SessionConfig возвращает параметры транспорта уровня процесса.
func (c TransportConfig) SessionConfig(fs afero.Fs) transport.SessionConfig {
	return transport.SessionConfig{
		CertLocation: c.SSLCertLocation,
		KeyLocation:  c.SSLKeyLocation,
		Fs:           fs,
		MaxPageSize:  c.MaxPageSize,
		MaxRedirects: c.MaxRedirects,
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db.url", repo.DefaultDSN)
	v.SetDefault("db.max_conns", 10)
	v.SetDefault("amqp.url", "")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("poller.workers", 4)
	v.SetDefault("poller.poll_interval", "5s")
	v.SetDefault("poller.fallback_delay", "60s")
	v.SetDefault("transport.max_page_size", transport.DefaultMaxPageSize.String())
	v.SetDefault("transport.max_redirects", transport.DefaultMaxRedirects)
	v.SetDefault("transport.ssl_cert_location", "")
	v.SetDefault("transport.ssl_key_location", "")
}

// Load читает конфигурацию. path может быть пустым: тогда используются
// только окружение и значения по умолчанию.
func Load(fs afero.Fs, path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetFs(fs)
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// переменные, которые понимали прежние развёртывания
	_ = v.BindEnv("db.url", EnvPrefix+"_DB_URL", "DB_URL")
	_ = v.BindEnv("amqp.url", EnvPrefix+"_AMQP_URL", "AMQP_URL")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHook())); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}
