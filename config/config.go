package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/alejandrodnm/tradejournal/internal/domain"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del diario.
type Config struct {
	Storage   StorageConfig   `yaml:"storage"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Navigator NavigatorConfig `yaml:"navigator"`
	Clock     ClockConfig     `yaml:"clock"`
	Client    ClientConfig    `yaml:"client"`
	Remote    RemoteConfig    `yaml:"remote"`
	Timezone  string          `yaml:"timezone"` // IANA; fecha de sesión para los buckets
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// ServerConfig controla la API HTTP.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// NavigatorConfig controla la carga de buckets y la navegación.
type NavigatorConfig struct {
	FetchWorkers    int     `yaml:"fetch_workers"`
	FetchRatePerSec float64 `yaml:"fetch_rate_per_sec"`
	StepDelayMS     int     `yaml:"step_delay_ms"` // pausa entre pasos del reset animado
	WeekMode        string  `yaml:"week_mode"`     // legacy | iso
}

// ClockConfig controla el reloj de sesión.
type ClockConfig struct {
	TickMS int `yaml:"tick_ms"`
}

// ClientConfig controla el estado local del cliente CLI.
type ClientConfig struct {
	StateFile string `yaml:"state_file"`
}

// RemoteConfig apunta a una API remota para consultar buckets.
type RemoteConfig struct {
	BaseURL string `yaml:"base_url"`
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Si el YAML no existe se usan los defaults; un YAML inválido es error.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if _, err := cfg.Calendar(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

// Calendar devuelve las reglas de calendario configuradas.
func (c *Config) Calendar() (domain.Calendar, error) {
	mode, err := domain.ParseWeekMode(c.Navigator.WeekMode)
	if err != nil {
		return domain.Calendar{}, err
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return domain.Calendar{}, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return domain.Calendar{Mode: mode, Loc: loc}, nil
}

// StepDelay devuelve la pausa entre pasos de navegación.
func (c *Config) StepDelay() time.Duration {
	return time.Duration(c.Navigator.StepDelayMS) * time.Millisecond
}

// ClockTick devuelve el periodo del reloj de sesión.
func (c *Config) ClockTick() time.Duration {
	return time.Duration(c.Clock.TickMS) * time.Millisecond
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("JOURNAL_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("JOURNAL_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("JOURNAL_REMOTE_URL"); v != "" {
		cfg.Remote.BaseURL = v
	}
	if v := os.Getenv("JOURNAL_STATE_FILE"); v != "" {
		cfg.Client.StateFile = v
	}
	if v := os.Getenv("JOURNAL_TZ"); v != "" {
		cfg.Timezone = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "journal.db"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Navigator.FetchWorkers <= 0 {
		cfg.Navigator.FetchWorkers = 8
	}
	if cfg.Navigator.FetchRatePerSec <= 0 {
		cfg.Navigator.FetchRatePerSec = 50
	}
	if cfg.Navigator.StepDelayMS <= 0 {
		cfg.Navigator.StepDelayMS = 60
	}
	if cfg.Navigator.WeekMode == "" {
		cfg.Navigator.WeekMode = string(domain.WeekLegacy)
	}
	if cfg.Clock.TickMS <= 0 {
		cfg.Clock.TickMS = 1000
	}
	if cfg.Client.StateFile == "" {
		cfg.Client.StateFile = ".journal/state.yaml"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "UTC"
	}
}
