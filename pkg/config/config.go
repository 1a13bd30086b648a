package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/fx"
)

var (
	configName = "config"
	configType = "yaml"
)

type Config struct {
	AppEnv        string `mapstructure:"APP_ENV"`
	AppName       string `mapstructure:"APP_NAME"`
	AppVersion    string `mapstructure:"APP_VERSION"`
	SnowflakeNode int64  `mapstructure:"SNOWFLAKE_NODE"`
	TLS           struct {
		Enable   bool   `mapstructure:"ENABLE"`
		CertPath string `mapstructure:"CERT_PATH"`
		KeyPath  string `mapstructure:"KEY_PATH"`
	} `mapstructure:"TLS"`
	Server struct {
		Addr         string        `mapstructure:"ADDR"`
		ReadTimeout  time.Duration `mapstructure:"READ_TIMEOUT"`
		WriteTimeout time.Duration `mapstructure:"WRITE_TIMEOUT"`
		IdleTimeout  time.Duration `mapstructure:"IDLE_TIMEOUT"`
	} `mapstructure:"HTTP_SERVER"`
	Database struct {
		Type           string `mapstructure:"TYPE"`
		Host           string `mapstructure:"HOST"`
		Port           string `mapstructure:"PORT"`
		DBNAME         string `mapstructure:"DBNAME"`
		User           string `mapstructure:"USER"`
		Password       string `mapstructure:"PASSWORD"`
		SSLMode        string `mapstructure:"SSLMODE"`
		Timezone       string `mapstructure:"TIMEZONE"`
		MetricsPort    int    `mapstructure:"METRICS_PORT"`
		ConnectionPool struct {
			MaxIdleConn     int           `mapstructure:"MAX_IDLE_CONN"`
			MaxOpenConns    int           `mapstructure:"MAX_OPEN_CONNS"`
			ConnMaxLifetime time.Duration `mapstructure:"CONN_MAX_LIFETIME"`
			ConnMaxIdleTime time.Duration `mapstructure:"CONN_MAX_IDLE_TIME"`
		} `mapstructure:"CONNECTION_POOL"`
	} `mapstructure:"DATABASE"`
	Redis struct {
		Addr        string        `mapstructure:"ADDR"`
		Password    string        `mapstructure:"PASSWORD"`
		DB          int           `mapstructure:"DB"`
		PoolSize    int           `mapstructure:"POOL_SIZE"`
		PoolTimeout time.Duration `mapstructure:"POOL_TIMEOUT"`
	} `mapstructure:"REDIS"`
	Flagsmith struct {
		Addr   string `mapstructure:"ADDR"`
		ApiKey string `mapstructure:"API_KEY"`
	} `mapstructure:"FLAGSMITH"`
	Otel struct {
		Enable      bool    `mapstructure:"ENABLE"`
		Endpoint    string  `mapstructure:"ENDPOINT"`
		Insecure    bool    `mapstructure:"INSECURE"`
		SampleRatio float64 `mapstructure:"SAMPLE_RATIO"`
	} `mapstructure:"OTEL"`
	Pyroscope struct {
		Addr string `mapstructure:"ADDR"`
	} `mapstructure:"PYROSCOPE"`
	Game Game `mapstructure:"GAME"`
}

// Game holds the balance table of the idle engine. Kinds and Rewards fall back
// to the zoo defaults when the config file does not list any.
type Game struct {
	StartingCurrency        int64    `mapstructure:"STARTING_CURRENCY"`
	MinimumCurrency         int64    `mapstructure:"MINIMUM_CURRENCY"`
	HappinessWeighted       bool     `mapstructure:"HAPPINESS_WEIGHTED"`
	ApplyCurrencyMultiplier bool     `mapstructure:"APPLY_CURRENCY_MULTIPLIER"`
	Kinds                   []Kind   `mapstructure:"KINDS"`
	Rewards                 []Reward `mapstructure:"REWARDS"`
}

type Kind struct {
	Name             string  `mapstructure:"NAME"`
	BaseRate         float64 `mapstructure:"BASE_RATE"`
	Cost             int64   `mapstructure:"COST"`
	HappinessMin     float64 `mapstructure:"HAPPINESS_MIN"`
	HappinessMax     float64 `mapstructure:"HAPPINESS_MAX"`
	DefaultHappiness float64 `mapstructure:"DEFAULT_HAPPINESS"`
	VisitorWeight    int64   `mapstructure:"VISITOR_WEIGHT"`
}

type Reward struct {
	Kind                    string  `mapstructure:"KIND"`
	CooldownMinutes         int64   `mapstructure:"COOLDOWN_MINUTES"`
	RewardMin               int64   `mapstructure:"REWARD_MIN"`
	RewardMax               int64   `mapstructure:"REWARD_MAX"`
	CurrencyMultiplierGrant float64 `mapstructure:"CURRENCY_MULTIPLIER_GRANT"`
}

var Module = fx.Module("config", fx.Provide(LoadConfig))

func LoadConfig() (*Config, error) {
	return Load(".")
}

// Load reads config.yaml from the given paths (optional) and overlays
// environment variables, e.g. GAME_MINIMUM_CURRENCY or DATABASE_HOST.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType(configType)
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if len(cfg.Game.Kinds) == 0 {
		cfg.Game.Kinds = DefaultKinds()
	}
	if len(cfg.Game.Rewards) == 0 {
		cfg.Game.Rewards = DefaultRewards()
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_NAME", "idlezoo")
	v.SetDefault("SNOWFLAKE_NODE", 1)

	v.SetDefault("TLS.ENABLE", false)
	v.SetDefault("TLS.CERT_PATH", "")
	v.SetDefault("TLS.KEY_PATH", "")

	v.SetDefault("HTTP_SERVER.ADDR", "8080")
	v.SetDefault("HTTP_SERVER.READ_TIMEOUT", 15*time.Second)
	v.SetDefault("HTTP_SERVER.WRITE_TIMEOUT", 15*time.Second)
	v.SetDefault("HTTP_SERVER.IDLE_TIMEOUT", 60*time.Second)

	v.SetDefault("DATABASE.TYPE", "sqlite")
	v.SetDefault("DATABASE.HOST", "localhost")
	v.SetDefault("DATABASE.PORT", "5432")
	v.SetDefault("DATABASE.DBNAME", "idlezoo")
	v.SetDefault("DATABASE.USER", "")
	v.SetDefault("DATABASE.PASSWORD", "")
	v.SetDefault("DATABASE.SSLMODE", "disable")
	v.SetDefault("DATABASE.TIMEZONE", "UTC")
	v.SetDefault("DATABASE.METRICS_PORT", 0)
	v.SetDefault("DATABASE.CONNECTION_POOL.MAX_IDLE_CONN", 5)
	v.SetDefault("DATABASE.CONNECTION_POOL.MAX_OPEN_CONNS", 20)
	v.SetDefault("DATABASE.CONNECTION_POOL.CONN_MAX_LIFETIME", 5*time.Minute)
	v.SetDefault("DATABASE.CONNECTION_POOL.CONN_MAX_IDLE_TIME", time.Minute)

	v.SetDefault("REDIS.ADDR", "127.0.0.1:6379")
	v.SetDefault("REDIS.PASSWORD", "")
	v.SetDefault("REDIS.DB", 0)
	v.SetDefault("REDIS.POOL_SIZE", 10)
	v.SetDefault("REDIS.POOL_TIMEOUT", 4*time.Second)

	v.SetDefault("FLAGSMITH.ADDR", "")
	v.SetDefault("FLAGSMITH.API_KEY", "")

	v.SetDefault("OTEL.ENABLE", false)
	v.SetDefault("OTEL.ENDPOINT", "localhost:4318")
	v.SetDefault("OTEL.INSECURE", true)
	v.SetDefault("OTEL.SAMPLE_RATIO", 1.0)

	v.SetDefault("PYROSCOPE.ADDR", "")

	v.SetDefault("GAME.STARTING_CURRENCY", 100)
	v.SetDefault("GAME.MINIMUM_CURRENCY", 0)
	v.SetDefault("GAME.HAPPINESS_WEIGHTED", true)
	v.SetDefault("GAME.APPLY_CURRENCY_MULTIPLIER", false)
}

func DefaultKinds() []Kind {
	return []Kind{
		{Name: "cage", BaseRate: 1, Cost: 100, HappinessMin: 50, HappinessMax: 100, DefaultHappiness: 75, VisitorWeight: 2},
		{Name: "habitat", BaseRate: 2, Cost: 250, HappinessMin: 60, HappinessMax: 100, DefaultHappiness: 75, VisitorWeight: 4},
		{Name: "safari", BaseRate: 5, Cost: 500, HappinessMin: 70, HappinessMax: 100, DefaultHappiness: 75, VisitorWeight: 8},
	}
}

func DefaultRewards() []Reward {
	return []Reward{
		{Kind: "daily_bonus", CooldownMinutes: 1440, RewardMin: 100, RewardMax: 500, CurrencyMultiplierGrant: 1.0},
		{Kind: "feeding_time", CooldownMinutes: 240, RewardMin: 50, RewardMax: 200, CurrencyMultiplierGrant: 1.1},
		{Kind: "visitor_surge", CooldownMinutes: 60, RewardMin: 10, RewardMax: 50, CurrencyMultiplierGrant: 1.0},
	}
}
