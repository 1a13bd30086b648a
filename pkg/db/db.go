package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"idlezoo/pkg/config"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/prometheus"
)

var Module = fx.Module("database",
	fx.Provide(
		Dialect,
		New,
	),
	fx.Invoke(
		RegisterConnectionPool,
		Otel,
		Metric,
	),
)

const connectAttempts = 5

// Dialect picks the gorm driver from DATABASE.TYPE.
func Dialect(cfg *config.Config) (gorm.Dialector, error) {
	d := cfg.Database
	switch strings.ToLower(d.Type) {
	case "postgres", "postgresql":
		dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
			d.Host, d.Port, d.User, d.Password, d.DBNAME, d.SSLMode, d.Timezone)
		return postgres.Open(dsn), nil
	case "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			d.User, d.Password, d.Host, d.Port, d.DBNAME)
		return mysql.Open(dsn), nil
	case "sqlite", "":
		return sqlite.Open(d.DBNAME + ".db"), nil
	default:
		return nil, fmt.Errorf("unsupported database type %q", d.Type)
	}
}

func New(cfg *config.Config, dialector gorm.Dialector) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	var logLevel logger.LogLevel
	var showSQL bool

	if cfg.AppEnv == "production" {
		logLevel = logger.Warn
		showSQL = false
	} else {
		logLevel = logger.Info
		showSQL = true
	}

	gormLogger := NewZapGormLogger(zap.L(), logLevel, showSQL)

	for i := 0; i < connectAttempts; i++ {
		db, err = gorm.Open(dialector, &gorm.Config{
			Logger:  gormLogger,
			NowFunc: func() time.Time { return time.Now().UTC() },
		})
		if err == nil {
			break
		}
		zap.L().Warn("[DB] Database not ready, retrying in 3 seconds... ", zap.Int("retry", i+1), zap.Error(err))
		time.Sleep(3 * time.Second)
	}

	if err != nil {
		zap.L().Error("[DB] Failed to connect to database", zap.Error(err))
		return nil, err
	}

	zap.L().Info("[DB] Database connection configured", zap.String("dialect", dialector.Name()))

	return db, nil
}

type connectionPoolParams struct {
	fx.In
	Lifecycle fx.Lifecycle
	DB        *gorm.DB
	Config    *config.Config
}

func RegisterConnectionPool(p connectionPoolParams) error {
	sqlDB, err := p.DB.DB()
	if err != nil {
		zap.L().Error("[DB] Failed to get sql.DB from gorm", zap.Error(err))
		return err
	}

	cp := p.Config.Database.ConnectionPool
	sqlDB.SetMaxIdleConns(cp.MaxIdleConn)
	sqlDB.SetMaxOpenConns(cp.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cp.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cp.ConnMaxIdleTime)

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			zap.L().Info("[DB] Closing connection pool...")
			return sqlDB.Close()
		},
	})

	return nil
}

type otelParams struct {
	fx.In
	DB             *gorm.DB
	Config         *config.Config
	TracerProvider trace.TracerProvider `optional:"true"`
}

// Otel registers the OpenTelemetry plugin so every query becomes a span.
func Otel(p otelParams) error {
	opts := []otelgorm.Option{
		otelgorm.WithDBName(p.Config.Database.DBNAME),
		otelgorm.WithoutQueryVariables(),
	}
	if p.TracerProvider != nil {
		opts = append(opts, otelgorm.WithTracerProvider(p.TracerProvider))
	}

	if err := p.DB.Use(otelgorm.NewPlugin(opts...)); err != nil {
		zap.L().Error("Failed to register db telemetry", zap.Error(err))
		return err
	}

	return nil
}

type metricParams struct {
	fx.In
	DB     *gorm.DB
	Config *config.Config
}

// Metric serves gorm pool and query metrics on DATABASE.METRICS_PORT. A zero
// port leaves the plugin off.
func Metric(p metricParams) error {
	port := p.Config.Database.MetricsPort
	if port == 0 {
		return nil
	}
	if port < 0 || port > 65535 {
		return fmt.Errorf("invalid DATABASE.METRICS_PORT %d", port)
	}

	if err := p.DB.Use(prometheus.New(prometheus.Config{
		DBName:           p.Config.Database.DBNAME,
		RefreshInterval:  15,
		StartServer:      true,
		HTTPServerPort:   uint32(port),
		MetricsCollector: metricsCollectors(p.DB.Dialector.Name()),
	})); err != nil {
		zap.L().Error("Failed to register db metrics", zap.Error(err))
		return err
	}

	zap.L().Info("[DB] Metrics exposed", zap.Int("port", port))
	return nil
}

// metricsCollectors adds server status variables for dialects that have them.
func metricsCollectors(dialect string) []prometheus.MetricsCollector {
	switch dialect {
	case "mysql":
		return []prometheus.MetricsCollector{
			&prometheus.MySQL{VariableNames: []string{"Threads_running", "Threads_connected"}},
		}
	case "postgres":
		return []prometheus.MetricsCollector{
			&prometheus.Postgres{VariableNames: []string{"max_connections"}},
		}
	default:
		return nil
	}
}
