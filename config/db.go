package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"venue-backend/models"
)

func baseMySQLConfig() *mysqldriver.Config {
	c := mysqldriver.NewConfig()
	c.Net = "tcp"
	c.ParseTime = true
	c.Loc = time.UTC
	c.Params = map[string]string{"charset": "utf8mb4"}
	return c
}

func mysqlDSNFromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}

	c := baseMySQLConfig()
	c.User = u.User.Username()
	c.Passwd, _ = u.User.Password()
	port := u.Port()
	if port == "" {
		port = "3306"
	}
	c.Addr = net.JoinHostPort(u.Hostname(), port)
	c.DBName = strings.TrimPrefix(u.Path, "/")
	if c.DBName == "" {
		return "", fmt.Errorf("mysql url missing database name")
	}

	for key, values := range u.Query() {
		if len(values) == 0 {
			continue
		}
		switch key {
		case "parseTime":
		case "loc":
			loc, err := time.LoadLocation(values[0])
			if err != nil {
				return "", fmt.Errorf("mysql url loc: %w", err)
			}
			c.Loc = loc
		default:
			c.Params[key] = values[0]
		}
	}
	return c.FormatDSN(), nil
}

// MySQLDSN resolves MYSQL_URL / DATABASE_URL (URL form or a raw driver DSN)
// or assembles one from the discrete DB_* settings.
func MySQLDSN(cfg DBConfig) (string, error) {
	if cfg.URL != "" {
		if strings.HasPrefix(cfg.URL, "mysql://") {
			return mysqlDSNFromURL(cfg.URL)
		}
		if _, err := mysqldriver.ParseDSN(cfg.URL); err != nil {
			return "", fmt.Errorf("mysql dsn: %w", err)
		}
		return cfg.URL, nil
	}

	port := cfg.Port
	if port == "" {
		port = "3306"
	}
	c := baseMySQLConfig()
	c.User = cfg.User
	c.Passwd = cfg.Pass
	c.Addr = net.JoinHostPort(cfg.Host, port)
	c.DBName = cfg.Name
	return c.FormatDSN(), nil
}

// PostgresDSN returns DATABASE_URL as is or a key=value DSN from DB_*.
func PostgresDSN(cfg DBConfig) string {
	if cfg.URL != "" {
		return cfg.URL
	}
	port := cfg.Port
	if port == "" {
		port = "5432"
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
		cfg.Host, port, cfg.User, cfg.Pass, cfg.Name)
}

// SQLiteDSN enables foreign keys and a busy timeout on the file database.
func SQLiteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?_foreign_keys=on&_busy_timeout=5000"
}

func gormLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info":
		return gormlogger.Info
	}
	return gormlogger.Warn
}

func dialector(cfg DBConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "", "mysql":
		dsn, err := MySQLDSN(cfg)
		if err != nil {
			return nil, err
		}
		return mysql.Open(dsn), nil
	case "postgres", "postgresql":
		return postgres.Open(PostgresDSN(cfg)), nil
	case "sqlite", "sqlite3":
		return sqlite.Open(SQLiteDSN(cfg.SQLitePath)), nil
	}
	return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Driver)
}

// OpenDatabase connects to the configured store and applies pool settings.
// SQLite is limited to one connection so writers queue instead of failing
// with SQLITE_BUSY.
func OpenDatabase(cfg DBConfig, zl *zap.Logger) (*gorm.DB, error) {
	if zl == nil {
		zl = zap.NewNop()
	}
	d, err := dialector(cfg)
	if err != nil {
		return nil, err
	}

	newLogger := gormlogger.New(
		zap.NewStdLog(zl.Named("gorm")),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormLogLevel(cfg.LogLevel),
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(d, &gorm.Config{Logger: newLogger})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", d.Name(), err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	if d.Name() == "sqlite" {
		sqlDB.SetMaxOpenConns(1)
	} else {
		if cfg.MaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		}
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	zl.Info("database connected", zap.String("driver", d.Name()))
	return db, nil
}

// Migrate creates or updates every table in parent -> child order.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.Tables()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// ConnectDatabase opens the store and migrates it.
func ConnectDatabase(cfg DBConfig, zl *zap.Logger) (*gorm.DB, error) {
	db, err := OpenDatabase(cfg, zl)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}
