package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Workspace WorkspaceConfig `mapstructure:"workspace"`
	Manifest  ManifestConfig  `mapstructure:"manifest"`
	Migrate   MigrateConfig   `mapstructure:"migrate"`
	Auth      AuthConfig      `mapstructure:"auth"`
	JWTSecret string          `mapstructure:"jwt_secret"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	Path     string `mapstructure:"path"` // directory for SQLite database files
}

// WorkspaceConfig addresses the generated application tree.
type WorkspaceConfig struct {
	Root   string `mapstructure:"root"`
	Module string `mapstructure:"module"`
}

type ManifestConfig struct {
	Path string `mapstructure:"path"`
}

// MigrateConfig carries the generate and apply commands the migration
// runner shells out to after schema changes. Empty means unconfigured.
type MigrateConfig struct {
	Generate []string `mapstructure:"generate"`
	Apply    []string `mapstructure:"apply"`
	Dir      string   `mapstructure:"dir"`
}

// AuthConfig is the single operator credential allowed to submit compile
// operations.
type AuthConfig struct {
	Username     string `mapstructure:"username"`
	PasswordHash string `mapstructure:"password_hash"`
}

// DSN returns the driver-specific data source name.
func (d DatabaseConfig) DSN() string {
	if d.Driver == "sqlite" {
		return d.Path + "/" + d.Name + ".db"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

// IsSQLite returns true if the driver is sqlite.
func (d DatabaseConfig) IsSQLite() bool {
	return d.Driver == "sqlite"
}

func Load() (*Config, error) {
	viper.SetConfigName("flowforge")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../..")

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.name", "app")
	viper.SetDefault("database.path", "./data")
	viper.SetDefault("workspace.root", "./app")
	viper.SetDefault("workspace.module", "app")
	viper.SetDefault("manifest.path", "./data/manifests.db")
	viper.SetDefault("migrate.dir", "")
	viper.SetDefault("auth.username", "admin")
	viper.SetDefault("jwt_secret", "changeme-secret")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}
