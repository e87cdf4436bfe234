package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Logger     LoggerConfig
	Store      StoreConfig
	Database   DatabaseConfig
	SQLite     SQLiteConfig
	Archive    ArchiveConfig
	Kubernetes KubernetesConfig
	Roles      RolesConfig
	Metrics    MetricsConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
}

type LoggerConfig struct {
	Level  string
	Format string
}

// StoreConfig selects the entity store driver: memory, postgres or sqlite.
type StoreConfig struct {
	Driver string
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DSN returns a libpq style connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

type SQLiteConfig struct {
	Path string
}

// ArchiveConfig selects where purge manifests go: none, fs, memory or s3.
type ArchiveConfig struct {
	Driver string
	Root   string
	S3     S3Config
}

type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	PathStyle       bool
}

// KubernetesConfig enables reading role assignments from a ConfigMap.
type KubernetesConfig struct {
	Enabled        bool
	InCluster      bool
	KubeConfigPath string
	DefaultNS      string
	RolesConfigMap string
}

// RolesConfig holds static assignments keyed by user id, each value a comma
// separated list such as "SPACE_POWER_USER:LAB,INSTANCE_OBSERVER".
type RolesConfig struct {
	Static map[string]string
}

type MetricsConfig struct {
	Enabled bool
	Path    string
}

func Load() (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_SHUTDOWN_TIMEOUT", "10s")
	v.SetDefault("LOGGER_LEVEL", "info")
	v.SetDefault("LOGGER_FORMAT", "json")
	v.SetDefault("STORE_DRIVER", "memory")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "dms")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_NAME", "dms")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 2)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "30m")
	v.SetDefault("SQLITE_PATH", "dms.db")
	v.SetDefault("ARCHIVE_DRIVER", "none")
	v.SetDefault("ARCHIVE_ROOT", "./archive")
	v.SetDefault("ARCHIVE_S3_REGION", "us-east-1")
	v.SetDefault("ARCHIVE_S3_PATH_STYLE", false)
	v.SetDefault("K8S_ENABLED", false)
	v.SetDefault("K8S_IN_CLUSTER", false)
	v.SetDefault("K8S_DEFAULT_NAMESPACE", "dms")
	v.SetDefault("K8S_ROLES_CONFIGMAP", "dms-roles")
	v.SetDefault("ROLES_STATIC", "")
	v.SetDefault("METRICS_ENABLED", true)
	v.SetDefault("METRICS_PATH", "/metrics")

	// Env
	v.AutomaticEnv()

	shutdown, err := time.ParseDuration(v.GetString("SERVER_SHUTDOWN_TIMEOUT"))
	if err != nil {
		shutdown = 10 * time.Second
	}
	lifetime, err := time.ParseDuration(v.GetString("DB_CONN_MAX_LIFETIME"))
	if err != nil {
		lifetime = 30 * time.Minute
	}
	static, err := parseStaticRoles(v.GetString("ROLES_STATIC"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:            v.GetString("SERVER_HOST"),
			Port:            v.GetInt("SERVER_PORT"),
			ShutdownTimeout: shutdown,
		},
		Logger: LoggerConfig{
			Level:  v.GetString("LOGGER_LEVEL"),
			Format: v.GetString("LOGGER_FORMAT"),
		},
		Store: StoreConfig{
			Driver: strings.ToLower(v.GetString("STORE_DRIVER")),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetInt("DB_PORT"),
			User:            v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			Name:            v.GetString("DB_NAME"),
			SSLMode:         v.GetString("DB_SSLMODE"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: lifetime,
		},
		SQLite: SQLiteConfig{
			Path: v.GetString("SQLITE_PATH"),
		},
		Archive: ArchiveConfig{
			Driver: strings.ToLower(v.GetString("ARCHIVE_DRIVER")),
			Root:   v.GetString("ARCHIVE_ROOT"),
			S3: S3Config{
				Bucket:          v.GetString("ARCHIVE_S3_BUCKET"),
				Region:          v.GetString("ARCHIVE_S3_REGION"),
				Endpoint:        v.GetString("ARCHIVE_S3_ENDPOINT"),
				AccessKeyID:     v.GetString("ARCHIVE_S3_ACCESS_KEY_ID"),
				SecretAccessKey: v.GetString("ARCHIVE_S3_SECRET_ACCESS_KEY"),
				PathStyle:       v.GetBool("ARCHIVE_S3_PATH_STYLE"),
			},
		},
		Kubernetes: KubernetesConfig{
			Enabled:        v.GetBool("K8S_ENABLED"),
			InCluster:      v.GetBool("K8S_IN_CLUSTER"),
			KubeConfigPath: v.GetString("K8S_KUBECONFIG"),
			DefaultNS:      v.GetString("K8S_DEFAULT_NAMESPACE"),
			RolesConfigMap: v.GetString("K8S_ROLES_CONFIGMAP"),
		},
		Roles: RolesConfig{
			Static: static,
		},
		Metrics: MetricsConfig{
			Enabled: v.GetBool("METRICS_ENABLED"),
			Path:    v.GetString("METRICS_PATH"),
		},
	}

	switch cfg.Store.Driver {
	case "memory", "postgres", "sqlite":
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	return cfg, nil
}

// parseStaticRoles reads "user=ROLE,ROLE;user2=ROLE".
func parseStaticRoles(s string) (map[string]string, error) {
	out := make(map[string]string)
	for _, entry := range strings.Split(s, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		user, roles, ok := strings.Cut(entry, "=")
		user = strings.TrimSpace(user)
		if !ok || user == "" {
			return nil, fmt.Errorf("invalid ROLES_STATIC entry %q", entry)
		}
		out[user] = strings.TrimSpace(roles)
	}
	return out, nil
}
