// Package config provides functionality for managing configuration options
// for the application using command-line flags, a JSON file and environment
// variables. Later sources override earlier ones.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Duration is a time.Duration that reads "24h" style strings from JSON.
type Duration struct {
	time.Duration
}

// UnmarshalJSON accepts either a duration string or a number of seconds.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		d.Duration = v
		return nil
	}
	var secs float64
	if err := json.Unmarshal(b, &secs); err != nil {
		return fmt.Errorf("duration must be a string or a number of seconds: %w", err)
	}
	d.Duration = time.Duration(secs * float64(time.Second))
	return nil
}

// MarshalJSON writes d as a duration string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// Options holds the configuration values for the application.
type Options struct {
	// Port defines the server's listening address (ip:port).
	Port string `json:"address"`

	// DatabaseDSN holds the database connection string for the application.
	DatabaseDSN string `json:"database_dsn"`

	// Config is the path to the Config file.
	Config string `json:"-"`

	// LogLevel is the minimum zap level.
	LogLevel string `json:"log_level"`

	JWTSecret  string   `json:"jwt_secret"`
	TokenTTL   Duration `json:"token_ttl"`
	BcryptCost int      `json:"bcrypt_cost"`

	BackupEnabled    bool     `json:"backup_enabled"`
	BackupInterval   Duration `json:"backup_interval"`
	BackupDir        string   `json:"backup_dir"`
	BackupPrefix     string   `json:"backup_prefix"`
	BackupRetention  int      `json:"backup_retention"`
	BackupAuditLimit int      `json:"backup_audit_limit"`

	// TLSCert and TLSKey enable HTTPS when both are set.
	TLSCert string `json:"tls_cert"`
	TLSKey  string `json:"tls_key"`
	// TLSAutoGenerate writes a development CA and server pair when the
	// configured files are missing.
	TLSAutoGenerate bool `json:"tls_autogenerate"`

	// LoginRate is the sustained login attempts per second per client IP.
	LoginRate  float64 `json:"login_rate"`
	LoginBurst int     `json:"login_burst"`

	AdminUsername string `json:"admin_username"`
	AdminEmail    string `json:"admin_email"`
	AdminPassword string `json:"admin_password"`

	MaxBodyBytes    int64    `json:"max_body_bytes"`
	ShutdownTimeout Duration `json:"shutdown_timeout"`
}

// Default returns the built-in configuration.
func Default() *Options {
	return &Options{
		Port:             "localhost:8080",
		Config:           "config.json",
		LogLevel:         "info",
		TokenTTL:         Duration{8 * time.Hour},
		BcryptCost:       12,
		BackupEnabled:    true,
		BackupInterval:   Duration{24 * time.Hour},
		BackupDir:        "backups",
		BackupPrefix:     "inei_backup",
		BackupRetention:  30,
		BackupAuditLimit: 1000,
		LoginRate:        0.2,
		LoginBurst:       5,
		AdminUsername:    "admin",
		AdminEmail:       "admin@inei.gob.pe",
		AdminPassword:    "admin123",
		MaxBodyBytes:     1 << 20,
		ShutdownTimeout:  Duration{15 * time.Second},
	}
}

// Parse parses the process flags and environment. It exits on invalid input.
func Parse() *Options {
	opts, err := ParseArgs(os.Args[1:], os.Getenv)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	return opts
}

// ParseArgs resolves the configuration from args, the JSON file they (or
// CONFIG) point to, and getenv.
func ParseArgs(args []string, getenv func(string) string) (*Options, error) {
	options := Default()

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.StringVar(&options.Port, "a", options.Port, "run on ip:port server")
	fs.StringVar(&options.DatabaseDSN, "d", options.DatabaseDSN, "db address")
	fs.StringVar(&options.Config, "config", options.Config, "path to config file")
	fs.StringVar(&options.Config, "c", options.Config, "path to config file (shorthand)")
	fs.StringVar(&options.LogLevel, "log-level", options.LogLevel, "log level (debug, info, warn, error)")
	fs.StringVar(&options.BackupDir, "backup-dir", options.BackupDir, "directory for backup archives")
	fs.StringVar(&options.TLSCert, "tls-cert", options.TLSCert, "TLS certificate file")
	fs.StringVar(&options.TLSKey, "tls-key", options.TLSKey, "TLS key file")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if configPath := getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}
	if options.Config != "" {
		data, err := os.ReadFile(options.Config)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("error while reading config file: %w", err)
		default:
			flagged := *options
			if err := json.Unmarshal(data, options); err != nil {
				return nil, fmt.Errorf("error while parsing config file: %w", err)
			}
			// explicit flags beat the file
			restoreFlagged(options, &flagged, set)
		}
	}

	if err := applyEnv(options, getenv); err != nil {
		return nil, err
	}
	return options, options.validate()
}

func restoreFlagged(dst, flagged *Options, set map[string]bool) {
	if set["a"] {
		dst.Port = flagged.Port
	}
	if set["d"] {
		dst.DatabaseDSN = flagged.DatabaseDSN
	}
	if set["log-level"] {
		dst.LogLevel = flagged.LogLevel
	}
	if set["backup-dir"] {
		dst.BackupDir = flagged.BackupDir
	}
	if set["tls-cert"] {
		dst.TLSCert = flagged.TLSCert
	}
	if set["tls-key"] {
		dst.TLSKey = flagged.TLSKey
	}
}

func applyEnv(o *Options, getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	str("SERVER_ADDRESS", &o.Port)
	str("DATABASE_DSN", &o.DatabaseDSN)
	str("LOG_LEVEL", &o.LogLevel)
	str("SECRET_KEY", &o.JWTSecret)
	str("BACKUP_DIR", &o.BackupDir)
	str("BACKUP_PREFIX", &o.BackupPrefix)
	str("TLS_CERT", &o.TLSCert)
	str("TLS_KEY", &o.TLSKey)
	str("ADMIN_USERNAME", &o.AdminUsername)
	str("ADMIN_EMAIL", &o.AdminEmail)
	str("ADMIN_PASSWORD", &o.AdminPassword)

	var errs []error
	integer := func(key string, apply func(int)) {
		v := getenv(key)
		if v == "" {
			return
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		apply(n)
	}
	boolean := func(key string, dst *bool) {
		v := getenv(key)
		if v == "" {
			return
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = b
	}
	duration := func(key string, dst *Duration) {
		v := getenv(key)
		if v == "" {
			return
		}
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		dst.Duration = d
	}

	integer("ACCESS_TOKEN_EXPIRE_MINUTES", func(n int) { o.TokenTTL.Duration = time.Duration(n) * time.Minute })
	duration("TOKEN_TTL", &o.TokenTTL)
	integer("BCRYPT_COST", func(n int) { o.BcryptCost = n })
	boolean("BACKUP_ENABLED", &o.BackupEnabled)
	integer("BACKUP_INTERVAL_HOURS", func(n int) { o.BackupInterval.Duration = time.Duration(n) * time.Hour })
	duration("BACKUP_INTERVAL", &o.BackupInterval)
	integer("BACKUP_RETENTION", func(n int) { o.BackupRetention = n })
	integer("BACKUP_AUDIT_LIMIT", func(n int) { o.BackupAuditLimit = n })
	boolean("TLS_AUTOGENERATE", &o.TLSAutoGenerate)
	integer("LOGIN_BURST", func(n int) { o.LoginBurst = n })
	if v := getenv("LOGIN_RATE"); v != "" {
		r, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("LOGIN_RATE: %w", err))
		} else {
			o.LoginRate = r
		}
	}
	integer("MAX_BODY_BYTES", func(n int) { o.MaxBodyBytes = int64(n) })
	duration("SHUTDOWN_TIMEOUT", &o.ShutdownTimeout)
	return errors.Join(errs...)
}

func (o *Options) validate() error {
	var errs []error
	if o.TokenTTL.Duration <= 0 {
		errs = append(errs, errors.New("token_ttl must be positive"))
	}
	if o.BackupEnabled && o.BackupInterval.Duration <= 0 {
		errs = append(errs, errors.New("backup_interval must be positive"))
	}
	if o.BackupRetention < 1 {
		errs = append(errs, errors.New("backup_retention must be at least 1"))
	}
	if (o.TLSCert == "") != (o.TLSKey == "") {
		errs = append(errs, errors.New("tls_cert and tls_key must be set together"))
	}
	if o.LoginRate <= 0 || o.LoginBurst < 1 {
		errs = append(errs, errors.New("login_rate and login_burst must be positive"))
	}
	return errors.Join(errs...)
}

// TLSEnabled reports whether the server should serve HTTPS.
func (o *Options) TLSEnabled() bool {
	return o.TLSCert != "" && o.TLSKey != ""
}
