package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

// Config はアプリケーション全体の設定を表現します。
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Source    SourceConfig    `yaml:"source"`
	Sync      SyncConfig      `yaml:"sync"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig は gRPC サーバーと管理用 HTTP サーバーに関する設定です。
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	// AdminAddr は /metrics と /healthz を公開するアドレスです。空の場合は起動しません。
	AdminAddr string `yaml:"admin_addr"`
}

// DatabaseConfig は PostgreSQL 接続に関する設定です。
type DatabaseConfig struct {
	Host               string        `yaml:"host"`
	Port               int           `yaml:"port"`
	User               string        `yaml:"user"`
	Password           string        `yaml:"password"`
	Name               string        `yaml:"name"`
	SSLMode            string        `yaml:"ssl_mode"`
	MaxOpenConns       int           `yaml:"max_open_conns"`
	MaxIdleConns       int           `yaml:"max_idle_conns"`
	ConnMaxLifetime    time.Duration `yaml:"-"`
	ConnMaxIdleTime    time.Duration `yaml:"-"`
	ConnMaxLifetimeRaw string        `yaml:"conn_max_lifetime"`
	ConnMaxIdleTimeRaw string        `yaml:"conn_max_idle_time"`
}

// SourceConfig は抽出元 (TOTVS RM の SQL Server) への読み取り専用接続の設定です。
type SourceConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	Database     string `yaml:"database"`
	Instance     string `yaml:"instance"`
	Encrypt      string `yaml:"encrypt"`
	MaxOpenConns int    `yaml:"max_open_conns"`

	QueryTimeout    time.Duration `yaml:"-"`
	QueryTimeoutRaw string        `yaml:"query_timeout"`

	// RosterQueryFile と LeaveQueryFile は組み込み SQL を差し替える場合のみ指定します。
	RosterQueryFile string `yaml:"roster_query_file"`
	LeaveQueryFile  string `yaml:"leave_query_file"`

	Breaker BreakerConfig `yaml:"breaker"`
}

// BreakerConfig は抽出元に対するサーキットブレーカーの設定です。
type BreakerConfig struct {
	ConsecutiveFailures uint32        `yaml:"consecutive_failures"`
	OpenTimeout         time.Duration `yaml:"-"`
	OpenTimeoutRaw      string        `yaml:"open_timeout"`
}

// SyncConfig は同期処理の設定です。
type SyncConfig struct {
	WindowTimeout    time.Duration `yaml:"-"`
	WindowTimeoutRaw string        `yaml:"window_timeout"`
	Parallel         bool          `yaml:"parallel"`
}

// SchedulerConfig は日次同期の設定です。
type SchedulerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	DailyAt  string `yaml:"daily_at"`
	Timezone string `yaml:"timezone"`

	Hour     int            `yaml:"-"`
	Minute   int            `yaml:"-"`
	Location *time.Location `yaml:"-"`
}

// LogConfig はロガーの設定です。
type LogConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	ServiceName string `yaml:"service_name"`
	Environment string `yaml:"environment"`
}

const (
	defaultSourcePort         = 1433
	defaultQueryTimeout       = 2 * time.Minute
	defaultBreakerFailures    = 3
	defaultBreakerOpenTimeout = time.Minute
	defaultWindowTimeout      = 5 * time.Minute
	defaultSchedulerDailyAt   = "10:05"
	defaultSchedulerTimezone  = "America/Sao_Paulo"
	defaultLogLevel           = "info"
	defaultLogFormat          = "json"
	defaultServiceName        = "dp-roster-sync"
	defaultEnvironment        = "local"
)

// Load は指定されたパスから設定ファイルを読み込みます。
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := cfg.validateAndNormalize(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validateAndNormalize() error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("config: server.listen_addr must be set")
	}

	if err := c.Database.validateAndNormalize(); err != nil {
		return err
	}
	if err := c.Source.validateAndNormalize(); err != nil {
		return err
	}
	if err := c.Sync.validateAndNormalize(); err != nil {
		return err
	}
	if err := c.Scheduler.validateAndNormalize(); err != nil {
		return err
	}
	c.Log.normalize()

	return nil
}

func (d *DatabaseConfig) validateAndNormalize() error {
	if d.Host == "" {
		return fmt.Errorf("config: database.host must be set")
	}
	if d.Port == 0 {
		return fmt.Errorf("config: database.port must be set")
	}
	if d.User == "" {
		return fmt.Errorf("config: database.user must be set")
	}
	if d.Password == "" {
		return fmt.Errorf("config: database.password must be set")
	}
	if d.Name == "" {
		return fmt.Errorf("config: database.name must be set")
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}

	lifetime, err := parseDurationAllowEmpty(d.ConnMaxLifetimeRaw)
	if err != nil {
		return fmt.Errorf("config: database.conn_max_lifetime: %w", err)
	}
	d.ConnMaxLifetime = lifetime

	idleTime, err := parseDurationAllowEmpty(d.ConnMaxIdleTimeRaw)
	if err != nil {
		return fmt.Errorf("config: database.conn_max_idle_time: %w", err)
	}
	d.ConnMaxIdleTime = idleTime

	return nil
}

func (s *SourceConfig) validateAndNormalize() error {
	if s.Host == "" {
		return fmt.Errorf("config: source.host must be set")
	}
	if s.User == "" {
		return fmt.Errorf("config: source.user must be set")
	}
	if s.Database == "" {
		return fmt.Errorf("config: source.database must be set")
	}
	if s.Port == 0 && s.Instance == "" {
		s.Port = defaultSourcePort
	}
	if s.Encrypt == "" {
		s.Encrypt = "disable"
	}

	timeout, err := parseDurationAllowEmpty(s.QueryTimeoutRaw)
	if err != nil {
		return fmt.Errorf("config: source.query_timeout: %w", err)
	}
	if timeout == 0 {
		timeout = defaultQueryTimeout
	}
	s.QueryTimeout = timeout

	if s.Breaker.ConsecutiveFailures == 0 {
		s.Breaker.ConsecutiveFailures = defaultBreakerFailures
	}
	openTimeout, err := parseDurationAllowEmpty(s.Breaker.OpenTimeoutRaw)
	if err != nil {
		return fmt.Errorf("config: source.breaker.open_timeout: %w", err)
	}
	if openTimeout == 0 {
		openTimeout = defaultBreakerOpenTimeout
	}
	s.Breaker.OpenTimeout = openTimeout

	return nil
}

func (s *SyncConfig) validateAndNormalize() error {
	timeout, err := parseDurationAllowEmpty(s.WindowTimeoutRaw)
	if err != nil {
		return fmt.Errorf("config: sync.window_timeout: %w", err)
	}
	if timeout == 0 {
		timeout = defaultWindowTimeout
	}
	s.WindowTimeout = timeout
	return nil
}

func (s *SchedulerConfig) validateAndNormalize() error {
	if s.DailyAt == "" {
		s.DailyAt = defaultSchedulerDailyAt
	}
	hour, minute, err := parseClock(s.DailyAt)
	if err != nil {
		return fmt.Errorf("config: scheduler.daily_at: %w", err)
	}
	s.Hour, s.Minute = hour, minute

	if s.Timezone == "" {
		s.Timezone = defaultSchedulerTimezone
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return fmt.Errorf("config: scheduler.timezone: %w", err)
	}
	s.Location = loc

	return nil
}

func (l *LogConfig) normalize() {
	if l.Level == "" {
		l.Level = defaultLogLevel
	}
	if l.Format == "" {
		l.Format = defaultLogFormat
	}
	if l.ServiceName == "" {
		l.ServiceName = defaultServiceName
	}
	if l.Environment == "" {
		l.Environment = defaultEnvironment
	}
}

func parseDurationAllowEmpty(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	return d, nil
}

// parseClock は "HH:MM" 形式の時刻を解釈します。
func parseClock(raw string) (int, int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(raw), ":")
	if !ok {
		return 0, 0, fmt.Errorf("expected HH:MM, got %q", raw)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", raw)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", raw)
	}
	return hour, minute, nil
}

// DSN は pgx 用の接続文字列を返します。
func (d DatabaseConfig) DSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	return u.String()
}

// DSN は go-mssqldb 用の接続文字列を返します。接続は常に読み取り専用の意図で開きます。
func (s SourceConfig) DSN() string {
	q := url.Values{}
	q.Set("database", s.Database)
	q.Set("encrypt", s.Encrypt)
	q.Set("ApplicationIntent", "ReadOnly")
	q.Set("app name", defaultServiceName)

	host := s.Host
	if s.Port > 0 {
		host = fmt.Sprintf("%s:%d", s.Host, s.Port)
	}

	u := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(s.User, s.Password),
		Host:     host,
		RawQuery: q.Encode(),
	}
	if s.Instance != "" {
		u.Path = "/" + s.Instance
	}
	return u.String()
}
