// Package config loads and validates the YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"runtime"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Service kinds understood by the controller.
const (
	KindDocker  = "docker"
	KindExe     = "exe"
	KindCommand = "command"
	KindService = "service"
)

// Backup modes.
const (
	BackupModeGit = "git"
	BackupModeZip = "zip"
)

var serviceIDPattern = regexp.MustCompile(`^[a-z0-9_-]{1,64}$`)

type Config struct {
	Server   ServerConfig    `yaml:"server"`
	Database DatabaseConfig  `yaml:"database"`
	Auth     AuthConfig      `yaml:"auth"`
	Poller   PollerConfig    `yaml:"poller"`
	Power    PowerConfig     `yaml:"power"`
	Services []ServiceConfig `yaml:"services"`
	Backup   BackupConfig    `yaml:"backup"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// PublicIP is the address remote clients are redirected to. Detected when empty.
	PublicIP string `yaml:"public_ip"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type AuthConfig struct {
	// PasswordHash is either a bcrypt hash or a hex encoded SHA-256 digest.
	PasswordHash string   `yaml:"password_hash"`
	TOTPSecret   string   `yaml:"totp_secret"`
	LocalBypass  *bool    `yaml:"local_bypass"`
	TrustedIPs   []string `yaml:"trusted_ips"`
	BcryptCost   int      `yaml:"bcrypt_cost"`
}

// IsLocalBypassEnabled reports whether local callers skip the password check.
func (c *AuthConfig) IsLocalBypassEnabled() bool {
	if c.LocalBypass == nil {
		return true
	}
	return *c.LocalBypass
}

type PollerConfig struct {
	Interval    string `yaml:"interval"`
	PortTimeout string `yaml:"port_timeout"`
}

func (c *PollerConfig) GetInterval() time.Duration {
	d, err := time.ParseDuration(c.Interval)
	if err != nil || d <= 0 {
		return time.Second
	}
	return d
}

func (c *PollerConfig) GetPortTimeout() time.Duration {
	d, err := time.ParseDuration(c.PortTimeout)
	if err != nil || d <= 0 {
		return 100 * time.Millisecond
	}
	return d
}

type PowerConfig struct {
	ShutdownCommand string `yaml:"shutdown_command"`
}

// ServiceConfig describes one controllable home-lab service.
type ServiceConfig struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	Image       string `yaml:"image" json:"image,omitempty"`
	Port        int    `yaml:"port" json:"port"`
	Kind        string `yaml:"kind" json:"kind"`
	Container   string `yaml:"container" json:"container,omitempty"`
	Start       string `yaml:"start" json:"-"`
	Stop        string `yaml:"stop" json:"-"`
	Process     string `yaml:"process" json:"-"`
	Unit        string `yaml:"unit" json:"-"`
	// RequireAll marks a service as up only when the port is open and the
	// runtime check passes. Plex keeps its port bound after exiting.
	RequireAll bool `yaml:"require_all" json:"require_all"`
}

// ContainerName returns the docker container name, defaulting to the ID.
func (s *ServiceConfig) ContainerName() string {
	if s.Container != "" {
		return s.Container
	}
	return s.ID
}

// ProcessName returns the process image name used for exe services.
func (s *ServiceConfig) ProcessName() string {
	if s.Process != "" {
		return s.Process
	}
	return baseName(s.Start)
}

// UnitName returns the host service unit name, defaulting to the ID.
func (s *ServiceConfig) UnitName() string {
	if s.Unit != "" {
		return s.Unit
	}
	return s.ID
}

// DisplayName returns Name or falls back to the ID.
func (s *ServiceConfig) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.ID
}

type BackupConfig struct {
	Enabled       bool              `yaml:"enabled"`
	CheckInterval string            `yaml:"check_interval"`
	Jobs          []BackupJobConfig `yaml:"jobs"`
}

func (c *BackupConfig) GetCheckInterval() time.Duration {
	d, err := time.ParseDuration(c.CheckInterval)
	if err != nil || d <= 0 {
		return 5 * time.Second
	}
	return d
}

// BackupJobConfig is a (source, destination) pair copied on an interval.
type BackupJobConfig struct {
	Name        string   `yaml:"name" json:"name"`
	Source      string   `yaml:"source" json:"source"`
	Sources     []string `yaml:"sources" json:"sources,omitempty"`
	Destination string   `yaml:"destination" json:"destination"`
	Interval    string   `yaml:"interval" json:"interval"`
	Mode        string   `yaml:"mode" json:"mode"`
	Remote      string   `yaml:"remote" json:"remote,omitempty"`
	Branch      string   `yaml:"branch" json:"branch,omitempty"`
	S3          S3Config `yaml:"s3" json:"s3"`
}

// AllSources returns Source followed by Sources, skipping empty entries.
func (j *BackupJobConfig) AllSources() []string {
	var out []string
	if j.Source != "" {
		out = append(out, j.Source)
	}
	for _, s := range j.Sources {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (j *BackupJobConfig) GetInterval() time.Duration {
	d, err := time.ParseDuration(j.Interval)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

type S3Config struct {
	Bucket          string `yaml:"bucket" json:"bucket,omitempty"`
	Prefix          string `yaml:"prefix" json:"prefix,omitempty"`
	Region          string `yaml:"region" json:"region,omitempty"`
	Endpoint        string `yaml:"endpoint" json:"endpoint,omitempty"`
	AccessKeyID     string `yaml:"access_key_id" json:"-"`
	SecretAccessKey string `yaml:"secret_access_key" json:"-"`
}

// Enabled reports whether archives should be uploaded.
func (c *S3Config) Enabled() bool {
	return c.Bucket != ""
}

// Load reads the config at path. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(&cfg)
	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("HOMELAB_PASSWORD_HASH"); v != "" {
		cfg.Auth.PasswordHash = v
	}
	if v := os.Getenv("HOMELAB_TOTP_SECRET"); v != "" {
		cfg.Auth.TOTPSecret = v
	}
	if v := os.Getenv("HOMELAB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("HOMELAB_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("HOMELAB_PUBLIC_IP"); v != "" {
		cfg.Server.PublicIP = v
	}
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5000
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "./data/homelab.db"
	}
	if cfg.Auth.BcryptCost == 0 {
		cfg.Auth.BcryptCost = 12
	}
	if cfg.Poller.Interval == "" {
		cfg.Poller.Interval = "1s"
	}
	if cfg.Poller.PortTimeout == "" {
		cfg.Poller.PortTimeout = "100ms"
	}
	if cfg.Power.ShutdownCommand == "" {
		cfg.Power.ShutdownCommand = DefaultShutdownCommand(runtime.GOOS)
	}
	if cfg.Backup.CheckInterval == "" {
		cfg.Backup.CheckInterval = "5s"
	}

	for i := range cfg.Services {
		if cfg.Services[i].Kind == "" {
			cfg.Services[i].Kind = KindDocker
		}
	}
	for i := range cfg.Backup.Jobs {
		job := &cfg.Backup.Jobs[i]
		if job.Mode == "" {
			job.Mode = BackupModeGit
		}
		if job.Interval == "" {
			job.Interval = "1h"
		}
		if job.Branch == "" {
			job.Branch = "master"
		}
		if job.Name == "" {
			job.Name = job.Source + " -> " + job.Destination
		}
	}
}

// DefaultShutdownCommand returns the power-off command for the given GOOS.
func DefaultShutdownCommand(goos string) string {
	if goos == "windows" {
		return "shutdown /s /f /t 0"
	}
	return "shutdown -h now"
}

// Validate checks the service and backup definitions.
func (c *Config) Validate() error {
	var errs []error

	seen := make(map[string]bool)
	for _, s := range c.Services {
		if !serviceIDPattern.MatchString(s.ID) {
			errs = append(errs, fmt.Errorf("service %q: id must match %s", s.ID, serviceIDPattern))
			continue
		}
		if seen[s.ID] {
			errs = append(errs, fmt.Errorf("service %q: duplicate id", s.ID))
		}
		seen[s.ID] = true

		if s.Port < 0 || s.Port > 65535 {
			errs = append(errs, fmt.Errorf("service %q: port %d out of range", s.ID, s.Port))
		}

		switch s.Kind {
		case KindDocker, KindService:
		case KindExe, KindCommand:
			if s.Start == "" {
				errs = append(errs, fmt.Errorf("service %q: kind %s requires start", s.ID, s.Kind))
			}
		default:
			errs = append(errs, fmt.Errorf("service %q: unknown kind %q", s.ID, s.Kind))
		}
	}

	jobs := make(map[string]bool)
	for _, j := range c.Backup.Jobs {
		if len(j.AllSources()) == 0 || j.Destination == "" {
			errs = append(errs, fmt.Errorf("backup job %q: source and destination are required", j.Name))
		}
		if jobs[j.Name] {
			errs = append(errs, fmt.Errorf("backup job %q: duplicate name", j.Name))
		}
		jobs[j.Name] = true
		if j.Mode != BackupModeGit && j.Mode != BackupModeZip {
			errs = append(errs, fmt.Errorf("backup job %q: unknown mode %q", j.Name, j.Mode))
		}
	}

	return errors.Join(errs...)
}

// FindService returns the service with the given ID.
func (c *Config) FindService(id string) (*ServiceConfig, bool) {
	for i := range c.Services {
		if c.Services[i].ID == id {
			return &c.Services[i], true
		}
	}
	return nil, false
}

// FindJob returns the backup job with the given name.
func (c *Config) FindJob(name string) (*BackupJobConfig, bool) {
	for i := range c.Backup.Jobs {
		if c.Backup.Jobs[i].Name == name {
			return &c.Backup.Jobs[i], true
		}
	}
	return nil, false
}

// baseName strips both slash styles so Windows paths resolve on any host.
func baseName(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' || path[i] == '\\' {
			return path[i+1:]
		}
	}
	return path
}
