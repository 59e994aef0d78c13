// Package service installs homelab-remote as a systemd unit.
package service

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"text/template"
)

const (
	unitName     = "homelab-remote"
	unitFilePath = "/etc/systemd/system/homelab-remote.service"
)

var (
	ErrUnsupported = errors.New("systemd units are only supported on Linux with systemctl")
	ErrNotRoot     = errors.New("root privileges required")
)

// UnitStatus represents the state of the installed unit.
type UnitStatus struct {
	ActiveState string `json:"active_state"`
	SubState    string `json:"sub_state"`
	IsRunning   bool   `json:"is_running"`
	IsEnabled   bool   `json:"is_enabled"`
	IsInstalled bool   `json:"is_installed"`
}

// UnitConfig holds the values rendered into the unit file.
type UnitConfig struct {
	ExecPath   string
	ConfigPath string
	WorkingDir string
	EnvFile    string
}

// No User= line, the unit runs as root.
const unitTemplate = `[Unit]
Description=Homelab Remote - service control panel
After=network-online.target docker.service
Wants=network-online.target

[Service]
Type=simple
WorkingDirectory={{.WorkingDir}}
{{- if .EnvFile}}
EnvironmentFile=-{{.EnvFile}}
{{- end}}
ExecStart={{.ExecPath}} serve --config {{.ConfigPath}}
Restart=always
RestartSec=5
StandardOutput=journal
StandardError=journal

[Install]
WantedBy=multi-user.target
`

// Supported reports whether the host can run systemd units.
func Supported() bool {
	if runtime.GOOS != "linux" {
		return false
	}
	_, err := exec.LookPath("systemctl")
	return err == nil
}

// GenerateUnitFile renders the unit file content.
func GenerateUnitFile(cfg UnitConfig) (string, error) {
	tmpl, err := template.New("unit").Parse(unitTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse unit template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, cfg); err != nil {
		return "", fmt.Errorf("failed to execute unit template: %w", err)
	}

	return buf.String(), nil
}

// DefaultConfig points the unit at the running binary and the given config file.
func DefaultConfig(configPath string) (UnitConfig, error) {
	execPath, err := os.Executable()
	if err != nil {
		return UnitConfig{}, err
	}
	if resolved, err := filepath.EvalSymlinks(execPath); err == nil {
		execPath = resolved
	}

	configPath, err = filepath.Abs(configPath)
	if err != nil {
		return UnitConfig{}, err
	}
	dir := filepath.Dir(configPath)

	return UnitConfig{
		ExecPath:   execPath,
		ConfigPath: configPath,
		WorkingDir: dir,
		EnvFile:    filepath.Join(dir, ".env"),
	}, nil
}

// Install writes the unit file, then enables and starts it.
func Install(cfg UnitConfig) error {
	if err := checkHost(); err != nil {
		return err
	}

	content, err := GenerateUnitFile(cfg)
	if err != nil {
		return err
	}

	if err := os.WriteFile(unitFilePath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write unit file: %w", err)
	}

	if err := systemctl("daemon-reload"); err != nil {
		return fmt.Errorf("failed to reload systemd: %w", err)
	}
	if err := systemctl("enable", "--now", unitName); err != nil {
		return fmt.Errorf("failed to enable unit: %w", err)
	}

	return nil
}

// Uninstall stops, disables and removes the unit.
func Uninstall() error {
	if err := checkHost(); err != nil {
		return err
	}

	// Either may fail when the unit is already gone.
	_ = systemctl("stop", unitName)
	_ = systemctl("disable", unitName)

	if err := os.Remove(unitFilePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove unit file: %w", err)
	}

	if err := systemctl("daemon-reload"); err != nil {
		return fmt.Errorf("failed to reload systemd: %w", err)
	}

	return nil
}

// Status reports whether the unit is installed, enabled and running.
func Status() (*UnitStatus, error) {
	if !Supported() {
		return nil, ErrUnsupported
	}

	status := &UnitStatus{}
	if _, err := os.Stat(unitFilePath); err == nil {
		status.IsInstalled = true
	}

	if v, err := property("ActiveState"); err == nil {
		status.ActiveState = v
		status.IsRunning = v == "active"
	}
	if v, err := property("SubState"); err == nil {
		status.SubState = v
	}

	out, err := exec.Command("systemctl", "is-enabled", unitName).Output()
	if err == nil {
		status.IsEnabled = strings.TrimSpace(string(out)) == "enabled"
	}

	return status, nil
}

func checkHost() error {
	if !Supported() {
		return ErrUnsupported
	}
	if os.Geteuid() != 0 {
		return ErrNotRoot
	}
	return nil
}

func systemctl(args ...string) error {
	output, err := exec.Command("systemctl", args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

func property(name string) (string, error) {
	out, err := exec.Command("systemctl", "show", unitName, "--property="+name, "--value").Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
