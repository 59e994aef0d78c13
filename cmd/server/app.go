package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log"

	"github.com/pandeptwidyaop/homelab-remote/internal/config"
	"github.com/pandeptwidyaop/homelab-remote/internal/database"
	"github.com/pandeptwidyaop/homelab-remote/internal/probe"
	"github.com/pandeptwidyaop/homelab-remote/internal/router"
	"github.com/pandeptwidyaop/homelab-remote/internal/services"
)

// cliActor is recorded in the audit log for actions run from the command line.
const cliActor = "cli"

// app holds the services shared by serve and the one-shot commands.
type app struct {
	cfg        *config.Config
	db         *database.DB
	audit      *services.AuditService
	auth       *services.AuthService
	docker     *services.DockerRuntime
	controller *services.ServiceController
	poller     *services.StatusPoller
	backups    *services.BackupService
	power      *services.PowerService
}

// loadConfig falls back to the defaults only when the file does not exist.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}

	log.Printf("Warning: Could not load config from %s: %v", path, err)
	log.Println("Using default configuration...")
	return config.Load("")
}

func newApp(configPath string) (*app, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}

	db, err := database.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	serverIP := cfg.Server.PublicIP
	if serverIP == "" {
		serverIP = probe.LocalIP()
	}

	commands := services.NewShellRunner()
	docker := services.NewDockerRuntime()
	audit := services.NewAuditService(db)
	controller := services.NewServiceController(cfg, docker, services.NewHostProcesses(), commands, audit)

	return &app{
		cfg:        cfg,
		db:         db,
		audit:      audit,
		auth:       services.NewAuthService(cfg, serverIP),
		docker:     docker,
		controller: controller,
		poller:     services.NewStatusPoller(db, controller, cfg.Poller.GetInterval()),
		backups:    services.NewBackupService(db, cfg, commands, services.NewAWSUploader(), audit),
		power:      services.NewPowerService(cfg.Power.ShutdownCommand, commands, audit),
	}, nil
}

func (a *app) services() router.Services {
	return router.Services{
		Auth:       a.auth,
		Controller: a.controller,
		Poller:     a.poller,
		Backups:    a.backups,
		Audit:      a.audit,
		Power:      a.power,
	}
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		log.Printf("Error closing database: %v", err)
	}
}
