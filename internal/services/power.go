package services

import (
	"context"
	"log"
	"time"
)

// shutdownDelay gives the HTTP response time to reach the caller.
const shutdownDelay = 500 * time.Millisecond

// PowerService powers the host off.
type PowerService struct {
	command string
	runner  CommandRunner
	audit   *AuditService
	delay   time.Duration
}

// NewPowerService creates a new PowerService instance.
func NewPowerService(command string, runner CommandRunner, audit *AuditService) *PowerService {
	return &PowerService{
		command: command,
		runner:  runner,
		audit:   audit,
		delay:   shutdownDelay,
	}
}

// Shutdown records the request and runs the shutdown command in the
// background after a short delay. The returned channel is closed once the
// command has finished.
func (s *PowerService) Shutdown(actor string) <-chan struct{} {
	_ = s.audit.Log(AuditLog{
		Actor:        actor,
		Action:       "shutdown",
		ResourceType: "host",
		Success:      true,
	})
	log.Printf("[Power] Shutdown requested by %s", actor)

	done := make(chan struct{})
	go func() {
		defer close(done)
		time.Sleep(s.delay)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if out, err := s.runner.Run(ctx, s.command); err != nil {
			log.Printf("[Power] Shutdown command failed: %v %s", err, out)
		}
	}()
	return done
}
