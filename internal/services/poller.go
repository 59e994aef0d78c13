package services

import (
	"context"
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/pandeptwidyaop/homelab-remote/internal/database"
	"github.com/pandeptwidyaop/homelab-remote/internal/models"
)

const eventRetention = 30 * 24 * time.Hour

// StatusPoller periodically probes every service and keeps the latest
// statuses in memory. Transitions are persisted and broadcast.
type StatusPoller struct {
	db         *database.DB
	controller *ServiceController
	interval   time.Duration
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup

	mu       sync.RWMutex
	statuses map[string]models.ServiceStatus

	tickMu sync.Mutex

	subsMu sync.RWMutex
	subs   []chan models.ServiceStatus
}

// NewStatusPoller creates a new StatusPoller instance. db may be nil, in
// which case transitions are only broadcast.
func NewStatusPoller(db *database.DB, controller *ServiceController, interval time.Duration) *StatusPoller {
	ctx, cancel := context.WithCancel(context.Background())
	return &StatusPoller{
		db:         db,
		controller: controller,
		interval:   interval,
		ctx:        ctx,
		cancel:     cancel,
		statuses:   make(map[string]models.ServiceStatus),
	}
}

// Start begins background polling.
func (p *StatusPoller) Start() {
	log.Printf("[Poller] Starting status polling (interval: %v, services: %d)", p.interval, len(p.controller.Services()))

	p.wg.Add(1)
	go p.pollLoop()

	if p.db != nil {
		p.wg.Add(1)
		go p.cleanupLoop()
	}
}

// Stop stops background polling and waits for the loops to exit.
func (p *StatusPoller) Stop() {
	log.Println("[Poller] Stopping status polling")
	p.cancel()
	p.wg.Wait()
	log.Println("[Poller] Status polling stopped")
}

func (p *StatusPoller) pollLoop() {
	defer p.wg.Done()

	// Poll immediately on start
	p.Refresh(p.ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.Refresh(p.ctx)
		}
	}
}

// Refresh runs one poll tick and swaps in the new statuses.
func (p *StatusPoller) Refresh(ctx context.Context) []models.ServiceStatus {
	p.tickMu.Lock()
	defer p.tickMu.Unlock()

	results := p.controller.ProbeAll(ctx)

	next := make(map[string]models.ServiceStatus, len(results))
	for _, s := range results {
		next[s.ID] = s
	}

	p.mu.Lock()
	prev := p.statuses
	p.statuses = next
	p.mu.Unlock()

	for _, s := range results {
		old, seen := prev[s.ID]
		if seen && old.Up == s.Up {
			continue
		}
		if seen {
			log.Printf("[Poller] %s is now %s", s.ID, upWord(s.Up))
		}
		p.recordEvent(s)
		p.broadcast(s)
	}

	return results
}

func upWord(up bool) string {
	if up {
		return "up"
	}
	return "down"
}

// Snapshot returns id -> up for every polled service.
func (p *StatusPoller) Snapshot() map[string]bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make(map[string]bool, len(p.statuses))
	for id, s := range p.statuses {
		out[id] = s.Up
	}
	return out
}

// Status returns the latest status of one service.
func (p *StatusPoller) Status(id string) (models.ServiceStatus, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.statuses[id]
	return s, ok
}

// Statuses returns the latest statuses in config order.
func (p *StatusPoller) Statuses() []models.ServiceStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]models.ServiceStatus, 0, len(p.statuses))
	for _, svc := range p.controller.Services() {
		if s, ok := p.statuses[svc.ID]; ok {
			out = append(out, s)
		}
	}
	return out
}

// Subscribe returns a channel that receives status transitions.
func (p *StatusPoller) Subscribe() chan models.ServiceStatus {
	ch := make(chan models.ServiceStatus, 32)

	p.subsMu.Lock()
	p.subs = append(p.subs, ch)
	p.subsMu.Unlock()

	return ch
}

// Unsubscribe removes and closes a channel returned by Subscribe.
func (p *StatusPoller) Unsubscribe(ch chan models.ServiceStatus) {
	p.subsMu.Lock()
	defer p.subsMu.Unlock()

	for i, c := range p.subs {
		if c == ch {
			p.subs = append(p.subs[:i], p.subs[i+1:]...)
			close(ch)
			break
		}
	}
}

func (p *StatusPoller) broadcast(s models.ServiceStatus) {
	p.subsMu.RLock()
	defer p.subsMu.RUnlock()

	for _, ch := range p.subs {
		select {
		case ch <- s:
		default:
		}
	}
}

func (p *StatusPoller) recordEvent(s models.ServiceStatus) {
	if p.db == nil {
		return
	}
	_, err := p.db.Exec(
		"INSERT INTO service_events (service_id, up, port_open, running, created_at) VALUES (?, ?, ?, ?, ?)",
		s.ID, s.Up, s.PortOpen, s.Running, s.CheckedAt.UTC(),
	)
	if err != nil {
		log.Printf("[Poller] Error recording event for %s: %v", s.ID, err)
	}
}

// Events returns the most recent transitions of a service, newest first.
func (p *StatusPoller) Events(serviceID string, limit int) ([]models.ServiceEvent, error) {
	events := make([]models.ServiceEvent, 0)
	if p.db == nil {
		return events, nil
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := p.db.Query(`
		SELECT id, service_id, up, port_open, running, created_at
		FROM service_events
		WHERE service_id = ?
		ORDER BY id DESC
		LIMIT ?
	`, serviceID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var e models.ServiceEvent
		var createdAt sql.NullTime
		if err := rows.Scan(&e.ID, &e.ServiceID, &e.Up, &e.PortOpen, &e.Running, &createdAt); err != nil {
			return nil, err
		}
		if createdAt.Valid {
			e.CreatedAt = createdAt.Time
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (p *StatusPoller) cleanupLoop() {
	defer p.wg.Done()

	p.cleanup()

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.cleanup()
		}
	}
}

// cleanup removes events older than the retention window.
func (p *StatusPoller) cleanup() {
	cutoff := time.Now().UTC().Add(-eventRetention)
	result, err := p.db.Exec("DELETE FROM service_events WHERE created_at < ?", cutoff)
	if err != nil {
		log.Printf("[Poller] Error cleaning up service_events: %v", err)
		return
	}
	if rows, _ := result.RowsAffected(); rows > 0 {
		log.Printf("[Poller] Cleaned up %d old service_events records", rows)
	}
}
