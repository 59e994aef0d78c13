// Package models defines the data shared between services, handlers and storage.
package models

import "time"

// ServiceStatus is the result of probing one service.
type ServiceStatus struct {
	CheckedAt  time.Time `json:"checked_at"`
	ID         string    `json:"id"`
	Error      string    `json:"error,omitempty"`
	Up         bool      `json:"up"`
	PortOpen   bool      `json:"port_open"`
	Running    bool      `json:"running"`
	RequireAll bool      `json:"require_all"`
}

// ServiceEvent records an up/down transition observed by the poller.
type ServiceEvent struct {
	CreatedAt time.Time `json:"created_at"`
	ServiceID string    `json:"service_id"`
	ID        int64     `json:"id"`
	Up        bool      `json:"up"`
	PortOpen  bool      `json:"port_open"`
	Running   bool      `json:"running"`
}

// ServiceView is the dashboard representation of a configured service.
type ServiceView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image,omitempty"`
	Kind        string `json:"kind"`
	Status      string `json:"status"`
	ServerIP    string `json:"server_ip"`
	URL         string `json:"url"`
	Port        int    `json:"port"`
	Up          bool   `json:"up"`
}
