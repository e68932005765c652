package app

import (
	"context"
	"fmt"
	"sync"

	"fiscalgw/internal/config"
	"fiscalgw/internal/domain/ports"
	"fiscalgw/internal/infrastructure/storage"
	"fiscalgw/internal/service/gateway"
	"fiscalgw/pkg/fiscal"
)

// App wires the gateway together and tracks open printer sessions.
type App struct {
	Config  *config.Config
	Storage ports.ProfileRepository
	Gateway *gateway.Service

	mu       sync.RWMutex
	sessions map[string]*gateway.Session
}

// NewApp builds the application from its configuration.
func NewApp(cfg *config.Config, logger ports.Logger) (*App, error) {
	repo, err := storage.NewFileProfileRepository(cfg.Storage.ProfilesPath)
	if err != nil {
		return nil, fmt.Errorf("app: loading profiles: %w", err)
	}

	svc := gateway.NewService(repo, fiscal.DefaultRegistry(), logger, gateway.Options{
		PreferredBaudRate: cfg.Serial.PreferredBaudRate,
		DetectionTimeout:  cfg.DetectionTimeout(),
		Operator: fiscal.Credentials{
			OperatorID:       cfg.Operator.ID,
			OperatorPassword: cfg.Operator.Password,
		},
	})

	return &App{
		Config:   cfg,
		Storage:  repo,
		Gateway:  svc,
		sessions: make(map[string]*gateway.Session),
	}, nil
}

// Session returns the open session for a port, opening one on first
// use.
func (a *App) Session(ctx context.Context, port string) (*gateway.Session, error) {
	a.mu.RLock()
	session := a.sessions[port]
	a.mu.RUnlock()
	if session != nil {
		return session, nil
	}

	session, err := a.Gateway.OpenSession(ctx, port)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if existing := a.sessions[port]; existing != nil {
		session.Close()
		return existing, nil
	}
	a.sessions[port] = session
	return session, nil
}

// Close releases every open session.
func (a *App) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for port, session := range a.sessions {
		session.Close()
		delete(a.sessions, port)
	}
}
