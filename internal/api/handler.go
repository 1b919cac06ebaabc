package api

import (
	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"dispenser-tracker-backend/internal/dispenser"
	"dispenser-tracker-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	manager *dispenser.Manager
	store   store.Store
	webpush *webpush.Options
	log     *zap.Logger
}

// NewHandler creates a new API handler.
func NewHandler(m *dispenser.Manager, webpushOptions *webpush.Options, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		manager: m,
		store:   m.Store(),
		webpush: webpushOptions,
		log:     log.Named("api"),
	}
}
