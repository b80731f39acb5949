package handler

import (
	"restaurant-pos/internal/common/logger"
	"restaurant-pos/internal/microservices/tracker/service"
)

type Handler struct {
	TrackerHandler *TrackerHandler
}

func New(svc service.TrackerServiceInterface, log *logger.Logger) *Handler {
	return &Handler{
		TrackerHandler: NewTrackerHandler(svc, log),
	}
}
