package service

import (
	"restaurant-pos/internal/microservices/tracker/repository"
)

type Service struct {
	TrackerService TrackerServiceInterface
}

func New(repo repository.TrackerRepoInterface, opts Options) *Service {
	return &Service{TrackerService: NewTrackerService(repo, opts)}
}
