package service

import (
	"restaurant-pos/internal/common/logger"
	"restaurant-pos/internal/microservices/kitchen/repository"
)

type Service struct {
	KitchenService KitchenServiceInterface
}

func New(repo *repository.Repository, orders OrderAdvancer, consumer Consumer, log *logger.Logger, opts Options) *Service {
	return &Service{
		KitchenService: NewKitchenService(repo.WorkerRepo, orders, consumer, log, opts),
	}
}
