package notificator

import (
	"context"
	"errors"

	"restaurant-pos/internal/common/logger"
	"restaurant-pos/internal/config"
	"restaurant-pos/internal/connections/rabbitmq"
	"restaurant-pos/internal/microservices/notificator/service"
)

func Run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	if !cfg.RabbitMQ.Enabled {
		return errors.New("notification subscriber needs rabbitmq enabled")
	}
	client, err := rabbitmq.Dial(cfg.RabbitMQ)
	if err != nil {
		return err
	}
	defer client.Close()
	if err := client.DeclareTopology(); err != nil {
		return err
	}
	return service.New(client, log).NotificatorService.Run(ctx)
}
