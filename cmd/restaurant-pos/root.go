package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"restaurant-pos/internal/common/logger"
	"restaurant-pos/internal/config"
	"restaurant-pos/internal/connections/database"
	"restaurant-pos/internal/microservices/kitchen"
	"restaurant-pos/internal/microservices/notificator"
	"restaurant-pos/internal/microservices/order"
	"restaurant-pos/internal/microservices/order/repository"
	"restaurant-pos/internal/microservices/tracker"
	"restaurant-pos/internal/seed"
)

type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
}

func (a *app) load() error {
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

// bind ties a command flag to a config key so flags override file and environment values.
func (a *app) bind(cmd *cobra.Command, key, flag string) {
	cobra.CheckErr(a.v.BindPFlag(key, cmd.Flags().Lookup(flag)))
}

// serve runs fn under a context cancelled by SIGINT or SIGTERM.
func (a *app) serve(name string, fn func(ctx context.Context, cfg *config.Config, log *logger.Logger) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		log := logger.New(name)
		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		if err := fn(ctx, a.cfg, log); err != nil {
			log.Error("fatal", err, nil)
			return err
		}
		log.Info("service_stopped", nil)
		return nil
	}
}

func newRootCmd(a *app) *cobra.Command {
	a.v = viper.New()
	root := &cobra.Command{
		Use:           "restaurant-pos",
		Short:         "Order fulfillment for a restaurant point of sale",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return a.load()
		},
	}
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is ./config.yaml)")
	root.PersistentFlags().String("store", "", "fulfillment store: postgres | memory")
	a.bindPersistent(root, "fulfillment.store", "store")

	root.AddCommand(
		orderCmd(a),
		kitchenCmd(a),
		trackingCmd(a),
		notificationCmd(a),
		migrateCmd(a),
		seedCmd(a),
	)
	return root
}

func (a *app) bindPersistent(cmd *cobra.Command, key, flag string) {
	cobra.CheckErr(a.v.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)))
}

func orderCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "order-service",
		Short: "Serve the order, table and stock API",
		RunE:  a.serve("order-service", order.Run),
	}
	cmd.Flags().Int("port", 3000, "http port")
	cmd.Flags().Int("max-concurrent", 50, "max concurrent requests")
	a.bind(cmd, "http.port", "port")
	a.bind(cmd, "http.max_concurrent", "max-concurrent")
	return cmd
}

func kitchenCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kitchen-worker",
		Short: "Cook orders from kitchen_queue",
		RunE:  a.serve("kitchen-worker", kitchen.Run),
	}
	cmd.Flags().String("worker-name", "", "unique worker name")
	cmd.Flags().StringSlice("order-types", nil, "order kinds to handle (local, delivery); empty handles all")
	cmd.Flags().Int("prefetch", 1, "rabbitmq prefetch")
	cmd.Flags().Duration("heartbeat-interval", 0, "heartbeat interval")
	cmd.Flags().Duration("cook-time", 0, "simulated cooking time")
	a.bind(cmd, "kitchen.worker_name", "worker-name")
	a.bind(cmd, "kitchen.order_kinds", "order-types")
	a.bind(cmd, "kitchen.prefetch", "prefetch")
	a.bind(cmd, "kitchen.heartbeat_interval", "heartbeat-interval")
	a.bind(cmd, "kitchen.cook_time", "cook-time")
	return cmd
}

func trackingCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tracking-service",
		Short: "Serve order status, timelines and worker health",
		RunE:  a.serve("tracking-service", tracker.Run),
	}
	cmd.Flags().Int("port", 3002, "http port")
	a.bind(cmd, "tracker.port", "port")
	return cmd
}

func notificationCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "notification-subscriber",
		Short: "Print events from notifications_queue",
		RunE:  a.serve("notification-subscriber", notificator.Run),
	}
}

func migrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: a.serve("migrate", func(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
			db, err := database.ConnectDB(ctx, cfg.Database, log)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := database.Migrate(ctx, db); err != nil {
				return err
			}
			log.Info("schema_applied", nil)
			return nil
		}),
	}
}

func seedCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load demo ingredients, menu, tables and customers",
		RunE: a.serve("seed", func(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
			db, err := database.ConnectDB(ctx, cfg.Database, log)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := database.Migrate(ctx, db); err != nil {
				return err
			}
			_, err = seed.Run(ctx, repository.New(db), log, seed.Options{
				Tables: cfg.Seed.Tables, Customers: cfg.Seed.Customers, Seed: cfg.Seed.RandomSeed,
			})
			return err
		}),
	}
	cmd.Flags().Int("tables", 12, "number of tables")
	cmd.Flags().Int("customers", 50, "number of customers")
	cmd.Flags().Int64("random-seed", 1, "seed for generated customers")
	a.bind(cmd, "seed.tables", "tables")
	a.bind(cmd, "seed.customers", "customers")
	a.bind(cmd, "seed.random_seed", "random-seed")
	return cmd
}
