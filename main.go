package main

import (
	"fmt"
	"log"
	"net/http"

	cmdDispatch "food-dispatch/cmd/dispatch-service"
	"food-dispatch/internal/common/cache"
	"food-dispatch/internal/common/config"
	"food-dispatch/internal/common/db"
	"food-dispatch/internal/common/logger"
	"food-dispatch/internal/common/mq"
	"food-dispatch/internal/common/websocket"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger.SetServiceName("dispatch-service")
	cfg.Print()

	pg, err := db.NewPostgres(
		cfg.Database.Host, cfg.Database.Port,
		cfg.Database.User, cfg.Database.Password, cfg.Database.Name,
	)
	if err != nil {
		log.Fatalf("db error: %v", err)
	}
	defer pg.Close()

	if err := pg.RunMigrations("migrations"); err != nil {
		log.Fatalf("migration error: %v", err)
	}

	rds, err := cache.NewRedis(
		cfg.Redis.Host, cfg.Redis.Port,
		cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.TTLSec,
	)
	if err != nil {
		log.Fatalf("redis error: %v", err)
	}
	defer rds.Close()

	rmq, err := mq.NewRabbitMQ(
		cfg.RabbitMQ.Host, cfg.RabbitMQ.Port,
		cfg.RabbitMQ.User, cfg.RabbitMQ.Password,
	)
	if err != nil {
		log.Fatalf("rabbitmq error: %v", err)
	}
	defer rmq.Close()

	mux := http.NewServeMux()
	hub := websocket.NewHub()

	cmdDispatch.Run(cfg, pg.Pool, rds, rmq, mux, hub)

	addr := fmt.Sprintf(":%d", cfg.Dispatch.Port)
	log.Printf("Dispatch service listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("http server error: %v", err)
	}
}
