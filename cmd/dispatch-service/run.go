package dispatch_service

import (
	"context"
	"log"
	"net/http"

	adminhandler "food-dispatch/internal/admin/handler"
	adminrepo "food-dispatch/internal/admin/repository"
	adminservice "food-dispatch/internal/admin/service"
	"food-dispatch/internal/common/auth"
	"food-dispatch/internal/common/cache"
	"food-dispatch/internal/common/config"
	commonmq "food-dispatch/internal/common/mq"
	commonrmq "food-dispatch/internal/common/rmq"
	commonws "food-dispatch/internal/common/websocket"
	locationhandler "food-dispatch/internal/location/handler"
	locationrepo "food-dispatch/internal/location/repository"
	locationservice "food-dispatch/internal/location/service"
	locationws "food-dispatch/internal/location/websocket"
	orderhandler "food-dispatch/internal/order/handler"
	orderrepo "food-dispatch/internal/order/repository"
	orderservice "food-dispatch/internal/order/service"
	routehandler "food-dispatch/internal/route/handler"
	routerepo "food-dispatch/internal/route/repository"
	routermq "food-dispatch/internal/route/rmq"
	routeservice "food-dispatch/internal/route/service"

	"github.com/jackc/pgx/v5/pgxpool"
)

func Run(cfg *config.Config, pool *pgxpool.Pool, rds *cache.Redis, commonMq *commonmq.RabbitMQ, mux *http.ServeMux, hub *commonws.Hub) {
	log.Println("Starting Dispatch Service...")

	rmqClient, err := routermq.NewClient(commonMq.URL)
	if err != nil {
		log.Fatalf("failed to init dispatch rmq client: %v", err)
	}

	locRepo := locationrepo.NewLocationRepository(pool, rds.Client, rds.TTL)
	source := locationservice.NewChannelSource()
	tracker := locationservice.NewTrackerService(locRepo, source, rmqClient)

	ordRepo := orderrepo.NewOrderRepository(pool)
	feed := orderservice.NewFeedService(ordRepo, locRepo)

	rtRepo := routerepo.NewRouteRepository(pool)
	routes := routeservice.NewRouteManager(rtRepo, locRepo, rmqClient, hub, cfg.Dispatch.MaxOrders)

	// External order status changes (kitchen marks READY, customer cancels).
	err = rmqClient.ConsumeOrderEvents("dispatch_order_events", func(msg commonrmq.OrderStatusMessage) {
		routes.HandleOrderEvent(context.Background(), msg)
	})
	if err != nil {
		log.Fatalf("failed to start order events consumer: %v", err)
	}

	lh := locationhandler.NewHandler(tracker)
	oh := orderhandler.NewHandler(feed, cfg.Dispatch.AvailableLimit)
	rh := routehandler.NewHandler(routes)

	ar := adminrepo.NewAdminRepository(pool)
	ah := adminhandler.NewAdminHandler(adminservice.NewAdminService(ar, locRepo))

	mux.HandleFunc("POST /auth/token", auth.GetTokenHandler())

	mux.Handle("POST /drivers/{driver_id}/online", auth.RequireDriver(http.HandlerFunc(lh.GoOnline)))
	mux.Handle("POST /drivers/{driver_id}/offline", auth.RequireDriver(http.HandlerFunc(lh.GoOffline)))
	mux.Handle("POST /drivers/{driver_id}/location", auth.RequireDriver(http.HandlerFunc(lh.Location)))

	mux.Handle("GET /drivers/{driver_id}/orders/available", auth.RequireDriver(http.HandlerFunc(oh.Available)))
	mux.Handle("GET /drivers/{driver_id}/orders/{order_id}", auth.RequireDriver(http.HandlerFunc(oh.Detail)))

	mux.Handle("POST /drivers/{driver_id}/orders/{order_id}/accept", auth.RequireDriver(http.HandlerFunc(rh.Accept)))
	mux.Handle("POST /drivers/{driver_id}/orders/{order_id}/pickup-complete", auth.RequireDriver(http.HandlerFunc(rh.StartDelivery)))
	mux.Handle("POST /drivers/{driver_id}/orders/{order_id}/deliver", auth.RequireDriver(http.HandlerFunc(rh.Deliver)))
	mux.Handle("GET /drivers/{driver_id}/route", auth.RequireDriver(http.HandlerFunc(rh.ActiveRoute)))

	mux.HandleFunc("GET /admin/overview", ah.GetDispatchOverview)
	mux.HandleFunc("GET /admin/routes", ah.GetActiveRoutes)
	mux.HandleFunc("GET /admin/drivers/nearby", ah.GetNearbyDrivers)

	mux.HandleFunc("GET /ws/driver", func(w http.ResponseWriter, r *http.Request) {
		locationws.DriverWSHandler(w, r, hub, source)
	})

	log.Printf("Dispatch Service running and registered routes")
}
