package websocket

import (
	"encoding/json"
	"net/http"
	"time"

	"food-dispatch/internal/common/auth"
	"food-dispatch/internal/common/logger"
	"food-dispatch/internal/common/model"
	commonws "food-dispatch/internal/common/websocket"
	"food-dispatch/internal/location/service"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type locationFrame struct {
	Type           string   `json:"type"`
	Latitude       float64  `json:"latitude"`
	Longitude      float64  `json:"longitude"`
	AccuracyMeters *float64 `json:"accuracy_meters,omitempty"`
	SpeedKmh       *float64 `json:"speed_kmh,omitempty"`
	HeadingDegrees *float64 `json:"heading_degrees,omitempty"`
}

// DriverWSHandler is the driver's realtime channel: inbound frames carry
// location fixes, outbound frames carry order/route notifications pushed
// through the hub. The first frame must be an auth message with a token.
func DriverWSHandler(w http.ResponseWriter, r *http.Request, hub *commonws.Hub, source *service.ChannelSource) {
	requestID := r.Header.Get("X-Request-ID")
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("ws_upgrade_failed", "Failed to upgrade connection", requestID, "", err.Error())
		return
	}

	// Читаем сообщение авторизации
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var authMsg model.Message
	if err := conn.ReadJSON(&authMsg); err != nil {
		logger.Error("ws_auth_read_failed", "Failed to read auth message", requestID, "", err.Error())
		conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"auth_timeout"}`))
		conn.Close()
		return
	}

	if authMsg.Type != "auth" {
		logger.Warn("ws_invalid_auth_message", "Invalid auth message type", requestID, "", "")
		conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"invalid_auth_message"}`))
		conn.Close()
		return
	}

	claims, err := auth.ValidateToken(authMsg.Token)
	if err != nil {
		logger.Warn("ws_invalid_token", "Driver token invalid", requestID, "", err.Error())
		conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"invalid_token"}`))
		conn.Close()
		return
	}
	if claims.Role != "DRIVER" {
		logger.Warn("ws_not_a_driver", "Token is not a driver token", requestID, "", "")
		conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"not_a_driver"}`))
		conn.Close()
		return
	}

	driverID := claims.UserID
	client := &commonws.Client{
		ID:            "driver_" + driverID,
		Conn:          conn,
		Send:          make(chan []byte, 256),
		Authenticated: true,
	}
	hub.AddClient(client)
	conn.WriteMessage(websocket.TextMessage, []byte(`{"status":"authenticated"}`))
	logger.Info("ws_driver_connected", "Driver connected: "+driverID, requestID, "")

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	// Горутина для отправки уведомлений водителю
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		defer conn.Close()

		for {
			select {
			case message, ok := <-client.Send:
				if !ok {
					return
				}
				if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
					logger.Error("ws_send_failed", "Error sending to driver "+driverID, requestID, "", err.Error())
					return
				}
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
					logger.Error("ws_ping_failed", "Ping failed for driver "+driverID, requestID, "", err.Error())
					return
				}
			}
		}
	}()

	// Read loop: location fixes from the driver app.
	defer func() {
		hub.RemoveClient(client.ID)
		conn.Close()
		logger.Info("ws_driver_disconnected", "Driver connection closed: "+driverID, requestID, "")
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))

		var frame locationFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			logger.Warn("ws_bad_frame", "Unparseable driver frame", requestID, "", err.Error())
			continue
		}
		if frame.Type != "location" {
			continue
		}

		source.Publish(model.LocationFix{
			DriverID:       driverID,
			Latitude:       frame.Latitude,
			Longitude:      frame.Longitude,
			AccuracyMeters: frame.AccuracyMeters,
			SpeedKmh:       frame.SpeedKmh,
			HeadingDegrees: frame.HeadingDegrees,
			RecordedAt:     time.Now().UTC(),
		})
	}
}
