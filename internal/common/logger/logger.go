package logger

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Structured log line, one JSON object per line on stdout.
type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Service   string `json:"service"`
	Action    string `json:"action"`
	Message   string `json:"message"`
	Hostname  string `json:"hostname"`
	RequestID string `json:"request_id"`
	OrderID   string `json:"order_id,omitempty"`
	Error     *struct {
		Msg string `json:"msg"`
	} `json:"error,omitempty"`
}

var hostname, _ = os.Hostname()

var serviceName = "unknown-service"

// SetServiceName is called once by each service entrypoint.
func SetServiceName(name string) {
	serviceName = name
}

func Info(action, message, requestID, orderID string) {
	output(LogEntry{
		Timestamp: time.Now().Format(time.RFC3339),
		Level:     "INFO",
		Service:   serviceName,
		Action:    action,
		Message:   message,
		Hostname:  hostname,
		RequestID: requestID,
		OrderID:   orderID,
	})
}

func Debug(action, message, requestID, orderID string) {
	output(LogEntry{
		Timestamp: time.Now().Format(time.RFC3339),
		Level:     "DEBUG",
		Service:   serviceName,
		Action:    action,
		Message:   message,
		Hostname:  hostname,
		RequestID: requestID,
		OrderID:   orderID,
	})
}

func Warn(action, message, requestID, orderID, errMsg string) {
	entry := LogEntry{
		Timestamp: time.Now().Format(time.RFC3339),
		Level:     "WARN",
		Service:   serviceName,
		Action:    action,
		Message:   message,
		Hostname:  hostname,
		RequestID: requestID,
		OrderID:   orderID,
	}
	if errMsg != "" {
		entry.Error = &struct {
			Msg string `json:"msg"`
		}{Msg: errMsg}
	}
	output(entry)
}

func Error(action, message, requestID, orderID, errMsg string) {
	output(LogEntry{
		Timestamp: time.Now().Format(time.RFC3339),
		Level:     "ERROR",
		Service:   serviceName,
		Action:    action,
		Message:   message,
		Hostname:  hostname,
		RequestID: requestID,
		OrderID:   orderID,
		Error: &struct {
			Msg string `json:"msg"`
		}{Msg: errMsg},
	})
}

func output(entry LogEntry) {
	jsonData, _ := json.Marshal(entry)
	fmt.Println(string(jsonData))
}
