// Command webhook-sink is a development receiver for admin notifications.
// It accepts what the processor delivers, keeps the latest ones in memory
// and can be told to reject a share of deliveries to exercise failover.
package main

import (
	"context"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type DeliveryStatus string

const (
	StatusAccepted DeliveryStatus = "ACCEPTED"
	StatusRejected DeliveryStatus = "REJECTED"
)

type Notification struct {
	ID             string    `json:"id" binding:"required"`
	Kind           string    `json:"kind" binding:"required"`
	ResetRequestID int64     `json:"reset_request_id"`
	Message        string    `json:"message"`
	OccurredAt     time.Time `json:"occurred_at"`
}

type NotifyResponse struct {
	NotificationID string         `json:"notification_id"`
	Status         DeliveryStatus `json:"status"`
	ReceivedAt     time.Time      `json:"received_at"`
	SinkID         string         `json:"sink_id"`
}

type HealthResponse struct {
	Status     string    `json:"status"`
	SinkID     string    `json:"sink_id"`
	Timestamp  time.Time `json:"timestamp"`
	AcceptRate float64   `json:"accept_rate"`
	Received   int       `json:"received"`
}

// Sink records received notifications, keeping at most capacity of them.
type Sink struct {
	mu         sync.Mutex
	id         string
	acceptRate float64
	capacity   int
	received   []Notification
	rng        *rand.Rand
}

func NewSink(acceptRate float64, capacity int) *Sink {
	return &Sink{
		id:         "SINK_" + uuid.NewString()[:8],
		acceptRate: acceptRate,
		capacity:   capacity,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *Sink) accept(n Notification) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rng.Float64() >= s.acceptRate {
		return false
	}
	s.received = append(s.received, n)
	if len(s.received) > s.capacity {
		s.received = s.received[len(s.received)-s.capacity:]
	}
	return true
}

func (s *Sink) snapshot() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Notification, len(s.received))
	copy(out, s.received)
	return out
}

type Handler struct {
	sink *Sink
}

func NewHandler(sink *Sink) *Handler {
	return &Handler{sink: sink}
}

// Notify answers 200 ACCEPTED, or 503 REJECTED when the simulated receiver
// drops the delivery.
func (h *Handler) Notify(c *gin.Context) {
	var n Notification
	if err := c.ShouldBindJSON(&n); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification", "details": err.Error()})
		return
	}

	resp := NotifyResponse{NotificationID: n.ID, ReceivedAt: time.Now().UTC(), SinkID: h.sink.id}
	if !h.sink.accept(n) {
		resp.Status = StatusRejected
		log.Warn().Str("notification_id", n.ID).Str("kind", n.Kind).Msg("notification rejected")
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}

	resp.Status = StatusAccepted
	log.Info().
		Str("notification_id", n.ID).
		Str("kind", n.Kind).
		Int64("reset_request_id", n.ResetRequestID).
		Str("message", n.Message).
		Msg("notification received")
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) List(c *gin.Context) {
	c.JSON(http.StatusOK, h.sink.snapshot())
}

func (h *Handler) Health(c *gin.Context) {
	h.sink.mu.Lock()
	rate := h.sink.acceptRate
	h.sink.mu.Unlock()

	c.JSON(http.StatusOK, HealthResponse{
		Status:     "healthy",
		SinkID:     h.sink.id,
		Timestamp:  time.Now().UTC(),
		AcceptRate: rate,
		Received:   len(h.sink.snapshot()),
	})
}

func (h *Handler) UpdateConfig(c *gin.Context) {
	var req struct {
		AcceptRate *float64 `json:"accept_rate"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}
	if req.AcceptRate == nil || *req.AcceptRate < 0 || *req.AcceptRate > 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "accept_rate must be between 0 and 1"})
		return
	}

	h.sink.mu.Lock()
	h.sink.acceptRate = *req.AcceptRate
	h.sink.mu.Unlock()
	log.Info().Float64("rate", *req.AcceptRate).Msg("updated accept rate")
	c.JSON(http.StatusOK, gin.H{"accept_rate": *req.AcceptRate})
}

func SetupRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("request processed")
	})

	router.POST("/notify", h.Notify)
	router.GET("/notifications", h.List)
	router.GET("/health", h.Health)
	router.PUT("/config", h.UpdateConfig)
	return router
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	port := getEnv("PORT", "8081")
	acceptRate := getEnvFloat("ACCEPT_RATE", 1)
	capacity := int(getEnvFloat("CAPACITY", 1000))

	log.Info().Str("port", port).Float64("accept_rate", acceptRate).Int("capacity", capacity).Msg("starting webhook sink")

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      SetupRouter(NewHandler(NewSink(acceptRate, capacity))),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}
	log.Info().Msg("webhook sink stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
