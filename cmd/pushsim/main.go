package main

import (
	"context"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nimasrn/xpensemate/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type PushStatus string

const (
	StatusAccepted PushStatus = "ACCEPTED"
	StatusRejected PushStatus = "REJECTED"
)

// PushRequest mirrors what the alert processor sends for one budget alert.
type PushRequest struct {
	NotificationID int64  `json:"notification_id" binding:"required"`
	Title          string `json:"title" binding:"required"`
	Body           string `json:"body" binding:"required"`
	CategoryID     *int64 `json:"category_id"`
}

type PushResponse struct {
	PushID      string     `json:"push_id"`
	Status      PushStatus `json:"status"`
	Error       string     `json:"error,omitempty"`
	ProviderID  string     `json:"provider_id"`
	ProcessedAt time.Time  `json:"processed_at"`
}

type HealthResponse struct {
	Status      string    `json:"status"`
	ProviderID  string    `json:"provider_id"`
	Timestamp   time.Time `json:"timestamp"`
	FailureRate float64   `json:"failure_rate"`
	Delivered   int       `json:"delivered"`
}

// Simulator stands in for a device push provider. A share of requests equal
// to failureRate is rejected.
type Simulator struct {
	providerID  string
	failureRate float64

	mu        sync.Mutex
	rng       *rand.Rand
	delivered map[int64]string
}

func NewSimulator(failureRate float64, seed int64) *Simulator {
	return &Simulator{
		providerID:  "PUSHSIM_" + uuid.New().String()[:8],
		failureRate: failureRate,
		rng:         rand.New(rand.NewSource(seed)),
		delivered:   map[int64]string{},
	}
}

func (s *Simulator) push(req *PushRequest) *PushResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp := &PushResponse{
		PushID:      uuid.NewString(),
		ProviderID:  s.providerID,
		ProcessedAt: time.Now(),
	}
	if s.rng.Float64() < s.failureRate {
		resp.Status = StatusRejected
		resp.Error = "device token expired"
		log.Warn().Int64("notification_id", req.NotificationID).Msg("push rejected")
		return resp
	}

	resp.Status = StatusAccepted
	if prev, ok := s.delivered[req.NotificationID]; ok {
		log.Warn().Int64("notification_id", req.NotificationID).Str("previous_push_id", prev).Msg("duplicate push")
	}
	s.delivered[req.NotificationID] = resp.PushID
	log.Info().
		Int64("notification_id", req.NotificationID).
		Str("title", req.Title).
		Str("push_id", resp.PushID).
		Msg("push delivered")
	return resp
}

func (s *Simulator) deliveredCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.delivered)
}

type Handler struct {
	sim *Simulator
}

func NewHandler(sim *Simulator) *Handler {
	return &Handler{sim: sim}
}

func (h *Handler) Push(c *gin.Context) {
	var req PushRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	resp := h.sim.push(&req)
	status := http.StatusOK
	if resp.Status == StatusRejected {
		status = http.StatusAccepted
	}
	c.JSON(status, resp)
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:      "healthy",
		ProviderID:  h.sim.providerID,
		Timestamp:   time.Now(),
		FailureRate: h.sim.failureRate,
		Delivered:   h.sim.deliveredCount(),
	})
}

func SetupRouter(handler *Handler) *gin.Engine {
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

	v1 := router.Group("/api/v1")
	{
		v1.POST("/push", handler.Push)
	}
	router.GET("/health", handler.HealthCheck)

	return router
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Parse(argContainsEnvPath())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.AppEnv != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	log.Info().
		Int("port", cfg.PushSimPort).
		Float64("failure_rate", cfg.PushSimFailureRate).
		Msg("starting push simulator")

	router := SetupRouter(NewHandler(NewSimulator(cfg.PushSimFailureRate, time.Now().UnixNano())))
	srv := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.PushSimPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server started")
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
	log.Info().Msg("server exited")
}

func argContainsEnvPath() string {
	for _, v := range os.Args {
		if strings.HasPrefix(v, "--env=") {
			return strings.TrimPrefix(v, "--env=")
		}
	}
	return ""
}
