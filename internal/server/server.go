package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/berfenger/sunspecmon/internal/config"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/prometheus/client_golang/prometheus"
)

type Server struct {
	port        uint
	httpLog     bool
	timeout     time.Duration
	rootContext *actor.RootContext
	masterActor *actor.PID
	gatherer    prometheus.Gatherer
}

func NewServer(cfg config.Config, rootContext *actor.RootContext, masterActor *actor.PID, gatherer prometheus.Gatherer) *http.Server {
	NewServer := newServer(cfg, rootContext, masterActor, gatherer)

	// Declare Server config
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", NewServer.port),
		Handler:      NewServer.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return server
}

func newServer(cfg config.Config, rootContext *actor.RootContext, masterActor *actor.PID, gatherer prometheus.Gatherer) *Server {
	return &Server{
		port:        cfg.Port,
		httpLog:     cfg.HttpLog,
		timeout:     cfg.Gateway.RequestTimeout() + 2*time.Second,
		rootContext: rootContext,
		masterActor: masterActor,
		gatherer:    gatherer,
	}
}
