package jobs

import (
	"github.com/hibiken/asynq"

	"github.com/stagepass/api/internal/app"
	"github.com/stagepass/api/pkg/logger"
)

// WorkerConfig holds the configuration for the job worker.
type WorkerConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Concurrency   int
}

// Worker processes background jobs.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	logger *logger.Logger
}

// NewWorker creates a new background job worker.
func NewWorker(cfg WorkerConfig, dispatcher *app.InvitationDispatcher, log *logger.Logger) *Worker {
	server := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		},
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues: map[string]int{
				"default": 5,
				"email":   5,
			},
		},
	)

	mux := asynq.NewServeMux()

	membershipHandler := NewMembershipTaskHandler(dispatcher, log)
	mux.HandleFunc(TypeMembershipInvitation, membershipHandler.HandleInvitation)

	return &Worker{
		server: server,
		mux:    mux,
		logger: log,
	}
}

// Start starts the worker.
func (w *Worker) Start() error {
	w.logger.Info("starting job worker")
	return w.server.Start(w.mux)
}

// Stop stops the worker gracefully.
func (w *Worker) Stop() {
	w.logger.Info("stopping job worker")
	w.server.Shutdown()
}
