// Package recorder wires the RECORD transport, the window resolver and the
// dispatch loop into a runnable service.
package recorder

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/inputsum/inputsum/internal/config"
	"github.com/inputsum/inputsum/internal/database"
	"github.com/inputsum/inputsum/internal/models"
	"github.com/inputsum/inputsum/pkg/capture"
	"github.com/inputsum/inputsum/pkg/event"
	"github.com/inputsum/inputsum/pkg/x11"
)

type Service struct {
	config  *config.Config
	repo    *database.Repository
	sink    event.Sink
	running bool
}

// NewService builds a recording service delivering events to sink. repo may
// be nil when nothing needs the error log.
func NewService(cfg *config.Config, repo *database.Repository, sink event.Sink) *Service {
	return &Service{
		config: cfg,
		repo:   repo,
		sink:   sink,
	}
}

// Start connects to the X server, enables recording and runs the dispatch
// loop until the context is cancelled or the transport fails. It blocks for
// the lifetime of the recording session; the data connection cannot be
// shared with anything else while it runs.
func (s *Service) Start(ctx context.Context) error {
	if s.running {
		return fmt.Errorf("recorder is already running")
	}
	s.running = true
	defer func() { s.running = false }()

	transport, err := x11.Connect(s.config.Recorder.Display)
	if err != nil {
		s.storeError(err)
		return fmt.Errorf("failed to set up recording: %w", err)
	}

	resolver, err := x11.NewResolver(transport.Client())
	if err != nil {
		transport.Close()
		s.storeError(err)
		return fmt.Errorf("failed to set up window resolver: %w", err)
	}

	// Closing the transport disables the recording context, which is the
	// only way to unblock the receive loop.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			transport.Close()
		case <-done:
			transport.Close()
		}
	}()

	log.Println("Recording global input events...")

	dispatcher := capture.NewDispatcher(resolver, s.sink)
	if err := dispatcher.Run(transport); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.storeError(err)
		return fmt.Errorf("recording stopped: %w", err)
	}

	log.Println("Recording stopped")
	return ctx.Err()
}

func (s *Service) IsRunning() bool {
	return s.running
}

func (s *Service) storeError(err error) {
	if s.repo == nil {
		return
	}

	errorLog := &models.ErrorLog{
		Timestamp: time.Now(),
		Source:    "recorder",
		ErrorMsg:  err.Error(),
	}

	if dbErr := s.repo.CreateErrorLog(errorLog); dbErr != nil {
		log.Printf("Failed to store error in database: %v (original error: %v)", dbErr, err)
	} else {
		log.Printf("Error logged to database: %v", err)
	}
}
