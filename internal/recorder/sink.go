package recorder

import (
	"log"
	"time"

	"github.com/inputsum/inputsum/internal/database"
	"github.com/inputsum/inputsum/internal/models"
	"github.com/inputsum/inputsum/pkg/event"
)

// StoreSink persists every event it receives. Inserts are synchronous on the
// dispatch loop's goroutine, matching the rest of attribution being on the
// critical path; sqlite inserts are cheap enough for input-event rates.
type StoreSink struct {
	repo *database.Repository
}

func NewStoreSink(repo *database.Repository) *StoreSink {
	return &StoreSink{repo: repo}
}

func (s *StoreSink) HandleEvent(ev event.Event) {
	record := &models.InputEvent{
		Timestamp: ev.Timestamp,
		AppName:   ev.App,
		Kind:      ev.Data.Kind(),
	}

	switch data := ev.Data.(type) {
	case event.KeyPress:
		record.Detail = data.Code
	case event.PointerPress:
		record.Detail = uint32(data.Button)
	case event.PointerMove:
		record.X = data.X
		record.Y = data.Y
	}

	if err := s.repo.Create(record); err != nil {
		log.Printf("Failed to store event: %v", err)
		s.storeError(err)
	}
}

func (s *StoreSink) storeError(err error) {
	errorLog := &models.ErrorLog{
		Timestamp: time.Now(),
		Source:    "storage",
		ErrorMsg:  err.Error(),
	}
	if dbErr := s.repo.CreateErrorLog(errorLog); dbErr != nil {
		log.Printf("Failed to store error in database: %v (original error: %v)", dbErr, err)
	}
}
