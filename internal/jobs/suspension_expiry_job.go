package jobs

import (
	"log"
	"time"

	"live-platform/internal/services"
)

// SuspensionExpiryJob periodically deactivates suspensions whose expiry
// has passed. Indefinite suspensions stay active until reviewed.
type SuspensionExpiryJob struct {
	service *services.SuspensionService
}

func NewSuspensionExpiryJob(service *services.SuspensionService) *SuspensionExpiryJob {
	return &SuspensionExpiryJob{
		service: service,
	}
}

// Start begins the periodic expiry sweep
func (j *SuspensionExpiryJob) Start(interval time.Duration) {
	go func() {
		// Run immediately on start
		if n, err := j.service.DeactivateExpired(); err != nil {
			log.Printf("Initial suspension expiry sweep error: %v", err)
		} else if n > 0 {
			log.Printf("Deactivated %d expired suspensions", n)
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for range ticker.C {
			n, err := j.service.DeactivateExpired()
			if err != nil {
				log.Printf("Suspension expiry sweep error: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("Deactivated %d expired suspensions", n)
			}
		}
	}()
}
