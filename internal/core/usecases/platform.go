package usecases

import (
	"time"

	"github.com/samirrijal/geoanchor/internal/core/domain"
)

// SystemClock reads the local wall clock.
type SystemClock struct{}

// Now returns the current local time.
func (SystemClock) Now() time.Time { return time.Now() }

// NoopLocationService stands in on hosts without a platform location service.
// It always reports LocationRunning.
type NoopLocationService struct{}

func (NoopLocationService) Status() domain.LocationStatus { return domain.LocationRunning }
func (NoopLocationService) Start()                        {}
func (NoopLocationService) Stop()                         {}
