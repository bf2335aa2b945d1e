package service

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"k8s.io/utils/clock"

	"github.com/tuemi-io/tuemi/internal/incident"
	"github.com/tuemi-io/tuemi/internal/tuemi/core"
	"github.com/tuemi-io/tuemi/pkg/geo"
	"github.com/tuemi-io/tuemi/pkg/log"
)

// Config carries the tunables of the service. Zero values fall back to defaults.
type Config struct {
	// Clock is the time source; defaults to the real clock.
	Clock clock.PassiveClock

	// Thresholds feeds the incident heuristic; defaults to incident.DefaultThresholds.
	Thresholds incident.ThresholdSource

	SessionTTL       time.Duration
	EnrichTimeout    time.Duration
	ReportURLExpiry  time.Duration
	SuggestionRadius float64

	// RejoinSamples is how many consecutive deviating samples, each within the
	// deviation distance of the previous one, move the baseline onto the new path.
	RejoinSamples int

	Logger log.Logger
}

const (
	defaultSessionTTL       = 12 * time.Hour
	defaultEnrichTimeout    = 8 * time.Second
	defaultReportURLExpiry  = time.Hour
	defaultSuggestionRadius = 300.0
	defaultRejoinSamples    = 3
	minPasswordLength       = 8
)

// Service implements the use cases of TUEMI.
// It orchestrates calls between the model entities and the adapters (ports).
type Service struct {
	repo      core.Repository
	notifier  core.IncidentNotifier
	reports   core.ReportStorage
	assistant core.Assistant

	clock      clock.PassiveClock
	thresholds incident.ThresholdSource
	stops      *incident.StopTracker
	deviations *incident.DeviationTracker
	logger     log.Logger

	background sync.WaitGroup

	sessionTTL       time.Duration
	enrichTimeout    time.Duration
	reportURLExpiry  time.Duration
	suggestionRadius float64
	rejoinSamples    int
}

// New creates the TUEMI core service.
func New(
	repo core.Repository,
	notifier core.IncidentNotifier,
	reports core.ReportStorage,
	assistant core.Assistant,
	cfg Config,
) *Service {
	s := &Service{
		repo:             repo,
		notifier:         notifier,
		reports:          reports,
		assistant:        assistant,
		clock:            cfg.Clock,
		thresholds:       cfg.Thresholds,
		stops:            incident.NewStopTracker(),
		deviations:       incident.NewDeviationTracker(),
		logger:           cfg.Logger,
		sessionTTL:       cfg.SessionTTL,
		enrichTimeout:    cfg.EnrichTimeout,
		reportURLExpiry:  cfg.ReportURLExpiry,
		suggestionRadius: cfg.SuggestionRadius,
		rejoinSamples:    cfg.RejoinSamples,
	}
	if s.clock == nil {
		s.clock = clock.RealClock{}
	}
	if s.thresholds == nil {
		s.thresholds = incident.Static(incident.DefaultThresholds())
	}
	if s.logger == nil {
		s.logger = log.WithName("service")
	}
	if s.sessionTTL <= 0 {
		s.sessionTTL = defaultSessionTTL
	}
	if s.enrichTimeout <= 0 {
		s.enrichTimeout = defaultEnrichTimeout
	}
	if s.reportURLExpiry <= 0 {
		s.reportURLExpiry = defaultReportURLExpiry
	}
	if s.suggestionRadius <= 0 {
		s.suggestionRadius = defaultSuggestionRadius
	}
	if s.rejoinSamples <= 0 {
		s.rejoinSamples = defaultRejoinSamples
	}
	return s
}

// Thresholds returns the incident thresholds currently in effect.
func (s *Service) Thresholds() incident.Thresholds {
	return s.thresholds.Thresholds()
}

func (s *Service) now() time.Time {
	return s.clock.Now().UTC()
}

func newID() string {
	return uuid.NewString()
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), core.ErrInvalidArgument)
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return invalid("%s is required", field)
	}
	return nil
}

func validPoint(lat, lng float64) error {
	if !(geo.Point{Lat: lat, Lng: lng}).Valid() {
		return fmt.Errorf("coordinates (%v, %v): %w: %w", lat, lng, core.ErrInvalidArgument, incident.ErrInvalidPosition)
	}
	return nil
}

func validSpeed(speed float64) error {
	if math.IsNaN(speed) || math.IsInf(speed, 0) || speed < 0 {
		return fmt.Errorf("speed %v: %w: %w", speed, core.ErrInvalidArgument, incident.ErrInvalidInput)
	}
	return nil
}
