// Package scheduler runs the periodic jobs of the planner.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/envelope-zero/planner/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// DefaultSpec is used when no schedule is configured.
const DefaultSpec = "@every 15m"

// Locked counts the departments locked because their edit deadline passed.
var Locked = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "scheduler_departments_locked_total",
		Help: "How many departments have been locked after their edit deadline passed.",
	},
)

// LockExpired locks all departments whose edit deadline is before now and
// returns their codes.
func LockExpired(db *gorm.DB, now time.Time) ([]string, error) {
	var departments []models.Department
	err := db.
		Where("edit_locked = ?", false).
		Where("edit_deadline IS NOT NULL").
		Order("code").
		Find(&departments).Error
	if err != nil {
		return nil, err
	}

	codes := []string{}
	for _, d := range departments {
		if !errors.Is(d.CanEdit(now), models.ErrEditDeadlinePassed) {
			continue
		}

		err = db.Model(&d).Update("edit_locked", true).Error
		if err != nil {
			return codes, err
		}

		codes = append(codes, d.Code)
		Locked.Inc()
	}

	return codes, nil
}

// Scheduler locks departments on a cron schedule.
type Scheduler struct {
	cron *cron.Cron
	db   *gorm.DB
	now  func() time.Time
}

// New returns a scheduler that runs the deadline check on the standard
// cron spec. An empty spec uses DefaultSpec.
func New(db *gorm.DB, spec string) (*Scheduler, error) {
	if spec == "" {
		spec = DefaultSpec
	}

	s := &Scheduler{
		cron: cron.New(),
		db:   db,
		now:  func() time.Time { return time.Now().UTC() },
	}

	_, err := s.cron.AddFunc(spec, s.run)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	return s, nil
}

func (s *Scheduler) run() {
	codes, err := LockExpired(s.db, s.now())
	if err != nil {
		log.Error().Err(err).Msg("could not lock departments after their deadline")
		return
	}

	if len(codes) > 0 {
		log.Info().Strs("departments", codes).Msg("locked departments after their deadline")
	}
}

// Start runs the deadline check once and then starts the schedule.
func (s *Scheduler) Start() {
	s.run()
	s.cron.Start()

	log.Info().Time("next", s.cron.Entries()[0].Next).Msg("started scheduler")
}

// Stop stops the schedule. The returned context is done when running
// jobs have finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
