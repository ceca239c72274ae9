package file

import (
	"context"
	"time"

	"github.com/pipewise/pipewise/pkg/models"
	"github.com/pipewise/pipewise/pkg/persistence"
)

// ScheduleRepository stores cron schedules, one document per schedule.
type ScheduleRepository struct {
	store *Persistence
}

func (r *ScheduleRepository) ListDue(ctx context.Context, now time.Time) ([]*models.Schedule, error) {
	schedules, err := readAll[models.Schedule](r.store, "schedules")
	if err != nil {
		return nil, err
	}

	due := make([]*models.Schedule, 0, len(schedules))

	for _, schedule := range schedules {
		if schedule.IsDue(now) {
			due = append(due, schedule)
		}
	}

	return due, nil
}

func (r *ScheduleRepository) Save(ctx context.Context, schedule *models.Schedule) error {
	err := schedule.Validate()
	if err != nil {
		return err
	}

	return r.store.write("schedules", schedule.ID, schedule)
}

func (r *ScheduleRepository) Delete(ctx context.Context, orgID, id string) error {
	schedule := &models.Schedule{}

	err := r.store.read("schedules", id, schedule, persistence.ErrScheduleNotFound)
	if err != nil {
		return err
	}

	if schedule.OrgID != orgID {
		return persistence.ErrScheduleNotFound
	}

	return r.store.remove("schedules", id)
}
