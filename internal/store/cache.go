package store

import (
	"context"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"dispenser-tracker-backend/internal/model"
)

const (
	templatePrefix = "template:"
	schedulePrefix = "schedule:"
)

// cachedStore is a read-through cache over the template and schedule
// collections. Every write to a collection drops all of its cached entries.
// Values are copied in and out so callers may mutate what they receive.
type cachedStore struct {
	Store
	c *cache.Cache
}

// NewCachedStore wraps next with a TTL cache for templates and schedules.
func NewCachedStore(next Store, ttl time.Duration) Store {
	return &cachedStore{
		Store: next,
		c:     cache.New(ttl, 2*ttl),
	}
}

func (s *cachedStore) invalidate(prefix string) {
	for key := range s.c.Items() {
		if strings.HasPrefix(key, prefix) {
			s.c.Delete(key)
		}
	}
}

func (s *cachedStore) ListTemplates(ctx context.Context) ([]model.MachineTemplate, error) {
	if v, ok := s.c.Get(templatePrefix + "*"); ok {
		return append([]model.MachineTemplate(nil), v.([]model.MachineTemplate)...), nil
	}
	templates, err := s.Store.ListTemplates(ctx)
	if err != nil {
		return nil, err
	}
	s.c.SetDefault(templatePrefix+"*", append([]model.MachineTemplate(nil), templates...))
	return templates, nil
}

func (s *cachedStore) GetTemplate(ctx context.Context, id string) (*model.MachineTemplate, error) {
	return s.template(ctx, "id:"+id, func() (*model.MachineTemplate, error) {
		return s.Store.GetTemplate(ctx, id)
	})
}

func (s *cachedStore) GetTemplateBySKU(ctx context.Context, sku string) (*model.MachineTemplate, error) {
	return s.template(ctx, "sku:"+sku, func() (*model.MachineTemplate, error) {
		return s.Store.GetTemplateBySKU(ctx, sku)
	})
}

func (s *cachedStore) template(_ context.Context, key string, load func() (*model.MachineTemplate, error)) (*model.MachineTemplate, error) {
	key = templatePrefix + key
	if v, ok := s.c.Get(key); ok {
		t := v.(model.MachineTemplate)
		return &t, nil
	}
	t, err := load()
	if err != nil {
		return nil, err
	}
	s.c.SetDefault(key, *t)
	return t, nil
}

func (s *cachedStore) CreateTemplate(ctx context.Context, t *model.MachineTemplate) error {
	defer s.invalidate(templatePrefix)
	return s.Store.CreateTemplate(ctx, t)
}

func (s *cachedStore) UpdateTemplate(ctx context.Context, t *model.MachineTemplate) error {
	defer s.invalidate(templatePrefix)
	return s.Store.UpdateTemplate(ctx, t)
}

func (s *cachedStore) DeleteTemplate(ctx context.Context, id string) error {
	defer s.invalidate(templatePrefix)
	return s.Store.DeleteTemplate(ctx, id)
}

func (s *cachedStore) ListSchedules(ctx context.Context) ([]model.Schedule, error) {
	if v, ok := s.c.Get(schedulePrefix + "*"); ok {
		return cloneSchedules(v.([]model.Schedule)), nil
	}
	schedules, err := s.Store.ListSchedules(ctx)
	if err != nil {
		return nil, err
	}
	s.c.SetDefault(schedulePrefix+"*", cloneSchedules(schedules))
	return schedules, nil
}

func (s *cachedStore) GetSchedule(ctx context.Context, id string) (*model.Schedule, error) {
	key := schedulePrefix + "id:" + id
	if v, ok := s.c.Get(key); ok {
		sch := cloneSchedule(v.(model.Schedule))
		return &sch, nil
	}
	sch, err := s.Store.GetSchedule(ctx, id)
	if err != nil {
		return nil, err
	}
	s.c.SetDefault(key, cloneSchedule(*sch))
	return sch, nil
}

func (s *cachedStore) SaveSchedule(ctx context.Context, sch *model.Schedule) error {
	defer s.invalidate(schedulePrefix)
	return s.Store.SaveSchedule(ctx, sch)
}

func (s *cachedStore) DeleteSchedule(ctx context.Context, id string) error {
	defer s.invalidate(schedulePrefix)
	return s.Store.DeleteSchedule(ctx, id)
}

func cloneSchedules(in []model.Schedule) []model.Schedule {
	out := make([]model.Schedule, len(in))
	for i := range in {
		out[i] = cloneSchedule(in[i])
	}
	return out
}

func cloneSchedule(s model.Schedule) model.Schedule {
	if s.TimeRanges != nil {
		s.TimeRanges = append(make([]model.ScheduleTimeRange, 0, len(s.TimeRanges)), s.TimeRanges...)
	}
	if s.Intervals != nil {
		s.Intervals = append(make([]model.ScheduleInterval, 0, len(s.Intervals)), s.Intervals...)
	}
	if s.DaysOfWeek != nil {
		s.DaysOfWeek = append(make([]byte, 0, len(s.DaysOfWeek)), s.DaysOfWeek...)
	}
	return s
}
