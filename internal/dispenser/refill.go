package dispenser

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"dispenser-tracker-backend/internal/model"
	"dispenser-tracker-backend/internal/parse"
)

// RecordRefill applies a refill to an instance and appends its audit entry.
// The level write and the log append share one transaction.
func (m *Manager) RecordRefill(ctx context.Context, dispenserID string, in RefillInput) (*model.RefillLog, error) {
	inst, err := m.store.GetInstance(ctx, dispenserID)
	if err != nil {
		if isMissing(err) {
			return nil, notFound("dispenser", dispenserID)
		}
		return nil, err
	}
	return m.recordRefill(ctx, inst, in, nil)
}

func (m *Manager) recordRefill(ctx context.Context, inst *model.MachineInstance, in RefillInput, done *model.TechnicianAssignment) (*model.RefillLog, error) {
	capacity := inst.RefillCapacityML

	levelBefore := inst.CurrentLevelML
	if in.LevelBeforeRefill != nil {
		if *in.LevelBeforeRefill >= 0 {
			levelBefore = *in.LevelBeforeRefill
		} else {
			m.log.Warn("ignoring negative level_before_refill",
				zap.String("dispenser_id", inst.ID),
				zap.Float64("value", *in.LevelBeforeRefill))
		}
	}

	newLevel := capLevel(levelBefore+in.RefillAmountML, capacity)

	levelAfter := newLevel
	if in.CurrentMLRefill != nil {
		if *in.CurrentMLRefill >= 0 {
			levelAfter = capLevel(*in.CurrentMLRefill, capacity)
		} else {
			m.log.Warn("ignoring negative current_ml_refill",
				zap.String("dispenser_id", inst.ID),
				zap.Float64("value", *in.CurrentMLRefill))
		}
	}

	now := m.utcNow()
	ts := now
	if in.Timestamp != nil && !in.Timestamp.IsZero() {
		ts = in.Timestamp.UTC()
	}

	prior, err := m.store.CountRefillLogs(ctx, inst.ID)
	if err != nil {
		return nil, err
	}
	count := int(prior) + 1

	fragrance := strings.TrimSpace(in.FragranceCode)
	if fragrance == "" {
		fragrance = parse.FragranceCode(in.Notes)
	}
	if fragrance == "" {
		fragrance = inst.FragranceCode
	}

	entry := &model.RefillLog{
		ID:                  refillID(now, inst.ID, count),
		DispenserID:         inst.ID,
		TechnicianUsername:  strings.TrimSpace(in.TechnicianUsername),
		RefillAmountML:      in.RefillAmountML,
		LevelBeforeRefill:   levelBefore,
		CurrentMLRefill:     levelAfter,
		FragranceCode:       fragrance,
		ClientID:            inst.ClientID,
		MachineUniqueCode:   inst.UniqueCode,
		Location:            inst.Location,
		InstallationDate:    inst.InstallationDate,
		NumberOfRefillsDone: count,
		Timestamp:           ts,
		Notes:               in.Notes,
	}

	inst.CurrentLevelML = levelAfter
	inst.LastRefillDate = &ts
	inst.UpdatedAt = now
	if done != nil {
		done.RefillLogID = strPtr(entry.ID)
	}

	if err := m.store.ApplyRefill(ctx, inst, entry, done); err != nil {
		if isMissing(err) {
			return nil, notFound("dispenser", inst.ID)
		}
		return nil, fmt.Errorf("record refill: %w", err)
	}

	m.log.Info("refill recorded",
		zap.String("dispenser_id", inst.ID),
		zap.String("refill_id", entry.ID),
		zap.Float64("level_before", levelBefore),
		zap.Float64("level_after", levelAfter),
		zap.Int("refill_number", count))
	return entry, nil
}

// capLevel keeps a level inside [0, capacity].
func capLevel(level, capacity float64) float64 {
	if capacity > 0 {
		level = math.Min(level, capacity)
	}
	return math.Max(level, 0)
}

// refillID builds refill_<yyyymmddHHMMSSffffff>_<last 6 of id>_<count>.
func refillID(at time.Time, dispenserID string, count int) string {
	stamp := strings.Replace(at.UTC().Format("20060102150405.000000"), ".", "", 1)
	suffix := dispenserID
	if len(suffix) > 6 {
		suffix = suffix[len(suffix)-6:]
	}
	return fmt.Sprintf("refill_%s_%s_%d", stamp, suffix, count)
}
