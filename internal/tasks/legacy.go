package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// LegacyKey is where older installs kept every day in a single record.
const LegacyKey = "daily-tasks"

type legacyState struct {
	Current *DailyTasks  `json:"current"`
	History []DailyTasks `json:"history"`
}

// ImportLegacy splits a single-record {current, history} blob into per-date
// records and removes it. Existing per-date records are never overwritten,
// and when several legacy entries share a date the first one wins. It
// returns the number of days written. A malformed blob is logged and kept.
func ImportLegacy(ctx context.Context, repo Repository, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}

	raw, ok, err := repo.Get(ctx, LegacyKey)
	if err != nil {
		return 0, fmt.Errorf("read legacy record: %w", err)
	}
	if !ok {
		return 0, nil
	}

	var st legacyState
	if err := json.Unmarshal(raw, &st); err != nil {
		logger.Warn("legacy_record_malformed", slog.String("error", err.Error()))
		return 0, nil
	}

	days := make([]DailyTasks, 0, len(st.History)+1)
	if st.Current != nil {
		days = append(days, *st.Current)
	}
	days = append(days, st.History...)

	seen := make(map[string]bool, len(days))
	written := 0
	for _, d := range days {
		if _, err := ParseDate(d.Date); err != nil {
			logger.Warn("legacy_day_skipped", slog.String("date", d.Date))
			continue
		}
		if seen[d.Date] {
			continue
		}
		seen[d.Date] = true

		_, exists, err := repo.Get(ctx, DayKey(d.Date))
		if err != nil {
			return written, fmt.Errorf("read day %s: %w", d.Date, err)
		}
		if exists {
			continue
		}
		if d.Tasks == nil {
			d.Tasks = []Task{}
		}
		b, err := json.Marshal(d)
		if err != nil {
			return written, err
		}
		if err := repo.Put(ctx, DayKey(d.Date), b); err != nil {
			return written, err
		}
		written++
	}

	if err := repo.Delete(ctx, LegacyKey); err != nil {
		return written, fmt.Errorf("remove legacy record: %w", err)
	}
	logger.Info("legacy_import_done", slog.Int("days", written))
	return written, nil
}
