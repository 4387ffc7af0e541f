package stamp

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// Dashboard range limits, in days.
const (
	DefaultStatsDays = 14
	MaxStatsDays     = 90
)

// DailyCount is one point of a daily series.
type DailyCount struct {
	Date  string
	Count int
}

// CouponStats is the daily acquisition and redemption of one coupon id.
type CouponStats struct {
	CouponID      string
	Title         string
	Description   string
	Acquired      []DailyCount
	Used          []DailyCount
	TotalAcquired int
	TotalUsed     int
}

// DashboardStats summarizes a tenant's recent activity by tenant-local day.
type DashboardStats struct {
	RangeStart  string
	RangeEnd    string
	Days        int
	TotalUsers  int
	TotalStamps int
	DailyUsers  []DailyCount
	DailyStamps []DailyCount
	Coupons     []CouponStats
}

const dayLayout = "2006-01-02"

// DashboardStats returns the last days (1..90) of activity ending today in
// the tenant's timezone.
func (e *Engine) DashboardStats(ctx context.Context, tenantID string, days int) (DashboardStats, error) {
	if days < 1 || days > MaxStatsDays {
		return DashboardStats{}, &ValidationError{Field: "days", Message: fmt.Sprintf("must be within 1 and %d", MaxStatsDays)}
	}
	now := e.now()

	var out DashboardStats
	err := e.Repo.WithTx(ctx, tenantID, func(tx Tx) error {
		cfg, found, err := e.config(ctx, tx, now)
		if err != nil {
			return err
		}
		if !found {
			return &NotFoundError{Resource: "tenant", ID: tenantID}
		}

		local := now.In(cfg.Location)
		end := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, cfg.Location)
		start := end.AddDate(0, 0, -(days - 1))
		dates := make([]string, days)
		index := make(map[string]int, days)
		for i := range dates {
			dates[i] = start.AddDate(0, 0, i).Format(dayLayout)
			index[dates[i]] = i
		}
		bucket := func(t time.Time) (int, bool) {
			i, ok := index[t.In(cfg.Location).Format(dayLayout)]
			return i, ok
		}

		events, err := tx.StampEventsSince(ctx, start)
		if err != nil {
			return fmt.Errorf("load stamp events: %w", err)
		}
		stamps := make([]int, days)
		users := make([]map[int64]bool, days)
		allUsers := map[int64]bool{}
		total := 0
		for _, ev := range events {
			i, ok := bucket(ev.StampedAt)
			if !ok {
				continue
			}
			if users[i] == nil {
				users[i] = map[int64]bool{}
			}
			users[i][ev.UserID] = true
			allUsers[ev.UserID] = true
			stamps[i]++
			total++
		}

		coupons, err := tx.CouponsSince(ctx, start)
		if err != nil {
			return fmt.Errorf("load coupons: %w", err)
		}
		rules, err := tx.RewardRules(ctx)
		if err != nil {
			return fmt.Errorf("load reward rules: %w", err)
		}
		current := rulesByThreshold(rules)

		type series struct {
			stats    CouponStats
			acquired []int
			used     []int
		}
		byID := map[string]*series{}
		for _, c := range coupons {
			s, ok := byID[c.ID]
			if !ok {
				s = &series{
					stats:    CouponStats{CouponID: c.ID, Title: c.Title, Description: c.Description},
					acquired: make([]int, days),
					used:     make([]int, days),
				}
				if c.Threshold != nil {
					if r, ok := current[*c.Threshold]; ok {
						s.stats.Title = r.Label
					}
				}
				byID[c.ID] = s
			}
			if i, ok := bucket(c.CreatedAt); ok {
				s.acquired[i]++
			}
			if c.Used && c.UsedAt != nil {
				if i, ok := bucket(*c.UsedAt); ok {
					s.used[i]++
				}
			}
		}

		ids := make([]string, 0, len(byID))
		for id := range byID {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		out = DashboardStats{
			RangeStart:  dates[0],
			RangeEnd:    dates[days-1],
			Days:        days,
			TotalUsers:  len(allUsers),
			TotalStamps: total,
			DailyUsers:  make([]DailyCount, days),
			DailyStamps: make([]DailyCount, days),
			Coupons:     make([]CouponStats, 0, len(ids)),
		}
		for i, d := range dates {
			out.DailyUsers[i] = DailyCount{Date: d, Count: len(users[i])}
			out.DailyStamps[i] = DailyCount{Date: d, Count: stamps[i]}
		}
		for _, id := range ids {
			s := byID[id]
			s.stats.Acquired = make([]DailyCount, days)
			s.stats.Used = make([]DailyCount, days)
			for i, d := range dates {
				s.stats.Acquired[i] = DailyCount{Date: d, Count: s.acquired[i]}
				s.stats.Used[i] = DailyCount{Date: d, Count: s.used[i]}
				s.stats.TotalAcquired += s.acquired[i]
				s.stats.TotalUsed += s.used[i]
			}
			if s.stats.Title == "" {
				s.stats.Title = s.stats.CouponID
			}
			out.Coupons = append(out.Coupons, s.stats)
		}
		return nil
	})
	return out, err
}
