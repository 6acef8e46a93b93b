package schedule

import "github.com/fyrsmithlabs/memengine/internal/consolidate"

// disabled marks a horizon with no cron trigger registered.
const disabled = "disabled"

// Config holds one cron expression (or "disabled") per horizon, matching
// spec.md §6's schedule.{daily,weekly,monthly,quarterly,yearly} keys.
type Config struct {
	Daily     string
	Weekly    string
	Monthly   string
	Quarterly string
	Yearly    string
}

// ApplyDefaults fills unset fields with spec.md §4.9's stated defaults:
// daily 02:00, weekly Sunday 03:00, monthly day-1 04:00, quarterly and
// yearly disabled.
func (c *Config) ApplyDefaults() {
	if c.Daily == "" {
		c.Daily = "0 2 * * *"
	}
	if c.Weekly == "" {
		c.Weekly = "0 3 * * 0"
	}
	if c.Monthly == "" {
		c.Monthly = "0 4 1 * *"
	}
	if c.Quarterly == "" {
		c.Quarterly = disabled
	}
	if c.Yearly == "" {
		c.Yearly = disabled
	}
}

// exprFor returns the configured cron expression for horizon, and whether
// it is enabled.
func (c Config) exprFor(h consolidate.Horizon) (string, bool) {
	var expr string
	switch h {
	case consolidate.HorizonDaily:
		expr = c.Daily
	case consolidate.HorizonWeekly:
		expr = c.Weekly
	case consolidate.HorizonMonthly:
		expr = c.Monthly
	case consolidate.HorizonQuarterly:
		expr = c.Quarterly
	case consolidate.HorizonYearly:
		expr = c.Yearly
	default:
		return "", false
	}
	return expr, expr != "" && expr != disabled
}

// horizons lists every horizon the scheduler manages, in a fixed order.
func horizons() []consolidate.Horizon {
	return []consolidate.Horizon{
		consolidate.HorizonDaily,
		consolidate.HorizonWeekly,
		consolidate.HorizonMonthly,
		consolidate.HorizonQuarterly,
		consolidate.HorizonYearly,
	}
}
