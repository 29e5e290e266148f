package oncall

import (
	"github.com/robfig/cron/v3"
)

// cronParser accepts standard 5-field expressions only. No seconds
// field, no descriptors like @hourly: handoff schedules are written
// the way crontab entries are.
var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
)

// ParseCron parses a standard 5-field cron expression. The returned
// schedule yields occurrences via Next(t), which is strictly after t.
func ParseCron(expr string) (cron.Schedule, error) {
	return cronParser.Parse(expr)
}
