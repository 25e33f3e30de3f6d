// Package builtin contains tools shipped with the toolkit.
package builtin

import (
	"context"
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/alessiogrespi/llmtoolkit/internal/tools"
)

const ClockToolName = "time_and_date"

const clockLayout = "2006-01-02 15:04:05"

type clockArgs struct {
	Timezone string `json:"timezone,omitempty" description:"IANA timezone name such as Europe/Rome; defaults to the host timezone"`
	Format   string `json:"format,omitempty" description:"Layout of the time fields" enum:"datetime,rfc3339,date"`
}

var clockFormats = map[string]string{
	"":         clockLayout,
	"datetime": clockLayout,
	"rfc3339":  time.RFC3339,
	"date":     time.DateOnly,
}

// Clock reports the current time in GMT and in a local timezone.
type Clock struct {
	Now func() time.Time
}

func (c Clock) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c Clock) run(_ context.Context, args clockArgs) (any, error) {
	now := c.now()
	loc := time.Local
	if args.Timezone != "" {
		l, err := time.LoadLocation(args.Timezone)
		if err != nil {
			return nil, fmt.Errorf("unknown timezone %q", args.Timezone)
		}
		loc = l
	}
	layout, ok := clockFormats[args.Format]
	if !ok {
		return nil, fmt.Errorf("unknown format %q", args.Format)
	}
	gmt := now.UTC()
	local := now.In(loc)
	name, _ := local.Zone()
	return map[string]any{
		"gmt_time":          gmt.Format(layout),
		"gmt_day_of_week":   gmt.Weekday().String(),
		"timezone_name":     name,
		"timezone_offset":   local.Format("-0700"),
		"local_time":        local.Format(layout),
		"local_day_of_week": local.Weekday().String(),
	}, nil
}

// Register adds the clock tool to r.
func (c Clock) Register(r *tools.Registry) error {
	return tools.RegisterTyped(r, ClockToolName, "Returns the current date, time and day of week in GMT and in a local timezone.", c.run)
}
