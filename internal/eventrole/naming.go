package eventrole

import (
	"rolecall/internal/discord"
)

// Discord rejects role names longer than 100 characters.
const roleNameMax = 100

// startTimeLayout renders "Mar-03 18:00" for an event starting March 3rd at
// 18:00. Used for one-shot events; recurring events use the frequency label.
const startTimeLayout = "Jan-02 15:04"

// RoleName derives the role name for an event: the event name plus a
// bracketed suffix, either the formatted start time or the recurrence label.
// The event name is truncated so name+suffix stays within roleNameMax.
func RoleName(ev *discord.ScheduledEvent) string {
	var suffix string
	if ev.Recurrence != nil {
		suffix = ev.Recurrence.Frequency.Label()
	} else {
		suffix = ev.StartTime.Format(startTimeLayout)
	}
	tag := " [" + suffix + "]"

	name := ev.Name
	if budget := roleNameMax - len(tag); len(name) > budget {
		// Truncate on a rune boundary; budget is positive for every
		// suffix this package produces.
		r := []rune(name)
		for len(string(r)) > budget {
			r = r[:len(r)-1]
		}
		name = string(r)
	}
	return name + tag
}
