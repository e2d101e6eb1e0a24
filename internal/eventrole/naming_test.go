package eventrole

import (
	"strings"
	"testing"
	"time"

	"rolecall/internal/discord"
)

func TestRoleNameVariants(t *testing.T) {
	t.Parallel()
	start := time.Date(2026, time.March, 3, 18, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		ev   *discord.ScheduledEvent
		want string
	}{
		{
			name: "one-shot uses start time",
			ev:   &discord.ScheduledEvent{Name: "Board Game Night", StartTime: start},
			want: "Board Game Night [Mar-03 18:00]",
		},
		{
			name: "yearly",
			ev:   &discord.ScheduledEvent{Name: "Standup", Recurrence: &discord.Recurrence{Frequency: discord.FrequencyYearly}},
			want: "Standup [Yearly]",
		},
		{
			name: "monthly",
			ev:   &discord.ScheduledEvent{Name: "Standup", Recurrence: &discord.Recurrence{Frequency: discord.FrequencyMonthly}},
			want: "Standup [Monthly]",
		},
		{
			name: "weekly",
			ev:   &discord.ScheduledEvent{Name: "Standup", Recurrence: &discord.Recurrence{Frequency: discord.FrequencyWeekly}},
			want: "Standup [Weekly]",
		},
		{
			name: "daily",
			ev:   &discord.ScheduledEvent{Name: "Standup", Recurrence: &discord.Recurrence{Frequency: discord.FrequencyDaily}},
			want: "Standup [Daily]",
		},
		{
			name: "unknown frequency yields empty label",
			ev:   &discord.ScheduledEvent{Name: "Standup", Recurrence: &discord.Recurrence{Frequency: discord.Frequency(7)}},
			want: "Standup []",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := RoleName(tt.ev); got != tt.want {
				t.Fatalf("RoleName = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRoleNameTruncation(t *testing.T) {
	t.Parallel()
	long := strings.Repeat("x", 150)
	ev := &discord.ScheduledEvent{
		Name:       long,
		Recurrence: &discord.Recurrence{Frequency: discord.FrequencyWeekly},
	}

	got := RoleName(ev)
	if len(got) > roleNameMax {
		t.Fatalf("role name is %d chars, want <= %d", len(got), roleNameMax)
	}
	if !strings.HasSuffix(got, " [Weekly]") {
		t.Fatalf("suffix must survive truncation, got %q", got)
	}
	if !strings.HasPrefix(got, "xxxx") {
		t.Fatalf("name prefix missing, got %q", got)
	}
}

func TestRoleNameTruncationKeepsRunesIntact(t *testing.T) {
	t.Parallel()
	ev := &discord.ScheduledEvent{
		Name:       strings.Repeat("é", 120),
		Recurrence: &discord.Recurrence{Frequency: discord.FrequencyDaily},
	}

	got := RoleName(ev)
	if len(got) > roleNameMax {
		t.Fatalf("role name is %d bytes, want <= %d", len(got), roleNameMax)
	}
	if strings.ContainsRune(got, '�') {
		t.Fatalf("truncation split a rune: %q", got)
	}
}
