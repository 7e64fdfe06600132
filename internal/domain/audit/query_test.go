package audit_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/felixgeelhaar/forge/internal/domain/audit"
)

func TestQueryFilter_Matches(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	event := audit.NewEvent(audit.EventPluginLoadFailed).
		At(base).
		WithSeverity(audit.SeverityError).
		WithUser("Alice").
		WithTenant("t1").
		WithPlugin("work-orders", "1.0.0").
		WithError(errors.New("boom")).
		Build()

	tests := []struct {
		name   string
		filter audit.QueryFilter
		want   bool
	}{
		{"empty filter", audit.QueryFilter{}, true},
		{"type match", audit.NewQuery().WithEventTypes(audit.EventPluginLoadFailed, audit.EventPluginLoaded).Build(), true},
		{"type mismatch", audit.NewQuery().WithEventTypes(audit.EventPluginLoaded).Build(), false},
		{"severity match", audit.NewQuery().WithSeverities(audit.SeverityError).Build(), true},
		{"severity mismatch", audit.NewQuery().WithSeverities(audit.SeverityInfo).Build(), false},
		{"plugin substring", audit.NewQuery().WithPlugin("WORK").Build(), true},
		{"plugin mismatch", audit.NewQuery().WithPlugin("assets").Build(), false},
		{"user case insensitive", audit.NewQuery().WithUser("alice").Build(), true},
		{"tenant exact", audit.NewQuery().WithTenant("t1").Build(), true},
		{"tenant mismatch", audit.NewQuery().WithTenant("t").Build(), false},
		{"since before", audit.NewQuery().Since(base.Add(-time.Hour)).Build(), true},
		{"since after", audit.NewQuery().Since(base.Add(time.Hour)).Build(), false},
		{"until after", audit.NewQuery().Until(base.Add(time.Hour)).Build(), true},
		{"until before", audit.NewQuery().Until(base.Add(-time.Hour)).Build(), false},
		{"failures only", audit.NewQuery().FailuresOnly().Build(), true},
		{"success only", audit.NewQuery().SuccessOnly().Build(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.filter.Matches(event))
		})
	}
}

func TestQueryFilter_ApplyKeepsMostRecent(t *testing.T) {
	t.Parallel()

	var events []audit.Event
	for _, id := range []string{"a", "b", "c", "d"} {
		events = append(events, audit.NewEvent(audit.EventPluginLoaded).WithPlugin(id, "").Build())
	}

	got := audit.NewQuery().Limit(2).Build().Apply(events)
	assert.Equal(t, "c", got[0].Plugin)
	assert.Equal(t, "d", got[1].Plugin)

	assert.Len(t, audit.QueryFilter{}.Apply(events), 4)
	assert.Empty(t, audit.NewQuery().WithPlugin("z").Build().Apply(events))
}

func TestQueryBuilder_LastHours(t *testing.T) {
	t.Parallel()

	filter := audit.NewQuery().LastHours(2).Build()
	assert.WithinDuration(t, time.Now().Add(-2*time.Hour), filter.Since, time.Minute)
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	first := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	events := []audit.Event{
		audit.NewEvent(audit.EventPluginLoaded).At(first.Add(time.Hour)).WithPlugin("assets", "").Build(),
		audit.NewEvent(audit.EventPluginLoadFailed).At(first).WithSeverity(audit.SeverityError).
			WithPlugin("work-orders", "").WithError(errors.New("boom")).Build(),
		audit.NewEvent(audit.EventPluginLoaded).At(first.Add(2 * time.Hour)).WithPlugin("assets", "").Build(),
	}

	summary := audit.Summarize(events)
	assert.Equal(t, 3, summary.TotalEvents)
	assert.Equal(t, 2, summary.SuccessCount)
	assert.Equal(t, 1, summary.FailureCount)
	assert.Equal(t, 2, summary.ByType[string(audit.EventPluginLoaded)])
	assert.Equal(t, 1, summary.BySeverity[string(audit.SeverityError)])
	assert.Equal(t, 2, summary.ByPlugin["assets"])
	assert.Equal(t, first, summary.FirstEvent)
	assert.Equal(t, first.Add(2*time.Hour), summary.LastEvent)
}
