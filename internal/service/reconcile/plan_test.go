package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cmlabs-hris/timeoff-sync/internal/domain/calendar"
	"github.com/cmlabs-hris/timeoff-sync/internal/domain/timeoff"
	"github.com/cmlabs-hris/timeoff-sync/internal/pkg/failledger"
)

func TestAction_LedgerKey(t *testing.T) {
	early := settled
	late := settled.Add(10 * time.Minute)
	ev := calendar.Event{ID: "ev-1"}
	to := timeoff.TimeOff{ID: "to-1"}
	eventKey := failledger.Key{EmployeeID: alice.ID, Kind: failledger.KindEvent, RecordID: "ev-1"}
	timeOffKey := failledger.Key{EmployeeID: alice.ID, Kind: failledger.KindTimeOff, RecordID: "to-1"}

	cases := []struct {
		name      string
		eventAt   *time.Time
		timeOffAt *time.Time
		key       failledger.Key
		stamp     time.Time
	}{
		{"event only", &late, nil, eventKey, late},
		{"time-off only", nil, &late, timeOffKey, late},
		{"pair with newer event", &late, &early, eventKey, late},
		{"pair with newer time-off", &early, &late, eventKey, late},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var a Action
			if c.eventAt != nil {
				e := ev
				e.UpdatedAt = *c.eventAt
				a.Event = &e
			}
			if c.timeOffAt != nil {
				r := to
				r.UpdatedAt = *c.timeOffAt
				a.TimeOff = &r
			}

			key, stamp := a.LedgerKey(alice.ID)

			assert.Equal(t, c.key, key)
			assert.True(t, c.stamp.Equal(stamp))
		})
	}
}
