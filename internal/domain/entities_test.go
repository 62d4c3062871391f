package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAction_String(t *testing.T) {
	cases := []struct {
		action Action
		want   string
	}{
		{ActionBuyFromGrid, "BUY_FROM_GRID"},
		{ActionSellToGrid, "SELL_TO_GRID"},
		{ActionChargeBattery, "CHARGE_BATTERY"},
		{ActionDischargeBattery, "DISCHARGE_BATTERY"},
		{ActionDirectUse, "DIRECT_USE"},
		{ActionIdle, "IDLE"},
		{Action(42), "UNKNOWN"},
		{Action(-1), "UNKNOWN"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.action.String())
	}
}
