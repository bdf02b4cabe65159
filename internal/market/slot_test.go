package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlotRoundTrip(t *testing.T) {
	cases := []struct {
		instrument int
		tf         Timeframe
		want       SlotID
	}{
		{0, OneMinute, 1},
		{0, ThirtyMinutes, 3},
		{1, OneMinute, 11},
		{2, FiveMinutes, 22},
	}
	for _, tc := range cases {
		slot := Slot(tc.instrument, tc.tf)
		assert.Equal(t, tc.want, slot)
		inst, tf, ok := slot.Split()
		assert.True(t, ok)
		assert.Equal(t, tc.instrument, inst)
		assert.Equal(t, tc.tf, tf)
	}
}

func TestSlotSplitRejectsGaps(t *testing.T) {
	for _, s := range []SlotID{0, -1, 4, 10, 15} {
		_, _, ok := s.Split()
		assert.False(t, ok, "slot %d", s)
	}
}

func TestTimeframeBarSize(t *testing.T) {
	assert.Equal(t, "1 min", OneMinute.BarSize())
	assert.Equal(t, "5 mins", FiveMinutes.BarSize())
	assert.Equal(t, "30 mins", ThirtyMinutes.BarSize())
	assert.Equal(t, "", Timeframe(7).BarSize())
	assert.Equal(t, "30m", ThirtyMinutes.String())
}
