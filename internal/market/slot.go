package market

import "fmt"

// Timeframe is one of the three bar sizes requested per instrument.
type Timeframe int

const (
	OneMinute Timeframe = iota
	FiveMinutes
	ThirtyMinutes
)

// Timeframes lists every timeframe in slot order.
var Timeframes = []Timeframe{OneMinute, FiveMinutes, ThirtyMinutes}

// BarSize is the gateway bar size setting.
func (t Timeframe) BarSize() string {
	switch t {
	case OneMinute:
		return "1 min"
	case FiveMinutes:
		return "5 mins"
	case ThirtyMinutes:
		return "30 mins"
	default:
		return ""
	}
}

func (t Timeframe) String() string {
	switch t {
	case OneMinute:
		return "1m"
	case FiveMinutes:
		return "5m"
	case ThirtyMinutes:
		return "30m"
	default:
		return fmt.Sprintf("timeframe(%d)", int(t))
	}
}

func (t Timeframe) valid() bool { return t >= OneMinute && t <= ThirtyMinutes }

// SlotID identifies one (instrument, timeframe) bar sequence. It doubles as
// the gateway historical-data request id.
type SlotID int

// Slot returns instrument*10 + timeframe + 1. External tooling keys files on
// this number, so the scheme must stay stable.
func Slot(instrument int, tf Timeframe) SlotID {
	return SlotID(instrument*10 + int(tf) + 1)
}

// Split inverts Slot.
func (s SlotID) Split() (instrument int, tf Timeframe, ok bool) {
	if s <= 0 {
		return 0, 0, false
	}
	n := int(s) - 1
	instrument, tf = n/10, Timeframe(n%10)
	if !tf.valid() {
		return 0, 0, false
	}
	return instrument, tf, true
}

func (s SlotID) String() string { return fmt.Sprintf("%d", int(s)) }
