package decision

import (
	"encoding/json"
	"strings"
)

// Action is the closed set of advised actions.
type Action string

const (
	ActionUnknown     Action = ""
	ActionLimitBuy    Action = "LIMIT_BUY"
	ActionLimitSell   Action = "LIMIT_SELL"
	ActionMarketBuy   Action = "MARKET_BUY"
	ActionMarketSell  Action = "MARKET_SELL"
	ActionOrderCancel Action = "ORDER_CANCEL"
	ActionHold        Action = "HOLD"
)

var knownActions = map[Action]struct{}{
	ActionLimitBuy:    {},
	ActionLimitSell:   {},
	ActionMarketBuy:   {},
	ActionMarketSell:  {},
	ActionOrderCancel: {},
	ActionHold:        {},
}

// ParseAction maps a raw action name to Action. Anything outside the closed
// set becomes ActionUnknown.
func ParseAction(raw string) Action {
	a := Action(strings.ToUpper(strings.TrimSpace(raw)))
	if _, ok := knownActions[a]; ok {
		return a
	}
	return ActionUnknown
}

func (a Action) Known() bool {
	_, ok := knownActions[a]
	return ok
}

func (a Action) String() string {
	if a == ActionUnknown {
		return "UNKNOWN"
	}
	return string(a)
}

// PlacesOrder reports whether the action opens a new order.
func (a Action) PlacesOrder() bool {
	switch a {
	case ActionLimitBuy, ActionLimitSell, ActionMarketBuy, ActionMarketSell:
		return true
	}
	return false
}

func (a *Action) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		*a = ActionUnknown
		return nil
	}
	*a = ParseAction(s)
	return nil
}
