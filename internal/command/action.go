package command

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownAction reports an action outside the supported set.
var ErrUnknownAction = errors.New("unknown action")

// Action is a remote operation a relay can forward to a device.
type Action string

const (
	ActionSignOut  Action = "signout"
	ActionShutdown Action = "shutdown"
	ActionRestart  Action = "restart"
	ActionSleep    Action = "sleep"
)

// Actions lists every supported action.
func Actions() []Action {
	return []Action{ActionSignOut, ActionShutdown, ActionRestart, ActionSleep}
}

// Valid reports whether a is one of Actions.
func (a Action) Valid() bool {
	switch a {
	case ActionSignOut, ActionShutdown, ActionRestart, ActionSleep:
		return true
	}
	return false
}

func (a Action) String() string { return string(a) }

// ParseAction accepts an action name case-insensitively.
func ParseAction(s string) (Action, error) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	if !a.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
	}
	return a, nil
}
