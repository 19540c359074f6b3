package drivers

import (
	"fmt"
	"strings"
)

// InvalidActionInputError lists the arguments of an action that failed
// validation.
type InvalidActionInputError struct {
	Action     string
	Parameters []string
	HelpLink   string
}

func (e *InvalidActionInputError) Error() string {
	msg := fmt.Sprintf("following parameter is missing or invalid for %s action: %s", e.Action, strings.Join(e.Parameters, ", "))
	if e.HelpLink != "" {
		msg += ". Read more: " + e.HelpLink
	}
	return msg
}

// OutputEnvVarUndefinedError is returned when an action that produces
// outputs was given nowhere to write them.
type OutputEnvVarUndefinedError struct {
	Action string
}

func (e *OutputEnvVarUndefinedError) Error() string {
	return fmt.Sprintf("the writeToEnvironmentFile field is missing for %s action", e.Action)
}
