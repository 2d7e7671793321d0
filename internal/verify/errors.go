package verify

import (
	"errors"
	"fmt"
)

// Step names a stage of a capture run
type Step string

const (
	StepLaunch      Step = "launch"
	StepCookies     Step = "cookies"
	StepNavigate    Step = "navigate"
	StepScroll      Step = "scroll"
	StepHeading     Step = "wait-heading"
	StepNetworkIdle Step = "wait-network-idle"
	StepScreenshot  Step = "screenshot"
	StepWrite       Step = "write"
)

// StepError is a main-flow failure tagged with the step that failed
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// ErrEmptyScreenshot is returned when the browser hands back no image data
var ErrEmptyScreenshot = errors.New("browser returned an empty screenshot")

// FailedStep extracts the step from err, or "" if err is not a StepError
func FailedStep(err error) Step {
	var se *StepError
	if errors.As(err, &se) {
		return se.Step
	}
	return ""
}
