package wizard

import "errors"

// Kind classifies a user-facing warning
type Kind string

const (
	KindOutsideRegion     Kind = "outside_region"
	KindMissingPoint      Kind = "missing_point"
	KindFinalStep         Kind = "final_step"
	KindStepInactive      Kind = "step_inactive"
	KindInvalidPassengers Kind = "invalid_passengers"
	KindGeolocation       Kind = "geolocation"
	KindLocateBusy        Kind = "locate_busy"
	KindSearch            Kind = "search"
)

// Warning is a rejected user action. The state it was raised against is
// unchanged.
type Warning struct {
	Kind    Kind
	Message string
	Err     error
}

func (w *Warning) Error() string {
	if w.Err != nil {
		return w.Message + ": " + w.Err.Error()
	}
	return w.Message
}

func (w *Warning) Unwrap() error {
	return w.Err
}

// Is matches any Warning of the same Kind, so the sentinels below work
// with errors.Is regardless of message.
func (w *Warning) Is(target error) bool {
	t, ok := target.(*Warning)
	return ok && t.Kind == w.Kind
}

// Sentinels for errors.Is
var (
	ErrOutsideRegion     = &Warning{Kind: KindOutsideRegion, Message: "location is outside the service area"}
	ErrMissingPoint      = &Warning{Kind: KindMissingPoint, Message: "no location selected"}
	ErrFinalStep         = &Warning{Kind: KindFinalStep, Message: "already at the last step"}
	ErrStepInactive      = &Warning{Kind: KindStepInactive, Message: "action not available on this step"}
	ErrInvalidPassengers = &Warning{Kind: KindInvalidPassengers, Message: "invalid passenger count"}
	ErrGeolocation       = &Warning{Kind: KindGeolocation, Message: "unable to retrieve your location"}
	ErrLocateBusy        = &Warning{Kind: KindLocateBusy, Message: "already locating"}
	ErrSearch            = &Warning{Kind: KindSearch, Message: "search failed"}
)

func warn(kind Kind, msg string, err error) *Warning {
	return &Warning{Kind: kind, Message: msg, Err: err}
}

// KindOf returns the warning kind carried by err, if any
func KindOf(err error) (Kind, bool) {
	var w *Warning
	if errors.As(err, &w) {
		return w.Kind, true
	}
	return "", false
}

// UserMessage returns the text to show the user for err
func UserMessage(err error) string {
	var w *Warning
	if errors.As(err, &w) {
		return w.Message
	}
	return err.Error()
}
