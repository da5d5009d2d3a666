package domain

import "errors"

// Quote rejections. Unknown city and vehicle type are caller errors,
// ErrNoWeatherData is transient and ErrForbiddenVehicleType is a business
// rule outcome.
var (
	ErrUnknownCity          = errors.New("unknown city")
	ErrUnknownVehicleType   = errors.New("unknown vehicle type")
	ErrNoWeatherData        = errors.New("no weather data")
	ErrForbiddenVehicleType = errors.New("usage of selected vehicle type is forbidden")
)

// Ingestion failures. They never reach quote callers.
var (
	ErrFetch = errors.New("fetch weather feed")
	ErrParse = errors.New("parse weather feed")
)
