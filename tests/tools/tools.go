// Package tools holds the tools shared by the integration tests.
package tools

import (
	"context"

	"github.com/alessiogrespi/llmtoolkit"
)

type GetUserLocationArgs struct{}

type GetWeatherArgs struct {
	Location string `json:"location" description:"City and state, e.g. Portland, Oregon"`
}

func getUserLocation(context.Context, GetUserLocationArgs) (any, error) {
	return map[string]any{"location": "Portland, Oregon"}, nil
}

func getWeatherInLocation(_ context.Context, a GetWeatherArgs) (any, error) {
	return map[string]any{"weather": "Sunny and mild in " + a.Location}, nil
}

// RegisterLocationWeather adds GetUserLocation and GetWeatherInLocation to c.
func RegisterLocationWeather(c *llmtoolkit.Client) error {
	if err := llmtoolkit.AddTool(c, "GetUserLocation", "Returns the user's current city and state", getUserLocation); err != nil {
		return err
	}
	return llmtoolkit.AddTool(c, "GetWeatherInLocation", "Returns current weather for a location", getWeatherInLocation)
}
