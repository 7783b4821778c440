// Package weather answers spoken current-conditions queries via the
// Open-Meteo public API: one geocoding call to resolve the place name, one
// forecast call for the conditions.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/foxseedlab/oshaberin/internal/commands"
)

const (
	defaultGeocodingBaseURL = "https://geocoding-api.open-meteo.com"
	defaultForecastBaseURL  = "https://api.open-meteo.com"
	requestTimeout          = 10 * time.Second
)

type OpenMeteoProvider struct {
	geocodingBaseURL string
	forecastBaseURL  string
	client           *http.Client
}

func NewOpenMeteoProvider() commands.Weather {
	return &OpenMeteoProvider{
		geocodingBaseURL: defaultGeocodingBaseURL,
		forecastBaseURL:  defaultForecastBaseURL,
		client:           &http.Client{Timeout: requestTimeout},
	}
}

type geocodingResponse struct {
	Results []struct {
		Name      string  `json:"name"`
		Country   string  `json:"country"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"results"`
}

type forecastResponse struct {
	Current struct {
		Temperature float64 `json:"temperature_2m"`
		WeatherCode int     `json:"weather_code"`
		WindSpeed   float64 `json:"wind_speed_10m"`
	} `json:"current"`
}

func (p *OpenMeteoProvider) Current(ctx context.Context, location string) (string, error) {
	var geo geocodingResponse
	geoURL := fmt.Sprintf("%s/v1/search?name=%s&count=1", p.geocodingBaseURL, url.QueryEscape(location))
	if err := p.getJSON(ctx, geoURL, &geo); err != nil {
		return "", fmt.Errorf("geocode %q: %w", location, err)
	}
	if len(geo.Results) == 0 {
		return fmt.Sprintf("I couldn't find a place called %s.", location), nil
	}
	place := geo.Results[0]

	var forecast forecastResponse
	fcURL := fmt.Sprintf("%s/v1/forecast?latitude=%f&longitude=%f&current=temperature_2m,weather_code,wind_speed_10m",
		p.forecastBaseURL, place.Latitude, place.Longitude)
	if err := p.getJSON(ctx, fcURL, &forecast); err != nil {
		return "", fmt.Errorf("forecast for %q: %w", location, err)
	}

	return fmt.Sprintf("It's %s in %s right now, %.0f degrees with wind at %.0f kilometers per hour.",
		describeWeatherCode(forecast.Current.WeatherCode),
		place.Name,
		forecast.Current.Temperature,
		forecast.Current.WindSpeed), nil
}

func (p *OpenMeteoProvider) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// describeWeatherCode maps WMO weather interpretation codes to something a
// voice can say.
func describeWeatherCode(code int) string {
	switch {
	case code == 0:
		return "clear"
	case code <= 3:
		return "partly cloudy"
	case code <= 48:
		return "foggy"
	case code <= 57:
		return "drizzly"
	case code <= 67:
		return "rainy"
	case code <= 77:
		return "snowy"
	case code <= 82:
		return "showery"
	case code <= 86:
		return "snowy"
	default:
		return "stormy"
	}
}
