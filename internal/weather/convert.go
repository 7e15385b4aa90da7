package weather

import (
	"time"
)

// ConvertCurrent turns a feed reply into a record. It returns nil unless the
// reply carries conditions, main metrics, sunrise/sunset and coordinates.
// A missing dt falls back to now.
func ConvertCurrent(location string, reply *CurrentWeatherResponse, now time.Time) *CurrentWeather {
	if reply == nil || len(reply.Weather) == 0 || reply.Main == nil || reply.Sys == nil || reply.Coord == nil {
		return nil
	}

	ts := NewUnixTime(now).Time
	if reply.Dt != nil && !reply.Dt.IsZero() {
		ts = reply.Dt.UTC()
	}

	current := reply.Weather[0]
	return &CurrentWeather{
		Location:      location,
		Timestamp:     ts,
		BootstrapIcon: BootstrapIcon(current.ID),
		Current:       current,
		Info:          *reply.Main,
		SunriseSunset: *reply.Sys,
		Coord:         *reply.Coord,
	}
}

// ConvertForecast maps every slot of the reply to one entry.
func ConvertForecast(location string, reply *ForecastWeatherResponse) []ForecastWeather {
	if reply == nil {
		return []ForecastWeather{}
	}
	entries := make([]ForecastWeather, 0, len(reply.List))
	for _, slot := range reply.List {
		entries = append(entries, ForecastWeather{
			Location:  location,
			Timestamp: slot.Dt.UTC(),
			Forecast:  slot,
		})
	}
	return entries
}
