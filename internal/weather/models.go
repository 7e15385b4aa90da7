package weather

import (
	"bytes"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
)

// Record classes, used as log and metric labels.
const (
	KindCurrent  = "current"
	KindForecast = "forecast"
)

// DefaultForecastLimit is 5 days broken down to 3 hour slots.
const DefaultForecastLimit = 40

// UnixTime is a UTC instant encoded as unix seconds on the wire.
type UnixTime struct {
	time.Time
}

func NewUnixTime(t time.Time) UnixTime {
	return UnixTime{Time: time.Unix(t.Unix(), 0).UTC()}
}

func (u UnixTime) MarshalJSON() ([]byte, error) {
	return strconv.AppendInt(nil, u.Unix(), 10), nil
}

func (u *UnixTime) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var secs int64
	if err := json.Unmarshal(data, &secs); err != nil {
		return err
	}
	u.Time = time.Unix(secs, 0).UTC()
	return nil
}

// StatusCode accepts the feed's "cod" field, which is a number on some
// endpoints and a string on others.
type StatusCode string

func (c *StatusCode) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = StatusCode(s)
		return nil
	}
	*c = StatusCode(data)
	return nil
}

// WeatherDescription is one entry of the feed's condition list.
type WeatherDescription struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// WeatherInfo holds the main metrics, metric units.
type WeatherInfo struct {
	Temp     float64 `json:"temp"`
	TempMin  float64 `json:"temp_min"`
	TempMax  float64 `json:"temp_max"`
	Pressure float64 `json:"pressure"`
	Humidity float64 `json:"humidity"`
}

type SunriseSunset struct {
	Sunrise UnixTime `json:"sunrise"`
	Sunset  UnixTime `json:"sunset"`
}

type Coord struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

type Wind struct {
	Speed float64 `json:"speed"`
	Deg   float64 `json:"deg"`
}

// CurrentWeatherResponse is the raw reply of the current weather endpoint.
// Sections the feed may omit are pointers so conversion can tell.
type CurrentWeatherResponse struct {
	Cod     StatusCode           `json:"cod"`
	Name    string               `json:"name"`
	Weather []WeatherDescription `json:"weather"`
	Main    *WeatherInfo         `json:"main"`
	Sys     *SunriseSunset       `json:"sys"`
	Coord   *Coord               `json:"coord"`
	Wind    *Wind                `json:"wind"`
	Dt      *UnixTime            `json:"dt"`
}

// ForecastSlot is one 3 hour slot of the forecast reply.
type ForecastSlot struct {
	Dt      UnixTime             `json:"dt"`
	Main    WeatherInfo          `json:"main"`
	Weather []WeatherDescription `json:"weather"`
	Wind    *Wind                `json:"wind,omitempty"`
}

// ForecastWeatherResponse is the raw reply of the forecast endpoint.
type ForecastWeatherResponse struct {
	Cod  StatusCode     `json:"cod"`
	Cnt  int            `json:"cnt"`
	List []ForecastSlot `json:"list"`
}

// CurrentWeather is the cached current weather for one location.
type CurrentWeather struct {
	Location      string             `json:"location"`
	Timestamp     time.Time          `json:"timestamp"` // always UTC
	BootstrapIcon string             `json:"bootstrapIcon"`
	Current       WeatherDescription `json:"current"`
	Info          WeatherInfo        `json:"info"`
	SunriseSunset SunriseSunset      `json:"sunriseSunset"`
	Coord         Coord              `json:"coord"`
}

// ForecastWeather is one cached forecast slot, keyed by (Location, Timestamp).
type ForecastWeather struct {
	Location  string       `json:"location"`
	Timestamp time.Time    `json:"timestamp"` // slot time, UTC
	Forecast  ForecastSlot `json:"forecast"`
}

// GeoPosition is the coordinate learnt from a current weather reply.
type GeoPosition struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
