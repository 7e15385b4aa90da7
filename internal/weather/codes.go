package weather

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
)

//go:embed data/weather_codes.txt
var weatherCodesTxt string

// WeatherCode maps a feed condition id to the icons used by the front ends.
//
//	# ID   Meaning        Icon BootstrapIcon    ReactIcon
//	500    light rain     10d icon-weather-008  WiRainMix
type WeatherCode struct {
	Code          int
	Meaning       string
	BootstrapIcon string
	ReactIcon     string
}

var weatherCodes = sync.OnceValue(func() map[int]WeatherCode {
	codes, _ := LoadWeatherCodes(strings.NewReader(weatherCodesTxt))
	return codes
})

// LoadWeatherCodes reads the tab separated mapping, skipping blank lines and
// comments. Lines that fail to parse are returned as errors next to the
// successfully parsed entries.
func LoadWeatherCodes(r io.Reader) (map[int]WeatherCode, []error) {
	codes := make(map[int]WeatherCode)
	var errs []error

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		wc, err := ParseWeatherCode(line)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		codes[wc.Code] = wc
	}
	if err := scanner.Err(); err != nil {
		errs = append(errs, err)
	}
	return codes, errs
}

// ParseWeatherCode parses one "code\tmeaning\ticon bootstrap react" line.
func ParseWeatherCode(line string) (WeatherCode, error) {
	tokens := strings.Split(line, "\t")
	if len(tokens) < 3 {
		return WeatherCode{}, fmt.Errorf("failed to parse line %q: expected 3 columns", line)
	}
	code, err := strconv.Atoi(strings.TrimSpace(tokens[0]))
	if err != nil {
		return WeatherCode{}, fmt.Errorf("failed to parse line %q: %w", line, err)
	}
	icons := strings.Fields(tokens[2])
	if len(icons) < 2 {
		return WeatherCode{}, fmt.Errorf("failed to parse line %q: missing icons", line)
	}
	return WeatherCode{
		Code:          code,
		Meaning:       strings.TrimSpace(tokens[1]),
		BootstrapIcon: icons[1],
		ReactIcon:     icons[len(icons)-1],
	}, nil
}

// LookupWeatherCode returns the bundled mapping for a condition id.
func LookupWeatherCode(code int) (WeatherCode, bool) {
	wc, ok := weatherCodes()[code]
	return wc, ok
}

// BootstrapIcon returns the bootstrap icon name, or "" for unknown ids.
func BootstrapIcon(code int) string {
	return weatherCodes()[code].BootstrapIcon
}
