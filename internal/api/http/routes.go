package httpapi

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/i474232898/weather-service/internal/location"
)

// maxSuggestions caps the autocomplete list.
const maxSuggestions = 10

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
// Locations are <city[,countryISO2]>, e.g. Zurich,CH.
func RegisterRoutes(app *fiber.App, deps Dependencies) {
	h := &handlers{deps: deps}

	app.Get("/", h.welcome)
	app.Get("/health", h.health)
	if deps.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	w := app.Group("/weather")
	w.Get("/current/:location", h.current)
	w.Get("/forecast/:location", h.forecast)

	l := app.Group("/location")
	l.Get("/ip", h.countryByIP)
	l.Get("/suggest", h.suggest)

	app.Get("/geo/:location", h.geo)
}

type handlers struct {
	deps Dependencies
}

// locationParam is the :location path segment.
type locationParam struct {
	Location string `validate:"required,max=128"`
}

func parseLocation(c *fiber.Ctx) (string, error) {
	p := locationParam{Location: strings.TrimSpace(c.Params("location"))}
	if err := validate.Struct(p); err != nil {
		return "", fiber.NewError(fiber.StatusBadRequest, "Missing location")
	}
	return p.Location, nil
}

type suggestQuery struct {
	Query string `validate:"max=128"`
}

type suggestionResponse struct {
	Suggestions []string `json:"suggestions"`
}

type geoLocationResponse struct {
	City    string `json:"city"`
	Country string `json:"country"`
}

func notFound(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusNotFound).SendString(msg)
}

func (h *handlers) welcome(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service": "weather-service",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"links": []string{
			"/weather/current/Zurich,CH",
			"/weather/forecast/Zurich,CH",
			"/location/suggest?query=zur",
		},
	})
}

func (h *handlers) health(c *fiber.Ctx) error {
	status := fiber.Map{"status": "ok", "service": "weather-service"}
	if h.deps.Ping != nil {
		if err := h.deps.Ping(c.UserContext()); err != nil {
			status["status"] = "degraded"
			status["storage"] = err.Error()
			return c.Status(fiber.StatusServiceUnavailable).JSON(status)
		}
	}
	return c.JSON(status)
}

func (h *handlers) current(c *fiber.Ctx) error {
	loc, err := parseLocation(c)
	if err != nil {
		return err
	}
	current, err := h.deps.Weather.Current(c.UserContext(), loc)
	if err != nil {
		return err
	}
	if current == nil {
		return notFound(c, "Unknown location "+loc)
	}
	return c.JSON(current)
}

func (h *handlers) forecast(c *fiber.Ctx) error {
	loc, err := parseLocation(c)
	if err != nil {
		return err
	}
	forecast, err := h.deps.Weather.Forecast(c.UserContext(), loc)
	if err != nil {
		return err
	}
	if len(forecast) == 0 {
		return notFound(c, "Unknown location "+loc)
	}
	return c.JSON(forecast)
}

// countryByIP answers the capital of the caller's country.
func (h *handlers) countryByIP(c *fiber.Ctx) error {
	ip := c.IP()
	if fwd := c.Get(fiber.HeaderXForwardedFor); fwd != "" {
		ip, _, _ = strings.Cut(fwd, ",")
		ip = strings.TrimSpace(ip)
	}
	country := h.deps.Countries.Country(c.UserContext(), ip)
	capital, ok := h.deps.Tables.Capital(country)
	if !ok {
		return notFound(c, "country "+country+" not found")
	}
	return c.JSON(geoLocationResponse{City: capital, Country: country})
}

func (h *handlers) suggest(c *fiber.Ctx) error {
	if !c.Context().QueryArgs().Has("query") {
		return c.Status(fiber.StatusBadRequest).SendString("Missing query")
	}
	q := suggestQuery{Query: c.Query("query")}
	if err := validate.Struct(q); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	keys, err := h.deps.Locations.SuggestLocations(c.UserContext(), q.Query)
	if err != nil {
		return err
	}
	suggestions := make([]string, 0, maxSuggestions)
	for _, s := range location.Normalize(keys) {
		if len(suggestions) == maxSuggestions {
			break
		}
		suggestions = append(suggestions, location.Beautify(s))
	}
	return c.JSON(suggestionResponse{Suggestions: suggestions})
}

// geo converts the country name, if any, to ISO2 and answers the stored position.
func (h *handlers) geo(c *fiber.Ctx) error {
	loc, err := parseLocation(c)
	if err != nil {
		return err
	}
	iso := h.deps.Tables.ISO(loc)
	position, err := h.deps.Locations.GetPosition(c.UserContext(), iso)
	if err != nil {
		return err
	}
	if position == nil {
		return notFound(c, "Unknown location "+iso)
	}
	return c.JSON(position)
}
