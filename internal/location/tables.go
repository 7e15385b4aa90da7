package location

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	json "github.com/goccy/go-json"
)

//go:embed data/countries.json data/capitals.json
var dataFS embed.FS

// Tables holds the country reference data. It is immutable once loaded.
type Tables struct {
	country2Code map[string]string // lowercase name -> ISO2
	code2Capital map[string]string // ISO2 -> capital
}

type countryISO struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

// Default returns the tables bundled with the binary, loaded on first use.
var Default = sync.OnceValue(func() *Tables {
	t, err := LoadTables(dataFS)
	if err != nil {
		panic(fmt.Sprintf("location: bundled reference data: %v", err))
	}
	return t
})

// LoadTables reads data/countries.json and data/capitals.json from fsys.
func LoadTables(fsys fs.FS) (*Tables, error) {
	var countries []countryISO
	if err := readJSON(fsys, "data/countries.json", &countries); err != nil {
		return nil, err
	}
	var capitals map[string]string
	if err := readJSON(fsys, "data/capitals.json", &capitals); err != nil {
		return nil, err
	}

	t := &Tables{
		country2Code: make(map[string]string, len(countries)),
		code2Capital: make(map[string]string, len(capitals)),
	}
	for _, c := range countries {
		t.country2Code[strings.ToLower(c.Name)] = c.Code
	}
	for code, capital := range capitals {
		t.code2Capital[strings.ToUpper(code)] = capital
	}
	return t, nil
}

func readJSON(fsys fs.FS, name string, v any) error {
	raw, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

// CountryCode maps a country name (any case) to its ISO2 code.
func (t *Tables) CountryCode(name string) (string, bool) {
	code, ok := t.country2Code[strings.ToLower(strings.TrimSpace(name))]
	return code, ok
}

// Capital maps an ISO2 code to the country's capital.
func (t *Tables) Capital(code string) (string, bool) {
	capital, ok := t.code2Capital[strings.ToUpper(strings.TrimSpace(code))]
	return capital, ok
}

// Countries returns the number of known country names.
func (t *Tables) Countries() int {
	return len(t.country2Code)
}
