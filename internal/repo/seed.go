package repo

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/tbourn/go-flight-info-backend/internal/domain"
	"github.com/tbourn/go-flight-info-backend/internal/utils"
)

//go:embed airports.yaml
var defaultAirportsYAML []byte

// AirportSeed is one entry of the airport reference file.
type AirportSeed struct {
	Code string `yaml:"code"`
	Name string `yaml:"name"`
}

type airportSeedFile struct {
	Airports []AirportSeed `yaml:"airports"`
}

// LoadAirportSeeds reads airport seeds from a YAML file. An empty path
// returns the embedded default list.
func LoadAirportSeeds(path string) ([]AirportSeed, error) {
	data := defaultAirportsYAML
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read airports file: %w", err)
		}
		data = b
	}
	return ParseAirportSeeds(data)
}

// ParseAirportSeeds decodes and checks a YAML airport list. Codes are
// upper-cased and must be exactly 4 characters.
func ParseAirportSeeds(data []byte) ([]AirportSeed, error) {
	var f airportSeedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse airports: %w", err)
	}
	out := make([]AirportSeed, 0, len(f.Airports))
	for i, a := range f.Airports {
		a.Code = strings.ToUpper(strings.TrimSpace(a.Code))
		a.Name = strings.TrimSpace(a.Name)
		if len(a.Code) != 4 {
			return nil, fmt.Errorf("airport #%d: code %q must be 4 characters", i+1, a.Code)
		}
		if a.Name == "" {
			return nil, fmt.Errorf("airport %s: name is required", a.Code)
		}
		out = append(out, a)
	}
	return out, nil
}

// SeedAirports inserts every seed whose code is not present yet and returns
// how many rows were created. Existing airports are left untouched, so the
// call is safe to repeat on every start.
func SeedAirports(ctx context.Context, db *gorm.DB, seeds []AirportSeed) (int, error) {
	created := 0
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, s := range seeds {
			var existing domain.Airport
			res := tx.Where("code = ?", s.Code).Limit(1).Find(&existing)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected > 0 {
				continue
			}
			if err := tx.Create(&domain.Airport{Code: s.Code, Name: utils.NormalizeText(s.Name)}).Error; err != nil {
				return err
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}
