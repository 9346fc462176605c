package taxonomy

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/tphakala/trapcam/internal/errors"
)

//go:embed data/stations.json
var stationsData []byte

// Station is a fixed camera-trap location
type Station struct {
	ID        string   `json:"id" yaml:"id"`
	Name      string   `json:"name" yaml:"name"`
	Latitude  *float64 `json:"latitude,omitempty" yaml:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty" yaml:"longitude,omitempty"`
}

// Stations is an immutable, ordered station list
type Stations struct {
	list []Station
	byID map[string]int
}

// LoadStations reads stations from path, or the embedded defaults when path is empty
func LoadStations(path string) (*Stations, error) {
	data := stationsData
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, errors.New(fmt.Errorf("failed to read stations file %s: %w", path, err)).
				Component("taxonomy").
				Category(errors.CategoryFileIO).
				Build()
		}
	}

	var list []Station
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, errors.New(fmt.Errorf("failed to unmarshal stations: %w", err)).
			Component("taxonomy").
			Category(errors.CategoryFileParsing).
			Build()
	}

	s := &Stations{byID: make(map[string]int, len(list))}
	for _, st := range list {
		st.ID = normalize(st.ID)
		if st.ID == "" {
			return nil, taxonomyError("station with empty id")
		}
		if _, dup := s.byID[st.ID]; dup {
			return nil, taxonomyError(fmt.Sprintf("duplicate station id %q", st.ID))
		}
		s.byID[st.ID] = len(s.list)
		s.list = append(s.list, st)
	}
	return s, nil
}

// Station looks a station up by id
func (s *Stations) Station(id string) (Station, bool) {
	idx, ok := s.byID[normalize(id)]
	if !ok {
		return Station{}, false
	}
	return s.list[idx], true
}

// All returns a copy of the stations in file order
func (s *Stations) All() []Station {
	out := make([]Station, len(s.list))
	copy(out, s.list)
	return out
}
