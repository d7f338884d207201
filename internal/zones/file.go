package zones

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type zoneFile struct {
	Zones []Zone `yaml:"zones"`
}

// LoadFile reads zones from a YAML document of the form:
//
//	zones:
//	  - id: z1
//	    name: North
//	    center: {lat: 38.85, lng: -78.2}
//	    radiusMiles: 10
//	    serviceDays: [monday, thursday]
func LoadFile(path string) ([]Zone, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read zones file: %w", err)
	}
	return ParseYAML(raw)
}

// ParseYAML decodes and validates a zones document.
func ParseYAML(raw []byte) ([]Zone, error) {
	var doc zoneFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode zones file: %w", err)
	}

	seen := make(map[string]bool, len(doc.Zones))
	for i := range doc.Zones {
		z := &doc.Zones[i]
		z.ID = strings.TrimSpace(z.ID)
		if z.ID == "" {
			return nil, fmt.Errorf("zone %d: id is required", i)
		}
		if seen[z.ID] {
			return nil, fmt.Errorf("zone %s: duplicate id", z.ID)
		}
		seen[z.ID] = true
		if z.Center.Lat < -90 || z.Center.Lat > 90 || z.Center.Lng < -180 || z.Center.Lng > 180 {
			return nil, fmt.Errorf("zone %s: center out of range", z.ID)
		}
		for j, day := range z.ServiceDays {
			z.ServiceDays[j] = strings.ToLower(strings.TrimSpace(day))
		}
	}

	return doc.Zones, nil
}
