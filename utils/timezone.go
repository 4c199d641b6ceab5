package utils

import (
	"fmt"
	"strings"
	"time"
)

var locations map[string]*time.Location = map[string]*time.Location{}

func init() {
	for i := time.Duration(-12); i < 15; i++ {
		name := fmt.Sprintf("GMT%+d", i)
		locations[name] = time.FixedZone(name, int((i * time.Hour).Seconds()))
	}
}

// GetLocation resolves a timezone from configuration: an IANA name
// ("Europe/Paris") or a GMT-X offset from a pre-defined locations map.
// It returns nil for an unknown timezone.
func GetLocation(timezone string) *time.Location {
	if tz, ok := locations[strings.ToUpper(timezone)]; ok {
		return tz
	}
	if tz, err := time.LoadLocation(timezone); nil == err {
		return tz
	}
	return nil
}
