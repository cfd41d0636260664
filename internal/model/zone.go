package model

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ZoneMap resolves solver zone ids to region names. It is immutable after
// construction; tests substitute synthetic maps.
type ZoneMap struct {
	regions map[int]string
	zones   map[string]int
}

func NewZoneMap(m map[int]string) (ZoneMap, error) {
	zm := ZoneMap{
		regions: make(map[int]string, len(m)),
		zones:   make(map[string]int, len(m)),
	}
	for id, name := range m {
		name = strings.TrimSpace(name)
		if name == "" {
			return ZoneMap{}, fmt.Errorf("zone %d: empty region name", id)
		}
		if other, dup := zm.zones[name]; dup {
			return ZoneMap{}, fmt.Errorf("region %q mapped from zones %d and %d", name, other, id)
		}
		zm.regions[id] = name
		zm.zones[name] = id
	}
	return zm, nil
}

// Region returns the region for a zone id, or an UnmappedZoneError.
func (z ZoneMap) Region(zone int) (string, error) {
	name, ok := z.regions[zone]
	if !ok {
		return "", &UnmappedZoneError{Zone: zone}
	}
	return name, nil
}

// Zone returns the zone id of a region name.
func (z ZoneMap) Zone(region string) (int, bool) {
	id, ok := z.zones[region]
	return id, ok
}

// Zones returns all zone ids in ascending order.
func (z ZoneMap) Zones() []int {
	out := make([]int, 0, len(z.regions))
	for id := range z.regions {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

func (z ZoneMap) Len() int { return len(z.regions) }

// ParseZoneID accepts the solver's zone spellings: "3", "z3", "Zone3",
// "Load_MW_z3".
func ParseZoneID(s string) (int, error) {
	t := strings.TrimSpace(s)
	for _, prefix := range []string{"Load_MW_z", "Zone", "zone", "z"} {
		if strings.HasPrefix(t, prefix) {
			t = strings.TrimPrefix(t, prefix)
			break
		}
	}
	t = strings.TrimSpace(t)
	if f, err := strconv.ParseFloat(t, 64); err == nil && f == float64(int(f)) {
		return int(f), nil
	}
	return 0, fmt.Errorf("invalid zone id %q", s)
}

// ZoneColumn is the Network.csv column holding a zone's line directions.
func ZoneColumn(zone int) string { return "z" + strconv.Itoa(zone) }
