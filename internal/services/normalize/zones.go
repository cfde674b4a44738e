package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"selfcheckout/internal/dto"
	"selfcheckout/internal/model"
)

// decodeZones accepts every instability shape the backend has used:
//
//	["hash1", "hash2"]                                   bare location hashes
//	[{"zone_key": "z", "classes": {"apple": 3}}]         zone objects
//	{"z": {"classes": {...}}} or {"z": {"apple": 3}}     keyed objects
func decodeZones(raw json.RawMessage) ([]model.UnstableZone, []error) {
	switch raw[0] {
	case '[':
		var elements []json.RawMessage
		if err := json.Unmarshal(raw, &elements); err != nil {
			return nil, []error{err}
		}
		zones := make([]model.UnstableZone, 0, len(elements))
		var errs []error
		for i, el := range elements {
			z, err := decodeZoneElement(el)
			if err != nil {
				errs = append(errs, fmt.Errorf("element %d: %w", i, err))
				continue
			}
			zones = append(zones, z)
		}
		return zones, errs

	case '{':
		var keyed map[string]json.RawMessage
		if err := json.Unmarshal(raw, &keyed); err != nil {
			return nil, []error{err}
		}
		keys := make([]string, 0, len(keyed))
		for k := range keyed {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		zones := make([]model.UnstableZone, 0, len(keys))
		var errs []error
		for _, key := range keys {
			z, err := decodeKeyedZone(key, keyed[key])
			if err != nil {
				errs = append(errs, fmt.Errorf("zone %q: %w", key, err))
				continue
			}
			zones = append(zones, z)
		}
		return zones, errs
	}
	return nil, []error{fmt.Errorf("unsupported shape %q", string(raw[:1]))}
}

func decodeZoneElement(el json.RawMessage) (model.UnstableZone, error) {
	el = bytes.TrimSpace(el)
	if len(el) == 0 {
		return model.UnstableZone{}, fmt.Errorf("empty element")
	}

	switch el[0] {
	case '"':
		var key string
		if err := json.Unmarshal(el, &key); err != nil {
			return model.UnstableZone{}, err
		}
		if key == "" {
			return model.UnstableZone{}, fmt.Errorf("empty zone key")
		}
		return model.UnstableZone{ZoneKey: key, Classes: map[string]int{}}, nil
	case '{':
		var rz dto.RawUnstableZone
		if err := json.Unmarshal(el, &rz); err != nil {
			return model.UnstableZone{}, err
		}
		return canonicalZone(rz)
	}
	return model.UnstableZone{}, fmt.Errorf("unsupported element %s", string(el))
}

func decodeKeyedZone(key string, value json.RawMessage) (model.UnstableZone, error) {
	var rz dto.RawUnstableZone
	if err := json.Unmarshal(value, &rz); err == nil && (rz.Classes != nil || rz.UnstableDuration > 0) {
		rz.ZoneKey = key
		return canonicalZone(rz)
	}

	var classes map[string]int
	if err := json.Unmarshal(value, &classes); err != nil {
		return model.UnstableZone{}, err
	}
	return canonicalZone(dto.RawUnstableZone{ZoneKey: key, Classes: classes})
}

func canonicalZone(rz dto.RawUnstableZone) (model.UnstableZone, error) {
	key := rz.ZoneKey
	if key == "" {
		key = rz.LocationHash
	}
	if key == "" {
		return model.UnstableZone{}, fmt.Errorf("zone without key")
	}
	classes := make(map[string]int, len(rz.Classes))
	for name, count := range rz.Classes {
		if count > 0 {
			classes[name] = count
		}
	}
	z := model.UnstableZone{ZoneKey: key, Classes: classes}
	if rz.UnstableDuration > 0 {
		z.Duration = rz.UnstableDuration
	}
	return z, nil
}

// zoneSet merges zones from both payload fields, keeping first-seen order.
type zoneSet struct {
	order []string
	byKey map[string]*model.UnstableZone
}

func newZoneSet() *zoneSet {
	return &zoneSet{byKey: map[string]*model.UnstableZone{}}
}

func (s *zoneSet) add(z model.UnstableZone) {
	existing, ok := s.byKey[z.ZoneKey]
	if !ok {
		zc := z
		s.byKey[z.ZoneKey] = &zc
		s.order = append(s.order, z.ZoneKey)
		return
	}
	for name, count := range z.Classes {
		if count > existing.Classes[name] {
			existing.Classes[name] = count
		}
	}
	if z.Duration > existing.Duration {
		existing.Duration = z.Duration
	}
}

func (s *zoneSet) list() []model.UnstableZone {
	out := make([]model.UnstableZone, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, *s.byKey[key])
	}
	return out
}
