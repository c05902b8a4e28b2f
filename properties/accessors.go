package properties

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// String returns the value of key formatted as a string, or "" when the
// key is absent or nil.
func (s *Store) String(key string) string {
	v, ok := s.props[key]
	if !ok || v == nil {
		return ""
	}
	if str, ok := v.(string); ok {
		return str
	}
	return fmt.Sprint(v)
}

// Time returns the value of key as a time. String values that were
// loaded without normalisation are parsed.
func (s *Store) Time(key string) (time.Time, bool) {
	switch v := s.props[key].(type) {
	case time.Time:
		return v, true
	case string:
		t, err := ParseTime(v)
		return t, err == nil
	}
	return time.Time{}, false
}

func (s *Store) Int(key string) (int, bool) {
	v, ok := s.props[key]
	if !ok || v == nil {
		return 0, false
	}
	out := Int(v)
	if out.Rejected() {
		return 0, false
	}
	return out.Value.(int), true
}

// Platform is the unique name of the platform the instrument is attached
// to. Several platforms are comma separated.
func (s *Store) Platform() string {
	return s.String("eo:platform")
}

func (s *Store) SetPlatform(platform string) error {
	return s.Set("eo:platform", platform)
}

// Platforms returns the set of platforms, sorted.
func (s *Store) Platforms() []string {
	p := s.Platform()
	if p == "" {
		return nil
	}
	var out []string
	for _, name := range strings.Split(p, ",") {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func (s *Store) SetPlatforms(platforms ...string) error {
	return s.Set("eo:platform", platforms)
}

func (s *Store) Instrument() string {
	return s.String("eo:instrument")
}

func (s *Store) SetInstrument(instrument string) error {
	return s.Set("eo:instrument", instrument)
}

// Producer is the organisation that produced the data, as a domain name
// such as "usgs.gov" or "ga.gov.au".
func (s *Store) Producer() string {
	return s.String("odc:producer")
}

func (s *Store) SetProducer(domain string) error {
	return s.Set("odc:producer", domain)
}

func (s *Store) Datetime() (time.Time, bool) {
	return s.Time("datetime")
}

func (s *Store) SetDatetime(t time.Time) error {
	return s.Set("datetime", t)
}

// DatetimeRange is the acquisition interval of a dataset covering a
// period of time.
func (s *Store) DatetimeRange() (start, end time.Time, ok bool) {
	start, okStart := s.Time("dtr:start_datetime")
	end, okEnd := s.Time("dtr:end_datetime")
	return start, end, okStart && okEnd
}

func (s *Store) SetDatetimeRange(start, end time.Time) error {
	if end.Before(start) {
		return fmt.Errorf("datetime range ends (%v) before it starts (%v)", end, start)
	}
	if err := s.Set("dtr:start_datetime", start); err != nil {
		return err
	}
	return s.Set("dtr:end_datetime", end)
}

// Processed is when the dataset was created.
func (s *Store) Processed() (time.Time, bool) {
	return s.Time("odc:processing_datetime")
}

func (s *Store) SetProcessed(t time.Time) error {
	return s.Set("odc:processing_datetime", t)
}

func (s *Store) SetProcessedNow() error {
	return s.SetProcessed(time.Now().UTC())
}

func (s *Store) ProductFamily() string   { return s.String("odc:product_family") }
func (s *Store) ProductName() string     { return s.String("odc:product") }
func (s *Store) RegionCode() string      { return s.String("odc:region_code") }
func (s *Store) DatasetVersion() string  { return s.String("odc:dataset_version") }
func (s *Store) Maturity() string        { return s.String("dea:dataset_maturity") }
func (s *Store) ProductMaturity() string { return s.String("odc:product_maturity") }
func (s *Store) Constellation() string   { return s.String("constellation") }

func (s *Store) CollectionNumber() (int, bool) {
	return s.Int("odc:collection_number")
}
