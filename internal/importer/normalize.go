package importer

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	descriptionLimit = 200
	liveEndDefault   = 2 * time.Hour
	feedEndDefault   = time.Hour
	correctedEnd     = 2 * time.Hour
)

// Options tune normalization.
type Options struct {
	Now      time.Time
	Location *time.Location
	Source   Source
	// Upcoming drops undated and past events, collapses duplicates and sorts by start.
	Upcoming bool
	Logger   *zap.Logger
}

// shapeRule is the per-shape normalization step.
type shapeRule struct {
	endDefault time.Duration
}

var shapeRules = map[Shape]shapeRule{
	ShapeTicketmaster: {endDefault: liveEndDefault},
	ShapeEvents:       {endDefault: feedEndDefault},
	ShapeDataEvents:   {endDefault: feedEndDefault},
	ShapeItems:        {endDefault: feedEndDefault},
	ShapeArray:        {endDefault: feedEndDefault},
}

// record is the union of fields seen across supported layouts.
type record struct {
	ID          flexID   `json:"id"`
	AltID       flexID   `json:"_id"`
	Name        flexText `json:"name"`
	Title       string   `json:"title"`
	Start       flexTime `json:"start"`
	End         flexTime `json:"end"`
	Description flexText `json:"description"`
	Info        string   `json:"info"`
	URL         string   `json:"url"`
	Link        string   `json:"link"`
	Online      bool     `json:"online_event"`
	Venue       *struct {
		Name string `json:"name"`
	} `json:"venue"`
	Location flexText `json:"location"`
	Dates    struct {
		Start struct {
			DateTime string `json:"dateTime"`
		} `json:"start"`
		End struct {
			DateTime string `json:"dateTime"`
		} `json:"end"`
	} `json:"dates"`
	Embedded struct {
		Venues []struct {
			Name string `json:"name"`
		} `json:"venues"`
	} `json:"_embedded"`
}

// Normalize maps every record of the payload onto a candidate.
func Normalize(payload Payload, opts Options) ([]Candidate, error) {
	rule, ok := shapeRules[payload.Shape]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedShape, payload.Shape)
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Source == "" {
		opts.Source = SourceFeed
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	out := make([]Candidate, 0, len(payload.Records))
	seen := map[string]struct{}{}
	for idx, raw := range payload.Records {
		var rec record
		if err := json.Unmarshal(raw, &rec); err != nil {
			logger.Warn("skipping undecodable record", zap.Int("index", idx), zap.Error(err))
			continue
		}

		start, hasStart := firstTime(rec.Start.Value, rec.Dates.Start.DateTime)
		if !hasStart {
			if opts.Upcoming {
				continue
			}
			start = opts.Now
		}
		if opts.Upcoming && start.Before(opts.Now) {
			continue
		}
		end, hasEnd := firstTime(rec.End.Value, rec.Dates.End.DateTime)
		if !hasEnd {
			end = start.Add(rule.endDefault)
		}
		if end.Before(start) {
			end = start.Add(correctedEnd)
		}

		c := Candidate{
			ExternalID:  rec.externalID(opts.Now, idx),
			Title:       rec.title(),
			Start:       start,
			End:         end,
			Description: rec.description(),
			Link:        firstNonEmpty(rec.URL, rec.Link),
			Location:    rec.location(),
			Source:      opts.Source,
		}

		if opts.Upcoming {
			key := c.Title + "|" + c.Location + "|" + start.In(opts.Location).Format("2006-01-02")
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
		}
		out = append(out, c)
	}

	if opts.Upcoming {
		sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	}
	return out, nil
}

func (r record) title() string {
	if r.Name.Object && r.Name.Text != "" {
		return r.Name.Text
	}
	if r.Title != "" {
		return r.Title
	}
	if !r.Name.Object && r.Name.Text != "" {
		return r.Name.Text
	}
	return "Untitled Event"
}

func (r record) description() string {
	if r.Description.Text != "" {
		return truncate(r.Description.Text, descriptionLimit)
	}
	if r.Info != "" {
		return truncate(r.Info, descriptionLimit)
	}
	return "No description."
}

func (r record) location() string {
	if r.Online {
		return "Online"
	}
	if r.Venue != nil && r.Venue.Name != "" {
		return r.Venue.Name
	}
	if r.Location.Text != "" {
		return r.Location.Text
	}
	if len(r.Embedded.Venues) > 0 && r.Embedded.Venues[0].Name != "" {
		return r.Embedded.Venues[0].Name
	}
	return "TBA"
}

func (r record) externalID(now time.Time, idx int) string {
	if r.ID != "" {
		return string(r.ID)
	}
	if r.AltID != "" {
		return string(r.AltID)
	}
	return fmt.Sprintf("ev-%d-%d", now.UnixMilli(), idx)
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"}

func firstTime(values ...string) (time.Time, bool) {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// flexText accepts either "value" or {"text": "value"} (or {"name": "value"}).
type flexText struct {
	Text   string
	Object bool
}

func (f *flexText) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		f.Text = s
		return nil
	}
	var obj struct {
		Text string `json:"text"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil
	}
	f.Object = true
	f.Text = firstNonEmpty(obj.Text, obj.Name)
	return nil
}

// flexTime accepts either "timestamp" or {"utc": "timestamp"}.
type flexTime struct {
	Value string
}

func (f *flexTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		f.Value = s
		return nil
	}
	var obj struct {
		UTC string `json:"utc"`
	}
	if err := json.Unmarshal(data, &obj); err == nil {
		f.Value = obj.UTC
	}
	return nil
}

// flexID accepts string or numeric identifiers.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexID(n.String())
	}
	return nil
}
