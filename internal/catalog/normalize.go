package catalog

import (
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/cesargomez89/mediasync/internal/domain"
)

// ScoreScale is the top of the canonical score range.
const ScoreScale = 10.0

var (
	positiveTerms = map[string]bool{
		"good": true, "thumbs_up": true, "thumbs up": true, "up": true,
		"positive": true, "liked": true, "like": true, "yes": true, "true": true,
	}
	negativeTerms = map[string]bool{
		"bad": true, "thumbs_down": true, "thumbs down": true, "down": true,
		"negative": true, "disliked": true, "dislike": true, "no": true, "false": true,
	}
)

// NormalizeScore maps a provider score onto [0,10] with one decimal.
// It accepts any Go integer or float, json.Number, bool and strings, and
// returns nil when the input carries no score.
func NormalizeScore(raw interface{}) *float64 {
	var v float64
	switch s := raw.(type) {
	case nil:
		return nil
	case *float64:
		if s == nil {
			return nil
		}
		v = *s
	case bool:
		if s {
			return score(0.8 * ScoreScale)
		}
		return score(0.3 * ScoreScale)
	case float64:
		v = s
	case float32:
		v = float64(s)
	case int:
		v = float64(s)
	case int8:
		v = float64(s)
	case int16:
		v = float64(s)
	case int32:
		v = float64(s)
	case int64:
		v = float64(s)
	case uint:
		v = float64(s)
	case uint8:
		v = float64(s)
	case uint16:
		v = float64(s)
	case uint32:
		v = float64(s)
	case uint64:
		v = float64(s)
	case json.Number:
		f, err := s.Float64()
		if err != nil {
			return nil
		}
		v = f
	case string:
		t := strings.ToLower(strings.TrimSpace(s))
		if t == "" {
			return nil
		}
		if positiveTerms[t] {
			return score(0.8 * ScoreScale)
		}
		if negativeTerms[t] {
			return score(0.3 * ScoreScale)
		}
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return nil
		}
		v = f
	default:
		return nil
	}

	if math.IsNaN(v) {
		return nil
	}
	switch {
	case v < 0:
		v = 0
	case v <= ScoreScale:
	case v <= 100:
		v /= 10
	default:
		v = ScoreScale
	}
	return score(v)
}

// nonZeroScore treats 0 as "not scored", which is how list trackers report
// an entry the user never rated.
func nonZeroScore(v *float64) *float64 {
	if v == nil || *v == 0 {
		return nil
	}
	return NormalizeScore(*v)
}

func score(v float64) *float64 {
	r := math.Round(v*10) / 10
	return &r
}

var (
	aniListStatuses = map[string]domain.Status{
		"CURRENT":   domain.StatusInProgress,
		"REPEATING": domain.StatusInProgress,
		"PLANNING":  domain.StatusPlanned,
		"COMPLETED": domain.StatusCompleted,
		"DROPPED":   domain.StatusDropped,
		"PAUSED":    domain.StatusPaused,
	}
	malStatuses = map[string]domain.Status{
		"watching":      domain.StatusInProgress,
		"reading":       domain.StatusInProgress,
		"completed":     domain.StatusCompleted,
		"on_hold":       domain.StatusPaused,
		"dropped":       domain.StatusDropped,
		"plan_to_watch": domain.StatusPlanned,
		"plan_to_read":  domain.StatusPlanned,
	}
)

// MapStatus looks status up in table. Unknown values map to PLANNED.
func MapStatus(table map[string]domain.Status, status string) domain.Status {
	if s, ok := table[status]; ok {
		return s
	}
	return domain.StatusPlanned
}

// pickTitles returns the first non-empty candidate as primary and the next
// distinct non-empty one as secondary.
func pickTitles(candidates ...string) (primary, secondary string) {
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if primary == "" {
			primary = c
			continue
		}
		if !strings.EqualFold(c, primary) {
			return primary, c
		}
	}
	return primary, ""
}

// absoluteURL prefixes relative image paths with base.
func absoluteURL(base, pathOrURL string) string {
	if pathOrURL == "" {
		return ""
	}
	if strings.HasPrefix(pathOrURL, "http://") || strings.HasPrefix(pathOrURL, "https://") {
		return pathOrURL
	}
	if !strings.HasPrefix(pathOrURL, "/") {
		pathOrURL = "/" + pathOrURL
	}
	return base + pathOrURL
}

func forceHTTPS(u string) string {
	if strings.HasPrefix(u, "http://") {
		return "https://" + strings.TrimPrefix(u, "http://")
	}
	return u
}

// idString renders a numeric provider id. Zero means missing.
func idString(id int64) string {
	if id <= 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}

func progressOf(v *int) int {
	if v == nil || *v < 0 {
		return 0
	}
	return *v
}

// newMedia validates the required fields shared by every provider.
func newMedia(p domain.Provider, mt domain.MediaType, id, primary, secondary string) (*domain.CanonicalMedia, error) {
	if id == "" {
		return nil, domain.Malformed(p, "missing provider id", nil)
	}
	if primary == "" {
		return nil, domain.Malformed(p, "missing title for id "+id, nil)
	}
	if !mt.Valid() {
		return nil, domain.Malformed(p, "unknown media type "+string(mt), nil)
	}
	return &domain.CanonicalMedia{
		MediaType:      mt,
		Provider:       p,
		ProviderID:     id,
		ProviderKeys:   domain.ProviderKeys{p: id},
		PrimaryTitle:   primary,
		SecondaryTitle: secondary,
	}, nil
}

func decode(p domain.Provider, raw json.RawMessage, target interface{}) error {
	if len(raw) == 0 {
		return domain.Malformed(p, "empty payload", nil)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return domain.Malformed(p, "decode item", err)
	}
	return nil
}
