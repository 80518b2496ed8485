package dto

import (
	"strings"

	"github.com/cesargomez89/mediasync/internal/domain"
)

// ParseMediaTypes reads a comma separated sources parameter. An empty
// value selects every media type.
func ParseMediaTypes(sources string) ([]domain.MediaType, []ValidationError) {
	if strings.TrimSpace(sources) == "" {
		return nil, nil
	}
	var (
		out  []domain.MediaType
		errs []ValidationError
		seen = make(map[domain.MediaType]bool)
	)
	for _, part := range strings.Split(sources, ",") {
		mt, err := domain.ParseMediaType(part)
		if err != nil {
			errs = append(errs, ValidationError{Field: "sources", Message: err.Error()})
			continue
		}
		if !seen[mt] {
			seen[mt] = true
			out = append(out, mt)
		}
	}
	return out, errs
}
