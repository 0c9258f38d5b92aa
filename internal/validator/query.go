package validator

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

const (
	DefaultPage  = 1
	DefaultLimit = 24
	MaxLimit     = 24
	// MaxPage keeps (page-1)*limit far from integer overflow.
	MaxPage = 1000000
)

// Query rejects parameters outside the allow list.
func Query(values url.Values, allowed ...string) error {
	permitted := make(map[string]struct{}, len(allowed))
	for _, name := range allowed {
		permitted[name] = struct{}{}
	}
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, ok := permitted[name]; !ok {
			return ErrUnknownParameter.WithField(name).WithMessage("Unknown parameter: %s", name)
		}
	}
	return nil
}

// OptionalID parses an optional positive id parameter.
func OptionalID(values url.Values, name string) (*int64, error) {
	raw := values.Get(name)
	if strings.TrimSpace(raw) == "" {
		if values.Has(name) {
			return nil, MissingField(name)
		}
		return nil, nil
	}
	id, err := ID(name, NewValue(raw))
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// Page reads page and limit with their defaults.
func Page(values url.Values) (page, limit int, err error) {
	page, err = pageParam(values, "page", DefaultPage, 1, MaxPage)
	if err != nil {
		return 0, 0, err
	}
	limit, err = pageParam(values, "limit", DefaultLimit, 1, MaxLimit)
	if err != nil {
		return 0, 0, err
	}
	return page, limit, nil
}

func pageParam(values url.Values, name string, fallback, lower, upper int) (int, error) {
	raw := strings.TrimSpace(values.Get(name))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, InvalidFormat(name, "an integer")
	}
	if n < lower || (upper > 0 && n > upper) {
		if upper > 0 {
			return 0, InvalidRange(name, "must be between %d and %d", lower, upper)
		}
		return 0, InvalidRange(name, "must be at least %d", lower)
	}
	return n, nil
}

// IDList parses a comma-separated list of positive ids, dropping repeats.
func IDList(field, raw string) ([]int64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, MissingField(field)
	}
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	seen := make(map[int64]struct{}, len(parts))
	for i, part := range parts {
		id, err := ID(Index(field, i, ""), NewValue(part))
		if err != nil {
			return nil, err
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}
