// Package service holds toolkeepr's page logic: filtering, derived statistics,
// validation and the mutations behind every form.
package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vbonduro/toolkeepr/internal/domain"
)

// StatusFilter selects records by their active flag.
type StatusFilter string

const (
	StatusAll      StatusFilter = "all"
	StatusActive   StatusFilter = "active"
	StatusInactive StatusFilter = "inactive"
)

// Match reports whether a record with the given active flag passes the filter.
// Unknown values behave like "all".
func (f StatusFilter) Match(active bool) bool {
	switch f {
	case StatusActive:
		return active
	case StatusInactive:
		return !active
	default:
		return true
	}
}

// activityRepository is the subset of store.ActivityStore the services require.
type activityRepository interface {
	Create(ctx context.Context, a *domain.Activity) (*domain.Activity, error)
	ListRecent(ctx context.Context, limit int, kinds ...domain.ActivityKind) ([]*domain.Activity, error)
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// containsFold reports whether any of fields contains q, ignoring case. An
// empty query matches everything.
func containsFold(q string, fields ...string) bool {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

// nextCode returns prefix followed by the highest numeric suffix among codes
// with that prefix plus one, zero-padded to width.
func nextCode(prefix string, codes []string, width int) string {
	highest := 0
	for _, c := range codes {
		if !strings.HasPrefix(c, prefix) {
			continue
		}
		n, err := strconv.Atoi(c[len(prefix):])
		if err != nil {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return fmt.Sprintf("%s%0*d", prefix, width, highest+1)
}

// notFound wraps domain.ErrNotFound with the kind and id that was missing.
func notFound(what string, id any) error {
	return fmt.Errorf("%s %v: %w", what, id, domain.ErrNotFound)
}

func validateLength(errs domain.ValidationErrors, field, label, value string, min, max int) {
	n := len([]rune(strings.TrimSpace(value)))
	switch {
	case n == 0:
		errs.Add(field, label+" is required")
	case min > 0 && n < min:
		errs.Add(field, fmt.Sprintf("%s must be at least %d characters", label, min))
	case max > 0 && n > max:
		errs.Add(field, fmt.Sprintf("%s must be at most %d characters", label, max))
	}
}

// exportFileName is the download name of a collection export for the given day.
func exportFileName(collection string, at time.Time) string {
	return fmt.Sprintf("%s-export-%s.json", collection, at.Format("2006-01-02"))
}
