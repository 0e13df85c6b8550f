package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Category is the closed set of topics a video can be filed under.
type Category string

const (
	CategoryProgramming   Category = "Programming"
	CategoryFitness       Category = "Fitness"
	CategoryLanguage      Category = "Language"
	CategoryDesign        Category = "Design"
	CategoryBusiness      Category = "Business"
	CategoryScience       Category = "Science"
	CategoryEntertainment Category = "Entertainment"
	CategoryOther         Category = "Other"
)

// Status is the closed set of watch states.
type Status string

const (
	StatusUnwatched Status = "Unwatched"
	StatusWatching  Status = "Watching"
	StatusCompleted Status = "Completed"
	StatusArchived  Status = "Archived"
	StatusTrash     Status = "Trash"
)

var categories = []Category{
	CategoryProgramming,
	CategoryFitness,
	CategoryLanguage,
	CategoryDesign,
	CategoryBusiness,
	CategoryScience,
	CategoryEntertainment,
	CategoryOther,
}

var statuses = []Status{
	StatusUnwatched,
	StatusWatching,
	StatusCompleted,
	StatusArchived,
	StatusTrash,
}

// Categories returns all categories in display order.
func Categories() []Category {
	return append([]Category(nil), categories...)
}

// Statuses returns all statuses in display order.
func Statuses() []Status {
	return append([]Status(nil), statuses...)
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range categories {
		if c == known {
			return true
		}
	}
	return false
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	for _, known := range statuses {
		if s == known {
			return true
		}
	}
	return false
}

// ParseCategory matches s against the known categories, ignoring case.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	for _, c := range categories {
		if strings.EqualFold(s, string(c)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// ParseStatus matches s against the known statuses, ignoring case.
func ParseStatus(s string) (Status, error) {
	s = strings.TrimSpace(s)
	for _, st := range statuses {
		if strings.EqualFold(s, string(st)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// UnmarshalJSON coerces unknown values to CategoryOther so a loaded store
// never holds a category outside the closed set.
func (c *Category) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseCategory(s)
	if err != nil {
		parsed = CategoryOther
	}
	*c = parsed
	return nil
}

// UnmarshalJSON coerces unknown values to StatusUnwatched.
func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseStatus(raw)
	if err != nil {
		parsed = StatusUnwatched
	}
	*s = parsed
	return nil
}
