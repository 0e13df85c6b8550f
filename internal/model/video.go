package model

import (
	"errors"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Video represents a saved video link with metadata.
type Video struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Tags      []string  `json:"tags"`
	Category  Category  `json:"category"`
	Status    Status    `json:"status"`
	AddedAt   time.Time `json:"addedAt"`
	Notes     string    `json:"notes"`
	AISummary string    `json:"aiSummary,omitempty"` // empty = never summarized
}

// NewVideoParams holds parameters for creating a new Video.
type NewVideoParams struct {
	Title    string
	URL      string
	Tags     []string
	Category Category
	Status   Status
	Notes    string
}

// NewVideo creates a Video with generated UUID and creation timestamp.
// Missing category and status default to Other and Unwatched.
func NewVideo(params NewVideoParams) Video {
	category := params.Category
	if !category.Valid() {
		category = CategoryOther
	}
	status := params.Status
	if !status.Valid() {
		status = StatusUnwatched
	}

	return Video{
		ID:       GenerateUUID(),
		Title:    params.Title,
		URL:      params.URL,
		Tags:     NormalizeTags(params.Tags),
		Category: category,
		Status:   status,
		AddedAt:  time.Now(),
		Notes:    params.Notes,
	}
}

// HasTag reports whether the video carries tag, ignoring case.
func (v Video) HasTag(tag string) bool {
	for _, t := range v.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// VideoForm is the set of user-editable fields submitted by the edit form.
type VideoForm struct {
	Title    string
	URL      string
	Tags     []string
	Category Category
	Status   Status
	Notes    string
}

// FormFromVideo prefills a form with the editable fields of v.
func FormFromVideo(v Video) VideoForm {
	return VideoForm{
		Title:    v.Title,
		URL:      v.URL,
		Tags:     append([]string(nil), v.Tags...),
		Category: v.Category,
		Status:   v.Status,
		Notes:    v.Notes,
	}
}

// Validate trims the title and URL, then checks the form before it is
// applied to the store.
func (f *VideoForm) Validate() error {
	f.Title = strings.TrimSpace(f.Title)
	f.URL = strings.TrimSpace(f.URL)
	return validation.ValidateStruct(f,
		validation.Field(&f.Title, validation.Required, validation.Length(1, 500)),
		validation.Field(&f.URL, validation.Required, is.URL, validation.By(httpURL)),
		validation.Field(&f.Category, validation.Required, validation.By(func(value interface{}) error {
			if c, _ := value.(Category); !c.Valid() {
				return errors.New("must be a known category")
			}
			return nil
		})),
		validation.Field(&f.Status, validation.Required, validation.By(func(value interface{}) error {
			if s, _ := value.(Status); !s.Valid() {
				return errors.New("must be a known status")
			}
			return nil
		})),
	)
}

// apply copies the editable fields onto v. An unknown category or status
// leaves the current value in place.
func (f VideoForm) apply(v *Video) {
	v.Title = strings.TrimSpace(f.Title)
	v.URL = strings.TrimSpace(f.URL)
	v.Tags = NormalizeTags(f.Tags)
	if f.Category.Valid() {
		v.Category = f.Category
	}
	if f.Status.Valid() {
		v.Status = f.Status
	}
	v.Notes = f.Notes
}

func httpURL(value interface{}) error {
	s, _ := value.(string)
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("must be an http or https link")
	}
	return nil
}

// NormalizeTags trims tags, drops blanks and removes case-insensitive
// duplicates keeping the first occurrence. Never returns nil.
func NormalizeTags(tags []string) []string {
	result := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if seen[key] {
			continue
		}
		seen[key] = true
		result = append(result, tag)
	}
	return result
}

// MergeTags appends the tags of extra missing from existing.
func MergeTags(existing, extra []string) []string {
	return NormalizeTags(append(append([]string(nil), existing...), extra...))
}
