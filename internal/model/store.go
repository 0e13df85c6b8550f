package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNotFound is returned when no video has the requested ID.
var ErrNotFound = errors.New("video not found")

// Store holds all videos, newest first.
type Store struct {
	Videos []Video
}

// NewStore creates an empty Store with an initialized slice.
func NewStore() *Store {
	return &Store{
		Videos: []Video{},
	}
}

// Create builds a video from the form and prepends it to the list.
func (s *Store) Create(form VideoForm) Video {
	video := NewVideo(NewVideoParams{
		Category: form.Category,
		Status:   form.Status,
	})
	form.apply(&video)

	s.Videos = append([]Video{video}, s.Videos...)
	return video
}

// Update applies the form's editable fields to the video with the given ID.
// ID, AddedAt and AISummary are left untouched, as are the category and
// status when the form's value is unknown.
func (s *Store) Update(id string, form VideoForm) error {
	video := s.GetVideoByID(id)
	if video == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	form.apply(video)
	return nil
}

// Replace overwrites the video with the same ID.
func (s *Store) Replace(video Video) error {
	for i := range s.Videos {
		if s.Videos[i].ID == video.ID {
			if video.Tags == nil {
				video.Tags = []string{}
			}
			s.Videos[i] = video
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNotFound, video.ID)
}

// Delete removes the video with the given ID, keeping the order of the rest.
func (s *Store) Delete(id string) error {
	for i := range s.Videos {
		if s.Videos[i].ID == id {
			s.Videos = append(s.Videos[:i], s.Videos[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

// GetVideoByID finds a video by ID, returns nil if not found.
func (s *Store) GetVideoByID(id string) *Video {
	for i := range s.Videos {
		if s.Videos[i].ID == id {
			return &s.Videos[i]
		}
	}
	return nil
}

// HasVideoURL reports whether a video with the given URL exists.
func (s *Store) HasVideoURL(url string) bool {
	for _, v := range s.Videos {
		if v.URL == url {
			return true
		}
	}
	return false
}

// AllTags returns every distinct tag in the store, sorted case-insensitively.
func (s *Store) AllTags() []string {
	seen := make(map[string]bool)
	var tags []string
	for _, v := range s.Videos {
		for _, tag := range v.Tags {
			key := strings.ToLower(tag)
			if seen[key] {
				continue
			}
			seen[key] = true
			tags = append(tags, tag)
		}
	}
	sort.Slice(tags, func(i, j int) bool {
		return strings.ToLower(tags[i]) < strings.ToLower(tags[j])
	})
	return tags
}

// ImportMerge appends imported videos, skipping URLs that already exist
// (including duplicates within the import itself).
func (s *Store) ImportMerge(videos []Video) (added, skipped int) {
	for _, v := range videos {
		if s.HasVideoURL(v.URL) {
			skipped++
			continue
		}
		if v.Tags == nil {
			v.Tags = []string{}
		}
		s.Videos = append(s.Videos, v)
		added++
	}
	return added, skipped
}
