package astipipeline

import "slices"

// Metadata carries the user-facing identity of a scheduler or endpoint
type Metadata struct {
	Description string   `json:"description,omitempty"`
	Name        string   `json:"name,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// Merge overlays i on m: non-empty scalar fields of i win and tags are
// unioned, keeping the order of first appearance
func (m *Metadata) Merge(i Metadata) Metadata {
	if i.Name != "" {
		m.Name = i.Name
	}
	if i.Description != "" {
		m.Description = i.Description
	}
	for _, t := range i.Tags {
		if slices.Contains(m.Tags, t) {
			continue
		}
		m.Tags = append(m.Tags, t)
	}
	return *m
}
