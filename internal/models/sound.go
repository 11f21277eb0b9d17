// Package models defines the domain types for the soundboard.
package models

import (
	"encoding/json"
	"path/filepath"
)

// SoundEntry identifies a single playable file.
type SoundEntry struct {
	Category string `json:"category"` // category directory as stored in the catalog
	Name     string `json:"name"`
}

// Path returns the file path of the entry.
func (e SoundEntry) Path() string {
	return filepath.Join(e.Category, e.Name)
}

// Category is an ordered group of sound files sharing one directory.
// It serializes as ["<dir>", "<file1>", "<file2>", ...].
type Category struct {
	Dir   string
	Files []string
}

// Entries returns the category's files as SoundEntry values.
func (c Category) Entries() []SoundEntry {
	out := make([]SoundEntry, len(c.Files))
	for i, f := range c.Files {
		out[i] = SoundEntry{Category: c.Dir, Name: f}
	}
	return out
}

// MarshalJSON encodes the category as a flat string array.
func (c Category) MarshalJSON() ([]byte, error) {
	row := make([]string, 0, len(c.Files)+1)
	row = append(row, c.Dir)
	row = append(row, c.Files...)
	return json.Marshal(row)
}

// UnmarshalJSON decodes a flat string array whose first element is the
// directory. An empty row decodes to the zero Category.
func (c *Category) UnmarshalJSON(data []byte) error {
	var row []string
	if err := json.Unmarshal(data, &row); err != nil {
		return err
	}
	*c = Category{}
	if len(row) == 0 {
		return nil
	}
	c.Dir = row[0]
	c.Files = append([]string(nil), row[1:]...)
	return nil
}

// Catalog is the ordered list of categories produced by a scan.
type Catalog []Category

// UnmarshalJSON decodes the category rows, dropping empty ones.
func (c *Catalog) UnmarshalJSON(data []byte) error {
	var rows []Category
	if err := json.Unmarshal(data, &rows); err != nil {
		return err
	}
	out := make(Catalog, 0, len(rows))
	for _, row := range rows {
		if row.Dir == "" && len(row.Files) == 0 {
			continue
		}
		out = append(out, row)
	}
	*c = out
	return nil
}

// Entries flattens the catalog in order.
func (c Catalog) Entries() []SoundEntry {
	var out []SoundEntry
	for _, cat := range c {
		out = append(out, cat.Entries()...)
	}
	return out
}

// Find returns the first entry whose filename is name.
func (c Catalog) Find(name string) (SoundEntry, bool) {
	for _, cat := range c {
		for _, f := range cat.Files {
			if f == name {
				return SoundEntry{Category: cat.Dir, Name: f}, true
			}
		}
	}
	return SoundEntry{}, false
}

// Len returns the number of sound entries across all categories.
func (c Catalog) Len() int {
	n := 0
	for _, cat := range c {
		n += len(cat.Files)
	}
	return n
}

// Clone returns a deep copy.
func (c Catalog) Clone() Catalog {
	if c == nil {
		return Catalog{}
	}
	out := make(Catalog, len(c))
	for i, cat := range c {
		out[i] = Category{Dir: cat.Dir, Files: append([]string(nil), cat.Files...)}
	}
	return out
}
