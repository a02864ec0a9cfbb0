// Package domain contains the core entities of the booksheet editor.
package domain

import "fmt"

// Field names one editable column of a book record.
// The value doubles as the CSV header for that column.
type Field string

// Editable book fields, in column order.
const (
	FieldTitle         Field = "Title"
	FieldAuthor        Field = "Author"
	FieldGenre         Field = "Genre"
	FieldPublishedYear Field = "PublishedYear"
	FieldISBN          Field = "ISBN"
)

// Fields lists every editable field in export column order.
var Fields = []Field{FieldTitle, FieldAuthor, FieldGenre, FieldPublishedYear, FieldISBN}

// fieldAliases maps the JSON spelling of each field to its canonical name.
var fieldAliases = map[string]Field{
	"title":          FieldTitle,
	"author":         FieldAuthor,
	"genre":          FieldGenre,
	"published_year": FieldPublishedYear,
	"isbn":           FieldISBN,
}

// ParseField resolves a canonical column name or its snake_case alias.
// Canonical names are case-sensitive.
func ParseField(name string) (Field, error) {
	for _, f := range Fields {
		if string(f) == name {
			return f, nil
		}
	}
	if f, ok := fieldAliases[name]; ok {
		return f, nil
	}
	return "", fmt.Errorf("unknown field %q", name)
}

// Record represents one book row in a sheet.
type Record struct {
	ID            int    `json:"id"`
	Title         string `json:"title"`
	Author        string `json:"author"`
	Genre         string `json:"genre"`
	PublishedYear string `json:"published_year"` // text, to keep the source formatting
	ISBN          string `json:"isbn"`
	IsModified    bool   `json:"is_modified"`
}

// Value returns the string value of a field.
func (r *Record) Value(f Field) string {
	switch f {
	case FieldTitle:
		return r.Title
	case FieldAuthor:
		return r.Author
	case FieldGenre:
		return r.Genre
	case FieldPublishedYear:
		return r.PublishedYear
	case FieldISBN:
		return r.ISBN
	default:
		return ""
	}
}

// Set overwrites a field. It does not touch IsModified.
// Reports false for an unknown field.
func (r *Record) Set(f Field, value string) bool {
	switch f {
	case FieldTitle:
		r.Title = value
	case FieldAuthor:
		r.Author = value
	case FieldGenre:
		r.Genre = value
	case FieldPublishedYear:
		r.PublishedYear = value
	case FieldISBN:
		r.ISBN = value
	default:
		return false
	}
	return true
}

// RawRow is one loosely-typed input row keyed by column header.
type RawRow map[string]string

// CloneRecords returns an independent copy of a collection.
func CloneRecords(records []Record) []Record {
	if records == nil {
		return nil
	}
	out := make([]Record, len(records))
	copy(out, records)
	return out
}
