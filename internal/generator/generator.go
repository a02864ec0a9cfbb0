// Package generator produces synthetic book rows for sample sheets.
package generator

import (
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/booksheet/booksheet-server/internal/domain"
)

// Year bounds for generated publication years, inclusive.
const (
	MinYear = 1950
	MaxYear = 2024
)

var titles = []string{
	"The Shadow of Tomorrow", "Echoes in Time", "The Last Symphony", "Whispers of the Past",
	"Dancing with Shadows", "The Crimson Dawn", "Silent Waters", "Beyond the Horizon",
	"The Golden Phoenix", "Midnight's Promise", "The Secret Garden", "Winds of Change",
	"The Crystal Tower", "Forgotten Dreams", "The Silver Moon", "Eternal Flames",
	"The Broken Crown", "Ocean's Heart", "The Lost Kingdom", "Starlight's Edge",
	"The Ancient Code", "Mystic Rivers", "The Iron Throne", "Desert Rose",
	"The Frozen Lake", "Thunder's Call", "The Hidden Valley", "Blazing Sun",
	"The Dark Forest", "Silver Arrows", "The Enchanted Castle", "Golden Dreams",
}

var authors = []string{
	"Sarah Johnson", "Michael Chen", "Emma Williams", "David Brown", "Lisa Davis",
	"James Wilson", "Maria Garcia", "Robert Taylor", "Jennifer Martinez", "William Anderson",
	"Jessica Thompson", "Christopher White", "Ashley Harris", "Matthew Clark", "Amanda Lewis",
	"Daniel Rodriguez", "Stephanie Walker", "Kevin Hall", "Michelle Young", "Ryan King",
	"Lauren Wright", "Brandon Lopez", "Samantha Hill", "Nicholas Green", "Rachel Adams",
}

var genres = []string{
	"Fantasy", "Science Fiction", "Mystery", "Romance", "Thriller", "Historical Fiction",
	"Literary Fiction", "Young Adult", "Horror", "Adventure", "Biography", "Self-Help",
	"Business", "Psychology", "Philosophy", "Travel", "Cooking", "Art", "Music", "Sports",
}

// Genres returns the genre pool samples are drawn from.
func Genres() []string {
	out := make([]string, len(genres))
	copy(out, genres)
	return out
}

// NewRand returns a randomly seeded source for Generate.
func NewRand() *rand.Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// Generate returns count sample rows keyed by CSV column.
// The first title is used as sampled; later ones get their 1-based index
// appended, so titles vary but are not guaranteed unique.
// A nil rng uses a randomly seeded source.
func Generate(count int, rng *rand.Rand) []domain.RawRow {
	if count <= 0 {
		return nil
	}
	if rng == nil {
		rng = NewRand()
	}

	rows := make([]domain.RawRow, 0, count)
	for i := range count {
		title := titles[rng.IntN(len(titles))]
		if i > 0 {
			title += " " + strconv.Itoa(i+1)
		}
		rows = append(rows, domain.RawRow{
			string(domain.FieldTitle):         title,
			string(domain.FieldAuthor):        authors[rng.IntN(len(authors))],
			string(domain.FieldGenre):         genres[rng.IntN(len(genres))],
			string(domain.FieldPublishedYear): strconv.Itoa(MinYear + rng.IntN(MaxYear-MinYear+1)),
			string(domain.FieldISBN):          isbn(rng),
		})
	}
	return rows
}

// isbn renders an ISBN-13 shaped string: 978-DDD-DDD-DDDDDD-D.
func isbn(rng *rand.Rand) string {
	var b strings.Builder
	b.Grow(20)
	b.WriteString("978")
	for _, n := range [...]int{3, 3, 6, 1} {
		b.WriteByte('-')
		for range n {
			b.WriteByte(byte('0' + rng.IntN(10)))
		}
	}
	return b.String()
}
