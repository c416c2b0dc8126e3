package tools

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"

	"concierge/pkg/proto"
	"concierge/pkg/utils"
)

// CatalogEntry is one item in the mock content catalog. In production this
// would come from a content database.
type CatalogEntry struct {
	Title       string
	Kind        string
	Year        int
	Rating      string
	RentalPrice float64
	Description string
}

// catalog maps search keywords to content. Keys are matched as substrings of
// the lowercased query.
//
//nolint:gochecknoglobals // static demo catalog
var catalog = map[string]CatalogEntry{
	"matrix": {
		Title:       "The Matrix",
		Kind:        "movie",
		Year:        1999,
		Rating:      "R",
		RentalPrice: 3.99,
		Description: "A computer hacker learns the true nature of reality",
	},
	"nature": {
		Title:       "Planet Earth II",
		Kind:        "documentary",
		Year:        2016,
		Rating:      "TV-G",
		RentalPrice: 2.99,
		Description: "Stunning wildlife documentary series",
	},
	"comedy": {
		Title:       "The Office",
		Kind:        "show",
		Year:        2005,
		Rating:      "TV-14",
		RentalPrice: 1.99,
		Description: "Mockumentary about office workers",
	},
	"dog": {
		Title:       "Cute Dogs Compilation",
		Kind:        "video",
		Year:        2023,
		Rating:      "G",
		RentalPrice: 0.99,
		Description: "Adorable dogs doing funny things",
	},
}

// LookupCatalog finds a catalog entry whose keyword or title appears in the
// query. Returns false when nothing matches.
func LookupCatalog(query string) (CatalogEntry, bool) {
	queryLower := strings.ToLower(query)
	for key, entry := range catalog {
		if strings.Contains(queryLower, key) || strings.Contains(queryLower, strings.ToLower(entry.Title)) {
			return entry, true
		}
	}
	return CatalogEntry{}, false
}

// SearchContentTool searches the content catalog. Informational only: renting
// requires the rent_movie tool afterwards.
type SearchContentTool struct{}

// NewSearchContentTool creates a search content tool instance.
func NewSearchContentTool() *SearchContentTool {
	return &SearchContentTool{}
}

// Definition implements Tool.
func (t *SearchContentTool) Definition() Definition {
	return Definition{
		Name:        ToolSearchContent,
		Description: "Search the content catalog. Returns title, rating, and rental price; use rent_movie to watch",
		Mode:        proto.ModeDirect,
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"query": {Type: "string", Description: "Search terms, e.g. 'matrix', 'nature', 'comedy', 'dogs'"},
			},
			Required: []string{"query"},
		},
	}
}

// Exec implements Tool.
func (t *SearchContentTool) Exec(_ context.Context, args map[string]any) (Result, error) {
	query := utils.GetMapFieldOr(args, "query", "")

	entry, found := LookupCatalog(query)
	if !found {
		return Result{Text: fmt.Sprintf("No exact matches found for '%s'. "+
			"Try searching for 'matrix', 'nature documentaries', 'comedy shows', or 'dogs'.", query)}, nil
	}

	text := fmt.Sprintf(`Found: %s (%d)
Type: %s
Rating: %s
Rental Price: $%.2f
Description: %s

To rent and watch this content, use the rent_movie tool with the title: %q`,
		entry.Title, entry.Year, entry.Kind, entry.Rating, entry.RentalPrice, entry.Description, entry.Title)

	return Result{Text: text}, nil
}

// RentMovieTool rents a movie and returns the playback URL. Gated: payment is
// only processed after an approval decision.
type RentMovieTool struct {
	mu      sync.Mutex
	charges int
}

// NewRentMovieTool creates a rent movie tool instance.
func NewRentMovieTool() *RentMovieTool {
	return &RentMovieTool{}
}

// Definition implements Tool.
func (t *RentMovieTool) Definition() Definition {
	return Definition{
		Name:        ToolRentMovie,
		Description: "Rent a movie and get the video URL. Requires user approval before processing payment",
		Mode:        proto.ModeGated,
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"title":           {Type: "string", Description: "Exact title of the movie to rent (from search_content results)"},
				"rental_price":    {Type: "number", Description: "Rental price from search_content results, e.g. 3.99"},
				KeySelectedOption: {Type: "string", Description: "User's confirmation decision, e.g. 'Yes, Rent' or 'Cancel'"},
			},
			Required: []string{"title"},
		},
	}
}

// Exec implements Tool. Runs only after approval; a selected_option override
// containing "cancel" skips the charge entirely.
func (t *RentMovieTool) Exec(_ context.Context, args map[string]any) (Result, error) {
	selected := utils.GetMapFieldOr(args, KeySelectedOption, "")
	if selected != "" && strings.Contains(strings.ToLower(selected), "cancel") {
		return Result{Text: "Rental cancelled by user."}, nil
	}

	title := utils.GetMapFieldOr(args, "title", "")
	if title == "" {
		return Result{}, fmt.Errorf("rent_movie requires a title")
	}

	t.mu.Lock()
	t.charges++
	t.mu.Unlock()

	// Stable demo rental id derived from the title.
	h := fnv.New32a()
	_, _ = h.Write([]byte(title))
	rentalID := fmt.Sprintf("R-%05d", h.Sum32()%100000)

	text := fmt.Sprintf(`'%s' rented successfully!

Rental ID: %s
Access: 48 hours
Video URL: https://www.youtube.com/embed/vKQi3bBA1y8`, title, rentalID)

	return Result{Text: text}, nil
}

// ChargeCount reports how many rentals were actually charged.
func (t *RentMovieTool) ChargeCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.charges
}
