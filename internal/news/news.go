package news

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Item is a single news entry as delivered by a source.
type Item struct {
	Title       string
	Description string
	Link        string
	PublishedAt string // as given by the source, never parsed for ordering
	SourceID    string
	SourceName  string
	ImageHint   string // optional image URL carried by the source

	// NeedsTranslation is set by sources whose text is not in the target locale.
	NeedsTranslation bool
}

// Attribution is the human readable source label used under the post image.
func (i Item) Attribution() string {
	if i.SourceName != "" {
		return i.SourceName
	}
	return i.SourceID
}

// Source fetches raw items from one news endpoint.
type Source interface {
	ID() string
	Fetch(ctx context.Context) ([]Item, error)
}

// SourceResult is what one source produced during a cycle.
type SourceResult struct {
	SourceID string
	Items    []Item
	Err      error
}

// NormalizeTitle lowercases, trims and collapses whitespace so that
// "МАРС:  новая миссия " and "марс: новая миссия" compare equal.
func NormalizeTitle(title string) string {
	s := cases.Lower(language.Und).String(title)
	return strings.Join(strings.Fields(s), " ")
}

// TitleKey is a short stable hash of the normalized title, used as history key.
func TitleKey(title string) string {
	h := sha256.Sum256([]byte(NormalizeTitle(title)))
	return hex.EncodeToString(h[:])[:16]
}
