package news

import (
	"strings"
	"unicode"
)

// DefaultHashtags is appended to every post.
var DefaultHashtags = []string{"#Космос", "#NASA", "#Роскосмос", "#SpaceNews"}

// PostOptions controls the text of a published post.
type PostOptions struct {
	DescriptionLimit int // runes, 0 means 300
	Hashtags         []string
}

// FormatPost builds the message that goes next to the image.
func FormatPost(item Item, opts PostOptions) string {
	limit := opts.DescriptionLimit
	if limit <= 0 {
		limit = 300
	}
	tags := opts.Hashtags
	if tags == nil {
		tags = DefaultHashtags
	}

	var b strings.Builder
	b.WriteString("🚀 ")
	b.WriteString(strings.TrimSpace(item.Title))
	b.WriteString("\n\n")

	if desc := strings.Join(strings.Fields(item.Description), " "); desc != "" {
		b.WriteString(Truncate(desc, limit))
		b.WriteString("\n\n")
	}

	if item.Link != "" {
		b.WriteString("📖 Подробнее: ")
		b.WriteString(item.Link)
		b.WriteString("\n\n")
	}

	b.WriteString(strings.Join(tags, " "))
	return b.String()
}

// Truncate shortens s to at most limit runes (plus "...") without cutting a
// multi-byte character or, when possible, a word in half.
func Truncate(s string, limit int) string {
	runes := []rune(s)
	if limit <= 0 || len(runes) <= limit {
		return s
	}

	cut := runes[:limit]
	// Prefer the last word boundary, unless that throws away most of the text.
	for i := len(cut) - 1; i > limit/2; i-- {
		if unicode.IsSpace(cut[i]) {
			cut = cut[:i]
			break
		}
	}

	return strings.TrimRightFunc(string(cut), func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(",;:-—", r)
	}) + "..."
}
