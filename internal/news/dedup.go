package news

// Aggregate merges the per-source results into one ordered sequence without
// duplicate titles. Sources are walked in the given order and items in the
// order the source returned them; the first occurrence of a normalized title
// wins. A failed source simply contributes nothing.
func Aggregate(results []SourceResult) []Item {
	seen := make(map[string]struct{})
	var out []Item

	for _, r := range results {
		if r.Err != nil {
			continue
		}
		for _, item := range r.Items {
			key := NormalizeTitle(item.Title)
			if key == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, item)
		}
	}

	return out
}

// Duplicates reports how many items Aggregate dropped for the given input.
func Duplicates(results []SourceResult, unique []Item) int {
	total := 0
	for _, r := range results {
		if r.Err == nil {
			total += len(r.Items)
		}
	}
	return total - len(unique)
}
