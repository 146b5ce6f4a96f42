// Package theme maps news titles to the visual theme of the post background.
package theme

import (
	"strings"
	"unicode"
)

// Key is one entry of the fixed theme catalog.
type Key int

const (
	Generic Key = iota
	Mars
	Moon
	Jupiter
	Saturn
	Venus
	Mercury
	Neptune
	Uranus
	ISS
	Rocket
	Galaxy
)

var names = map[Key]string{
	Generic: "generic",
	Mars:    "mars",
	Moon:    "moon",
	Jupiter: "jupiter",
	Saturn:  "saturn",
	Venus:   "venus",
	Mercury: "mercury",
	Neptune: "neptune",
	Uranus:  "uranus",
	ISS:     "iss",
	Rocket:  "rocket",
	Galaxy:  "galaxy",
}

// image search queries per theme
var queries = map[Key]string{
	Generic: "space universe",
	Mars:    "mars landscape",
	Moon:    "moon",
	Jupiter: "jupiter planet",
	Saturn:  "saturn rings",
	Venus:   "venus planet",
	Mercury: "mercury planet",
	Neptune: "neptune planet",
	Uranus:  "uranus planet",
	ISS:     "international space station",
	Rocket:  "rocket space",
	Galaxy:  "galaxy",
}

func (k Key) String() string {
	if n, ok := names[k]; ok {
		return n
	}
	return "unknown"
}

// Query is the image search phrase associated with the theme.
func (k Key) Query() string {
	if q, ok := queries[k]; ok {
		return q
	}
	return queries[Generic]
}

// Rule ties a lowercase stem to a theme. A stem matches at the start of a
// word; Whole rules must match the entire word. Multi-word stems match
// consecutive words.
type Rule struct {
	Stem  string
	Key   Key
	Whole bool
}

// DefaultRules is checked top to bottom. Planets and named bodies come first,
// then stations and launch vehicles, then deep-sky terms. Generic "space"
// words are absent: anything unmatched falls through to Generic.
var DefaultRules = []Rule{
	{"марс", Mars, false},
	{"красная планета", Mars, false},
	{"красной планет", Mars, false},
	{"mars", Mars, true},
	{"martian", Mars, false},

	{"юпитер", Jupiter, false},
	{"jupiter", Jupiter, true},
	{"сатурн", Saturn, false},
	{"saturn", Saturn, true},
	{"венер", Venus, false},
	{"venus", Venus, true},
	{"меркури", Mercury, false},
	{"mercury", Mercury, true},
	{"нептун", Neptune, false},
	{"neptune", Neptune, true},
	{"уран", Uranus, true},
	{"урана", Uranus, true},
	{"урану", Uranus, true},
	{"ураном", Uranus, true},
	{"уране", Uranus, true},
	{"uranus", Uranus, true},

	{"луна", Moon, true},
	{"луну", Moon, true},
	{"луне", Moon, true},
	{"луны", Moon, true},
	{"луной", Moon, true},
	{"лунн", Moon, false},
	{"лунох", Moon, false},
	{"moon", Moon, false},
	{"lunar", Moon, true},

	{"мкс", ISS, true},
	{"космическая станция", ISS, false},
	{"космической станци", ISS, false},
	{"space station", ISS, false},
	{"iss", ISS, true},

	{"ракет", Rocket, false},
	{"запуск", Rocket, false},
	{"старт", Rocket, true},
	{"старта", Rocket, true},
	{"стартом", Rocket, true},
	{"старте", Rocket, true},
	{"стартов", Rocket, false},
	{"стартует", Rocket, false},
	{"стартуют", Rocket, false},
	{"rocket", Rocket, false},
	{"launch", Rocket, false},

	{"галактик", Galaxy, false},
	{"млечный путь", Galaxy, false},
	{"туманност", Galaxy, false},
	{"galaxy", Galaxy, true},
	{"galaxies", Galaxy, true},
	{"nebula", Galaxy, false},
}

// Resolver picks a theme for a title using an ordered rule table.
type Resolver struct {
	rules []Rule
}

// NewResolver returns a resolver over rules; nil means DefaultRules.
func NewResolver(rules []Rule) *Resolver {
	if rules == nil {
		rules = DefaultRules
	}
	normalized := make([]Rule, 0, len(rules))
	for _, r := range rules {
		stem := words(r.Stem)
		if stem == "" {
			continue
		}
		normalized = append(normalized, Rule{Stem: stem, Key: r.Key, Whole: r.Whole})
	}
	return &Resolver{rules: normalized}
}

// Resolve returns the theme of the first rule found in title, or Generic.
func (r *Resolver) Resolve(title string) Key {
	t := " " + words(title) + " "
	for _, rule := range r.rules {
		needle := " " + rule.Stem
		if rule.Whole {
			needle += " "
		}
		if strings.Contains(t, needle) {
			return rule.Key
		}
	}
	return Generic
}

// words lowercases s and reduces it to letter/digit runs joined by single
// spaces, so punctuation and hyphens separate words.
func words(s string) string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(fields, " ")
}
