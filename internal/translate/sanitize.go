package translate

import (
	"regexp"
	"strings"
)

var (
	inlineNoteRe = regexp.MustCompile(`(?i)[(\[]\s*(note|примечание|примітка)\s*:[^)\]]*[)\]]`)
	noteLineRe   = regexp.MustCompile(`(?i)^(note|примечание|примітка)\s*:`)
	labelRe      = regexp.MustCompile(`(?i)^(translation|перевод|переклад)\s*:\s*`)
)

// SanitizeAIText strips disclaimers and labels that language models add around
// a translation.
func SanitizeAIText(s string) string {
	s = inlineNoteRe.ReplaceAllString(s, "")

	var kept []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || noteLineRe.MatchString(line) {
			continue
		}
		if len(kept) == 0 {
			if line = labelRe.ReplaceAllString(line, ""); line == "" {
				continue
			}
		}
		kept = append(kept, strings.Join(strings.Fields(line), " "))
	}

	out := strings.TrimSpace(strings.Join(kept, "\n"))
	if len(out) >= 2 && strings.HasPrefix(out, `"`) && strings.HasSuffix(out, `"`) {
		out = strings.TrimSpace(out[1 : len(out)-1])
	}
	return out
}
