package translate

import (
	"strings"
	"testing"
)

func TestSanitizeAIText_RemovesInlineParenthesizedDisclaimer(t *testing.T) {
	in := "Марсоход нашёл следы воды\n(Note: This translation is a machine translation and may contain errors.) Миссия продлена до 2026 года."
	out := SanitizeAIText(in)
	if out == "" {
		t.Fatalf("got empty output")
	}
	if strings.Contains(strings.ToLower(out), "note:") {
		t.Errorf("output still contains 'Note:' disclaimer: %q", out)
	}
	if !strings.Contains(out, "Миссия продлена") {
		t.Errorf("expected content preserved after disclaimer removal, got: %q", out)
	}
}

func TestSanitizeAIText_RemovesFullLineNote(t *testing.T) {
	in := "Note: This translation is a machine translation and may contain errors.\nЗапуск перенесён на пятницу."
	out := SanitizeAIText(in)
	if out != "Запуск перенесён на пятницу." {
		t.Errorf("disclaimer line was not removed: %q", out)
	}
}

func TestSanitizeAIText_RemovesBracketedDisclaimer(t *testing.T) {
	in := "[Примечание: машинный перевод] Это тестовая строка."
	out := SanitizeAIText(in)
	if out != "Это тестовая строка." {
		t.Errorf("bracketed disclaimer was not removed: %q", out)
	}
}

func TestSanitizeAIText_StripsLabelAndQuotes(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Перевод: Стыковка с МКС", "Стыковка с МКС"},
		{"Translation:\n\"Стыковка с МКС\"", "Стыковка с МКС"},
		{"  обычный   текст ", "обычный текст"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := SanitizeAIText(tt.in); got != tt.want {
			t.Errorf("SanitizeAIText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
