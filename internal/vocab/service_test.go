package vocab

import (
	"strings"
	"testing"
)

func TestParseTextEntry_PipeFormat(t *testing.T) {
	phrase, context := ParseTextEntry("muddle through | We muddled through the winter somehow.")
	if phrase != "muddle through" {
		t.Errorf("phrase = %q", phrase)
	}
	if context != "We muddled through the winter somehow." {
		t.Errorf("context = %q", context)
	}
}

func TestParseTextEntry_QuotedPhrase(t *testing.T) {
	phrase, context := ParseTextEntry(`He gave a "wry smile" and left.`)
	if phrase != "wry smile" {
		t.Errorf("phrase = %q", phrase)
	}
	if !strings.Contains(context, "wry smile") {
		t.Errorf("context = %q", context)
	}
}

func TestParseTextEntry_PlainSentence(t *testing.T) {
	phrase, context := ParseTextEntry("just a sentence without markers")
	if phrase != "" {
		t.Errorf("phrase = %q, want empty", phrase)
	}
	if context != "just a sentence without markers" {
		t.Errorf("context = %q", context)
	}
}

func TestParseExplanations_Markers(t *testing.T) {
	text := "PHRASE_EXPLANATION:\nIt means to manage despite difficulty.\nCONTEXT_EXPLANATION:\nThe narrator survived a hard winter."
	p, c := ParseExplanations(text)
	if p != "It means to manage despite difficulty." {
		t.Errorf("phrase explanation = %q", p)
	}
	if c != "The narrator survived a hard winter." {
		t.Errorf("context explanation = %q", c)
	}
}

func TestParseExplanations_NoMarkers(t *testing.T) {
	p, c := ParseExplanations("free-form explanation without sections")
	if p != "free-form explanation without sections" {
		t.Errorf("phrase explanation = %q", p)
	}
	if c != "" {
		t.Errorf("context explanation = %q, want empty", c)
	}
}

func TestParseExplanations_Truncates(t *testing.T) {
	long := strings.Repeat("x", explanationLimit+50)
	p, _ := ParseExplanations("PHRASE_EXPLANATION: " + long)
	if len(p) != explanationLimit {
		t.Errorf("len = %d, want %d", len(p), explanationLimit)
	}
}

func TestStripFence(t *testing.T) {
	raw := "```json\n{\"phrase\":\"x\",\"context\":\"y\"}\n```"
	if got := stripFence(raw); got != `{"phrase":"x","context":"y"}` {
		t.Errorf("got %q", got)
	}
	if got := stripFence(`{"a":1}`); got != `{"a":1}` {
		t.Errorf("unfenced input changed: %q", got)
	}
}
