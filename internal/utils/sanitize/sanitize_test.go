package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	tests := map[string]struct {
		in, want string
	}{
		"script dropped":        {`<script>alert('xss')</script>Biology`, "Biology"},
		"tags become spaces":    {`<p>Cell <b>wall</b></p>`, " Cell  wall  "},
		"event handler dropped": {`<p onclick="steal()">Notes</p>`, " Notes "},
		"markdown untouched":    {"# Week 3\n**mitosis**", "# Week 3\n**mitosis**"},
		"empty":                 {"", ""},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got := Sanitize(tt.in)
			assert.Equal(t, tt.want, got)
			assert.NotContains(t, got, "<")
		})
	}
}

func TestClean(t *testing.T) {
	tests := map[string]struct {
		in, want string
	}{
		"wrapping tag":            {"<p>hi</p>", "hi"},
		"adjacent tags":           {"<b>a</b> <b>b</b>", "a b"},
		"outer whitespace":        {"  <p>Lecture</p>  ", "Lecture"},
		"entities unescaped":      {"salt &amp; pepper", "salt & pepper"},
		"lines kept, runs folded": {"  Week 3\n<b>Cell</b>   cycle  ", "Week 3\nCell cycle"},
		"nested markup":           {"<div><p>Hello <b>world</b></p><br><a href='#'>link</a></div>", "Hello world link"},
		"script removed":          {`<script>alert(1)</script>  ok`, "ok"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.in))
		})
	}
}

func TestLine(t *testing.T) {
	assert.Equal(t, "Week 3 Biology", Line("  Week 3\n<b>Biology</b>  "))
	assert.Equal(t, "", Line(" <br> "))
}

func TestText(t *testing.T) {
	tests := map[string]struct {
		in, want string
	}{
		"plain text untouched": {"  two  spaces\n", "  two  spaces\n"},
		"ampersand kept":       {"salt & pepper", "salt & pepper"},
		"tags stripped":        {"<i>sky</i> is blue", " sky  is blue"},
		"script removed":       {"<script>alert(1)</script>ok", "ok"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, Text(tt.in))
		})
	}
}
