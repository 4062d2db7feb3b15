// Package narrate renders the engine's outward-facing text: encounter
// announcements, penalties, level-ups, and whispers.
package narrate

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/muesli/reflow/wordwrap"
)

const DefaultWidth = 80

// templates are keyed by the name passed to Render.
var templates = map[string]string{
	"welcome": "Welcome to IdleRPG, {{ .Name }}.  The one rule — no talking in " +
		"this channel — is now in effect.  Violators will be slashed.  Best of luck!",
	"blessing": "{{ .Name }} has been blessed by the Gods!  Good fortune lies ahead.",
	"monster": "{{ .Name }} came upon a wild {{ .Monster }} in their adventures!  " +
		"The fight raged on, but in the end {{ .Name }} prevailed.  " +
		"**{{ .Loot }}** gold was looted from the dead corpse.",
	"item-equipped": "{{ .Name }} found a discarded {{ .Item | article }}, " +
		"which they have equipped as their main weapon.",
	"item-skipped": "{{ .Name }} found a discarded {{ .Item | article }}, " +
		"but discarded it as they were carrying too much already.",
	"item-carried": "{{ .Name }} found a discarded {{ .Item | article }}.  " +
		"They now have **{{ .Count }}** items in their inventory.",
	"levelup": "{{ .Name }} has reached level {{ .Level }}!",
	"penalty": "{{ .Name }} has disrupted the peace!  Penalties have been " +
		"applied, but life goes on.",
	"digest": "A rooster crows in the distance, signalling the break of dawn.  {{ .Leaderboard }}",
	"transfer-whisper": "{{ .From }} ({{ .FromId }}) has transferred **{{ .Amount }}** " +
		"IDLE to your account!  You can check your balance now with a `!balance` inquiry.",
}

// Narrator renders named templates with sprig functions plus an
// `article` helper that prefixes the indefinite article.
type Narrator struct {
	tmpl  *template.Template
	width int
}

func New() (*Narrator, error) {
	funcs := sprig.TxtFuncMap()
	funcs["article"] = Article

	root := template.New("narrate").Funcs(funcs)
	for name, body := range templates {
		if _, err := root.New(name).Parse(body); err != nil {
			return nil, fmt.Errorf("parsing template %q: %w", name, err)
		}
	}

	return &Narrator{tmpl: root, width: DefaultWidth}, nil
}

// Render expands the named template and word-wraps the result.
func (n *Narrator) Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := n.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("executing template %q: %w", name, err)
	}
	return wordwrap.String(buf.String(), n.width), nil
}

// Article prefixes a noun phrase with its indefinite article.
func Article(s string) string {
	if s == "" {
		return s
	}
	switch strings.ToLower(s[:1]) {
	case "a", "e", "i", "o", "u":
		return "an " + s
	default:
		return "a " + s
	}
}
