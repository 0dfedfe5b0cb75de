// Package enforce – ban message rendering
//
// This file isolates the localized, evidence-citing ban message as a pure
// rendering step: structured data in, text out. The full text lives in a
// single Templates set keyed by locale, so deployments targeting another
// audience swap the catalogue without touching ban logic.
package enforce

import (
	"fmt"
	"strings"
	"text/template"
	"time"

	"golang.org/x/text/language"

	"github.com/subguard/subguard/internal/domain"
)

// Evidence is one removed comment cited in the ban message.
type Evidence struct {
	PostID     string // parent submission fullname (t3_ prefixed)
	CommentID  string // comment fullname (t1_ prefixed)
	CreatedUTC int64
	ByAdmins   bool // removed by platform administrators
}

// MessageData is everything the message template consumes.
type MessageData struct {
	Username  string
	Subreddit string
	BanNumber int // 1-based: priorBans + 1
	Evidence  []Evidence
}

// Templates is the complete localized text set for a ban message. Item is
// rendered once per evidence row with fields Time, Post, Comment, Subreddit;
// Greeting, Warning and Final receive the MessageData fields.
type Templates struct {
	TimeLayout string // Go reference layout for evidence timestamps
	Greeting   string
	ListIntro  string
	Item       string
	AdminNote  string // appended to Item when the platform removed it
	Warning    string // appended from the second ban on
	Final      string // appended from the third ban on, replaces Warning
}

// ItalianTemplates is the default catalogue.
func ItalianTemplates() Templates {
	return Templates{
		TimeLayout: "15:04 del 02/01",
		Greeting:   "Ciao u/{{.Username}}, sei stato bannato perché troppi tuoi messaggi sono stati rimossi.",
		ListIntro:  "Ecco una lista:",
		Item:       "- [commento alle {{.Time}}](/r/{{.Subreddit}}/comments/{{.Post}}/_/{{.Comment}})",
		AdminNote:  " (rimosso dagli amministratori di Reddit)",
		Warning:    "ATTENZIONE: Questo è il tuo ban numero {{.BanNumber}}.",
		Final:      "Questo è il tuo {{.BanNumber}} ban, quindi il provvedimento è definitivo.",
	}
}

// Catalog maps locales to template sets. Italian is the only catalogue
// shipped; unknown locales fall back to it.
var Catalog = map[language.Tag]Templates{
	language.Italian: ItalianTemplates(),
}

// CatalogFor returns the template set for a locale, falling back to Italian.
func CatalogFor(tag language.Tag) Templates {
	if t, ok := Catalog[tag]; ok {
		return t
	}
	return ItalianTemplates()
}

// Renderer renders ban messages from one parsed template set.
type Renderer struct {
	templates Templates
	greeting  *template.Template
	item      *template.Template
	warning   *template.Template
	final     *template.Template
}

// NewRenderer parses the template set once.
func NewRenderer(t Templates) (*Renderer, error) {
	r := &Renderer{templates: t}
	var err error
	if r.greeting, err = template.New("greeting").Parse(t.Greeting); err != nil {
		return nil, fmt.Errorf("greeting template: %w", err)
	}
	if r.item, err = template.New("item").Parse(t.Item); err != nil {
		return nil, fmt.Errorf("item template: %w", err)
	}
	if r.warning, err = template.New("warning").Parse(t.Warning); err != nil {
		return nil, fmt.Errorf("warning template: %w", err)
	}
	if r.final, err = template.New("final").Parse(t.Final); err != nil {
		return nil, fmt.Errorf("final template: %w", err)
	}
	return r, nil
}

// itemData is the per-evidence template payload. Fullname prefixes are
// stripped so the rendered links use bare ids.
type itemData struct {
	Time      string
	Post      string
	Comment   string
	Subreddit string
}

// Render produces the full localized ban message.
func (r *Renderer) Render(d MessageData) (string, error) {
	var b strings.Builder
	if err := r.greeting.Execute(&b, d); err != nil {
		return "", err
	}
	b.WriteString("\n\n")
	b.WriteString(r.templates.ListIntro)
	b.WriteString("\n\n")

	for _, ev := range d.Evidence {
		it := itemData{
			Time:      time.Unix(ev.CreatedUTC, 0).UTC().Format(r.templates.TimeLayout),
			Post:      stripPrefix(ev.PostID),
			Comment:   stripPrefix(ev.CommentID),
			Subreddit: d.Subreddit,
		}
		if err := r.item.Execute(&b, it); err != nil {
			return "", err
		}
		if ev.ByAdmins {
			b.WriteString(r.templates.AdminNote)
		}
		b.WriteString("\n")
	}

	// Escalation notice: none on a first ban, warning on the second,
	// final notice from the third on.
	if d.BanNumber >= 3 {
		b.WriteString("\n\n")
		if err := r.final.Execute(&b, d); err != nil {
			return "", err
		}
	} else if d.BanNumber == 2 {
		b.WriteString("\n\n")
		if err := r.warning.Execute(&b, d); err != nil {
			return "", err
		}
	}
	return b.String(), nil
}

// EvidenceFromRows converts store rows into template evidence.
func EvidenceFromRows(rows []domain.RemovedComment) []Evidence {
	out := make([]Evidence, 0, len(rows))
	for _, r := range rows {
		out = append(out, Evidence{
			PostID:     r.PostID,
			CommentID:  r.CommentID,
			CreatedUTC: r.CreatedUTC,
			ByAdmins:   r.ByAdmins,
		})
	}
	return out
}

// stripPrefix drops the kind prefix ("t1_", "t3_") from a fullname.
func stripPrefix(fullname string) string {
	if i := strings.IndexByte(fullname, '_'); i >= 0 && i < len(fullname)-1 {
		return fullname[i+1:]
	}
	return fullname
}
