package enforce

import (
	"strings"
	"testing"

	"golang.org/x/text/language"
)

// 2023-11-14 22:13:20 UTC
const ts = 1700000000

func newItalianRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer(ItalianTemplates())
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	return r
}

func TestRender_FirstBan(t *testing.T) {
	r := newItalianRenderer(t)

	got, err := r.Render(MessageData{
		Username:  "alice",
		Subreddit: "testsub",
		BanNumber: 1,
		Evidence: []Evidence{
			{PostID: "t3_p1", CommentID: "t1_c1", CreatedUTC: ts},
			{PostID: "t3_p2", CommentID: "t1_c2", CreatedUTC: ts + 60, ByAdmins: true},
		},
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	want := "Ciao u/alice, sei stato bannato perché troppi tuoi messaggi sono stati rimossi.\n\n" +
		"Ecco una lista:\n\n" +
		"- [commento alle 22:13 del 14/11](/r/testsub/comments/p1/_/c1)\n" +
		"- [commento alle 22:14 del 14/11](/r/testsub/comments/p2/_/c2) (rimosso dagli amministratori di Reddit)\n"
	if got != want {
		t.Fatalf("unexpected message:\n got: %q\nwant: %q", got, want)
	}
}

func TestRender_EscalationNotices(t *testing.T) {
	r := newItalianRenderer(t)

	second, err := r.Render(MessageData{Username: "bob", Subreddit: "testsub", BanNumber: 2})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.HasSuffix(second, "ATTENZIONE: Questo è il tuo ban numero 2.") {
		t.Fatalf("missing warning notice: %q", second)
	}

	third, err := r.Render(MessageData{Username: "bob", Subreddit: "testsub", BanNumber: 3})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.HasSuffix(third, "Questo è il tuo 3 ban, quindi il provvedimento è definitivo.") {
		t.Fatalf("missing final notice: %q", third)
	}
	if strings.Contains(third, "ATTENZIONE") {
		t.Fatalf("final notice must replace the warning: %q", third)
	}
}

func TestCatalogFor_FallsBackToItalian(t *testing.T) {
	if got := CatalogFor(language.Italian); got.Greeting == "" {
		t.Fatalf("italian catalogue missing")
	}
	// Locales without a catalogue use the Italian texts.
	fallback := CatalogFor(language.Japanese)
	if fallback.Greeting != ItalianTemplates().Greeting {
		t.Fatalf("unexpected fallback: %+v", fallback)
	}
}

func TestStripPrefix(t *testing.T) {
	cases := map[string]string{
		"t1_abc":  "abc",
		"t3_def":  "def",
		"nounder": "nounder",
		"t1_":     "t1_",
	}
	for in, want := range cases {
		if got := stripPrefix(in); got != want {
			t.Fatalf("stripPrefix(%q) = %q, want %q", in, got, want)
		}
	}
}
