package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

// newTestServer wires a stub API: the token endpoint always succeeds and
// handle receives everything else.
func newTestServer(t *testing.T, handle http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/access_token" {
			if user, pass, ok := r.BasicAuth(); !ok || user != "cid" || pass != "secret" {
				t.Errorf("token request missing basic auth: %q %q", user, pass)
			}
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"access_token":"tok","token_type":"bearer","expires_in":3600}`)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("missing bearer token, got %q", got)
		}
		if r.Header.Get("User-Agent") != "subguard-test/1.0" {
			t.Errorf("unexpected user agent %q", r.Header.Get("User-Agent"))
		}
		handle(w, r)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(Credentials{
		ClientID:     "cid",
		ClientSecret: "secret",
		Username:     "bot",
		Password:     "pw",
		UserAgent:    "subguard-test/1.0",
	}, zerolog.Nop(), WithBaseURLs(srv.URL, srv.URL))
	return srv, c
}

func modLogPage(ids []string, before, after string) string {
	type child struct {
		Kind string         `json:"kind"`
		Data map[string]any `json:"data"`
	}
	children := make([]child, 0, len(ids))
	for i, id := range ids {
		children = append(children, child{
			Kind: "modaction",
			Data: map[string]any{
				"id":              id,
				"action":          "banuser",
				"mod":             "a_mod",
				"target_author":   "user_" + id,
				"target_fullname": "t1_" + id,
				"details":         "7 days",
				"created_utc":     float64(1000 + i),
			},
		})
	}
	page := map[string]any{
		"kind": "Listing",
		"data": map[string]any{
			"children": children,
			"before":   before,
			"after":    after,
		},
	}
	raw, _ := json.Marshal(page)
	return string(raw)
}

func TestMe(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/me" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		fmt.Fprint(w, `{"name":"subguard_bot"}`)
	})

	name, err := c.Me(context.Background())
	if err != nil {
		t.Fatalf("Me: %v", err)
	}
	if name != "subguard_bot" {
		t.Fatalf("name = %q", name)
	}
}

func TestModLog_ForwardWalkFromCursor(t *testing.T) {
	// Two pages of newer-than-cursor events, then an exhausted token.
	calls := 0
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/r/testsub/about/log" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.URL.Query().Get("type") != "banuser" {
			t.Errorf("missing type filter")
		}
		calls++
		switch r.URL.Query().Get("before") {
		case "ModAction_cursor":
			fmt.Fprint(w, modLogPage([]string{"e1", "e2"}, "ModAction_e2", ""))
		case "ModAction_e2":
			fmt.Fprint(w, modLogPage([]string{"e3"}, "", ""))
		default:
			t.Errorf("unexpected before token %q", r.URL.Query().Get("before"))
		}
	})

	got, err := c.ModLog(context.Background(), "testsub", LogFilter{Action: "banuser"}, "ModAction_cursor", 1001)
	if err != nil {
		t.Fatalf("ModLog: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 page requests, got %d", calls)
	}
	if len(got) != 3 || got[0].ID != "e1" || got[2].ID != "e3" {
		t.Fatalf("unexpected events: %+v", got)
	}
	if got[0].TargetAuthor != "user_e1" || got[0].Details != "7 days" || got[0].CreatedUTC != 1000 {
		t.Fatalf("unexpected event mapping: %+v", got[0])
	}
}

func TestModLog_BootstrapWithoutCursor(t *testing.T) {
	// No cursor: the walk pages backward from the newest entry.
	var afters []string
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		afters = append(afters, r.URL.Query().Get("after"))
		switch r.URL.Query().Get("after") {
		case "":
			fmt.Fprint(w, modLogPage([]string{"n1", "n2"}, "", "ModAction_n2"))
		case "ModAction_n2":
			fmt.Fprint(w, modLogPage(nil, "", ""))
		}
	})

	got, err := c.ModLog(context.Background(), "testsub", LogFilter{Mod: "a"}, "", 1001)
	if err != nil {
		t.Fatalf("ModLog: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %+v", got)
	}
	if len(afters) != 2 || afters[0] != "" || afters[1] != "ModAction_n2" {
		t.Fatalf("unexpected after walk: %v", afters)
	}
}

func TestModLog_HonorsLimit(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("limit"); got != "2" {
			t.Errorf("page limit = %q, want 2", got)
		}
		fmt.Fprint(w, modLogPage([]string{"x1", "x2"}, "ModAction_x2", ""))
	})

	got, err := c.ModLog(context.Background(), "testsub", LogFilter{Action: "banuser"}, "ModAction_c", 2)
	if err != nil {
		t.Fatalf("ModLog: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected exactly 2 events, got %d", len(got))
	}
}

func TestInfo_ResolvesAndNotFound(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("id") {
		case "t1_known":
			fmt.Fprint(w, `{"kind":"Listing","data":{"children":[{"kind":"t1","data":{"name":"t1_known","link_id":"t3_parent","created_utc":1234.0}}]}}`)
		default:
			fmt.Fprint(w, `{"kind":"Listing","data":{"children":[]}}`)
		}
	})

	thing, err := c.Info(context.Background(), "t1_known")
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if thing.Fullname != "t1_known" || thing.LinkID != "t3_parent" || thing.CreatedUTC != 1234 {
		t.Fatalf("unexpected thing: %+v", thing)
	}

	if _, err := c.Info(context.Background(), "t1_gone"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBanUser_FormAndErrorMapping(t *testing.T) {
	var gotForm map[string]string
	respond := `{"json":{"errors":[]}}`
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/r/testsub/api/friend" || r.Method != http.MethodPost {
			t.Errorf("unexpected call %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotForm = map[string]string{}
		for k := range r.PostForm {
			gotForm[k] = r.PostForm.Get(k)
		}
		fmt.Fprint(w, respond)
	})

	days := 7
	if err := c.BanUser(context.Background(), "testsub", "alice", &days, "note", "msg"); err != nil {
		t.Fatalf("BanUser: %v", err)
	}
	if gotForm["name"] != "alice" || gotForm["type"] != "banned" ||
		gotForm["duration"] != "7" || gotForm["ban_message"] != "msg" {
		t.Fatalf("unexpected form: %v", gotForm)
	}

	// Permanent ban omits the duration field.
	if err := c.BanUser(context.Background(), "testsub", "alice", nil, "note", "msg"); err != nil {
		t.Fatalf("BanUser permanent: %v", err)
	}
	if _, ok := gotForm["duration"]; ok {
		t.Fatalf("permanent ban should not send duration: %v", gotForm)
	}

	// API rejection surfaces as a typed error.
	respond = `{"json":{"errors":[["USER_DOESNT_EXIST","that user doesn't exist","name"]]}}`
	err := c.BanUser(context.Background(), "testsub", "ghost", &days, "note", "msg")
	if err == nil {
		t.Fatalf("expected error")
	}
	var ae *APIError
	if !errors.As(err, &ae) || ae.Kind != KindUserVanished || ae.Field != "name" {
		t.Fatalf("unexpected error: %v", err)
	}
	if !IsUserVanished(err) {
		t.Fatalf("IsUserVanished should match")
	}

	respond = `{"json":{"errors":[["SUBREDDIT_RATELIMIT","try later","sub"]]}}`
	err = c.BanUser(context.Background(), "testsub", "alice", &days, "note", "msg")
	if IsUserVanished(err) {
		t.Fatalf("unknown kinds must not match IsUserVanished: %v", err)
	}
}
