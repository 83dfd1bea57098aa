package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/juneyoungl/jot/internal/config"
	"github.com/juneyoungl/jot/internal/db"
	"github.com/juneyoungl/jot/internal/engine"
	"github.com/juneyoungl/jot/internal/model"
)

func testServer(t *testing.T) (*http.Server, *engine.Engine) {
	t.Helper()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	e := engine.New(database, config.DefaultConfig(), nil)
	t.Cleanup(e.Shutdown)
	return NewServer(e, "test", "127.0.0.1", 0), e
}

func classifiedCapture(t *testing.T, e *engine.Engine, text string) string {
	t.Helper()
	ctx := context.Background()
	capture, err := e.Capture(ctx, engine.CaptureInput{Text: text, Source: "web-test"})
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	title := "a title"
	_, err = e.Apply(ctx, capture.ID, &model.Classification{
		Type:    model.TypeNotes,
		Score:   0.85,
		AITitle: &title,
		Tags:    []string{"test"},
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	return capture.ID
}

func get(t *testing.T, srv *http.Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func post(t *testing.T, srv *http.Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleReview_ListsUnconfirmed(t *testing.T) {
	srv, e := testServer(t)
	classifiedCapture(t, e, "remember the milk")

	rec := get(t, srv, "/review")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "a title") {
		t.Error("review page missing the unconfirmed capture")
	}
}

func TestHandleDetail_RendersCapture(t *testing.T) {
	srv, e := testServer(t)
	id := classifiedCapture(t, e, "# heading\n\nsome **markdown**")

	rec := get(t, srv, "/captures/"+id)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<strong>markdown</strong>") {
		t.Error("markdown body not rendered")
	}
	if !strings.Contains(body, "NOTES") {
		t.Error("capture type missing from detail page")
	}
}

func TestHandleDetail_NotFound(t *testing.T) {
	srv, _ := testServer(t)
	rec := get(t, srv, "/captures/01JNOTREAL00000000000000AA")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHandleList_RejectsUnknownType(t *testing.T) {
	srv, _ := testServer(t)
	rec := get(t, srv, "/captures?type=BOGUS")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleConfirm(t *testing.T) {
	srv, e := testServer(t)
	id := classifiedCapture(t, e, "confirm via web")

	rec := post(t, srv, "/captures/"+id+"/confirm")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	detail, err := e.Get(context.Background(), id, false)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !detail.Capture.IsConfirmed {
		t.Error("capture not confirmed")
	}
}

func TestHandleDelete_ThenUndo(t *testing.T) {
	srv, e := testServer(t)
	id := classifiedCapture(t, e, "delete via web")

	if rec := post(t, srv, "/captures/"+id+"/delete"); rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d, want 200", rec.Code)
	}
	if _, err := e.Get(context.Background(), id, false); err == nil {
		t.Fatal("deleted capture still visible")
	}

	if rec := post(t, srv, "/captures/"+id+"/undo"); rec.Code != http.StatusOK {
		t.Fatalf("undo status = %d, want 200", rec.Code)
	}
	if _, err := e.Get(context.Background(), id, false); err != nil {
		t.Fatalf("capture not restored: %v", err)
	}
}

func TestSecurityHeaders(t *testing.T) {
	srv, _ := testServer(t)
	rec := get(t, srv, "/review")
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("X-Frame-Options header missing")
	}
	if rec.Header().Get("Content-Security-Policy") == "" {
		t.Error("Content-Security-Policy header missing")
	}
}
