package http

import (
	"encoding/json"
	"net/http"
	"testing"
)

func TestCourseEndpoints(t *testing.T) {
	server, _, _, _ := newTestServer(t)

	var listed []map[string]any
	getJSON(t, server.URL+"/courses", http.StatusOK, &listed)
	if len(listed) != 0 {
		t.Fatalf("expected no published courses, got %v", listed)
	}

	var course map[string]any
	getJSON(t, server.URL+"/courses/c1", http.StatusOK, &course)
	if course["name"] != "Woodworking" {
		t.Fatalf("unexpected course %v", course)
	}
	getJSON(t, server.URL+"/courses/missing", http.StatusNotFound, nil)

	resp, err := http.Post(server.URL+"/courses/c1/publish", "application/json", nil)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	var published publishResponse
	if err := json.NewDecoder(resp.Body).Decode(&published); err != nil {
		t.Fatalf("decode publish: %v", err)
	}
	resp.Body.Close()
	if !published.Published {
		t.Fatalf("expected published=true")
	}

	getJSON(t, server.URL+"/courses/c1", http.StatusOK, &course)
	if course["published"] != true {
		t.Fatalf("expected cached course refreshed after publish, got %v", course["published"])
	}

	getJSON(t, server.URL+"/courses", http.StatusOK, &listed)
	if len(listed) != 1 || listed[0]["id"] != "c1" || listed[0]["moduleCount"] != float64(2) {
		t.Fatalf("expected c1 in catalogue, got %v", listed)
	}
}

func TestPublishUnknownCourse(t *testing.T) {
	server, _, _, _ := newTestServer(t)

	resp, err := http.Post(server.URL+"/courses/missing/publish", "application/json", nil)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	defer resp.Body.Close()
	var published publishResponse
	if err := json.NewDecoder(resp.Body).Decode(&published); err != nil {
		t.Fatalf("decode publish: %v", err)
	}
	if published.Published {
		t.Fatalf("expected published=false for unknown course")
	}
}

func TestHealthz(t *testing.T) {
	server, _, _, _ := newTestServer(t)
	resp, err := http.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func getJSON(t *testing.T, url string, wantStatus int, out any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		t.Fatalf("get %s: status %d, want %d", url, resp.StatusCode, wantStatus)
	}
	if out == nil {
		return
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
}
