package discovery

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/joseph-ayodele/leaflet-scanner/internal/common"
)

const testGalleryID = "abcdef01-2345-6789-abcd-ef0123456789"

func discoveryServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/pl/gazetki", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><body>
			<a href="/pl/press,id,12345.html">Gazetka od czwartku</a>
			<a href="/pl/press,id,12345.html">Gazetka od czwartku (duplicate)</a>
			<a href="/pl/kontakt">Kontakt</a>
		</body></html>`)
	})
	mux.HandleFunc("/pl/press,id,12345.html", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `<html><script>window.galleryLeaflet.init("%s")</script></html>`, testGalleryID)
	})
	mux.HandleFunc("/api/leaflets/"+testGalleryID, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"name": "Gazetka od czwartku",
			"images_desktop": [
				{"page": 0, "images": ["https://cdn.example/p1.jpg"]},
				{"page": 1, "images": ["", "https://cdn.example/p2.jpg"]},
				{"page": 2, "images": []}
			]
		}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	return NewClient(common.DiscoveryConfig{
		ListingURL:  srv.URL + "/pl/gazetki",
		APIBaseURL:  srv.URL,
		UserAgent:   "test-agent",
		HTTPTimeout: 5 * time.Second,
		Retries:     2,
	}, nil)
}

func TestDiscoverTasks(t *testing.T) {
	srv := discoveryServer(t)
	c := testClient(t, srv)

	tasks, err := c.DiscoverTasks(context.Background())
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 page tasks, got %d", len(tasks))
	}

	first := tasks[0]
	if first.DocumentID != testGalleryID {
		t.Errorf("document id = %q", first.DocumentID)
	}
	if first.DocumentName != "Gazetka od czwartku" {
		t.Errorf("document name = %q", first.DocumentName)
	}
	if first.PageNumber != 1 {
		t.Errorf("api pages are 0-based, expected first page 1, got %d", first.PageNumber)
	}
	if first.ImageURL != "https://cdn.example/p1.jpg" {
		t.Errorf("image url = %q", first.ImageURL)
	}

	// Second page: the empty image slot is skipped.
	if tasks[1].PageNumber != 2 || tasks[1].ImageURL != "https://cdn.example/p2.jpg" {
		t.Errorf("second task = %+v", tasks[1])
	}
}

func TestDiscoverTasksEmptyListing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><body>nothing here</body></html>`)
	}))
	defer srv.Close()

	c := NewClient(common.DiscoveryConfig{
		ListingURL:  srv.URL + "/pl/gazetki",
		APIBaseURL:  srv.URL,
		HTTPTimeout: 5 * time.Second,
		Retries:     1,
	}, nil)

	tasks, err := c.DiscoverTasks(context.Background())
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(tasks) != 0 {
		t.Fatalf("expected no tasks from an empty listing, got %d", len(tasks))
	}
}

func TestDiscoverTasksListingUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(common.DiscoveryConfig{
		ListingURL:  srv.URL + "/pl/gazetki",
		APIBaseURL:  srv.URL,
		HTTPTimeout: 2 * time.Second,
		Retries:     1,
	}, nil)

	if _, err := c.DiscoverTasks(context.Background()); err == nil {
		t.Fatal("expected error when the listing is unreachable")
	}
}

func TestPressLinks(t *testing.T) {
	body := []byte(`<html><body>
		<a href="/pl/press,id,1.html">a</a>
		<a href="/pl/press,id,2.html">b</a>
		<a href="/pl/press,id,1.html">a again</a>
		<a href="/pl/about">about</a>
		<a>no href</a>
	</body></html>`)
	links := pressLinks(body)
	if len(links) != 2 {
		t.Fatalf("expected 2 unique press links, got %v", links)
	}
	if links[0] != "/pl/press,id,1.html" || links[1] != "/pl/press,id,2.html" {
		t.Fatalf("unexpected links %v", links)
	}
}
