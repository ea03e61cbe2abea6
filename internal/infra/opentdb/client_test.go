package opentdb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"trivia-party-service/internal/infra/memory"
)

func TestFetchQuestions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api.php" {
			http.NotFound(w, r)
			return
		}
		if got := r.URL.Query().Get("amount"); got != "2" {
			t.Errorf("expected amount=2, got %s", got)
		}
		if got := r.URL.Query().Get("category"); got != "9" {
			t.Errorf("expected category=9, got %s", got)
		}
		w.Write([]byte(`{
			"response_code": 0,
			"results": [
				{
					"question": "What does &quot;HTTP&quot; stand for?",
					"correct_answer": "HyperText Transfer Protocol",
					"incorrect_answers": ["High Transfer Text Protocol", "Hyperlink Transfer Text Protocol", "Hyper Traffic Transport Protocol"]
				},
				{
					"question": "What is 2 + 2?",
					"correct_answer": "4",
					"incorrect_answers": ["3", "5", "22"]
				}
			]
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	contents, err := client.FetchQuestions(context.Background(), 2, 9)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(contents) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(contents))
	}
	if contents[0].Prompt != `What does "HTTP" stand for?` {
		t.Fatalf("expected HTML entities unescaped, got %q", contents[0].Prompt)
	}
	if contents[0].CorrectAnswer != "HyperText Transfer Protocol" || len(contents[0].IncorrectAnswers) != 3 {
		t.Fatalf("unexpected answer pool %+v", contents[0])
	}
}

func TestFetchQuestionsProviderErrors(t *testing.T) {
	cases := []struct {
		name string
		body string
		code int
	}{
		{name: "non-zero response code", body: `{"response_code": 1, "results": []}`, code: http.StatusOK},
		{name: "empty results", body: `{"response_code": 0, "results": []}`, code: http.StatusOK},
		{name: "short batch", body: `{"response_code": 0, "results": [{"question": "q", "correct_answer": "a", "incorrect_answers": ["b"]}]}`, code: http.StatusOK},
		{name: "malformed json", body: `{"response_code": 0, "resul`, code: http.StatusOK},
		{name: "http error", body: `gateway timeout`, code: http.StatusBadGateway},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.code)
				w.Write([]byte(tc.body))
			}))
			defer server.Close()

			client := NewClient(server.URL, 5*time.Second)
			if _, err := client.FetchQuestions(context.Background(), 5, 9); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoadCatalog(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api_category.php" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"trivia_categories": [{"id": 9, "name": "General Knowledge"}, {"id": 23, "name": "History"}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	catalog, err := client.LoadCatalog(context.Background())
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	if catalog["General Knowledge"] != 9 || catalog["History"] != 23 {
		t.Fatalf("unexpected catalog %+v", catalog)
	}
}

func TestProviderResolvesCategoryThenFetches(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("category"); got != "23" {
			t.Errorf("expected resolved category 23, got %s", got)
		}
		w.Write([]byte(`{
			"response_code": 0,
			"results": [{"question": "q", "correct_answer": "a", "incorrect_answers": ["b", "c", "d"]}]
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	cache := memory.NewCategoryCache(memory.NewStaticCatalogLoader(map[string]int{"History": 23}), time.Minute)
	provider := NewProvider(client, cache)

	contents, err := provider.Fetch(context.Background(), 1, "History")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("expected 1 question, got %d", len(contents))
	}
}
