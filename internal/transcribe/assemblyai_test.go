package transcribe

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func fakeAPI(t *testing.T, transcript transcriptResponse) (*httptest.Server, *AssemblyAIClient) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v2/upload", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "test-key" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		body, _ := io.ReadAll(r.Body)
		if len(body) == 0 {
			http.Error(w, "empty body", http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(uploadResponse{UploadURL: "https://cdn.example/upload/1"})
	})
	mux.HandleFunc("POST /v2/transcript", func(w http.ResponseWriter, r *http.Request) {
		var req createTranscriptRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.AudioURL != "https://cdn.example/upload/1" {
			http.Error(w, "bad audio_url", http.StatusBadRequest)
			return
		}
		if !req.SpeakerLabels || !req.Punctuate {
			http.Error(w, "missing options", http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(transcriptResponse{ID: "t-123", Status: "queued"})
	})
	mux.HandleFunc("GET /v2/transcript/t-123", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(transcript)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, NewAssemblyAIClient("test-key", srv.URL)
}

func tempAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audio.mp3")
	if err := os.WriteFile(path, []byte("fake mp3 bytes"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSubmitAndPollComplete(t *testing.T) {
	_, client := fakeAPI(t, transcriptResponse{
		ID:     "t-123",
		Status: "completed",
		Words: []transcriptWord{
			{Text: "あり", Start: 0, End: 900, Speaker: "A"},
			{Text: "がとう。", Start: 900, End: 2100, Speaker: "A"},
		},
	})

	id, err := client.Submit(context.Background(), tempAudio(t), "ja")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if id != "t-123" {
		t.Fatalf("id = %q, want t-123", id)
	}

	res, err := client.Poll(context.Background(), id)
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if res.Status != StatusComplete {
		t.Fatalf("status = %s, want complete", res.Status)
	}
	if len(res.Words) != 2 {
		t.Fatalf("got %d words, want 2", len(res.Words))
	}

	// Milliseconds converted to seconds, speaker label expanded.
	w := res.Words[1]
	if w.Start != 0.9 || w.End != 2.1 {
		t.Errorf("word timing = [%v, %v], want [0.9, 2.1]", w.Start, w.End)
	}
	if w.Speaker != "Speaker A" {
		t.Errorf("speaker = %q, want %q", w.Speaker, "Speaker A")
	}
}

func TestPollPending(t *testing.T) {
	_, client := fakeAPI(t, transcriptResponse{ID: "t-123", Status: "processing"})

	res, err := client.Poll(context.Background(), "t-123")
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if res.Status != StatusPending {
		t.Fatalf("status = %s, want pending", res.Status)
	}
}

func TestPollFailed(t *testing.T) {
	_, client := fakeAPI(t, transcriptResponse{
		ID:     "t-123",
		Status: "error",
		Error:  "file does not appear to contain audio",
	})

	res, err := client.Poll(context.Background(), "t-123")
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if res.Status != StatusFailed {
		t.Fatalf("status = %s, want failed", res.Status)
	}
	if res.ErrorMessage != "file does not appear to contain audio" {
		t.Errorf("error message = %q, want the verbatim service error", res.ErrorMessage)
	}
}

func TestSubmitRejectedKey(t *testing.T) {
	srv, _ := fakeAPI(t, transcriptResponse{})
	client := NewAssemblyAIClient("wrong-key", srv.URL)

	if _, err := client.Submit(context.Background(), tempAudio(t), "ja"); err == nil {
		t.Fatal("expected error for rejected API key")
	}
}
