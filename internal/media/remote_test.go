package media

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Ommsharravana/meeting-transcriber-sub000/internal/types"
)

func TestRemoteChunkerSplit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatal(err)
		}
		if got := r.FormValue("chunk_duration"); got != "600" {
			t.Errorf("chunk_duration = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"needs_chunking": true,
			"duration":       1200.0,
			"chunks": []map[string]any{
				{"index": 0, "mime_type": "audio/wav", "data": base64.StdEncoding.EncodeToString([]byte("aaa"))},
				{"index": 1, "mime_type": "audio/wav", "data": base64.StdEncoding.EncodeToString([]byte("bbb"))},
			},
		})
	}))
	defer srv.Close()

	rc := NewRemoteChunker(srv.URL)
	chunks, err := rc.Split(context.Background(),
		types.AudioSource{Data: []byte("payload"), FileName: "m.mp3"}, 600)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 2 {
		t.Fatalf("chunks = %d, want 2", len(chunks))
	}
	if string(chunks[0].Data) != "aaa" || string(chunks[1].Data) != "bbb" {
		t.Error("chunk payloads not decoded")
	}
	if chunks[1].Index != 1 {
		t.Errorf("chunk index = %d", chunks[1].Index)
	}
}

func TestRemoteChunkerNoChunkingReturnsWhole(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"needs_chunking": false, "duration": 30.0})
	}))
	defer srv.Close()

	rc := NewRemoteChunker(srv.URL)
	source := types.AudioSource{Data: []byte("whole"), MimeType: "audio/mpeg"}
	chunks, err := rc.Split(context.Background(), source, 600)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 1 || string(chunks[0].Data) != "whole" {
		t.Errorf("expected the source back as one chunk, got %d", len(chunks))
	}
}

func TestRemoteChunkerServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(422)
		w.Write([]byte(`{"error": "unreadable"}`))
	}))
	defer srv.Close()

	rc := NewRemoteChunker(srv.URL)
	if _, err := rc.Split(context.Background(), types.AudioSource{Data: []byte("x")}, 600); err == nil {
		t.Fatal("expected error on non-2xx status")
	}
}
