package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// newTxt2imgServer returns a server that captures the txt2img payload and
// responds with the given images array.
func newTxt2imgServer(t *testing.T, images []string, captured *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sdapi/v1/txt2img" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if captured != nil {
			if err := json.NewDecoder(r.Body).Decode(captured); err != nil {
				t.Errorf("failed to decode payload: %v", err)
			}
		}
		json.NewEncoder(w).Encode(map[string]any{"images": images})
	}))
}

func TestGenerateImageDecodesBareBase64(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("png-bytes"))
	server := newTxt2imgServer(t, []string{encoded}, nil)
	defer server.Close()

	sd := NewSDService(server.URL, SDDefaults{})
	data, err := sd.GenerateImage(context.Background(), "a lighthouse", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "png-bytes" {
		t.Errorf("unexpected image bytes: %q", data)
	}
}

func TestGenerateImageStripsDataURIPrefix(t *testing.T) {
	encoded := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("png-bytes"))
	server := newTxt2imgServer(t, []string{encoded}, nil)
	defer server.Close()

	sd := NewSDService(server.URL, SDDefaults{})
	data, err := sd.GenerateImage(context.Background(), "a lighthouse", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "png-bytes" {
		t.Errorf("unexpected image bytes: %q", data)
	}
}

func TestGenerateImageLoraJoinedWithComma(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("x"))
	var payload map[string]any
	server := newTxt2imgServer(t, []string{encoded}, &payload)
	defer server.Close()

	sd := NewSDService(server.URL, SDDefaults{})
	_, err := sd.GenerateImage(context.Background(), "a castle", &SDOptions{
		LoraSyntax: "<lora:detail:0.8>",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := payload["prompt"]; got != "a castle, <lora:detail:0.8>" {
		t.Errorf("unexpected prompt: %q", got)
	}
}

func TestGenerateImageNoImages(t *testing.T) {
	server := newTxt2imgServer(t, []string{}, nil)
	defer server.Close()

	sd := NewSDService(server.URL, SDDefaults{})
	if _, err := sd.GenerateImage(context.Background(), "a castle", nil); err == nil {
		t.Error("expected error for empty images array")
	}
}
