package imaging

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	openai "github.com/sashabaranov/go-openai"

	"github.com/zhouzirui/medvoice/backend/internal/model/imaging"
	imagingService "github.com/zhouzirui/medvoice/backend/internal/service/imaging"
)

type stubClient struct {
	content string
	calls   int
}

func (s *stubClient) CreateChatCompletion(context.Context, openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	s.calls++
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: s.content}}},
	}, nil
}

const answer = `{"condition":"Insect bite","severity":"Mild","symptoms":["redness"],"possibleCauses":["mosquito"],"recommendations":["cold compress"],"urgencyLevel":"Monitor and self-care appropriate","disclaimer":"Informational only."}`

func setupRouter(client *stubClient, maxBytes int) *chi.Mux {
	svc := imagingService.NewService(client, imagingService.Options{MaxImageBytes: maxBytes})
	r := chi.NewRouter()
	New(svc).RegisterRoutes(r)
	return r
}

func post(r http.Handler, body map[string]string) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/image-analysis", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func dataURL(size int) string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(make([]byte, size))
}

func TestAnalyzeImage(t *testing.T) {
	client := &stubClient{content: answer}
	resp := post(setupRouter(client, 1024), map[string]string{"image": dataURL(100), "fileName": "bite.jpg"})

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var got imaging.Analysis
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Condition != "Insect bite" || got.Severity != "Mild" {
		t.Fatalf("unexpected analysis: %+v", got)
	}
}

func TestAnalyzeImageRejections(t *testing.T) {
	cases := []struct {
		name   string
		image  string
		status int
	}{
		{name: "missing image", image: "", status: http.StatusBadRequest},
		{name: "not a data url", image: "hello", status: http.StatusBadRequest},
		{name: "decoded too large", image: dataURL(2000), status: http.StatusRequestEntityTooLarge},
		{name: "body too large", image: "data:image/png;base64," + strings.Repeat("A", 200<<10), status: http.StatusRequestEntityTooLarge},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := &stubClient{content: answer}
			resp := post(setupRouter(client, 1024), map[string]string{"image": tc.image})
			if resp.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, resp.Code, resp.Body.String())
			}
			if client.calls != 0 {
				t.Fatalf("model must not be called, got %d calls", client.calls)
			}
		})
	}
}

func TestAnalyzeImageUpstreamMismatch(t *testing.T) {
	client := &stubClient{content: strings.Replace(answer, `"severity":"Mild",`, "", 1)}
	resp := post(setupRouter(client, 1024), map[string]string{"image": dataURL(10)})
	if resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.Code)
	}
}
