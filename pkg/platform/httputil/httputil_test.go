package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	dErrors "ecommerce/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	t.Run("internal error omits description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInternal, "db failed"))

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "internal_error" {
			t.Fatalf("expected error code internal_error, got %q", body["error"])
		}
		if _, ok := body["error_description"]; ok {
			t.Fatalf("expected error_description to be omitted for internal errors")
		}
	})

	t.Run("bad request includes description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid input"))

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "bad_request" {
			t.Fatalf("expected error code bad_request, got %q", body["error"])
		}
		if body["error_description"] != "invalid input" {
			t.Fatalf("expected error_description to be returned for bad request")
		}
	})
}

type sampleRequest struct {
	Name string `json:"name"`
}

func (r *sampleRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
}

func (r *sampleRequest) Validate() error {
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	return nil
}

func TestDecodeAndPrepare(t *testing.T) {
	decode := func(body string) (*sampleRequest, *httptest.ResponseRecorder, bool) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		req, ok := DecodeAndPrepare[sampleRequest](w, r, nil, r.Context(), "req-1")
		return req, w, ok
	}

	t.Run("normalizes before validating", func(t *testing.T) {
		req, _, ok := decode(`{"name":"  Widget "}`)
		if !ok {
			t.Fatal("expected request to decode")
		}
		if req.Name != "Widget" {
			t.Fatalf("expected trimmed name, got %q", req.Name)
		}
	})

	t.Run("validation failure writes 400", func(t *testing.T) {
		_, w, ok := decode(`{"name":"   "}`)
		if ok {
			t.Fatal("expected validation failure")
		}
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}
	})

	t.Run("rejects malformed and unknown fields", func(t *testing.T) {
		for _, body := range []string{`{"name":`, `{"name":"a","extra":1}`, ``, `{"name":"a"}{"name":"b"}`} {
			_, w, ok := decode(body)
			if ok {
				t.Fatalf("expected %q to be rejected", body)
			}
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected status %d for %q, got %d", http.StatusBadRequest, body, w.Code)
			}
		}
	})
}
