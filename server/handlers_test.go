package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ashermasroor/SlowRvbBass/model"

	"github.com/google/uuid"
)

type fakeService struct {
	uploadErr  error
	effectsErr error
	lastParams model.EffectParameters
	lastSource string
	variant    *model.Variant
	location   model.StorageLocation
	streamErr  error
}

func (f *fakeService) Upload(ctx context.Context, rawURL string) (*model.SourceAsset, error) {
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	return &model.SourceAsset{ID: "a1b2c3", OriginURL: rawURL}, nil
}

func (f *fakeService) ApplyEffects(ctx context.Context, sourceID string, params model.EffectParameters) (*model.Variant, error) {
	f.lastSource = sourceID
	f.lastParams = params
	if f.effectsErr != nil {
		return nil, f.effectsErr
	}
	return f.variant, nil
}

func (f *fakeService) Stream(ctx context.Context, variantID string) (model.StorageLocation, error) {
	return f.location, f.streamErr
}

func (f *fakeService) Download(ctx context.Context, variantID string) (*model.Variant, error) {
	if f.streamErr != nil {
		return nil, f.streamErr
	}
	return f.variant, nil
}

func (f *fakeService) PublicURL(variantID string) string {
	return "https://cdn.test/bucket/processed/" + variantID + ".mp3"
}

type recordingScheduler struct {
	paths []string
}

func (s *recordingScheduler) Schedule(path string) bool {
	s.paths = append(s.paths, path)
	return true
}

func newTestServer(t *testing.T, svc AudioService) (*httptest.Server, *recordingScheduler) {
	t.Helper()
	sched := &recordingScheduler{}
	h, err := NewAPIHandler(svc, sched)
	if err != nil {
		t.Fatalf("NewAPIHandler: %v", err)
	}
	srv := httptest.NewServer(NewRouter(h))
	t.Cleanup(srv.Close)
	return srv, sched
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

func TestUploadHandlerStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"ok", nil, http.StatusOK, ""},
		{"unsupported", model.ErrUnsupportedOrigin, http.StatusBadRequest, "unsupported_origin"},
		{"download failed", &model.ToolError{Kind: model.ErrDownloadFailed, Command: "yt-dlp", ExitCode: 1}, http.StatusBadRequest, "download_failed"},
		{"access denied", &model.ToolError{Kind: model.ErrAccessDenied, Command: "yt-dlp", ExitCode: 1}, http.StatusForbidden, "access_denied"},
		{"artifact missing", model.ErrDownloadArtifactMissing, http.StatusBadRequest, "download_artifact_missing"},
		{"conversion", &model.ToolError{Kind: model.ErrEffectApplication, Command: "ffmpeg"}, http.StatusInternalServerError, "effect_application_failed"},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, &fakeService{uploadErr: tt.err})
			resp := postJSON(t, srv.URL+"/upload", `{"url":"https://youtu.be/abc"}`)
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if tt.err == nil {
				var body uploadResponse
				decodeBody(t, resp, &body)
				if body.AudioID != "a1b2c3" {
					t.Fatalf("audio_id = %q", body.AudioID)
				}
				return
			}
			var body errorResponse
			decodeBody(t, resp, &body)
			if body.Error != tt.code || body.Message == "" {
				t.Fatalf("error body = %+v, want code %q", body, tt.code)
			}
		})
	}
}

func TestUploadHandlerRejectsInvalidBodies(t *testing.T) {
	srv, _ := newTestServer(t, &fakeService{})
	for _, body := range []string{``, `not json`, `{}`, `{"url": 5}`, `{"url": ""}`, `[]`} {
		resp := postJSON(t, srv.URL+"/upload", body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, resp.StatusCode)
		}
	}
}

func TestEffectsHandlerDefaultsOmittedFields(t *testing.T) {
	svc := &fakeService{variant: &model.Variant{ID: "a1b2c3-rawcopy", DurableRef: "processed/a1b2c3-rawcopy.mp3", LocalPath: "/work/cache/processed/a1b2c3-rawcopy.mp3"}}
	srv, sched := newTestServer(t, svc)

	resp := postJSON(t, srv.URL+"/effects", `{"audio_id":"a1b2c3"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body effectsResponse
	decodeBody(t, resp, &body)
	if body.EffectsID != "a1b2c3-rawcopy" || body.PublicURL != "https://cdn.test/bucket/processed/a1b2c3-rawcopy.mp3" {
		t.Fatalf("body = %+v", body)
	}
	if svc.lastParams != model.DefaultEffectParameters() || svc.lastSource != "a1b2c3" {
		t.Fatalf("service called with %q %+v", svc.lastSource, svc.lastParams)
	}
	if len(sched.paths) != 1 || sched.paths[0] != "/work/cache/processed/a1b2c3-rawcopy.mp3" {
		t.Fatalf("scheduled = %v", sched.paths)
	}
}

func TestEffectsHandlerPassesParameters(t *testing.T) {
	svc := &fakeService{variant: &model.Variant{ID: "0a1b2c3d"}}
	srv, sched := newTestServer(t, svc)

	resp := postJSON(t, srv.URL+"/effects", `{"audio_id":"a1b2c3","speed":0.8,"reverb":50,"bass_boost":true}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	want := model.EffectParameters{Speed: 0.8, Reverb: 50, BassBoost: true}
	if svc.lastParams != want {
		t.Fatalf("params = %+v, want %+v", svc.lastParams, want)
	}
	if len(sched.paths) != 0 {
		t.Fatalf("unplaced variant must not be scheduled for cleanup: %v", sched.paths)
	}
}

func TestEffectsHandlerValidation(t *testing.T) {
	srv, _ := newTestServer(t, &fakeService{variant: &model.Variant{ID: "0a1b2c3d"}})
	for _, body := range []string{
		`{"speed":1.0}`,
		`{"audio_id":"a1b2c3","speed":0}`,
		`{"audio_id":"a1b2c3","speed":-1}`,
		`{"audio_id":"a1b2c3","reverb":101}`,
		`{"audio_id":"a1b2c3","reverb":-0.5}`,
		`{"audio_id":"a1b2c3","bass_boost":"yes"}`,
	} {
		resp := postJSON(t, srv.URL+"/effects", body)
		var e errorResponse
		decodeBody(t, resp, &e)
		if resp.StatusCode != http.StatusBadRequest || e.Error != "invalid_request" {
			t.Errorf("body %s: status = %d (%+v), want 400", body, resp.StatusCode, e)
		}
	}
}

func TestEffectsHandlerErrors(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{model.ErrAssetNotFound, http.StatusNotFound},
		{model.ErrInvalidParameters, http.StatusBadRequest},
		{&model.ToolError{Kind: model.ErrEffectApplication, Command: "ffmpeg", ExitCode: 1}, http.StatusInternalServerError},
		{model.ErrDurableUpload, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		srv, sched := newTestServer(t, &fakeService{effectsErr: tt.err})
		resp := postJSON(t, srv.URL+"/effects", `{"audio_id":"a1b2c3","speed":0.9}`)
		resp.Body.Close()
		if resp.StatusCode != tt.status {
			t.Errorf("%v: status = %d, want %d", tt.err, resp.StatusCode, tt.status)
		}
		if len(sched.paths) != 0 {
			t.Errorf("%v: failed request scheduled cleanup", tt.err)
		}
	}
}

func TestStreamHandlerDurableRedirectBody(t *testing.T) {
	svc := &fakeService{location: model.DurableLocation("https://cdn.test/bucket/processed/0a1b2c3d.mp3")}
	srv, _ := newTestServer(t, svc)

	resp, err := http.Get(srv.URL + "/stream/0a1b2c3d")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body streamResponse
	decodeBody(t, resp, &body)
	if body.URL != "https://cdn.test/bucket/processed/0a1b2c3d.mp3" {
		t.Fatalf("url = %q", body.URL)
	}
}

func TestStreamHandlerServesLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "0a1b2c3d.mp3")
	if err := os.WriteFile(path, []byte("ID3-audio"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	srv, _ := newTestServer(t, &fakeService{location: model.LocalLocation(path)})

	resp, err := http.Get(srv.URL + "/stream/0a1b2c3d")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "audio/mpeg" {
		t.Fatalf("status = %d content-type = %q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
}

func TestStreamHandlerNotFound(t *testing.T) {
	srv, _ := newTestServer(t, &fakeService{streamErr: model.ErrAssetNotFound})
	resp, err := http.Get(srv.URL + "/stream/deadbeef")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestHealthAndMiddleware(t *testing.T) {
	srv, _ := newTestServer(t, &fakeService{})

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	var body map[string]string
	decodeBody(t, resp, &body)
	if body["status"] != "ok" {
		t.Fatalf("health = %v", body)
	}
	if resp.Header.Get("X-Request-Id") == "" {
		t.Fatalf("missing X-Request-Id")
	}

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/effects", nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("OPTIONS: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("preflight status = %d, allow-origin = %q", resp.StatusCode, resp.Header.Get("Access-Control-Allow-Origin"))
	}
}

func TestRequestIDSanitized(t *testing.T) {
	srv, _ := newTestServer(t, &fakeService{})

	tests := []struct {
		name     string
		sent     string
		wantEcho bool
	}{
		{name: "well formed", sent: "req-42.abc_DEF", wantEcho: true},
		{name: "too long", sent: strings.Repeat("a", 65)},
		{name: "control characters", sent: "abc\tdef"},
		{name: "log injection", sent: "x\" level=error msg=\"forged"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodGet, srv.URL+"/health", nil)
			req.Header.Set("X-Request-Id", tt.sent)
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("GET: %v", err)
			}
			resp.Body.Close()
			got := resp.Header.Get("X-Request-Id")
			if tt.wantEcho {
				if got != tt.sent {
					t.Fatalf("X-Request-Id = %q, want %q", got, tt.sent)
				}
				return
			}
			if got == tt.sent {
				t.Fatalf("untrusted id %q was echoed", tt.sent)
			}
			if _, err := uuid.Parse(got); err != nil {
				t.Fatalf("replacement id %q is not a uuid: %v", got, err)
			}
		})
	}
}

func TestStatusForWrappedErrors(t *testing.T) {
	err := &model.ToolError{Kind: model.ErrAccessDenied, Command: "yt-dlp"}
	if status, _ := statusFor(errors.Join(errors.New("context"), err)); status != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", status)
	}
}
