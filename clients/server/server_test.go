package server

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peicooks/framegen/pkg/compositor"
	"github.com/peicooks/framegen/pkg/export"
	"github.com/peicooks/framegen/pkg/photo"
)

func newTestServer(t *testing.T, maxUpload int64) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	comp, err := compositor.New("")
	require.NoError(t, err)

	s, err := New(Deps{
		Compositor:  comp,
		Loader:      photo.NewLoader(maxUpload, nil),
		Exporter:    export.New(export.Options{ShareURL: "https://example.test/frame"}, nil),
		MaxSessions: 2,
	})
	require.NoError(t, err)
	return s
}

func do(t *testing.T, s *Server, method, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func createSession(t *testing.T, s *Server) sessionView {
	t.Helper()
	w := do(t, s, http.MethodPost, "/api/sessions", nil, "")
	require.Equal(t, http.StatusCreated, w.Code)

	var v sessionView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func photoForm(t *testing.T, name string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("photo", name)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	// Noise keeps the encoded size close to w*h*4.
	rng := rand.New(rand.NewSource(1))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = byte(rng.Intn(256))
	}
	img.Set(0, 0, color.White)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestHealthAndStyles(t *testing.T) {
	s := newTestServer(t, photo.MaxBytes)

	w := do(t, s, http.MethodGet, "/api/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, s, http.MethodGet, "/api/styles", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Styles []struct {
			ID    string `json:"id"`
			Name  string `json:"name"`
			Color string `json:"color"`
		} `json:"styles"`
		Default string `json:"default"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Styles, 3)
	assert.Equal(t, "frame1", resp.Default)
	assert.Equal(t, "PEI Good Eats", resp.Styles[1].Name)
}

func TestIndexPage(t *testing.T) {
	s := newTestServer(t, photo.MaxBytes)
	w := do(t, s, http.MethodGet, "/", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Frame Generator")
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestServer(t, photo.MaxBytes)
	v := createSession(t, s)
	base := "/api/sessions/" + v.ID
	assert.Equal(t, "frame1", v.Style.ID)
	assert.Nil(t, v.Photo)

	// No photo yet.
	w := do(t, s, http.MethodGet, base+"/frame", nil, "")
	assert.Equal(t, http.StatusConflict, w.Code)

	body, ct := photoForm(t, "me.png", pngBytes(t, 600, 300))
	w = do(t, s, http.MethodPost, base+"/photo", body, ct)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "Image uploaded!")

	w = do(t, s, http.MethodGet, base+"/preview", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	prev, err := png.Decode(w.Body)
	require.NoError(t, err)
	assert.Equal(t, photo.PreviewSize, prev.Bounds().Dx())

	w = do(t, s, http.MethodPut, base+"/style", bytes.NewBufferString(`{"style":"frame2"}`), "application/json")
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, s, http.MethodGet, base+"/frame", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	img, err := png.Decode(w.Body)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 800, 800), img.Bounds())
	r, g, b, _ := img.At(5, 5).RGBA()
	assert.Equal(t, []uint32{0x2E, 0x8B, 0x8B}, []uint32{r >> 8, g >> 8, b >> 8})

	d1 := do(t, s, http.MethodGet, base+"/download", nil, "")
	d2 := do(t, s, http.MethodGet, base+"/download", nil, "")
	require.Equal(t, http.StatusOK, d1.Code)
	assert.Equal(t, `attachment; filename="pei-cooks-frame.png"`, d1.Header().Get("Content-Disposition"))
	assert.Equal(t, d1.Body.Bytes(), d2.Body.Bytes())

	w = do(t, s, http.MethodGet, base+"/previews/frame3", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, s, http.MethodDelete, base, nil, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, s, http.MethodGet, base, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUploadErrors(t *testing.T) {
	s := newTestServer(t, 1024)
	base := "/api/sessions/" + createSession(t, s).ID

	big := pngBytes(t, 20, 20)
	require.Greater(t, len(big), 1024)
	body, ct := photoForm(t, "big.png", big)
	w := do(t, s, http.MethodPost, base+"/photo", body, ct)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	body, ct = photoForm(t, "notes.txt", []byte("hello"))
	w = do(t, s, http.MethodPost, base+"/photo", body, ct)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(t, s, http.MethodPost, base+"/photo", bytes.NewBufferString("x"), "text/plain")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStyleErrors(t *testing.T) {
	s := newTestServer(t, photo.MaxBytes)
	base := "/api/sessions/" + createSession(t, s).ID

	w := do(t, s, http.MethodPut, base+"/style", bytes.NewBufferString(`{"style":"frame9"}`), "application/json")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, s, http.MethodPut, base+"/style", bytes.NewBufferString(`{}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodGet, base+"/previews/frame9", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUnknownSession(t *testing.T) {
	s := newTestServer(t, photo.MaxBytes)
	w := do(t, s, http.MethodGet, "/api/sessions/nope/frame", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionLimit(t *testing.T) {
	s := newTestServer(t, photo.MaxBytes)
	createSession(t, s)
	createSession(t, s)

	w := do(t, s, http.MethodPost, "/api/sessions", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestShareEndpoints(t *testing.T) {
	s := newTestServer(t, photo.MaxBytes)

	w := do(t, s, http.MethodGet, "/api/share", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "https://example.test/frame"))

	w = do(t, s, http.MethodGet, "/api/share/qr?size=128", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	img, err := png.Decode(w.Body)
	require.NoError(t, err)
	assert.Equal(t, 128, img.Bounds().Dx())
}

func TestNewRequiresDeps(t *testing.T) {
	_, err := New(Deps{})
	assert.Error(t, err)
}
