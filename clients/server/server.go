// Package server provides the frame generator web page and its HTTP API.
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os/exec"
	"runtime"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/peicooks/framegen/internal/logging"
	"github.com/peicooks/framegen/pkg/compositor"
	"github.com/peicooks/framegen/pkg/export"
	"github.com/peicooks/framegen/pkg/frame"
	"github.com/peicooks/framegen/pkg/photo"
	"github.com/peicooks/framegen/pkg/session"
)

//go:embed web/*
var webContent embed.FS

// multipartOverhead is allowed on top of the photo ceiling for form fields
// and boundaries.
const multipartOverhead = 64 << 10

// Deps wires the server to the rest of the program.
type Deps struct {
	Compositor  *compositor.Compositor
	Loader      *photo.Loader
	Exporter    *export.Exporter
	Log         *zap.Logger
	MaxSessions int
}

// Server serves the API and the embedded page.
type Server struct {
	deps     Deps
	sessions *sessionStore
	log      *zap.Logger
	engine   *gin.Engine
}

// New builds the gin engine and routes.
func New(deps Deps) (*Server, error) {
	if deps.Compositor == nil || deps.Exporter == nil {
		return nil, errors.New("server: compositor and exporter are required")
	}
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if deps.Loader == nil {
		deps.Loader = photo.NewLoader(photo.MaxBytes, deps.Log)
	}
	if deps.MaxSessions <= 0 {
		deps.MaxSessions = 1000
	}

	s := &Server{deps: deps, log: deps.Log}
	s.sessions = newSessionStore(deps.MaxSessions, func() *session.Session {
		return session.New(deps.Compositor, deps.Loader, deps.Log)
	})

	webFS, err := fs.Sub(webContent, "web")
	if err != nil {
		return nil, fmt.Errorf("embed web: %w", err)
	}

	r := gin.New()
	r.Use(gin.Recovery(), logging.GinMiddleware(deps.Log))
	r.MaxMultipartMemory = deps.Loader.MaxBytes() + multipartOverhead

	api := r.Group("/api")
	{
		api.GET("/health", s.handleHealth)
		api.GET("/styles", s.handleStyles)
		api.GET("/share", s.handleShareInfo)
		api.GET("/share/qr", s.handleShareQR)

		api.POST("/sessions", s.handleCreateSession)
		sess := api.Group("/sessions/:id", s.withSession)
		{
			sess.GET("", s.handleGetSession)
			sess.DELETE("", s.handleDeleteSession)
			sess.POST("/photo", s.handleUploadPhoto)
			sess.GET("/preview", s.handlePreview)
			sess.PUT("/style", s.handleSelectStyle)
			sess.GET("/frame", s.handleFrame)
			sess.GET("/download", s.handleDownload)
			sess.GET("/previews/:style", s.handleStylePreview)
		}
	}

	r.NoRoute(gin.WrapH(http.FileServer(http.FS(webFS))))

	s.engine = r
	return s, nil
}

// Handler exposes the engine for tests and custom listeners.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string, openUI bool) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("frame generator listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	if openUI {
		go openBrowser(browserURL(addr))
	}

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

// ── Catalog & share ──

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": s.sessions.len()})
}

func (s *Server) handleStyles(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"styles": frame.All(), "default": frame.Default().ID})
}

func (s *Server) handleShareInfo(c *gin.Context) {
	opts := s.deps.Exporter.Options()
	c.JSON(http.StatusOK, gin.H{
		"title":    opts.ShareTitle,
		"text":     opts.ShareText,
		"url":      opts.ShareURL,
		"filename": opts.Filename,
	})
}

func (s *Server) handleShareQR(c *gin.Context) {
	size, _ := strconv.Atoi(c.Query("size"))
	if size > 1024 {
		size = 1024
	}
	a, err := s.deps.Exporter.LinkQR(size)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}
	c.Data(http.StatusOK, a.ContentType, a.Data)
}

// ── Sessions ──

const sessionKey = "session"

func (s *Server) withSession(c *gin.Context) {
	sess, ok := s.sessions.get(c.Param("id"))
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.Set(sessionKey, sess)
	c.Next()
}

func current(c *gin.Context) *session.Session {
	return c.MustGet(sessionKey).(*session.Session)
}

type photoView struct {
	Name   string `json:"name"`
	Size   int64  `json:"size"`
	Format string `json:"format"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type sessionView struct {
	ID    string      `json:"id"`
	Style frame.Style `json:"style"`
	Photo *photoView  `json:"photo,omitempty"`
}

func viewOf(id string, sess *session.Session) sessionView {
	v := sessionView{ID: id, Style: sess.Style()}
	if p := sess.Photo(); p != nil {
		b := p.Bitmap.Bounds()
		v.Photo = &photoView{Name: p.Name, Size: p.Size, Format: p.Format, Width: b.Dx(), Height: b.Dy()}
	}
	return v
}

func (s *Server) handleCreateSession(c *gin.Context) {
	id, sess, err := s.sessions.create()
	if err != nil {
		s.fail(c, http.StatusServiceUnavailable, err)
		return
	}
	c.JSON(http.StatusCreated, viewOf(id, sess))
}

func (s *Server) handleGetSession(c *gin.Context) {
	c.JSON(http.StatusOK, viewOf(c.Param("id"), current(c)))
}

func (s *Server) handleDeleteSession(c *gin.Context) {
	s.sessions.remove(c.Param("id"))
	c.Status(http.StatusNoContent)
}

func (s *Server) handleUploadPhoto(c *gin.Context) {
	sess := current(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.deps.Loader.MaxBytes()+multipartOverhead)

	header, err := c.FormFile("photo")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			s.fail(c, http.StatusRequestEntityTooLarge, photo.ErrOversizedInput)
			return
		}
		s.fail(c, http.StatusBadRequest, fmt.Errorf("photo field: %w", err))
		return
	}

	f, err := header.Open()
	if err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}
	defer f.Close()

	if err := sess.Load(header.Filename, f, header.Size); err != nil {
		s.fail(c, statusFor(err), err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session": viewOf(c.Param("id"), sess),
		"message": "Image uploaded!",
	})
}

func (s *Server) handlePreview(c *gin.Context) {
	p := current(c).Photo()
	if p == nil {
		s.fail(c, http.StatusConflict, session.ErrNoPhoto)
		return
	}
	data, err := export.EncodePNG(p.Preview)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}
	c.Data(http.StatusOK, export.ContentTypePNG, data)
}

func (s *Server) handleSelectStyle(c *gin.Context) {
	var req struct {
		Style string `json:"style" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}

	sess := current(c)
	if err := sess.SelectStyle(req.Style); err != nil {
		s.fail(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, viewOf(c.Param("id"), sess))
}

func (s *Server) handleFrame(c *gin.Context) {
	img, err := current(c).Frame()
	if err != nil {
		s.fail(c, statusFor(err), err)
		return
	}
	data, err := export.EncodePNG(img)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}
	c.Data(http.StatusOK, export.ContentTypePNG, data)
}

func (s *Server) handleDownload(c *gin.Context) {
	img, err := current(c).Frame()
	if err != nil {
		s.fail(c, statusFor(err), err)
		return
	}
	a, err := s.deps.Exporter.Download(img)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, a.Filename))
	c.Data(http.StatusOK, a.ContentType, a.Data)
}

// handleStylePreview renders the session photo in another style without
// changing the session's selection.
func (s *Server) handleStylePreview(c *gin.Context) {
	st, ok := frame.Lookup(c.Param("style"))
	if !ok {
		s.fail(c, http.StatusNotFound, fmt.Errorf("%w: %q", session.ErrUnknownStyle, c.Param("style")))
		return
	}
	p := current(c).Photo()
	if p == nil {
		s.fail(c, http.StatusConflict, session.ErrNoPhoto)
		return
	}
	img, err := s.deps.Compositor.Render(p.Bitmap, st)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}
	data, err := export.EncodePNG(img)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}
	c.Data(http.StatusOK, export.ContentTypePNG, data)
}

// ── Helpers ──

func statusFor(err error) int {
	switch {
	case errors.Is(err, photo.ErrOversizedInput):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, photo.ErrDecodeFailure):
		return http.StatusUnprocessableEntity
	case errors.Is(err, session.ErrUnknownStyle):
		return http.StatusNotFound
	case errors.Is(err, session.ErrNoPhoto), errors.Is(err, session.ErrStale):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(c *gin.Context, status int, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func browserURL(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	case "darwin":
		cmd = exec.Command("open", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	_ = cmd.Start()
}
