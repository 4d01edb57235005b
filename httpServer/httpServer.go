package httpServer

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"umigallery/internal/auth"
	"umigallery/internal/gallerymanager"
	"umigallery/internal/metrics"
	"umigallery/internal/storage"
	"umigallery/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server wraps the gallery HTTP API with dependencies
type Server struct {
	router      *gin.Engine
	galleries   *gallerymanager.Manager
	authManager *auth.Manager
	store       storage.Storage
	metrics     *metrics.Metrics
	private     bool // require a share token for file downloads

	recordingDir string // storage-relative recordings dir
	thumbnailDir string // storage-relative thumbnails dir
}

// New creates a new HTTP server
func New(galleries *gallerymanager.Manager, authManager *auth.Manager, store storage.Storage, m *metrics.Metrics, private bool, recordingDir, thumbnailDir string) *Server {
	s := &Server{
		galleries:    galleries,
		authManager:  authManager,
		store:        store,
		metrics:      m,
		private:      private,
		recordingDir: recordingDir,
		thumbnailDir: thumbnailDir,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	router := gin.Default()
	router.Use(s.metricsMiddleware())

	api := router.Group("/api")
	{
		api.GET("/ping", s.handlePing)
		api.GET("/v1/galleries", s.handleListGalleries)
		api.GET("/v1/galleries/:name", s.handleGetGallery)
		api.POST("/v1/galleries/:name/share", s.handleShareGallery)
		api.DELETE("/v1/galleries/:name", s.handleDeleteGallery)
	}

	files := router.Group("/files")
	{
		files.GET("/rrd/:file", s.handleRecordingFile)
		files.GET("/thumbnails/:file", s.handleThumbnailFile)
	}

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router = router
}

// Run starts the HTTP server
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

// metricsMiddleware records request counts and latencies per route
func (s *Server) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		if s.metrics != nil {
			s.metrics.RecordHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start).Seconds())
		}
	}
}

// Handler implementations

func (s *Server) handlePing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "pong",
		"time":    time.Now().Unix(),
	})
}

func (s *Server) handleListGalleries(c *gin.Context) {
	galleries := s.galleries.GetAll()

	infos := make([]models.GalleryInfo, len(galleries))
	for i, g := range galleries {
		infos[i] = g.Info()
	}

	c.JSON(http.StatusOK, models.GalleryListResponse{
		Galleries: infos,
		Total:     len(infos),
	})
}

func (s *Server) handleGetGallery(c *gin.Context) {
	name := c.Param("name")

	gallery, exists := s.galleries.Get(name)
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "gallery not found"})
		return
	}

	c.JSON(http.StatusOK, gallery.Info())
}

func (s *Server) handleShareGallery(c *gin.Context) {
	name := c.Param("name")

	gallery, exists := s.galleries.Get(name)
	if !exists || gallery.GetState() != models.GalleryStateReady {
		c.JSON(http.StatusNotFound, gin.H{"error": "gallery not found or not ready"})
		return
	}

	var req models.ShareRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.ExpiresIn == 0 {
		req.ExpiresIn = 3600
	}

	token, err := s.authManager.GenerateShareToken(name, req.ExpiresIn, c.ClientIP())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, models.ShareResponse{
		Gallery:   name,
		Token:     token.Token,
		URL:       fmt.Sprintf("/files/rrd/%s.rrd?token=%s", name, token.Token),
		ExpiresAt: token.ExpiresAt.Format(time.RFC3339),
	})
}

// handleDeleteGallery removes a gallery from the registry along with its
// stored artifacts
func (s *Server) handleDeleteGallery(c *gin.Context) {
	name := c.Param("name")

	gallery, exists := s.galleries.Get(name)
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "gallery not found"})
		return
	}

	info := gallery.Info()
	if info.RecordingPath != "" {
		if err := s.store.Delete(info.RecordingPath); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete recording"})
			return
		}
	}
	if info.ThumbnailPath != "" {
		if err := s.store.Delete(info.ThumbnailPath); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete thumbnail"})
			return
		}
	}

	if err := s.galleries.Delete(name); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "gallery not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "gallery deleted", "gallery": name})
}

func (s *Server) handleRecordingFile(c *gin.Context) {
	s.serveFile(c, s.recordingDir, "application/octet-stream")
}

func (s *Server) handleThumbnailFile(c *gin.Context) {
	file := c.Param("file")
	contentType := "image/jpeg"
	if strings.HasSuffix(file, ".png") {
		contentType = "image/png"
	}
	s.serveFile(c, s.thumbnailDir, contentType)
}

// serveFile serves one artifact from storage, enforcing share tokens when the
// gallery is private
func (s *Server) serveFile(c *gin.Context, dir, contentType string) {
	file := c.Param("file")
	if strings.Contains(file, "/") || strings.Contains(file, "..") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file name"})
		return
	}

	if s.private {
		name := strings.TrimSuffix(file, "."+extOf(file))
		token := c.Query("token")
		if token == "" || !s.authManager.ValidateToken(token, name) {
			c.JSON(http.StatusForbidden, gin.H{"error": "valid share token required"})
			return
		}
	}

	rs, err := s.store.ReadSeeker(dir + "/" + file)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
		return
	}
	if closer, ok := rs.(io.Closer); ok {
		defer closer.Close()
	}

	c.Header("Content-Type", contentType)
	c.Header("Cache-Control", "public, max-age=3600")
	c.Header("Access-Control-Allow-Origin", "*")
	// ServeContent gives range support for large recordings
	http.ServeContent(c.Writer, c.Request, file, time.Time{}, rs)
}

func extOf(file string) string {
	if i := strings.LastIndex(file, "."); i >= 0 {
		return file[i+1:]
	}
	return ""
}
