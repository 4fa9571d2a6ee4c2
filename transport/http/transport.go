package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-kit/kit/endpoint"

	"github.com/flarexio/docrag"
	"github.com/flarexio/docrag/upload"
)

// abort reports err under {"detail": ...} with the given status.
func abort(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"detail": err.Error()})
	c.Error(err)
	c.Abort()
}

func HealthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

type UploadResponse struct {
	FileID string `json:"file_id"`
	Path   string `json:"path"`
}

func UploadHandler(store *upload.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		header, err := c.FormFile("file")
		if err != nil {
			abort(c, http.StatusBadRequest, err)
			return
		}

		f, err := header.Open()
		if err != nil {
			abort(c, http.StatusBadRequest, err)
			return
		}
		defer f.Close()

		fileID, path, err := store.Save(f, header.Filename)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, upload.ErrInvalidFilename) {
				status = http.StatusBadRequest
			}

			abort(c, status, err)
			return
		}

		c.JSON(http.StatusOK, &UploadResponse{
			FileID: fileID,
			Path:   path,
		})
	}
}

func IngestHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req docrag.IngestRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abort(c, http.StatusBadRequest, err)
			return
		}

		ctx := c.Request.Context()
		resp, err := endpoint(ctx, req)
		if err != nil {
			abort(c, docrag.StatusCode(err), err)
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}

func QueryHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req docrag.QueryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abort(c, http.StatusBadRequest, err)
			return
		}

		ctx := c.Request.Context()
		resp, err := endpoint(ctx, req)
		if err != nil {
			abort(c, docrag.StatusCode(err), err)
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}

func SearchHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req docrag.SearchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abort(c, http.StatusBadRequest, err)
			return
		}

		ctx := c.Request.Context()
		resp, err := endpoint(ctx, req)
		if err != nil {
			abort(c, docrag.StatusCode(err), err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"sources": resp})
	}
}

// GenerateHandler checks the answer provider. Failures are reported in the
// body as {"ok": false, "error": ...}.
func GenerateHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req docrag.GenerateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abort(c, http.StatusBadRequest, err)
			return
		}

		ctx := c.Request.Context()
		resp, err := endpoint(ctx, req)
		if err != nil {
			c.JSON(docrag.StatusCode(err), &docrag.GenerateResponse{
				OK:    false,
				Error: err.Error(),
			})
			c.Error(err)
			c.Abort()
			return
		}

		text, _ := resp.(string)
		c.JSON(http.StatusOK, &docrag.GenerateResponse{
			OK:       true,
			Response: text,
		})
	}
}
