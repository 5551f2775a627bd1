package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"nlu-service/internal/adapters/primary/http/dto"
	"nlu-service/internal/core/domain"
	"nlu-service/internal/core/services"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func (h *Handler) CreateApplication(c *gin.Context) {
	id, err := h.lifecycleSvc.CreateApplication(c.Request.Context())
	if err != nil {
		log.WithError(err).Error("create application failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ApplicationResponse{ID: id})
}

func (h *Handler) UpdateApplication(c *gin.Context) {
	req := services.UpdateRequest{TenantID: c.Param("id")}

	var err error
	for name, dst := range map[string]*bool{
		"create": &req.CreateIfMissing,
		"async":  &req.Async,
		"force":  &req.Force,
	} {
		if *dst, err = queryFlag(c, name); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	req.Upload, err = h.readUpload(c)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit)})
			return
		}
		mapDomainError(c, err)
		return
	}

	result, err := h.lifecycleSvc.UpdateApplication(c.Request.Context(), req)
	if err != nil {
		log.WithError(err).WithField("tenant_id", req.TenantID).Error("update application failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToUpdateApplicationResponse(result))
}

// readUpload collects every multipart file part, or the raw body as a single
// file when the request is not multipart.
func (h *Handler) readUpload(c *gin.Context) (domain.Upload, error) {
	if h.uploadMaxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.uploadMaxBytes)
	}

	mediaType, _, _ := mime.ParseMediaType(c.GetHeader("Content-Type"))
	if mediaType != "multipart/form-data" {
		data, err := io.ReadAll(c.Request.Body)
		if err != nil {
			return domain.Upload{}, wrapUploadErr(err)
		}
		return domain.Upload{Files: []domain.UploadFile{{ContentType: mediaType, Data: data}}}, nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		return domain.Upload{}, wrapUploadErr(err)
	}

	var upload domain.Upload
	for _, headers := range form.File {
		for _, fh := range headers {
			f, err := fh.Open()
			if err != nil {
				return domain.Upload{}, wrapUploadErr(err)
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				return domain.Upload{}, wrapUploadErr(err)
			}
			upload.Files = append(upload.Files, domain.UploadFile{
				Name:        fh.Filename,
				ContentType: fh.Header.Get("Content-Type"),
				Data:        data,
			})
		}
	}
	if len(upload.Files) == 0 {
		return domain.Upload{}, fmt.Errorf("%w: no files in multipart upload", domain.ErrBadInput)
	}
	return upload, nil
}

func wrapUploadErr(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return err
	}
	return fmt.Errorf("%w: read upload: %w", domain.ErrBadInput, err)
}

// queryFlag treats a bare "?name" as true.
func queryFlag(c *gin.Context, name string) (bool, error) {
	raw, ok := c.GetQuery(name)
	if !ok {
		return false, nil
	}
	if strings.TrimSpace(raw) == "" {
		return true, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s flag %q", name, raw)
	}
	return v, nil
}
