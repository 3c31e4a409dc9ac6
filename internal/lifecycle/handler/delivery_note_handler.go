package handler

import (
	"io"
	"mime"
	"net/http"

	"github.com/bitfantasy/recytrack/internal/lifecycle/service"
	"github.com/gin-gonic/gin"
)

// maxDocumentSize 单个单据附件上限 20MB
const maxDocumentSize = 20 << 20

type DeliveryNoteHandler struct {
	svc *service.DeliveryService
}

func NewDeliveryNoteHandler(svc *service.DeliveryService) *DeliveryNoteHandler {
	return &DeliveryNoteHandler{svc: svc}
}

// Create POST /delivery-notes
func (h *DeliveryNoteHandler) Create(c *gin.Context) {
	var req service.CreateDeliveryNoteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	res, err := h.svc.Create(c.Request.Context(), CurrentActor(c), req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, res)
}

// List GET /delivery-notes?type=&page=&page_size=
func (h *DeliveryNoteHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.List(c.Request.Context(), c.Query("type"), page, pageSize)
	if err != nil {
		RespondError(c, err)
		return
	}
	listResponse(c, items, total, page, pageSize)
}

// Get GET /delivery-notes/:id
func (h *DeliveryNoteHandler) Get(c *gin.Context) {
	note, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, note)
}

// UploadDocument POST /delivery-notes/:id/document (multipart, field "file")
func (h *DeliveryNoteHandler) UploadDocument(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxDocumentSize+1<<20)
	fileHeader, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "No file uploaded")
		return
	}
	if fileHeader.Size > maxDocumentSize {
		BadRequest(c, "File too large (max 20MB)")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		InternalError(c, "Failed to open file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		InternalError(c, "Failed to read file")
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	res, err := h.svc.AttachDocument(c.Request.Context(), CurrentActor(c), c.Param("id"), fileHeader.Filename, contentType, data)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, res)
}

// DocumentURL GET /delivery-notes/:id/document
func (h *DeliveryNoteHandler) DocumentURL(c *gin.Context) {
	url, err := h.svc.DocumentURL(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, gin.H{"url": url, "expires_in": int(service.DocumentURLExpiry.Seconds())})
}

// DownloadDocument GET /delivery-notes/:id/document/content
func (h *DeliveryNoteHandler) DownloadDocument(c *gin.Context) {
	data, name, err := h.svc.DownloadDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	c.Data(http.StatusOK, http.DetectContentType(data), data)
}
