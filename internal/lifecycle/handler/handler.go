package handler

import (
	"errors"
	"strconv"

	"github.com/bitfantasy/recytrack/internal/lifecycle/service"
	"github.com/bitfantasy/recytrack/internal/lifecycle/sse"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handlers 物料生命周期处理器集合
type Handlers struct {
	MaterialInput *MaterialInputHandler
	Processing    *ProcessingHandler
	Sample        *SampleHandler
	Container     *ContainerHandler
	Output        *OutputHandler
	Allocation    *AllocationHandler
	Order         *OrderHandler
	DeliveryNote  *DeliveryNoteHandler
	Permission    *PermissionHandler
	SSE           *SSEHandler
}

func NewHandlers(svcs *service.Services, hub *sse.Hub, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	errLog = logger.Named("http")
	return &Handlers{
		MaterialInput: NewMaterialInputHandler(svcs.Intake, svcs.Processing, svcs.Sample),
		Processing:    NewProcessingHandler(svcs.Processing),
		Sample:        NewSampleHandler(svcs.Sample),
		Container:     NewContainerHandler(svcs.Container),
		Output:        NewOutputHandler(svcs.Output, svcs.Allocation, svcs.Export),
		Allocation:    NewAllocationHandler(svcs.Allocation, svcs.Export),
		Order:         NewOrderHandler(svcs.Order),
		DeliveryNote:  NewDeliveryNoteHandler(svcs.Delivery),
		Permission:    NewPermissionHandler(svcs.Permissions),
		SSE:           NewSSEHandler(hub),
	}
}

// RegisterRoutes mounts every lifecycle route on an authenticated group.
func (h *Handlers) RegisterRoutes(api *gin.RouterGroup) {
	inputs := api.Group("/material-inputs")
	{
		inputs.POST("", h.MaterialInput.Create)
		inputs.GET("", h.MaterialInput.List)
		inputs.GET("/:id", h.MaterialInput.Get)
		inputs.GET("/:id/history", h.MaterialInput.History)
		inputs.GET("/:id/processing", h.MaterialInput.ListProcessing)
		inputs.POST("/:id/processing", h.MaterialInput.StartProcessing)
		inputs.GET("/:id/samples", h.MaterialInput.ListSamples)
	}

	steps := api.Group("/processing-steps")
	{
		steps.POST("/:id/complete", h.Processing.Complete)
		steps.POST("/:id/pause", h.Processing.Pause)
		steps.POST("/:id/resume", h.Processing.Resume)
		steps.POST("/:id/require-sample", h.Processing.RequireSample)
	}

	samples := api.Group("/samples")
	{
		samples.POST("", h.Sample.Create)
		samples.GET("/:id", h.Sample.Get)
		samples.POST("/:id/results", h.Sample.RecordResults)
		samples.POST("/:id/approve", h.Sample.Approve)
		samples.POST("/:id/reject", h.Sample.Reject)
	}

	containers := api.Group("/containers")
	{
		containers.POST("", h.Container.Create)
		containers.GET("", h.Container.List)
		containers.GET("/:id", h.Container.Get)
		containers.PUT("/:id/status", h.Container.UpdateStatus)
	}

	outputs := api.Group("/outputs")
	{
		outputs.POST("", h.Output.Create)
		outputs.GET("", h.Output.List)
		outputs.GET("/:id", h.Output.Get)
		outputs.GET("/:id/remaining", h.Output.Remaining)
		outputs.GET("/:id/history", h.Output.History)
		outputs.GET("/:id/allocations", h.Output.Allocations)
		outputs.GET("/:id/allocations/export", h.Output.ExportAllocations)
	}

	allocations := api.Group("/allocations")
	{
		allocations.POST("", h.Allocation.Allocate)
		allocations.GET("", h.Allocation.Ledger)
		allocations.GET("/export", h.Allocation.Export)
	}

	orders := api.Group("/orders")
	{
		orders.POST("", h.Order.Create)
		orders.GET("", h.Order.List)
		orders.GET("/:id", h.Order.Get)
	}

	notes := api.Group("/delivery-notes")
	{
		notes.POST("", h.DeliveryNote.Create)
		notes.GET("", h.DeliveryNote.List)
		notes.GET("/:id", h.DeliveryNote.Get)
		notes.POST("/:id/document", h.DeliveryNote.UploadDocument)
		notes.GET("/:id/document", h.DeliveryNote.DocumentURL)
		notes.GET("/:id/document/content", h.DeliveryNote.DownloadDocument)
	}

	api.GET("/me/permissions", h.Permission.Mine)
}

// RegisterStreamRoutes mounts the SSE stream. It stays off compressed groups so
// events are flushed as they happen.
func (h *Handlers) RegisterStreamRoutes(api *gin.RouterGroup) {
	api.GET("/events/stream", h.SSE.Stream)
}

// === 响应辅助函数 ===

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type ListResponse struct {
	Items      interface{} `json:"items"`
	Pagination *Pagination `json:"pagination"`
}

type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	ErrorWithData(c, code, message, nil)
}

func ErrorWithData(c *gin.Context, code int, message string, data interface{}) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

func Forbidden(c *gin.Context, message string) {
	Error(c, 40300, message)
}

func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// Response codes per error kind. HTTP status is code/100.
const (
	CodeValidation   = 40000
	CodeForbidden    = 40300
	CodeNotFound     = 40400
	CodeConflict     = 40900
	CodeSystem       = 50000
	CodeIDGeneration = 50001
)

var errLog = zap.NewNop()

// RespondError writes err with a message that tells input, conflict, authorization
// and system failures apart.
func RespondError(c *gin.Context, err error) {
	var svcErr *service.Error
	if !errors.As(err, &svcErr) {
		errLog.Error("unclassified error", zap.String("path", c.FullPath()), zap.Error(err))
		InternalError(c, "system error")
		return
	}

	switch svcErr.Kind {
	case service.KindValidation:
		if len(svcErr.Fields) == 0 && svcErr.Remaining == nil {
			Error(c, CodeValidation, "invalid input: "+svcErr.Message)
			return
		}
		data := gin.H{}
		if len(svcErr.Fields) > 0 {
			data["fields"] = svcErr.Fields
		}
		if svcErr.Remaining != nil {
			data["remaining_kg"] = *svcErr.Remaining
		}
		ErrorWithData(c, CodeValidation, "invalid input: "+svcErr.Message, data)
	case service.KindConflict:
		Error(c, CodeConflict, "conflict with existing state: "+svcErr.Message)
	case service.KindPermissionDenied:
		Error(c, CodeForbidden, "not authorized: "+svcErr.Message)
	case service.KindNotFound:
		Error(c, CodeNotFound, svcErr.Message)
	case service.KindIDGeneration:
		errLog.Error("id generation failed", zap.Error(err))
		Error(c, CodeIDGeneration, "system error: "+svcErr.Error())
	default:
		errLog.Error("backend failure", zap.String("path", c.FullPath()), zap.Error(err))
		Error(c, CodeSystem, "system error: "+svcErr.Error())
	}
}

func GetUserID(c *gin.Context) string {
	userID, _ := c.Get("user_id")
	if id, ok := userID.(string); ok {
		return id
	}
	return ""
}

// CurrentActor builds the explicit actor from the authenticated request.
func CurrentActor(c *gin.Context) service.Actor {
	return service.Actor{
		UserID: GetUserID(c),
		Name:   c.GetString("user_name"),
		Role:   service.Role(c.GetString("role")),
	}
}

func GetPagination(c *gin.Context) (page, pageSize int) {
	page = 1
	pageSize = 20

	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}

	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}

	return page, pageSize
}

func listResponse(c *gin.Context, items interface{}, total int64, page, pageSize int) {
	totalPages := int(total) / pageSize
	if int(total)%pageSize != 0 {
		totalPages++
	}
	Success(c, ListResponse{
		Items: items,
		Pagination: &Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      int(total),
			TotalPages: totalPages,
		},
	})
}
