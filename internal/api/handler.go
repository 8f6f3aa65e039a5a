package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/guttosm/cryptonorm/internal/domain/dto"
	"github.com/guttosm/cryptonorm/internal/domain/models"
	"github.com/guttosm/cryptonorm/internal/normalize"
	"github.com/guttosm/cryptonorm/internal/service"
)

// maxUploadBytes caps the size of an uploaded export.
const maxUploadBytes = 32 << 20

// Handler provides HTTP handlers for import and normalization endpoints.
//
// Responsibilities:
//   - Read uploaded exports and path/query parameters
//   - Delegate to the import service
//   - Translate results and errors into response DTOs and status codes
type Handler struct {
	svc service.ImportService
}

// NewHandler constructs a Handler backed by svc.
func NewHandler(svc service.ImportService) *Handler {
	return &Handler{svc: svc}
}

// CreateImport godoc
// @Summary      Import an exchange export
// @Description  Normalizes an uploaded CSV/XLS export and stores its records and row failures. Identical content is imported once unless force is set.
// @Tags         imports
// @Accept       multipart/form-data
// @Produce      json
// @Param        file   formData  file    true   "Exchange export (.csv or .xls)"
// @Param        force  query     bool    false  "Replace a previous import of the same content"
// @Success      201    {object}  dto.ImportResponse  "Imported"
// @Success      200    {object}  dto.ImportResponse  "Already imported"
// @Failure      400    {object}  dto.ErrorResponse   "Bad Request"
// @Failure      422    {object}  dto.ErrorResponse   "Unrecognized format"
// @Failure      500    {object}  dto.ErrorResponse   "Internal Error"
// @Router       /api/v1/imports [post]
func (h *Handler) CreateImport(c *gin.Context) {
	force := false
	if s := c.Query("force"); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.NewErrorResponse("invalid force flag", err))
			return
		}
		force = v
	}

	name, content, ok := readUpload(c)
	if !ok {
		return
	}

	res, err := h.svc.Import(c.Request.Context(), name, content, force)
	if err != nil {
		writeServiceError(c, "failed to import file", err)
		return
	}

	resp := dto.ImportResponse{Import: dto.NewImportSummary(res.Import), Skipped: res.Skipped}
	if res.Skipped {
		c.JSON(http.StatusOK, resp)
		return
	}
	result := dto.NewNormalizeResponse(res.File)
	resp.Result = &result
	c.JSON(http.StatusCreated, resp)
}

// Normalize godoc
// @Summary      Normalize an exchange export
// @Description  Classifies every row of an uploaded export without storing anything
// @Tags         normalize
// @Accept       multipart/form-data
// @Produce      json
// @Param        file  formData  file  true  "Exchange export (.csv or .xls)"
// @Success      200   {object}  dto.NormalizeResponse  "Success"
// @Failure      400   {object}  dto.ErrorResponse      "Bad Request"
// @Failure      422   {object}  dto.ErrorResponse      "Unrecognized format"
// @Failure      500   {object}  dto.ErrorResponse      "Internal Error"
// @Router       /api/v1/normalize [post]
func (h *Handler) Normalize(c *gin.Context) {
	name, content, ok := readUpload(c)
	if !ok {
		return
	}
	res, err := h.svc.Normalize(c.Request.Context(), name, content)
	if err != nil {
		writeServiceError(c, "failed to normalize file", err)
		return
	}
	c.JSON(http.StatusOK, dto.NewNormalizeResponse(res))
}

// GetImport godoc
// @Summary      Get an import
// @Tags         imports
// @Produce      json
// @Param        id   path      string  true  "Import ID"
// @Success      200  {object}  dto.ImportSummary  "Success"
// @Failure      400  {object}  dto.ErrorResponse  "Bad Request"
// @Failure      404  {object}  dto.ErrorResponse  "Not Found"
// @Failure      500  {object}  dto.ErrorResponse  "Internal Error"
// @Router       /api/v1/imports/{id} [get]
func (h *Handler) GetImport(c *gin.Context) {
	id, ok := importID(c)
	if !ok {
		return
	}
	imp, err := h.svc.GetImport(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, "failed to fetch import", err)
		return
	}
	c.JSON(http.StatusOK, dto.NewImportSummary(imp))
}

// ListRecords godoc
// @Summary      List the records of an import
// @Tags         imports
// @Produce      json
// @Param        id   path      string  true  "Import ID"
// @Success      200  {object}  dto.RecordsResponse  "Success"
// @Failure      400  {object}  dto.ErrorResponse    "Bad Request"
// @Failure      404  {object}  dto.ErrorResponse    "Not Found"
// @Failure      500  {object}  dto.ErrorResponse    "Internal Error"
// @Router       /api/v1/imports/{id}/transactions [get]
func (h *Handler) ListRecords(c *gin.Context) {
	id, ok := importID(c)
	if !ok {
		return
	}
	recs, err := h.svc.ListRecords(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, "failed to list records", err)
		return
	}
	resp := dto.RecordsResponse{ImportID: id.String(), Records: recs}
	if resp.Records == nil {
		resp.Records = []models.Record{}
	}
	c.JSON(http.StatusOK, resp)
}

// ListFormats godoc
// @Summary      List recognized export formats
// @Tags         formats
// @Produce      json
// @Success      200  {array}  dto.FormatResponse  "Success"
// @Router       /api/v1/formats [get]
func (h *Handler) ListFormats(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewFormatResponses(h.svc.Formats()))
}

func readUpload(c *gin.Context) (string, []byte, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("file is required", err))
		return "", nil, false
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("failed to open upload", err))
		return "", nil, false
	}
	defer func() { _ = f.Close() }()

	content, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("failed to read upload", err))
		return "", nil, false
	}
	return fh.Filename, content, true
}

func importID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("invalid import id", err))
		return uuid.Nil, false
	}
	return id, true
}

func writeServiceError(c *gin.Context, message string, err error) {
	switch {
	case errors.Is(err, normalize.ErrUnrecognized):
		c.JSON(http.StatusUnprocessableEntity, dto.NewErrorResponse("unrecognized file format", err))
	case errors.Is(err, service.ErrUnreadableFile):
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("unreadable file", err))
	case errors.Is(err, service.ErrImportNotFound):
		c.JSON(http.StatusNotFound, dto.NewErrorResponse("import not found", nil))
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(message, err))
	}
}
