package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/adanyl0v/go-taskboard/internal/models"
	"github.com/adanyl0v/go-taskboard/internal/services"
)

type fieldDefinitionResponse struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Type         string   `json:"type"`
	Options      []string `json:"options"`
	Required     bool     `json:"required"`
	DefaultValue string   `json:"default_value,omitempty"`
}

func newFieldDefinitionResponse(def *models.CustomFieldDefinition) fieldDefinitionResponse {
	return fieldDefinitionResponse{
		ID:           def.ID,
		Name:         def.Name,
		Type:         string(def.Type),
		Options:      def.Options,
		Required:     def.Required,
		DefaultValue: def.DefaultValue,
	}
}

func (h *handlerImpl) HandleGetFieldDefinitions(c *gin.Context) {
	if _, ok := h.boundUserID(c); !ok {
		return
	}

	defs := h.board.FieldDefinitions()
	out := make([]fieldDefinitionResponse, 0, len(defs))
	for i := range defs {
		out = append(out, newFieldDefinitionResponse(&defs[i]))
	}
	c.JSON(http.StatusOK, out)
}

type addFieldDefinitionRequest struct {
	ID           string   `json:"id,omitempty"`
	Name         string   `json:"name" binding:"required,max=255"`
	Type         string   `json:"type" binding:"required,oneof=text select number date tag"`
	Options      []string `json:"options,omitempty"`
	Required     bool     `json:"required,omitempty"`
	DefaultValue string   `json:"default_value,omitempty"`
}

func (h *handlerImpl) HandleAddFieldDefinition(c *gin.Context) {
	if _, ok := h.boundUserID(c); !ok {
		return
	}

	var req addFieldDefinitionRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	def, err := h.board.AddFieldDefinition(models.CustomFieldDefinition{
		ID:           req.ID,
		Name:         req.Name,
		Type:         models.CustomFieldType(req.Type),
		Options:      req.Options,
		Required:     req.Required,
		DefaultValue: req.DefaultValue,
	})
	if err != nil {
		abortBoardError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newFieldDefinitionResponse(def))
}

type updateFieldDefinitionRequest struct {
	Name         *string  `json:"name,omitempty" binding:"omitempty,max=255"`
	Type         *string  `json:"type,omitempty" binding:"omitempty,oneof=text select number date tag"`
	Options      []string `json:"options,omitempty"`
	Required     *bool    `json:"required,omitempty"`
	DefaultValue *string  `json:"default_value,omitempty"`
}

func (h *handlerImpl) HandleUpdateFieldDefinition(c *gin.Context) {
	if _, ok := h.boundUserID(c); !ok {
		return
	}

	var req updateFieldDefinitionRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	changes := services.FieldChanges{
		Name:         req.Name,
		Options:      req.Options,
		Required:     req.Required,
		DefaultValue: req.DefaultValue,
	}
	if req.Type != nil {
		fieldType := models.CustomFieldType(*req.Type)
		changes.Type = &fieldType
	}

	def, err := h.board.UpdateFieldDefinition(c.Param("id"), changes)
	if err != nil {
		abortBoardError(c, err)
		return
	}
	c.JSON(http.StatusOK, newFieldDefinitionResponse(def))
}

func (h *handlerImpl) HandleDeleteFieldDefinition(c *gin.Context) {
	if _, ok := h.boundUserID(c); !ok {
		return
	}

	err := h.board.DeleteFieldDefinition(c.Param("id"))
	if err != nil {
		abortBoardError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
