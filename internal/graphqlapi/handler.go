package graphqlapi

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/gqlerrors"
)

type graphqlRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName"`
	Variables     map[string]any `json:"variables"`
}

// Handler executes GraphQL requests. In production, resolver error messages
// are replaced with a generic message so upstream failure details never reach
// API consumers; the full error is logged server side.
type Handler struct {
	schema     graphql.Schema
	production bool
	log        *slog.Logger
}

func NewHandler(schema graphql.Schema, production bool, log *slog.Logger) *Handler {
	return &Handler{schema: schema, production: production, log: log}
}

func (h *Handler) Handle(c *gin.Context) {
	var req graphqlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": []gin.H{{"message": "invalid request body"}}})
		return
	}
	if req.Query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"errors": []gin.H{{"message": "query is required"}}})
		return
	}

	result := graphql.Do(graphql.Params{
		Schema:         h.schema,
		RequestString:  req.Query,
		OperationName:  req.OperationName,
		VariableValues: req.Variables,
		Context:        c.Request.Context(),
	})

	if len(result.Errors) > 0 {
		for _, e := range result.Errors {
			h.log.WarnContext(c.Request.Context(), "graphql error",
				"operation", req.OperationName, "error", e.Message)
		}
		if h.production {
			result.Errors = maskErrors(result.Errors)
		}
	}
	c.JSON(http.StatusOK, result)
}

func maskErrors(errs []gqlerrors.FormattedError) []gqlerrors.FormattedError {
	masked := make([]gqlerrors.FormattedError, len(errs))
	for i, e := range errs {
		masked[i] = gqlerrors.FormattedError{
			Message:   "internal error",
			Locations: e.Locations,
			Path:      e.Path,
			Extensions: map[string]any{
				"code": "INTERNAL_ERROR",
			},
		}
	}
	return masked
}
