package graph

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/graphql-go/graphql"

	"ethiobus/internal/middleware"
)

type request struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
}

// Handler serves the GraphQL endpoint. Authentication is optional here;
// resolvers that need it check the context themselves, so public queries
// work without a token.
func Handler(schema graphql.Schema) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"errors": []gin.H{{"message": "Invalid request body"}},
			})
			return
		}

		ctx := c.Request.Context()
		if authHeader := c.GetHeader("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
			if user, err := middleware.UserFromToken(strings.TrimPrefix(authHeader, "Bearer ")); err == nil {
				ctx = WithUser(ctx, &user)
			}
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			OperationName:  req.OperationName,
			VariableValues: req.Variables,
			Context:        ctx,
		})
		c.JSON(http.StatusOK, result)
	}
}
