package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/erp/lotledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupValidator(t *testing.T) {
	SetupValidator()

	v, ok := binding.Validator.Engine().(*validator.Validate)
	assert.True(t, ok)
	assert.NotNil(t, v)
}

func newValidationRouter() *gin.Engine {
	type input struct {
		Sku     string   `json:"sku" binding:"required,max=8"`
		Batch   string   `json:"batch_id" binding:"required"`
		Entries []string `json:"entries" binding:"required,min=1"`
	}

	SetupValidator()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/test", func(c *gin.Context) {
		var req input
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	})
	return router
}

func TestHandleValidationError(t *testing.T) {
	router := newValidationRouter()

	t.Run("field failures are reported by json name", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/test", strings.NewReader(`{"sku": "MUCH-TOO-LONG", "entries": []}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)

		fields := make(map[string]string)
		for _, f := range resp.Error.Fields {
			fields[f.Field] = f.Message
		}
		assert.Equal(t, "Must be at most 8 characters", fields["sku"])
		assert.Equal(t, "This field is required", fields["batch_id"])
		assert.Equal(t, "Must contain at least 1 items", fields["entries"])
	})

	t.Run("malformed json is a bad request", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/test", strings.NewReader(`{"sku": `))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), dto.ErrCodeBadRequest)
	})

	t.Run("valid input passes", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/test", strings.NewReader(`{"sku": "SKU-1", "batch_id": "b1", "entries": ["a"]}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}
