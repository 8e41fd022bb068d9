package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordPaymentBody struct {
	PaidDate   string `json:"paidDate" binding:"required"`
	PaidAmount string `json:"paidAmount" binding:"required"`
	Notes      string `json:"notes" binding:"omitempty,max=10"`
}

func postPayment(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	SetupValidator()

	router := gin.New()
	router.POST("/payments", func(c *gin.Context) {
		var req recordPaymentBody
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	req := httptest.NewRequest(http.MethodPost, "/payments", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSetupValidator(t *testing.T) {
	SetupValidator()

	_, ok := binding.Validator.Engine().(*validator.Validate)
	assert.True(t, ok)
}

func TestHandleValidationError(t *testing.T) {
	t.Run("missing fields produce one detail each under the json name", func(t *testing.T) {
		w := postPayment(t, `{"notes":"way past the limit"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp struct {
			Success bool `json:"success"`
			Error   struct {
				Code    string `json:"code"`
				Message string `json:"message"`
				Details []struct {
					Field   string `json:"field"`
					Message string `json:"message"`
				} `json:"details"`
			} `json:"error"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

		assert.False(t, resp.Success)
		assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
		assert.Equal(t, "Request validation failed", resp.Error.Message)
		require.Len(t, resp.Error.Details, 3)

		fields := map[string]string{}
		for _, d := range resp.Error.Details {
			fields[d.Field] = d.Message
		}
		assert.Equal(t, "This field is required", fields["paidDate"])
		assert.Equal(t, "This field is required", fields["paidAmount"])
		assert.Equal(t, "Must be at most 10 characters", fields["notes"])
	})

	t.Run("valid body passes the binding", func(t *testing.T) {
		w := postPayment(t, `{"paidDate":"2026-03-01","paidAmount":"1250.50"}`)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestValidationMessage(t *testing.T) {
	type filterParams struct {
		Kind   string `binding:"oneof=UPCOMING OVERDUE"`
		ID     string `binding:"uuid"`
		Agency string `binding:"min=3"`
	}

	v := validator.New()
	err := v.Struct(filterParams{Kind: "STALE", ID: "not-a-uuid", Agency: "x"})
	require.Error(t, err)

	messages := map[string]string{}
	for _, e := range err.(validator.ValidationErrors) {
		messages[e.StructField()] = validationMessage(e)
	}
	assert.Equal(t, "Must be one of: UPCOMING OVERDUE", messages["Kind"])
	assert.Equal(t, "Invalid UUID format", messages["ID"])
	assert.Equal(t, "Must be at least 3 characters", messages["Agency"])
}
