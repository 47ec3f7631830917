package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/library/internal/domain/page"
	apperrors "github.com/xiebiao/library/pkg/errors"
)

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("业务错误返回错误码", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)

		Error(c, apperrors.ErrInvalidPage)

		assert.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		assert.Equal(t, float64(apperrors.ErrCodeInvalidPage), body["code"])
		assert.Equal(t, "页码不能小于1", body["message"])
		assert.NotContains(t, body, "data")
	})

	t.Run("内部错误不泄露原因", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)

		Error(c, assert.AnError)

		body := decode(t, w)
		assert.Equal(t, float64(apperrors.ErrCodeInternal), body["code"])
		assert.NotContains(t, body["message"], assert.AnError.Error())
	})
}

func TestNewPageData(t *testing.T) {
	req, err := page.New(2, 10)
	require.NoError(t, err)

	data := NewPageData([]int{1, 2}, 21, req)
	assert.Equal(t, 2, data.Page)
	assert.Equal(t, 10, data.PageSize)
	assert.Equal(t, 3, data.TotalPages)
}
