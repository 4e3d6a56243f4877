package observations

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engramdb/engram/pkg/apperror"
)

func deleteContext(id string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodDelete, "/api/observations/"+id, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/api/observations/:id")
	c.SetParamNames("id")
	c.SetParamValues(id)
	return c
}

func TestDeleteRejectsInvalidID(t *testing.T) {
	h := NewHandler(nil)

	for _, id := range []string{"abc", "1.5", ""} {
		err := h.Delete(deleteContext(id))

		var appErr *apperror.Error
		require.ErrorAs(t, err, &appErr, "id %q", id)
		assert.Equal(t, http.StatusBadRequest, appErr.HTTPStatus)
	}
}
