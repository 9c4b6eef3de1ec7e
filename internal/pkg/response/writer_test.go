package response

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"gdg-portal/internal/pkg/ctxkey"
	"gdg-portal/internal/pkg/i18n"
	"gdg-portal/internal/pkg/log"
	"gdg-portal/internal/pkg/xerrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) ResponseResult[json.RawMessage] {
	t.Helper()
	var body ResponseResult[json.RawMessage]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestWriteError_IncorrectCodeIsFieldLevel(t *testing.T) {
	h := NewResponseHandler(log.Discard())
	rec := httptest.NewRecorder()
	ctx := ctxkey.WithValue(context.Background(), ctxkey.TraceID, "trace-1")

	require.NoError(t, h.WriteError(ctx, rec, xerrors.NewIncorrectCodeError()))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "trace-1", body.TraceID)
	require.Len(t, body.Errors, 1)
	assert.Equal(t, "incorrect_code", body.Errors[0].Code)
	assert.Equal(t, "code", body.Errors[0].Field)
	assert.NotEmpty(t, body.Errors[0].LongMessage)
}

func TestWriteError_UnknownErrorBecomesUnexpected(t *testing.T) {
	h := NewResponseHandler(log.Discard())
	rec := httptest.NewRecorder()

	require.NoError(t, h.WriteError(context.Background(), rec, errors.New("boom")))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode(t, rec)
	require.Len(t, body.Errors, 1)
	assert.Equal(t, "unexpected", body.Errors[0].Code)
	assert.Equal(t, "An unexpected error occurred. Please try again or contact support.", body.Message)
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestWriteError_FieldErrorsSorted(t *testing.T) {
	h := NewResponseHandler(log.Discard())
	rec := httptest.NewRecorder()

	err := xerrors.NewFieldErrors(map[string]string{
		"saudi_phone":     "Phone must start with 05 and contain 10 digits",
		"full_arabic_name": "Name must contain Arabic letters only",
	})
	require.NoError(t, h.WriteError(context.Background(), rec, err))

	body := decode(t, rec)
	require.Len(t, body.Errors, 2)
	assert.Equal(t, "full_arabic_name", body.Errors[0].Field)
	assert.Equal(t, "saudi_phone", body.Errors[1].Field)
}

func TestWriteError_Localized(t *testing.T) {
	h := NewResponseHandler(log.Discard())
	rec := httptest.NewRecorder()
	ctx := i18n.WithLanguage(context.Background(), language.Arabic)

	require.NoError(t, h.WriteError(ctx, rec, xerrors.FromCode(xerrors.CodeSessionMissing)))

	assert.Equal(t, http.StatusGone, rec.Code)
	assert.Equal(t, "انتهت صلاحية الجلسة. يرجى البدء من جديد.", decode(t, rec).Message)
}

func TestWriteSuccess(t *testing.T) {
	h := NewResponseHandler(log.Discard())
	rec := httptest.NewRecorder()

	require.NoError(t, h.WriteSuccess(context.Background(), rec, map[string]string{"state": "awaiting-code"}))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, 100000, body.Code)
	require.NotNil(t, body.Data)
	assert.JSONEq(t, `{"state":"awaiting-code"}`, string(*body.Data))
}
