package i18n

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"gdg-portal/internal/pkg/xerrors"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"
)

func TestParseAcceptLanguage(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   language.Tag
	}{
		{"空头部使用默认语言", "", language.English},
		{"阿拉伯语（沙特）", "ar-SA,ar;q=0.9,en;q=0.8", language.Arabic},
		{"英文优先", "en-US,en;q=0.9", language.English},
		{"不支持的语言回退英文", "fr-FR", language.English},
		{"格式错误回退英文", ";;;", language.English},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseAcceptLanguage(tt.header))
		})
	}
}

func TestGetErrorMessage(t *testing.T) {
	assert.Equal(t, "No account found with this University ID",
		GetErrorMessage(xerrors.CodeIdentifierNotFound, language.English))
	assert.Equal(t, "لا يوجد حساب مرتبط بهذا الرقم الجامعي",
		GetErrorMessage(xerrors.CodeIdentifierNotFound, language.Arabic))

	// 未注册的错误码回退到通用错误
	assert.Equal(t, xerrors.CodeInternalError.Message(),
		GetErrorMessage(xerrors.ErrorCode(999999), language.English))
}

func TestMiddleware_QueryOverridesHeader(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/sign-in?lang=ar", nil)
	req.Header.Set("Accept-Language", "en-US")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var got language.Tag
	h := Middleware()(func(c echo.Context) error {
		got = GetLanguage(c.Request().Context())
		return nil
	})

	assert.NoError(t, h(c))
	assert.Equal(t, language.Arabic, got)
	assert.Equal(t, "ar", rec.Header().Get("Content-Language"))
}
