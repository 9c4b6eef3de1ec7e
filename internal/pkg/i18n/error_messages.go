// File: internal/pkg/i18n/error_messages.go
package i18n

import (
	"fmt"

	"gdg-portal/internal/pkg/xerrors"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const unexpectedAR = "حدث خطأ غير متوقع. يرجى المحاولة مرة أخرى أو التواصل مع الدعم."

// ErrorMessages 错误消息的多语言映射（英文文案与 xerrors 默认文案一致）
var ErrorMessages = map[xerrors.ErrorCode]map[language.Tag]string{
	xerrors.CodeSuccess:          {language.English: "OK", language.Arabic: "تم بنجاح"},
	xerrors.CodeInternalError:    {language.English: xerrors.CodeInternalError.Message(), language.Arabic: unexpectedAR},
	xerrors.CodeInvalidParams:    {language.English: xerrors.CodeInvalidParams.Message(), language.Arabic: "يرجى تصحيح الحقول المحددة."},
	xerrors.CodeInvalidRequest:   {language.English: xerrors.CodeInvalidRequest.Message(), language.Arabic: "تعذر فهم الطلب."},
	xerrors.CodeResourceNotFound: {language.English: xerrors.CodeResourceNotFound.Message(), language.Arabic: "الصفحة المطلوبة غير موجودة."},
	xerrors.CodeFlowBusy:         {language.English: xerrors.CodeFlowBusy.Message(), language.Arabic: "لا يزال طلبك السابق قيد المعالجة."},

	xerrors.CodeAuthenticationFailed: {language.English: xerrors.CodeAuthenticationFailed.Message(), language.Arabic: "يجب تسجيل الدخول للمتابعة."},
	xerrors.CodeInvalidCredentials:   {language.English: xerrors.CodeInvalidCredentials.Message(), language.Arabic: "البريد الإلكتروني أو كلمة المرور غير صحيحة"},
	xerrors.CodeSessionMissing:       {language.English: xerrors.CodeSessionMissing.Message(), language.Arabic: "انتهت صلاحية الجلسة. يرجى البدء من جديد."},
	xerrors.CodeIdentifierNotFound:   {language.English: xerrors.CodeIdentifierNotFound.Message(), language.Arabic: "لا يوجد حساب مرتبط بهذا الرقم الجامعي"},
	xerrors.CodeIncorrectCode:        {language.English: xerrors.CodeIncorrectCode.Message(), language.Arabic: "رمز التحقق غير صحيح. يرجى المحاولة مرة أخرى."},
	xerrors.CodeAccountExists:        {language.English: xerrors.CodeAccountExists.Message(), language.Arabic: "يوجد حساب مرتبط بهذا البريد الإلكتروني بالفعل. يرجى تسجيل الدخول."},
	xerrors.CodeResendCooldown:       {language.English: xerrors.CodeResendCooldown.Message(), language.Arabic: "يرجى الانتظار قبل طلب رمز جديد."},

	xerrors.CodeExternalServiceError: {language.English: xerrors.CodeExternalServiceError.Message(), language.Arabic: unexpectedAR},
	xerrors.CodeKratosError:          {language.English: xerrors.CodeKratosError.Message(), language.Arabic: unexpectedAR},
	xerrors.CodeCacheError:           {language.English: xerrors.CodeCacheError.Message(), language.Arabic: unexpectedAR},
	xerrors.CodeMessageQueueError:    {language.English: xerrors.CodeMessageQueueError.Message(), language.Arabic: unexpectedAR},
}

// errorKey 消息目录中的 key
func errorKey(code xerrors.ErrorCode) string {
	return fmt.Sprintf("error.%d", code)
}

// GetErrorMessage 获取错误码对应语言的消息，缺失翻译时回退到英文
func GetErrorMessage(code xerrors.ErrorCode, lang language.Tag) string {
	if _, ok := ErrorMessages[code]; !ok {
		code = xerrors.CodeInternalError
	}
	if _, ok := ErrorMessages[code][lang]; !ok {
		lang = DefaultLanguage
	}
	return Translate(lang, errorKey(code))
}

// init 将错误文案注册到 x/text 默认消息目录
func init() {
	for code, messages := range ErrorMessages {
		for lang, msg := range messages {
			_ = message.SetString(lang, errorKey(code), msg)
		}
	}
}
