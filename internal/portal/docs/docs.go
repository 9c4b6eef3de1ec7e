// Package docs 门户 OpenAPI 文档，按 swag 的注册方式挂到 /swagger。
// 文档随 handler 的 swagger 注释手动维护，新增路由时同步 paths；
// handler 包的测试会核对每条已注册路由都有对应条目。
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/forgot-password": {
            "get": {"produces": ["application/json"], "tags": ["找回密码"], "summary": "找回密码页", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.AuthPage"}}, "307": {"description": "已登录，离开找回密码页"}}},
            "post": {"consumes": ["application/json"], "produces": ["application/json"], "tags": ["找回密码"], "summary": "发送重置验证码", "parameters": [{"description": "学号", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.ForgotPasswordRequest"}}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.FlowView"}}, "404": {"description": "账号不存在"}}}
        },
        "/forgot-password/back": {"post": {"produces": ["application/json"], "tags": ["找回密码"], "summary": "返回上一步", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.FlowView"}}}}},
        "/forgot-password/code": {"post": {"consumes": ["application/json"], "produces": ["application/json"], "tags": ["找回密码"], "summary": "提交重置验证码", "parameters": [{"description": "验证码", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.CodeRequest"}}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.FlowView"}}, "400": {"description": "验证码不足 6 位"}}}},
        "/forgot-password/resend": {"post": {"produces": ["application/json"], "tags": ["找回密码"], "summary": "重发重置验证码", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.FlowView"}}}}},
        "/forgot-password/reset": {"post": {"consumes": ["application/json"], "produces": ["application/json"], "tags": ["找回密码"], "summary": "设置新密码", "parameters": [{"description": "新密码", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.ResetPasswordRequest"}}], "responses": {"303": {"description": "重置完成，跳转个人主页"}, "400": {"description": "验证码错误"}}}},
        "/health": {"get": {"produces": ["application/json"], "tags": ["运维"], "summary": "存活检查", "responses": {"200": {"description": "OK"}}}},
        "/onboarding": {
            "get": {"produces": ["application/json"], "tags": ["引导"], "summary": "引导页", "parameters": [{"type": "string", "description": "完成后的跳转地址", "name": "redirect_url", "in": "query"}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.OnboardingPage"}}}},
            "post": {"consumes": ["application/json"], "produces": ["application/json"], "tags": ["引导"], "summary": "提交引导资料", "parameters": [{"description": "引导资料", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/onboarding.Form"}}], "responses": {"303": {"description": "跳转到 redirect_url 或个人主页"}, "400": {"description": "字段校验失败"}, "500": {"description": "写入资料失败"}}}
        },
        "/onboarding/sign-out": {"post": {"tags": ["引导"], "summary": "退出登录（引导页）", "responses": {"303": {"description": "跳转登录页"}, "307": {"description": "未登录，跳转注册页"}}}},
        "/ready": {"get": {"produces": ["application/json"], "tags": ["运维"], "summary": "就绪检查", "responses": {"200": {"description": "OK"}, "503": {"description": "Service Unavailable"}}}},
        "/sign-in": {
            "get": {"produces": ["application/json"], "tags": ["登录"], "summary": "登录页", "parameters": [{"type": "string", "description": "完成后的跳转地址", "name": "redirect_url", "in": "query"}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.AuthPage"}}, "307": {"description": "已登录，离开登录页"}}},
            "post": {"consumes": ["application/json"], "produces": ["application/json"], "tags": ["登录"], "summary": "登录", "parameters": [{"description": "登录请求", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.SignInRequest"}}], "responses": {"200": {"description": "需要二次验证", "schema": {"$ref": "#/definitions/handler.FlowView"}}, "303": {"description": "登录完成"}, "401": {"description": "账号或密码错误"}, "404": {"description": "账号不存在"}}}
        },
        "/sign-in/back": {"post": {"produces": ["application/json"], "tags": ["登录"], "summary": "返回登录表单", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.FlowView"}}}}},
        "/sign-in/resend": {"post": {"produces": ["application/json"], "tags": ["登录"], "summary": "重发二次验证码", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.FlowView"}}}}},
        "/sign-in/verify": {"post": {"consumes": ["application/json"], "produces": ["application/json"], "tags": ["登录"], "summary": "二次验证", "parameters": [{"description": "验证码", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.CodeRequest"}}], "responses": {"303": {"description": "登录完成"}, "400": {"description": "验证码错误"}, "409": {"description": "上一个请求仍在处理"}}}},
        "/sign-up": {
            "get": {"produces": ["application/json"], "tags": ["注册"], "summary": "注册页", "parameters": [{"type": "string", "description": "完成后的跳转地址", "name": "redirect_url", "in": "query"}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.AuthPage"}}, "307": {"description": "已登录，离开注册页"}}},
            "post": {"consumes": ["application/json"], "produces": ["application/json"], "tags": ["注册"], "summary": "注册", "parameters": [{"description": "注册请求", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.SignUpRequest"}}], "responses": {"200": {"description": "验证码已发送", "schema": {"$ref": "#/definitions/handler.FlowView"}}, "400": {"description": "参数错误"}, "409": {"description": "账号已存在"}}}
        },
        "/sign-up/back": {"post": {"produces": ["application/json"], "tags": ["注册"], "summary": "返回上一步", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.FlowView"}}}}},
        "/sign-up/resend": {"post": {"produces": ["application/json"], "tags": ["注册"], "summary": "重发注册验证码", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.FlowView"}}}}},
        "/sign-up/tasks": {"get": {"produces": ["application/json"], "tags": ["注册"], "summary": "注册待办", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.SignUpTasks"}}, "410": {"description": "流程不存在或已过期"}}}},
        "/sign-up/verify": {"post": {"consumes": ["application/json"], "produces": ["application/json"], "tags": ["注册"], "summary": "注册验证码校验", "parameters": [{"description": "验证码", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.CodeRequest"}}], "responses": {"303": {"description": "跳转到引导页"}, "400": {"description": "验证码错误"}, "410": {"description": "流程不存在或已过期"}}}},
        "/user-profile": {
            "get": {"produces": ["application/json"], "tags": ["个人主页"], "summary": "个人主页", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.ProfileView"}}}},
            "post": {"tags": ["个人主页"], "summary": "退出登录", "responses": {"303": {"description": "跳转登录页"}}}
        }
    },
    "definitions": {
        "handler.AuthPage": {"type": "object", "properties": {"flow": {"$ref": "#/definitions/handler.FlowView"}, "redirect_url": {"type": "string"}}},
        "handler.CodeRequest": {"type": "object", "properties": {"code": {"type": "string"}}},
        "handler.FlowView": {"type": "object", "properties": {
            "can_resend": {"type": "boolean"}, "code_error": {"type": "boolean"}, "cooldown_remaining": {"type": "integer"},
            "email": {"type": "string"}, "error": {"type": "string"}, "flow_id": {"type": "string"}, "identifier": {"type": "string"},
            "kind": {"type": "string"}, "redirect_url": {"type": "string"}, "resent": {"type": "boolean"}, "state": {"type": "string"}}},
        "handler.ForgotPasswordRequest": {"type": "object", "required": ["university_id"], "properties": {"university_id": {"type": "string"}}},
        "handler.OnboardingPage": {"type": "object", "properties": {
            "colleges": {"type": "array", "items": {"type": "string"}}, "completed": {"type": "boolean"},
            "genders": {"type": "array", "items": {"type": "string"}}, "max_uni_level": {"type": "integer"}, "min_uni_level": {"type": "integer"},
            "other_college": {"type": "string"}, "profile": {"type": "object", "additionalProperties": true}, "redirect_url": {"type": "string"}}},
        "handler.ProfileView": {"type": "object", "properties": {
            "claims": {"type": "object", "additionalProperties": true}, "email": {"type": "string"},
            "onboarding_complete": {"type": "boolean"}, "user_id": {"type": "string"}}},
        "handler.ResetPasswordRequest": {"type": "object", "required": ["password"], "properties": {"password": {"type": "string", "minLength": 8}}},
        "handler.SignInRequest": {"type": "object", "required": ["identifier", "password"], "properties": {"identifier": {"type": "string"}, "password": {"type": "string"}, "redirect_url": {"type": "string"}}},
        "handler.SignUpRequest": {"type": "object", "required": ["password", "university_id"], "properties": {"password": {"type": "string", "minLength": 8}, "redirect_url": {"type": "string"}, "university_id": {"type": "string"}}},
        "handler.SignUpTasks": {"type": "object", "properties": {"flow": {"$ref": "#/definitions/handler.FlowView"}, "tasks": {"type": "array", "items": {"type": "string"}}}},
        "onboarding.Form": {"type": "object", "required": ["full_arabic_name", "gender", "personal_email", "saudi_phone", "uni_college", "uni_level"], "properties": {
            "full_arabic_name": {"type": "string"}, "gender": {"type": "string", "enum": ["Male", "Female"]}, "other_college": {"type": "string"},
            "personal_email": {"type": "string"}, "redirect_url": {"type": "string"}, "saudi_phone": {"type": "string"},
            "uni_college": {"type": "string"}, "uni_level": {"type": "integer", "maximum": 10, "minimum": 1}}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "GDG Portal API",
	Description:      "GDG 学生组织门户：注册、登录、二次验证、找回密码与引导资料",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
