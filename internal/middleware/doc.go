// Package middleware 提供了 HTTP 請求處理的中間件。
//
// 目前只有 JWT 身份驗證：所有辯論操作都必須帶有效 token，
// 中間件負責解析 token 並把用戶 ID 放進請求上下文。
package middleware
