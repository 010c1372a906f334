// Package api 處理 HTTP 請求路由和處理。
//
// 這個包包含了所有的 HTTP 處理器（handlers）。
// 它負責把客戶端的操作意圖（加入、發言、超時判定、審核）
// 轉換為辯論服務的調用，並將結果轉換回 HTTP 響應。
package api
