// Package errors maps every failure in authgate onto an AppError with a
// stable code and HTTP status: validation 400, unauthorized 401, forbidden
// 403, rate limited 429 and storage failure 503.
package errors
