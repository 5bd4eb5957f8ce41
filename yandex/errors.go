// Copyright 2025 The Mektep Authors
// SPDX-License-Identifier: Apache-2.0

package yandex

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// SearchError представляет ошибку обращения к API поиска по организациям.
type SearchError struct {
	Type    ErrorType
	Message string
	Err     error
}

// ErrorType определяет тип ошибки поиска.
type ErrorType int

const (
	// ErrorTypeUnknown неизвестная ошибка.
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeRateLimit превышен лимит запросов.
	ErrorTypeRateLimit
	// ErrorTypeAuth ключ API отклонён или доступ запрещён.
	ErrorTypeAuth
	// ErrorTypeInvalidRequest неверный запрос.
	ErrorTypeInvalidRequest
	// ErrorTypeNetwork ошибка сети или сбой сервиса.
	ErrorTypeNetwork
	// ErrorTypeTimeout тайм-аут соединения.
	ErrorTypeTimeout
)

func (e *SearchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	return e.Message
}

func (e *SearchError) Unwrap() error {
	return e.Err
}

// IsRateLimitError проверяет, вызвана ли ошибка превышением лимита запросов.
func IsRateLimitError(err error) bool {
	var searchErr *SearchError
	if errors.As(err, &searchErr) {
		return searchErr.Type == ErrorTypeRateLimit
	}

	// Распознаём по тексту ошибки
	errStr := strings.ToLower(err.Error())

	return strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests") ||
		strings.Contains(errStr, "429")
}

// IsAuthError проверяет, отклонён ли ключ API.
func IsAuthError(err error) bool {
	var searchErr *SearchError
	if errors.As(err, &searchErr) {
		return searchErr.Type == ErrorTypeAuth
	}

	errStr := strings.ToLower(err.Error())

	return strings.Contains(errStr, "unauthorized") ||
		strings.Contains(errStr, "forbidden") ||
		strings.Contains(errStr, "invalid key")
}

// IsTimeoutError проверяет, вызвана ли ошибка тайм-аутом.
func IsTimeoutError(err error) bool {
	var searchErr *SearchError
	if errors.As(err, &searchErr) {
		return searchErr.Type == ErrorTypeTimeout
	}

	errStr := strings.ToLower(err.Error())

	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded")
}

// IsTransientError сообщает, имеет ли смысл повторить запрос.
func IsTransientError(err error) bool {
	var searchErr *SearchError
	if errors.As(err, &searchErr) {
		switch searchErr.Type {
		case ErrorTypeRateLimit, ErrorTypeNetwork, ErrorTypeTimeout:
			return true
		default:
			return false
		}
	}

	return IsRateLimitError(err) || IsTimeoutError(err)
}

// IsFatalError сообщает, что повторы бесполезны и сбор нужно прервать.
func IsFatalError(err error) bool {
	var searchErr *SearchError
	if errors.As(err, &searchErr) {
		return searchErr.Type == ErrorTypeAuth || searchErr.Type == ErrorTypeInvalidRequest
	}

	return IsAuthError(err)
}

// ClassifyHTTPStatus классифицирует код ответа HTTP в тип ошибки поиска.
func ClassifyHTTPStatus(statusCode int) *SearchError {
	switch statusCode {
	case http.StatusTooManyRequests: // 429
		return &SearchError{
			Type:    ErrorTypeRateLimit,
			Message: "превышен лимит запросов",
		}
	case http.StatusUnauthorized, http.StatusForbidden: // 401, 403
		return &SearchError{
			Type:    ErrorTypeAuth,
			Message: "ключ API отклонён или доступ запрещён",
		}
	case http.StatusBadRequest: // 400
		return &SearchError{
			Type:    ErrorTypeInvalidRequest,
			Message: "неверный запрос",
		}
	case http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return &SearchError{
			Type:    ErrorTypeNetwork,
			Message: fmt.Sprintf("сервис недоступен (код %d)", statusCode),
		}
	default:
		return &SearchError{
			Type:    ErrorTypeUnknown,
			Message: fmt.Sprintf("ошибка HTTP %d", statusCode),
		}
	}
}
