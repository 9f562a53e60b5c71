package feed

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownSource 表示 source id 不在配置中
var ErrUnknownSource = errors.New("unknown source")

// UpstreamFormatError provider 有响应，但不是预期的成功格式
type UpstreamFormatError struct {
	Provider string
	Message  string
}

func (e *UpstreamFormatError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "unexpected response format"
	}
	if e.Provider == "" {
		return "upstream format: " + msg
	}
	return fmt.Sprintf("%s: upstream format: %s", e.Provider, msg)
}

// MalformedXMLError XML 文档解析失败或没有任何可用条目
type MalformedXMLError struct {
	Err error
}

func (e *MalformedXMLError) Error() string {
	if e.Err == nil {
		return "malformed xml: no usable items"
	}
	return "malformed xml: " + e.Err.Error()
}

func (e *MalformedXMLError) Unwrap() error { return e.Err }

// NetworkError 请求层面的失败（连接、超时、非 2xx 状态码、读取响应体）
type NetworkError struct {
	Provider string
	URL      string
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: request %s: %v", e.Provider, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Attempt 记录回退链中某个 provider 的一次尝试
type Attempt struct {
	Provider string
	Err      error
}

// AllProvidersExhaustedError 回退链上所有 provider 都失败
type AllProvidersExhaustedError struct {
	SourceID string
	Attempts []Attempt
}

func (e *AllProvidersExhaustedError) Error() string {
	if len(e.Attempts) == 0 {
		return fmt.Sprintf("source %s: no providers configured", e.SourceID)
	}
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Provider, a.Err))
	}
	return fmt.Sprintf("source %s: all providers exhausted: %s", e.SourceID, strings.Join(parts, "; "))
}

// Unwrap 返回最后一次失败，便于诊断
func (e *AllProvidersExhaustedError) Unwrap() error {
	if len(e.Attempts) == 0 {
		return nil
	}
	return e.Attempts[len(e.Attempts)-1].Err
}

// Last 同 Unwrap
func (e *AllProvidersExhaustedError) Last() error {
	return e.Unwrap()
}
