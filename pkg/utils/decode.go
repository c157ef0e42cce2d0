package utils

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrTrailingData 表示 JSON 值之后还有多余内容
var ErrTrailingData = errors.New("unexpected data after JSON value")

// DecodeJSONBody 解析请求体，limit 大于 0 时限制读取字节数
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, dst any, limit int64) error {
	body := r.Body
	if limit > 0 {
		body = http.MaxBytesReader(w, r.Body, limit)
	}
	return json.NewDecoder(body).Decode(dst)
}

// IsBodyTooLarge 判断错误是否来自 MaxBytesReader 的超限
func IsBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

// DecodeStrictJSON 严格解析模型输出：拒绝未知字段和尾随内容。
// 允许外层包裹一个 markdown 代码块。
func DecodeStrictJSON(raw string, dst any) error {
	payload := stripCodeFence(strings.TrimSpace(raw))
	if payload == "" {
		return errors.New("empty JSON payload")
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(payload)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode JSON: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return ErrTrailingData
	}
	return nil
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(s, "```"), "```")
	if nl := strings.IndexByte(inner, '\n'); nl >= 0 {
		lang := strings.TrimSpace(inner[:nl])
		if lang == "" || lang == "json" || lang == "JSON" {
			inner = inner[nl+1:]
		}
	}
	return strings.TrimSpace(inner)
}
