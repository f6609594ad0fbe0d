package util

import (
	"strings"

	"github.com/google/uuid"
)

// ParseID 校验并规范化 UUID 形式的路径参数
func ParseID(s string) (string, bool) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return "", false
	}
	return id.String(), true
}
