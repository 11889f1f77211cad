package util

import (
	"fmt"
	"strconv"
)

// StrToUint64 将 Canal 行数据中的值（通常为字符串）转换为 uint64，失败返回 0
func StrToUint64(v interface{}) uint64 {
	switch val := v.(type) {
	case string:
		n, err := strconv.ParseUint(val, 10, 64)
		if err != nil {
			return 0
		}
		return n
	case float64:
		if val < 0 {
			return 0
		}
		return uint64(val)
	case uint64:
		return val
	case int64:
		if val < 0 {
			return 0
		}
		return uint64(val)
	case nil:
		return 0
	default:
		return StrToUint64(fmt.Sprint(val))
	}
}

// PtrUint64 用于将 uint64 转换为 *uint64
func PtrUint64(i uint64) *uint64 {
	return &i
}

// FormatID 用户 / 房源 ID 的字符串形式，亦即房间键
func FormatID(id uint64) string {
	return strconv.FormatUint(id, 10)
}
