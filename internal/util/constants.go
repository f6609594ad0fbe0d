package util

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

// 游戏接口的响应按用户区分且对时间敏感，禁止缓存
const (
	HeaderCacheControl = "Cache-Control"
	HeaderPragma       = "Pragma"
	HeaderVary         = "Vary"
	HeaderRetryAfter   = "Retry-After"
	HeaderTimezone     = "X-Timezone"
)
