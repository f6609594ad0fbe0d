package util

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// HashIP 审计日志只保存带密钥的 IP 摘要
func HashIP(ip, key string) string {
	if ip == "" {
		return ""
	}
	k := []byte(key)
	if len(k) > blake2b.Size {
		k = k[:blake2b.Size]
	}
	h, err := blake2b.New256(k)
	if err != nil {
		return ""
	}
	h.Write([]byte(ip))
	return hex.EncodeToString(h.Sum(nil))
}
