package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
)

const suffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// GenerateRandomToken Generate random token
func GenerateRandomToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.URLEncoding.EncodeToString(bytes), nil
}

// RandomSuffix 生成指定长度的小写字母数字后缀，用于 slug/路径去重
func RandomSuffix(length int) string {
	max := big.NewInt(int64(len(suffixAlphabet)))
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand 不可用时退回固定字符，调用方的唯一性检查会兜底
			b[i] = 'x'
			continue
		}
		b[i] = suffixAlphabet[n.Int64()]
	}
	return string(b)
}
