package utils

import (
	"log"
	"os"
	"strings"
	"unicode"
)

var devMode = os.Getenv("ZIMA_DEV") != ""

// LogIfDevf 仅在开发模式下输出日志
func LogIfDevf(format string, args ...interface{}) {
	if devMode {
		log.Printf(format, args...)
	}
}

// LogIfDev 仅在开发模式下输出日志
func LogIfDev(args ...interface{}) {
	if devMode {
		log.Println(args...)
	}
}

// SanitizeLogMessage 过滤不可打印字符，避免日志注入
func SanitizeLogMessage(msg string) string {
	var sb strings.Builder
	for _, r := range msg {
		if r == 10 || r == 9 {
			sb.WriteRune(r)
		} else if unicode.IsPrint(r) || unicode.IsGraphic(r) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
