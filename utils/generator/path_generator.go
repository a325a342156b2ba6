package generator

import (
	"fmt"
	"strings"

	"github.com/zimablue/zima-blue/utils"
)

// 后缀长度：常规尝试用短后缀，最后一次尝试加宽以保证可终止
const (
	ShortSuffixLength = 5
	WideSuffixLength  = 10
)

// PathGenerator 生成图片存储前缀与变体路径
type PathGenerator struct{}

// NewPathGenerator 创建路径生成器
func NewPathGenerator() *PathGenerator {
	return &PathGenerator{}
}

// CandidatePrefix 根据基础名称生成一个候选存储前缀（slug-后缀）
// wide 为 true 时使用更长的后缀空间
func (pg *PathGenerator) CandidatePrefix(baseName string, wide bool) string {
	slug := utils.Slugify(utils.TrimExtension(baseName))
	length := ShortSuffixLength
	if wide {
		length = WideSuffixLength
	}
	return fmt.Sprintf("%s-%s", slug, utils.RandomSuffix(length))
}

// VariantPath 变体的确定性存储路径：{prefix}/{size}.{ext}
func (pg *PathGenerator) VariantPath(prefix, size, ext string) string {
	return fmt.Sprintf("%s/%s.%s", prefix, size, ext)
}

// PrefixOf 从变体路径还原存储前缀
func (pg *PathGenerator) PrefixOf(variantPath string) string {
	if idx := strings.LastIndexByte(variantPath, '/'); idx > 0 {
		return variantPath[:idx]
	}
	return variantPath
}
