package tags

import (
	"encoding/json"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// TagRef 标签的规范化引用
// 客户端可能提交纯字符串、JSON 字符串数组或对象数组，
// 入口处统一折叠成这一种形状，内层代码只见到它
type TagRef struct {
	ID   uint   `mapstructure:"id" json:"id,omitempty"`
	Name string `mapstructure:"name" json:"name"`
}

// Normalize 把任意宽松的标签载荷规范化为 TagRef 列表
// 支持的形态：
//   - "landscape"
//   - ["landscape", "night"]
//   - `["landscape","night"]`（整体是一个 JSON 字符串）
//   - [{"id":3,"name":"landscape"}, {"name":"night"}]
//
// 名称去除首尾空白并小写；空名与重复名被丢弃
func Normalize(raw interface{}) ([]TagRef, error) {
	refs, err := collect(raw)
	if err != nil {
		return nil, err
	}
	return dedupe(refs), nil
}

func collect(raw interface{}) ([]TagRef, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return fromString(v)
	case []string:
		refs := make([]TagRef, 0, len(v))
		for _, name := range v {
			refs = append(refs, TagRef{Name: name})
		}
		return refs, nil
	case []interface{}:
		return fromSlice(v)
	default:
		var ref TagRef
		if err := mapstructure.Decode(raw, &ref); err != nil {
			return nil, err
		}
		return []TagRef{ref}, nil
	}
}

// fromString 字符串可能是一个裸名称，也可能是序列化过的 JSON 数组
func fromString(s string) ([]TagRef, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil, nil
	}

	if strings.HasPrefix(trimmed, "[") {
		var nested []interface{}
		if err := json.Unmarshal([]byte(trimmed), &nested); err == nil {
			return fromSlice(nested)
		}
	}
	return []TagRef{{Name: trimmed}}, nil
}

func fromSlice(items []interface{}) ([]TagRef, error) {
	refs := make([]TagRef, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case string:
			refs = append(refs, TagRef{Name: v})
		default:
			var ref TagRef
			decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
				Result:           &ref,
				WeaklyTypedInput: true,
			})
			if err != nil {
				return nil, err
			}
			if err := decoder.Decode(item); err != nil {
				return nil, err
			}
			refs = append(refs, ref)
		}
	}
	return refs, nil
}

func dedupe(refs []TagRef) []TagRef {
	seen := make(map[string]bool, len(refs))
	out := make([]TagRef, 0, len(refs))
	for _, ref := range refs {
		name := strings.ToLower(strings.TrimSpace(ref.Name))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		ref.Name = name
		out = append(out, ref)
	}
	return out
}
