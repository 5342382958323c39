package airtable

import (
	"strings"

	"github.com/tidwall/gjson"
)

// NameField 记录显示名称取自该字段
const NameField = "Name"

// IDKey 导出行中存放记录ID的保留键
const IDKey = "id"

// FieldKind 字段值的形态分类
type FieldKind int

const (
	// Scalar 字符串、数字、布尔、null 以及非列表的对象
	Scalar FieldKind = iota
	// AttachmentList 首个元素为含 url 键的对象的非空列表
	AttachmentList
	// OtherList 其他列表，包括空列表
	OtherList
)

// String 返回分类名称
func (k FieldKind) String() string {
	switch k {
	case AttachmentList:
		return "AttachmentList"
	case OtherList:
		return "OtherList"
	default:
		return "Scalar"
	}
}

// Field 记录中的单个字段，保留接口返回的原始 JSON 值
type Field struct {
	Name  string
	Value gjson.Result
}

// Kind 字段值分类
func (f Field) Kind() FieldKind {
	return Classify(f.Value)
}

// Record 远程表中的一条记录
// Fields 按接口返回的文档顺序排列
type Record struct {
	ID          string
	CreatedTime string
	Fields      []Field
}

// Attachment 附件字段中的单个文件引用
type Attachment struct {
	ID       string
	URL      string
	Filename string
	Size     int64
	Type     string
}

// ParseRecord 解析单条记录的 JSON 表示 {"id": ..., "createdTime": ..., "fields": {...}}
func ParseRecord(raw string) Record {
	return recordFromResult(gjson.Parse(raw))
}

func recordFromResult(r gjson.Result) Record {
	rec := Record{
		ID:          r.Get("id").String(),
		CreatedTime: r.Get("createdTime").String(),
	}
	r.Get("fields").ForEach(func(key, value gjson.Result) bool {
		rec.Fields = append(rec.Fields, Field{Name: key.String(), Value: value})
		return true
	})
	return rec
}

// Get 按名称查找字段
func (r Record) Get(name string) (gjson.Result, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return gjson.Result{}, false
}

// DisplayName 记录的显示名称
// Name 字段存在且非空时使用该值，否则使用记录ID
func (r Record) DisplayName() string {
	v, ok := r.Get(NameField)
	if !ok {
		return r.ID
	}
	switch v.Type {
	case gjson.String:
		if v.Str != "" {
			return v.Str
		}
	case gjson.Number:
		if v.Num != 0 {
			return v.Raw
		}
	case gjson.True:
		return "true"
	}
	return r.ID
}

// Classify 按值的形态分类，只检查列表的第一个元素
// 首个元素为含 url 键的对象时整个列表视为附件列表，即使后续元素形态不同
func Classify(v gjson.Result) FieldKind {
	if !v.IsArray() {
		return Scalar
	}
	items := v.Array()
	if len(items) == 0 {
		return OtherList
	}
	first := items[0]
	if first.IsObject() && first.Get("url").Exists() {
		return AttachmentList
	}
	return OtherList
}

// Attachments 将附件列表解析为 Attachment，顺序与原列表一致
func Attachments(v gjson.Result) []Attachment {
	if !v.IsArray() {
		return nil
	}
	var atts []Attachment
	v.ForEach(func(_, item gjson.Result) bool {
		atts = append(atts, Attachment{
			ID:       item.Get("id").String(),
			URL:      item.Get("url").String(),
			Filename: item.Get("filename").String(),
			Size:     item.Get("size").Int(),
			Type:     item.Get("type").String(),
		})
		return true
	})
	return atts
}

// JoinURLs 以 ", " 连接附件列表中每个元素的 url
func JoinURLs(v gjson.Result) string {
	atts := Attachments(v)
	urls := make([]string, 0, len(atts))
	for _, att := range atts {
		urls = append(urls, att.URL)
	}
	return strings.Join(urls, ", ")
}

// SanitizeName 把名称转换为可用作目录名的片段
// 除 [a-zA-Z0-9] 外的字符都替换为 "_"，再转为小写；
// 按 UTF-16 编码单元计数，BMP 以外的字符替换为两个 "_"
func SanitizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		case r > 0xFFFF:
			b.WriteString("__")
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}
