package normalizer

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// object 上游 JSON 对象；数字以 json.Number 保留原始文本
type object map[string]any

// decode 解析失败返回 nil，调用方按“无可用数据”处理
func decode(data json.RawMessage) any {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil
	}
	return toObjects(v)
}

// toObjects 把嵌套的 map[string]any 统一转换成 object
func toObjects(v any) any {
	switch t := v.(type) {
	case map[string]any:
		o := make(object, len(t))
		for k, val := range t {
			o[k] = toObjects(val)
		}
		return o
	case []any:
		for i := range t {
			t[i] = toObjects(t[i])
		}
		return t
	default:
		return v
	}
}

func asObject(v any) object {
	if o, ok := v.(object); ok {
		return o
	}
	return object{}
}

// present 空串、0、false、null 视为缺失，与别名链“取第一个有值的字段”一致
func present(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0
	default:
		return true
	}
}

// first 按别名顺序返回第一个有值的字段
func (o object) first(keys ...string) any {
	for _, k := range keys {
		if v, ok := o[k]; ok && present(v) {
			return v
		}
	}
	return nil
}

func (o object) str(keys ...string) string {
	return toString(o.first(keys...))
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// toHot 数字热度转换为 float64，字符串热度原样保留
func toHot(v any) any {
	switch t := v.(type) {
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case string:
		return t
	default:
		return nil
	}
}

// toInt 数字或数字字符串；其余返回 false
func toInt(v any) (int, bool) {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return int(n), true
		}
		if f, err := t.Float64(); err == nil {
			return int(f), true
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return n, true
		}
	}
	return 0, false
}

// 小于该值的数字按秒级时间戳处理
const secondsThreshold = 1e12

var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006/01/02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
}

var locEast8 = func() *time.Location {
	loc, err := time.LoadLocation("Asia/Shanghai")
	if err != nil {
		return time.FixedZone("CST", 8*3600)
	}
	return loc
}()

// toMillis 数字、数字字符串、日期字符串统一转成毫秒时间戳
func toMillis(v any) (int64, bool) {
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		if err != nil || f <= 0 {
			return 0, false
		}
		return numberToMillis(f), true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			if f <= 0 {
				return 0, false
			}
			return numberToMillis(f), true
		}
		if ts, err := time.Parse(time.RFC3339, s); err == nil {
			return ts.UnixMilli(), true
		}
		for _, layout := range dateLayouts {
			if ts, err := time.ParseInLocation(layout, s, locEast8); err == nil {
				return ts.UnixMilli(), true
			}
		}
	}
	return 0, false
}

func numberToMillis(f float64) int64 {
	if f < secondsThreshold {
		return int64(f * 1000)
	}
	return int64(f)
}
