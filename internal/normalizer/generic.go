package normalizer

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/LJTian/HotFeed/internal/model"
)

// 别名链：上游字段命名不统一，按顺序取第一个有值的字段
var (
	idKeys          = []string{"id", "rank"}
	titleKeys       = []string{"title", "name", "word", "query"}
	timestampKeys   = []string{"timestamp", "time", "mtime"}
	urlKeys         = []string{"url", "link", "href", "mobilUrl"}
	descriptionKeys = []string{"desc", "description", "excerpt", "word_type"}
	hotKeys         = []string{"hot", "hotScore", "heat", "hot_value", "hotValue", "score"}
	indexKeys       = []string{"index", "rank"}
	imageKeys       = []string{"image", "pic", "cover", "img", "work_type_icon"}

	// 对象形态下依次探测的列表字段
	containerKeys = []string{"list", "data", "items"}
)

// RowFunc 单条记录的专用映射；返回 false 时该条回退到通用映射
type RowFunc func(cat model.Category, row object, i int, now int64) (model.NewsItem, bool)

// Generic 默认策略：数组逐条按别名链映射，对象则探测 list / data / items
type Generic struct {
	Now func() time.Time
	Row RowFunc
}

func (g *Generic) Normalize(cat model.Category, data json.RawMessage) []model.NewsItem {
	return g.fromValue(cat, decode(data))
}

func (g *Generic) fromValue(cat model.Category, v any) []model.NewsItem {
	switch t := v.(type) {
	case []any:
		return g.fromArray(cat, t)
	case object:
		for _, k := range containerKeys {
			if arr, ok := t[k].([]any); ok {
				return g.fromArray(cat, arr)
			}
		}
	}
	return []model.NewsItem{}
}

func (g *Generic) fromArray(cat model.Category, arr []any) []model.NewsItem {
	now := clock(g.Now)
	items := make([]model.NewsItem, 0, len(arr))
	for i, el := range arr {
		row := asObject(el)
		if g.Row != nil {
			if item, ok := g.Row(cat, row, i, now); ok {
				items = append(items, item)
				continue
			}
		}
		items = append(items, genericItem(cat, row, i, now))
	}
	return items
}

func genericItem(cat model.Category, row object, i int, now int64) model.NewsItem {
	key := row.str(idKeys...)
	if key == "" {
		key = strconv.Itoa(i)
	}
	ts, ok := toMillis(row.first(timestampKeys...))
	if !ok {
		ts = now
	}
	index, ok := toInt(row.first(indexKeys...))
	if !ok {
		index = i + 1
	}
	return model.NewsItem{
		ID:          cat.ID + "-" + key,
		Title:       row.str(titleKeys...),
		Source:      sourceName(cat),
		Category:    cat.ID,
		Timestamp:   ts,
		URL:         row.str(urlKeys...),
		Description: row.str(descriptionKeys...),
		Hot:         toHot(row.first(hotKeys...)),
		Index:       index,
		Image:       row.str(imageKeys...),
	}
}
