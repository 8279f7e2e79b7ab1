package normalizer

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/LJTian/HotFeed/internal/model"
)

// Digest 60 秒读懂世界：一组纯文本新闻 + 共用的日期、封面、链接
type Digest struct {
	Now func() time.Time
}

func (d *Digest) Normalize(cat model.Category, data json.RawMessage) []model.NewsItem {
	payload := asObject(decode(data))
	news, ok := payload["news"].([]any)
	if !ok {
		return []model.NewsItem{}
	}

	date := payload.str("date")
	ts, ok := toMillis(payload.first("created_at"))
	if !ok {
		ts = clock(d.Now)
	}
	link := payload.str("link")
	image := payload.str("image", "cover")

	items := make([]model.NewsItem, 0, len(news))
	for i, n := range news {
		text := toString(n)
		if text == "" {
			text = asObject(n).str("title")
		}
		items = append(items, model.NewsItem{
			ID:          fmt.Sprintf("%s-%s-%d", cat.ID, date, i),
			Title:       text,
			Source:      sourceName(cat),
			Category:    cat.ID,
			Timestamp:   ts,
			URL:         link,
			Description: text,
			Index:       i + 1,
			Image:       image,
		})
	}
	return items
}

// NewsFeed AI 资讯：结构化条目，每条自带日期与链接；没有 news 字段时按通用形态处理
type NewsFeed struct {
	Now func() time.Time
}

func (f *NewsFeed) Normalize(cat model.Category, data json.RawMessage) []model.NewsItem {
	v := decode(data)
	payload := asObject(v)
	news, ok := payload["news"].([]any)
	if !ok {
		return (&Generic{Now: f.Now}).fromValue(cat, v)
	}

	date := payload.str("date")
	now := clock(f.Now)
	items := make([]model.NewsItem, 0, len(news))
	for i, el := range news {
		entry := asObject(el)
		ts, ok := toMillis(entry.first("date"))
		if !ok {
			if ts, ok = toMillis(date); !ok {
				ts = now
			}
		}
		source := entry.str("source")
		if source == "" {
			source = sourceName(cat)
		}
		items = append(items, model.NewsItem{
			ID:          fmt.Sprintf("%s-%s-%d", cat.ID, date, i),
			Title:       entry.str("title"),
			Source:      source,
			Category:    cat.ID,
			Timestamp:   ts,
			URL:         entry.str("link"),
			Description: entry.str("detail"),
			Index:       i + 1,
		})
	}
	return items
}

// EventList 历史上的今天：标题由年份与事件拼接，时间取当前
type EventList struct {
	Now func() time.Time
}

func (e *EventList) Normalize(cat model.Category, data json.RawMessage) []model.NewsItem {
	v := decode(data)
	payload := asObject(v)
	events, ok := payload["items"].([]any)
	if !ok {
		return (&Generic{Now: e.Now}).fromValue(cat, v)
	}

	date := payload.str("date")
	now := clock(e.Now)
	items := make([]model.NewsItem, 0, len(events))
	for i, el := range events {
		entry := asObject(el)
		items = append(items, model.NewsItem{
			ID:          fmt.Sprintf("%s-%s-%d", cat.ID, date, i),
			Title:       fmt.Sprintf("%s年 - %s", toString(entry["year"]), entry.str("title")),
			Source:      sourceName(cat),
			Category:    cat.ID,
			Timestamp:   now,
			URL:         entry.str("link"),
			Description: entry.str("description"),
			Index:       i + 1,
		})
	}
	return items
}

// SingleObject 必应壁纸：data 是单个对象，只产出一条
type SingleObject struct {
	Now func() time.Time
}

func (s *SingleObject) Normalize(cat model.Category, data json.RawMessage) []model.NewsItem {
	v := decode(data)
	obj, ok := v.(object)
	if !ok {
		return (&Generic{Now: s.Now}).fromValue(cat, v)
	}

	now := clock(s.Now)
	key := obj.str("date")
	if key == "" {
		key = strconv.FormatInt(now, 10)
	}
	title := obj.str("title", "copyright")
	if title == "" {
		title = sourceName(cat)
	}
	return []model.NewsItem{{
		ID:          cat.ID + "-" + key,
		Title:       title,
		Source:      sourceName(cat),
		Category:    cat.ID,
		Timestamp:   now,
		URL:         obj.str("url", "link"),
		Description: obj.str("copyright"),
		Index:       1,
		Image:       obj.str("url", "image"),
	}}
}
