// Package processor 对 NewsItem 列表做纯函数变换：去重、按关注排序、排序与筛选。
// 所有函数都返回新切片，不修改入参。
package processor

import (
	"slices"

	"github.com/LJTian/HotFeed/internal/model"
)

// Deduplicate 按 id 保留第一次出现的条目，顺序不变
func Deduplicate(items []model.NewsItem) []model.NewsItem {
	out := make([]model.NewsItem, 0, len(items))
	seen := make(map[string]struct{}, len(items))

	for _, it := range items {
		if _, ok := seen[it.ID]; ok {
			continue
		}
		seen[it.ID] = struct{}{}
		out = append(out, it)
	}
	return out
}

// PrioritizeByFollowed 关注分类的条目排在前面；两组内部都保持原有相对顺序
func PrioritizeByFollowed(items []model.NewsItem, followed []string) []model.NewsItem {
	set := make(map[string]struct{}, len(followed))
	for _, id := range followed {
		set[id] = struct{}{}
	}

	head := make([]model.NewsItem, 0, len(items))
	var tail []model.NewsItem
	for _, it := range items {
		if _, ok := set[it.Category]; ok {
			head = append(head, it)
		} else {
			tail = append(tail, it)
		}
	}
	return append(head, tail...)
}

// SortByTime 按时间戳倒序，时间相同保持原顺序
func SortByTime(items []model.NewsItem) []model.NewsItem {
	out := slices.Clone(items)
	slices.SortStableFunc(out, func(a, b model.NewsItem) int {
		switch {
		case a.Timestamp > b.Timestamp:
			return -1
		case a.Timestamp < b.Timestamp:
			return 1
		default:
			return 0
		}
	})
	return out
}

// SortByHot 按数值热度倒序；字符串热度（包括 "123" 这类）一律按 0 处理
func SortByHot(items []model.NewsItem) []model.NewsItem {
	out := slices.Clone(items)
	slices.SortStableFunc(out, func(a, b model.NewsItem) int {
		ha, hb := a.HotValue(), b.HotValue()
		switch {
		case ha > hb:
			return -1
		case ha < hb:
			return 1
		default:
			return 0
		}
	})
	return out
}

// FilterByCategory 只保留指定分类
func FilterByCategory(items []model.NewsItem, categoryID string) []model.NewsItem {
	out := make([]model.NewsItem, 0, len(items))
	for _, it := range items {
		if it.Category == categoryID {
			out = append(out, it)
		}
	}
	return out
}

// Sort 按名称选择排序方式：latest / hot；其他取值保持原顺序
func Sort(items []model.NewsItem, by string) []model.NewsItem {
	switch by {
	case "latest":
		return SortByTime(items)
	case "hot":
		return SortByHot(items)
	default:
		return slices.Clone(items)
	}
}
