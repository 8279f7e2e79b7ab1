package normalizer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/LJTian/HotFeed/internal/model"
)

// 猫眼各榜单的行映射；缺少标志字段的行交给通用映射

func maoyanGlobalRow(cat model.Category, row object, i int, now int64) (model.NewsItem, bool) {
	name := row.str("movie_name")
	if name == "" {
		return model.NewsItem{}, false
	}
	index, ok := toInt(row.first("rank"))
	if !ok {
		index = i + 1
	}
	boxOffice := row.str("box_office_desc")
	return model.NewsItem{
		ID:          rowID(cat, row.str("maoyan_id"), i),
		Title:       fmt.Sprintf("%s (%s)", name, row.str("release_year")),
		Source:      sourceName(cat),
		Category:    cat.ID,
		Timestamp:   now,
		Description: "票房：" + boxOffice,
		Hot:         hotOrNil(boxOffice),
		Index:       index,
	}, true
}

func maoyanMovieRow(cat model.Category, row object, i int, now int64) (model.NewsItem, bool) {
	name := row.str("movie_name")
	if name == "" {
		return model.NewsItem{}, false
	}
	boxOffice := row.str("box_office_desc")
	desc := fmt.Sprintf("%s 票房：%s 占比：%s", row.str("release_info"), boxOffice, row.str("box_office_rate"))
	return model.NewsItem{
		ID:          rowID(cat, row.str("movie_id"), i),
		Title:       name,
		Source:      sourceName(cat),
		Category:    cat.ID,
		Timestamp:   now,
		Description: strings.TrimSpace(desc),
		Hot:         hotOrNil(boxOffice),
		Index:       i + 1,
	}, true
}

func maoyanTVRow(cat model.Category, row object, i int, now int64) (model.NewsItem, bool) {
	name := row.str("programme_name")
	if name == "" {
		return model.NewsItem{}, false
	}
	source := sourceName(cat)
	if channel := row.str("channel_name"); channel != "" {
		source += " - " + channel
	}
	share := row.str("market_rate_desc")
	return model.NewsItem{
		ID:          rowID(cat, "", i),
		Title:       name,
		Source:      source,
		Category:    cat.ID,
		Timestamp:   now,
		Description: fmt.Sprintf("市场份额：%s 关注度：%s", share, row.str("attention_rate_desc")),
		Hot:         hotOrNil(share),
		Index:       i + 1,
	}, true
}

func maoyanDramaRow(cat model.Category, row object, i int, now int64) (model.NewsItem, bool) {
	name := row.str("series_name")
	if name == "" {
		return model.NewsItem{}, false
	}
	heat := row.str("curr_heat_desc")
	prefix := strings.TrimSpace(row.str("release_info") + " " + row.str("platform_desc"))
	desc := "热度：" + heat
	if prefix != "" {
		desc = prefix + " " + desc
	}
	return model.NewsItem{
		ID:          rowID(cat, row.str("series_id"), i),
		Title:       name,
		Source:      sourceName(cat),
		Category:    cat.ID,
		Timestamp:   now,
		Description: desc,
		Hot:         hotOrNil(heat),
		Index:       i + 1,
	}, true
}

func rowID(cat model.Category, key string, i int) string {
	if key == "" {
		key = strconv.Itoa(i)
	}
	return cat.ID + "-" + key
}

func hotOrNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}
