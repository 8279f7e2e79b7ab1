package normalizer

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/LJTian/HotFeed/internal/model"
)

var fixedNow = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

func testNow() time.Time { return fixedNow }

func cat(id, name string) model.Category {
	return model.Category{ID: id, Name: name, Endpoint: "/v2/" + id}
}

func TestGenericAliasing(t *testing.T) {
	n := NewDefault(testNow)
	items := n.Normalize(cat("weibo", "微博热搜"), json.RawMessage(`[{"name":"X","score":42,"link":"http://a"}]`))
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	it := items[0]
	if it.Title != "X" || it.URL != "http://a" {
		t.Fatalf("unexpected title/url: %+v", it)
	}
	if hot, ok := it.Hot.(float64); !ok || hot != 42 {
		t.Fatalf("hot = %#v, want 42", it.Hot)
	}
	if it.ID != "weibo-0" || it.Index != 1 {
		t.Fatalf("id/index fallback wrong: %s %d", it.ID, it.Index)
	}
	if it.Source != "微博热搜" || it.Category != "weibo" {
		t.Fatalf("source/category wrong: %+v", it)
	}
	if it.Timestamp != fixedNow.UnixMilli() {
		t.Fatalf("timestamp should default to now, got %d", it.Timestamp)
	}
}

func TestGenericAliasOrderAndFalsySkip(t *testing.T) {
	raw := `[
		{"id":"","rank":7,"title":"","word":"W","query":"Q","hot":0,"heat":"1.2万","desc":"","excerpt":"E","pic":"p.png","time":1700000000}
	]`
	items := New(testNow).Normalize(cat("zhihu", "知乎"), json.RawMessage(raw))
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	it := items[0]
	if it.ID != "zhihu-7" {
		t.Fatalf("id should fall through empty id to rank, got %s", it.ID)
	}
	if it.Title != "W" {
		t.Fatalf("title should skip empty title, got %q", it.Title)
	}
	if it.Hot != "1.2万" {
		t.Fatalf("hot should skip zero and keep string, got %#v", it.Hot)
	}
	if it.Description != "E" || it.Image != "p.png" {
		t.Fatalf("description/image wrong: %+v", it)
	}
	if it.Index != 7 {
		t.Fatalf("index should come from rank, got %d", it.Index)
	}
	if it.Timestamp != 1700000000000 {
		t.Fatalf("second timestamps should be converted to ms, got %d", it.Timestamp)
	}
}

func TestGenericObjectProbing(t *testing.T) {
	n := New(testNow)
	c := cat("toutiao", "头条")

	for _, raw := range []string{
		`{"list":[{"title":"a"},{"title":"b"}]}`,
		`{"data":[{"title":"a"},{"title":"b"}]}`,
		`{"items":[{"title":"a"},{"title":"b"}]}`,
		`{"list":"nope","items":[{"title":"a"},{"title":"b"}]}`,
	} {
		items := n.Normalize(c, json.RawMessage(raw))
		if len(items) != 2 || items[1].Title != "b" {
			t.Fatalf("%s: unexpected items %+v", raw, items)
		}
	}

	for _, raw := range []string{`{"foo":1}`, `null`, `"text"`, `42`, `{broken`, ``} {
		items := n.Normalize(c, json.RawMessage(raw))
		if items == nil || len(items) != 0 {
			t.Fatalf("%q: expected empty non-nil slice, got %#v", raw, items)
		}
	}
}

func TestGenericNonObjectElements(t *testing.T) {
	items := New(testNow).Normalize(cat("x", ""), json.RawMessage(`["plain", 3, null]`))
	if len(items) != 3 {
		t.Fatalf("expected 3 degraded items, got %d", len(items))
	}
	if items[2].ID != "x-2" || items[2].Source != "x" || items[2].Title != "" {
		t.Fatalf("unexpected degraded item %+v", items[2])
	}
}

func TestDigest(t *testing.T) {
	raw := `{"date":"2025-03-01","news":["一","二"],"cover":"c.png","link":"http://60s","created_at":1740787200000}`
	items := NewDefault(testNow).Normalize(cat("60s", "每天60秒读懂世界"), json.RawMessage(raw))
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[1].ID != "60s-2025-03-01-1" || items[1].Index != 2 {
		t.Fatalf("unexpected id/index %+v", items[1])
	}
	if items[0].Title != "一" || items[0].Description != "一" {
		t.Fatalf("text should be title and description: %+v", items[0])
	}
	if items[0].Timestamp != 1740787200000 || items[0].Image != "c.png" || items[0].URL != "http://60s" {
		t.Fatalf("shared metadata not applied: %+v", items[0])
	}

	empty := NewDefault(testNow).Normalize(cat("60s", ""), json.RawMessage(`{"date":"x"}`))
	if len(empty) != 0 {
		t.Fatalf("missing news should yield empty list")
	}
}

func TestNewsFeed(t *testing.T) {
	raw := `{"date":"2025-03-01","news":[
		{"title":"A","source":"机器之心","date":"2025-02-28","link":"http://a","detail":"da"},
		{"title":"B","link":"http://b"}
	]}`
	items := NewDefault(testNow).Normalize(cat("ai-news", "AI资讯快报"), json.RawMessage(raw))
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Source != "机器之心" || items[0].Description != "da" || items[0].ID != "ai-news-2025-03-01-0" {
		t.Fatalf("unexpected first item %+v", items[0])
	}
	feb28 := time.Date(2025, 2, 28, 0, 0, 0, 0, locEast8).UnixMilli()
	mar1 := time.Date(2025, 3, 1, 0, 0, 0, 0, locEast8).UnixMilli()
	if items[0].Timestamp != feb28 || items[1].Timestamp != mar1 {
		t.Fatalf("timestamps should come from entry date then payload date: %d %d", items[0].Timestamp, items[1].Timestamp)
	}
	if items[1].Source != "AI资讯快报" {
		t.Fatalf("source should fall back to category name, got %q", items[1].Source)
	}

	fallback := NewDefault(testNow).Normalize(cat("ai-news", "AI"), json.RawMessage(`[{"title":"G"}]`))
	if len(fallback) != 1 || fallback[0].Title != "G" {
		t.Fatalf("payload without news should use generic path: %+v", fallback)
	}
}

func TestEventList(t *testing.T) {
	raw := `{"date":"03-01","items":[{"year":"1932","title":"伪满洲国成立","description":"d","link":"http://h"}]}`
	items := NewDefault(testNow).Normalize(cat("history", "历史上的今天"), json.RawMessage(raw))
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	it := items[0]
	if it.Title != "1932年 - 伪满洲国成立" || it.ID != "history-03-01-0" {
		t.Fatalf("unexpected item %+v", it)
	}
	if it.Timestamp != fixedNow.UnixMilli() {
		t.Fatalf("history timestamp should be now")
	}
}

func TestSingleObject(t *testing.T) {
	c := cat("bing-wallpaper", "必应每日壁纸")
	raw := `{"date":"20250301","title":"","copyright":"© Someone","url":"http://img"}`
	items := NewDefault(testNow).Normalize(c, json.RawMessage(raw))
	if len(items) != 1 {
		t.Fatalf("expected exactly 1 item, got %d", len(items))
	}
	it := items[0]
	if it.ID != "bing-wallpaper-20250301" || it.Title != "© Someone" || it.Image != "http://img" || it.URL != "http://img" || it.Index != 1 {
		t.Fatalf("unexpected item %+v", it)
	}

	noDate := NewDefault(testNow).Normalize(c, json.RawMessage(`{"image":"i.png"}`))
	if noDate[0].ID != "bing-wallpaper-1740816000000" || noDate[0].Title != "必应每日壁纸" || noDate[0].Image != "i.png" {
		t.Fatalf("unexpected fallback item %+v", noDate[0])
	}
}

func TestMaoyanRows(t *testing.T) {
	n := NewDefault(testNow)

	global := n.Normalize(cat("maoyan-global", "猫眼全球票房总榜"), json.RawMessage(
		`{"list":[{"movie_name":"阿凡达","release_year":"2009","maoyan_id":78,"box_office_desc":"29.23亿","rank":1},{"title":"generic row"}]}`))
	if len(global) != 2 {
		t.Fatalf("expected 2 items, got %d", len(global))
	}
	if global[0].Title != "阿凡达 (2009)" || global[0].ID != "maoyan-global-78" || global[0].Hot != "29.23亿" || global[0].Description != "票房：29.23亿" {
		t.Fatalf("unexpected global row %+v", global[0])
	}
	if global[1].Title != "generic row" || global[1].ID != "maoyan-global-1" {
		t.Fatalf("row without movie_name should use generic mapping: %+v", global[1])
	}

	tv := n.Normalize(cat("maoyan-tv", "猫眼电视收视排行"), json.RawMessage(
		`[{"programme_name":"新闻联播","channel_name":"CCTV-1","market_rate_desc":"5.1%","attention_rate_desc":"1.2%"}]`))
	if tv[0].Source != "猫眼电视收视排行 - CCTV-1" || tv[0].Description != "市场份额：5.1% 关注度：1.2%" || tv[0].ID != "maoyan-tv-0" {
		t.Fatalf("unexpected tv row %+v", tv[0])
	}

	drama := n.Normalize(cat("maoyan-drama", "猫眼网剧实时热度"), json.RawMessage(
		`[{"series_name":"某剧","series_id":"9","platform_desc":"腾讯视频","curr_heat_desc":"8888"}]`))
	if drama[0].Description != "腾讯视频 热度：8888" || drama[0].ID != "maoyan-drama-9" {
		t.Fatalf("unexpected drama row %+v", drama[0])
	}

	movie := n.Normalize(cat("maoyan-movie", "猫眼电影实时票房"), json.RawMessage(
		`[{"movie_name":"哪吒","movie_id":1,"release_info":"上映5天","box_office_desc":"1亿","box_office_rate":"60%"}]`))
	if movie[0].Description != "上映5天 票房：1亿 占比：60%" || movie[0].ID != "maoyan-movie-1" {
		t.Fatalf("unexpected movie row %+v", movie[0])
	}
}

func TestRegisterOverridesStrategy(t *testing.T) {
	n := New(testNow)
	n.Register("custom", StrategyFunc(func(c model.Category, _ json.RawMessage) []model.NewsItem {
		return []model.NewsItem{{ID: c.ID + "-x"}}
	}))
	if got := n.Normalize(cat("custom", ""), nil); len(got) != 1 || got[0].ID != "custom-x" {
		t.Fatalf("registered strategy not used: %+v", got)
	}
	if _, ok := n.StrategyFor("other").(*Generic); !ok {
		t.Fatalf("unregistered category should use Generic")
	}
}
