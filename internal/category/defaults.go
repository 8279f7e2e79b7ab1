package category

import "github.com/LJTian/HotFeed/internal/model"

// DefaultCategoryID 未关注任何分类时默认展示的分类
const DefaultCategoryID = "60s"

// Defaults 60s API 上已验证可用的分类，外加一个直接抓取 HTML 的 GitHub Trending 榜
func Defaults() []model.Category {
	return []model.Category{
		// 热门榜单
		{ID: "douyin", Name: "抖音热搜", Endpoint: "/v2/douyin", Icon: "🎵"},
		{ID: "xiaohongshu", Name: "小红书热点", Endpoint: "/v2/rednote", Icon: "📕"},
		{ID: "quark", Name: "夸克热点", Endpoint: "/v2/quark", Icon: "⚡"},
		{ID: "weibo", Name: "微博热搜", Endpoint: "/v2/weibo", Icon: "🔥"},
		{ID: "baidu", Name: "百度实时热搜", Endpoint: "/v2/baidu/hot", Icon: "🔍"},
		{ID: "baidu-tv", Name: "百度电视剧榜", Endpoint: "/v2/baidu/teleplay", Icon: "📺"},
		{ID: "baidu-tieba", Name: "百度贴吧话题榜", Endpoint: "/v2/baidu/tieba", Icon: "💬"},
		{ID: "toutiao", Name: "头条热搜榜", Endpoint: "/v2/toutiao", Icon: "📄"},
		{ID: "zhihu", Name: "知乎话题榜", Endpoint: "/v2/zhihu", Icon: "💡"},
		{ID: "dongchedi", Name: "懂车帝热搜", Endpoint: "/v2/dongchedi", Icon: "🚗"},
		{ID: "netease-music", Name: "网易云榜单列表", Endpoint: "/v2/ncm-rank/list", Icon: "🎵"},
		{ID: "maoyan-global", Name: "猫眼全球票房总榜", Endpoint: "/v2/maoyan/all/movie", Icon: "🎬"},
		{ID: "maoyan-movie", Name: "猫眼电影实时票房", Endpoint: "/v2/maoyan/realtime/movie", Icon: "🎥"},
		{ID: "maoyan-tv", Name: "猫眼电视收视排行", Endpoint: "/v2/maoyan/realtime/tv", Icon: "📺"},
		{ID: "maoyan-drama", Name: "猫眼网剧实时热度", Endpoint: "/v2/maoyan/realtime/web", Icon: "🎭"},

		// 周期资讯
		{ID: "60s", Name: "每天60秒读懂世界", Endpoint: "/v2/60s", Icon: "📰"},
		{ID: "ai-news", Name: "AI资讯快报", Endpoint: "/v2/ai-news", Icon: "🤖"},
		{ID: "history", Name: "历史上的今天", Endpoint: "/v2/history", Icon: "📅"},
		{ID: "bing-wallpaper", Name: "必应每日壁纸", Endpoint: "/v2/bing", Icon: "🖼️"},

		// HTML 榜单：页面结构可能调整，选择器按当前 DOM 尽力而为
		{
			ID:   "github-trending",
			Name: "GitHub Trending",
			Icon: "🐙",
			Kind: model.KindHTML,
			Scrape: &model.ScrapeSpec{
				PageURL:        "https://github.com/trending",
				AllowedDomains: []string{"github.com"},
				ItemSelector:   "article.Box-row",
				TitleSelector:  "h2 a",
				LinkSelector:   "h2 a",
				LinkPrefix:     "https://github.com",
				HotSelector:    "a[href$=\"/stargazers\"]",
				DescSelector:   "p",
			},
		},
	}
}
