package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/LJTian/HotFeed/internal/apperr"
	"github.com/LJTian/HotFeed/internal/logging"
	"github.com/LJTian/HotFeed/internal/model"
)

// HTMLSource 按 ScrapeSpec 抓取 HTML 榜单页，产出通用行并包装成与 JSON 接口一致的信封
type HTMLSource struct {
	Timeout   time.Duration
	UserAgent string
	logger    *slog.Logger
}

func NewHTMLSource(timeout time.Duration, logger *slog.Logger) *HTMLSource {
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	return &HTMLSource{
		Timeout:   timeout,
		UserAgent: defaultUserAgent,
		logger:    logging.OrDefault(logger).With("component", "html-source"),
	}
}

// htmlRow 字段名与通用别名链一致，交给 Generic 归一化
type htmlRow struct {
	ID    string `json:"id,omitempty"`
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
	Hot   any    `json:"hot,omitempty"`
	Desc  string `json:"desc,omitempty"`
	Rank  int    `json:"rank"`
}

type htmlEnvelope struct {
	Code    int       `json:"code"`
	Message string    `json:"message"`
	Data    []htmlRow `json:"data"`
}

func (h *HTMLSource) Fetch(ctx context.Context, cat model.Category) ([]byte, error) {
	spec := cat.Scrape
	if spec == nil {
		return nil, apperr.Validation(fmt.Sprintf("分类 %s 未配置抓取规则", cat.ID))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts := []colly.CollectorOption{colly.UserAgent(h.UserAgent)}
	if len(spec.AllowedDomains) > 0 {
		opts = append(opts, colly.AllowedDomains(spec.AllowedDomains...))
	}
	c := colly.NewCollector(opts...)
	c.SetRequestTimeout(h.Timeout)

	rows := make([]htmlRow, 0, 32)
	statusCode := 0

	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
		}
	})

	// 页面结构可能调整，此处基于当前的 DOM 结构做“尽力而为”的解析
	c.OnHTML(spec.ItemSelector, func(e *colly.HTMLElement) {
		titleSel := e.DOM.Find(spec.TitleSelector).First()
		title := collapseSpaces(titleSel.Text())
		if title == "" {
			return
		}

		row := htmlRow{Title: title, Rank: len(rows) + 1}

		linkSel := titleSel
		if spec.LinkSelector != "" {
			linkSel = e.DOM.Find(spec.LinkSelector).First()
		}
		if href, ok := linkSel.Attr("href"); ok {
			href = strings.TrimSpace(href)
			row.ID = strings.Trim(href, "/")
			row.URL = absoluteLink(e, spec.LinkPrefix, href)
		}

		if spec.HotSelector != "" {
			hotText := strings.TrimSpace(e.ChildText(spec.HotSelector))
			if n := parseHeat(hotText); n > 0 {
				row.Hot = n
			} else if hotText != "" {
				row.Hot = hotText
			}
		}
		if spec.DescSelector != "" {
			row.Desc = firstText(e.DOM.Find(spec.DescSelector))
		}
		rows = append(rows, row)
	})

	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			statusCode = r.StatusCode
		}
	})

	err := c.Visit(spec.PageURL)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("%s: %w", cat.ID, ctxErr)
	}
	if err != nil {
		if statusCode >= 400 {
			return nil, &apperr.ResponseError{StatusCode: statusCode, Message: err.Error()}
		}
		return nil, fmt.Errorf("%s: visit %s: %w: %v", cat.ID, spec.PageURL, apperr.ErrNoResponse, err)
	}

	if len(rows) == 0 {
		h.logger.Warn("scrape got 0 items", "category", cat.ID, "url", spec.PageURL)
	}

	body, err := json.Marshal(htmlEnvelope{Code: envelopeSuccessCode, Message: "success", Data: rows})
	if err != nil {
		return nil, errors.Join(apperr.ErrMalformedBody, err)
	}
	return body, nil
}

func absoluteLink(e *colly.HTMLElement, prefix, href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if prefix != "" {
		return strings.TrimRight(prefix, "/") + "/" + strings.TrimLeft(href, "/")
	}
	return e.Request.AbsoluteURL(href)
}

func firstText(sel *goquery.Selection) string {
	var out string
	sel.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		out = collapseSpaces(s.Text())
		return out == ""
	})
	return out
}

// collapseSpaces GitHub 等页面的标题里夹杂大量换行与缩进
func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// parseHeat 解析 "12.3k"、"1,234"、"5.6万" 之类的热度文本
func parseHeat(text string) float64 {
	text = strings.ReplaceAll(text, ",", "")
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}

	multiplier := 1.0
	switch {
	case strings.HasSuffix(text, "k"), strings.HasSuffix(text, "K"):
		multiplier = 1000
		text = text[:len(text)-1]
	case strings.HasSuffix(text, "万"):
		multiplier = 10000
		text = strings.TrimSuffix(text, "万")
	case strings.HasSuffix(text, "亿"):
		multiplier = 100000000
		text = strings.TrimSuffix(text, "亿")
	}

	f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return 0
	}
	return f * multiplier
}
