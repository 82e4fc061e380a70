package folioengine

import (
	"encoding/xml"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type rssXML struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string        `xml:"title"`
	Link        string        `xml:"link"`
	Description string        `xml:"description"`
	PubDate     string        `xml:"pubDate"`
	GUID        rssGUID       `xml:"guid"`
	Enclosure   *rssEnclosure `xml:"enclosure,omitempty"`
}

type rssGUID struct {
	Value       string `xml:",chardata"`
	IsPermaLink bool   `xml:"isPermaLink,attr"`
}

type rssEnclosure struct {
	URL    string `xml:"url,attr"`
	Type   string `xml:"type,attr"`
	Length int64  `xml:"length,attr"`
}

// renderRSS writes posts newest first. Item links point at the public site,
// which owns per-post pages.
func (a *App) renderRSS(c echo.Context, posts []BlogPost) error {
	base := a.Config.SiteURL
	items := make([]rssItem, 0, len(posts))
	for i := len(posts) - 1; i >= 0; i-- {
		p := posts[i]
		item := rssItem{
			Title:       p.Title,
			Link:        BuildURL(base, "blog", p.ID),
			Description: p.Summary,
			PubDate:     p.CreatedAt.UTC().Format(time.RFC1123Z),
			GUID:        rssGUID{Value: p.ID},
		}
		if p.ImageURL != "" {
			item.Enclosure = &rssEnclosure{URL: p.ImageURL, Type: imageMIME(p.ImageURL)}
		}
		items = append(items, item)
	}
	feed := rssXML{
		Version: "2.0",
		Channel: rssChannel{
			Title:       a.Config.SiteName,
			Link:        base,
			Description: a.Config.SiteDescription,
			Items:       items,
		},
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/rss+xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Write([]byte(xml.Header))
	return xml.NewEncoder(c.Response()).Encode(feed)
}
