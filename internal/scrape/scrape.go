// Package scrape collects rental housing notices from the SH and LH portals.
package scrape

import (
	"context"
	"crypto/md5"
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"

	"housing-radar/internal/models"
)

// ScrapedNotice is a raw notice lifted from a portal list page, before text
// extraction and persistence.
type ScrapedNotice struct {
	Title    string
	Link     string
	Platform models.Platform
	ListDate time.Time
	Region   string
	Address  string
	RawText  string
}

// Scraper is one portal source.
type Scraper interface {
	Platform() models.Platform
	Scrape(ctx context.Context) ([]ScrapedNotice, error)
}

// district maps a Korean keyword found in notice titles to the romanized
// region name and the district office address component.
type district struct {
	region string
	gu     string
}

var districts = map[string]district{
	"강남":  {"Gangnam-gu", "강남구"},
	"강동":  {"Gangdong-gu", "강동구"},
	"강북":  {"Gangbuk-gu", "강북구"},
	"강서":  {"Gangseo-gu", "강서구"},
	"관악":  {"Gwanak-gu", "관악구"},
	"광진":  {"Gwangjin-gu", "광진구"},
	"구로":  {"Guro-gu", "구로구"},
	"금천":  {"Geumcheon-gu", "금천구"},
	"노원":  {"Nowon-gu", "노원구"},
	"도봉":  {"Dobong-gu", "도봉구"},
	"동대문": {"Dongdaemun-gu", "동대문구"},
	"동작":  {"Dongjak-gu", "동작구"},
	"마포":  {"Mapo-gu", "마포구"},
	"서대문": {"Seodaemun-gu", "서대문구"},
	"서초":  {"Seocho-gu", "서초구"},
	"성동":  {"Seongdong-gu", "성동구"},
	"성북":  {"Seongbuk-gu", "성북구"},
	"송파":  {"Songpa-gu", "송파구"},
	"양천":  {"Yangcheon-gu", "양천구"},
	"영등포": {"Yeongdeungpo-gu", "영등포구"},
	"용산":  {"Yongsan-gu", "용산구"},
	"은평":  {"Eunpyeong-gu", "은평구"},
	"종로":  {"Jongno-gu", "종로구"},
	"중구":  {"Jung-gu", "중구"},
	"중랑":  {"Jungnang-gu", "중랑구"},
}

// districtOrder checks longer keywords first so 동대문 wins over 동작's 동
// style near-misses and 중랑 is tested before 중구.
var districtOrder = []string{
	"동대문", "서대문", "영등포",
	"강남", "강동", "강북", "강서", "관악", "광진", "구로", "금천", "노원",
	"도봉", "동작", "마포", "서초", "성동", "성북", "송파", "양천", "용산",
	"은평", "종로", "중랑", "중구",
}

// RegionFromTitle derives the region name and a geocodable anchor address
// from a notice title. Titles without a recognizable district fall back to
// city hall.
func RegionFromTitle(title string) (region, address string) {
	for _, kw := range districtOrder {
		if strings.Contains(title, kw) {
			d := districts[kw]
			return d.region, "서울시 " + d.gu + "청"
		}
	}
	return "Seoul", "서울시청"
}

// isRentalNotice keeps only rental and recruitment notices.
func isRentalNotice(title string) bool {
	return strings.Contains(title, "임대") || strings.Contains(title, "모집")
}

var listDatePattern = regexp.MustCompile(`\d{2,4}[.\-/]\d{1,2}[.\-/]\d{1,2}`)

// parseListDate parses the date cell of a list row, zero time when absent.
func parseListDate(text string) time.Time {
	match := listDatePattern.FindString(text)
	if match == "" {
		return time.Time{}
	}
	normalized := strings.NewReplacer(".", "-", "/", "-").Replace(match)
	parts := strings.Split(normalized, "-")
	if len(parts[0]) == 2 {
		parts[0] = "20" + parts[0]
	}
	if len(parts[1]) == 1 {
		parts[1] = "0" + parts[1]
	}
	if len(parts[2]) == 1 {
		parts[2] = "0" + parts[2]
	}
	parsed, err := time.Parse("2006-01-02", strings.Join(parts, "-"))
	if err != nil {
		return time.Time{}
	}
	return parsed
}

// listRow is one table row from a portal list page.
type listRow struct {
	title    string
	href     string
	dateText string
}

// parseListRows walks the document for table rows carrying an anchor. The
// portals render list pages as plain tables; the anchor cell holds the
// title and the last date-looking cell holds the posting date.
func parseListRows(doc *html.Node) []listRow {
	var rows []listRow
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "tr" {
			if row, ok := parseRow(n); ok {
				rows = append(rows, row)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return rows
}

func parseRow(tr *html.Node) (listRow, bool) {
	var row listRow
	for td := tr.FirstChild; td != nil; td = td.NextSibling {
		if td.Type != html.ElementNode || (td.Data != "td" && td.Data != "th") {
			continue
		}
		if a := findAnchor(td); a != nil && row.title == "" {
			row.title = strings.TrimSpace(textContent(a))
			row.href = attr(a, "href")
			continue
		}
		text := strings.TrimSpace(textContent(td))
		if listDatePattern.MatchString(text) {
			row.dateText = text
		}
	}
	return row, row.title != ""
}

func findAnchor(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "a" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if a := findAnchor(c); a != nil {
			return a
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}

// pdfLinks collects hrefs of PDF attachments on a detail page.
func pdfLinks(doc *html.Node) []string {
	var links []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if href := attr(n, "href"); strings.HasSuffix(strings.ToLower(href), ".pdf") {
				links = append(links, href)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return links
}

// resolveLink absolutizes a row link against the portal base. Rows without a
// usable href get a stable synthetic link derived from the title so the
// notice still has a unique identity.
func resolveLink(baseURL, href, title string) string {
	switch {
	case href == "" || href == "#":
		sum := md5.Sum([]byte(title))
		return fmt.Sprintf("%s/notice/%x", baseURL, sum[:6])
	case strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://"):
		return href
	case strings.HasPrefix(href, "/"):
		return strings.TrimSuffix(baseURL, "/") + href
	default:
		return strings.TrimSuffix(baseURL, "/") + "/" + href
	}
}
