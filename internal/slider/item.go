package slider

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"slidestudio/internal/slide"
)

var (
	ErrInvalidItem       = errors.New("invalid slider item")
	ErrInvalidBackground = errors.New("invalid slider background")
)

// BackgroundType 是背景类型选择器的取值。
type BackgroundType string

const (
	BackgroundImage   BackgroundType = "image"
	BackgroundYouTube BackgroundType = "youtube"
	BackgroundMedia   BackgroundType = "media"
	BackgroundColor   BackgroundType = "color"
)

func (t BackgroundType) Valid() bool {
	switch t {
	case BackgroundImage, BackgroundYouTube, BackgroundMedia, BackgroundColor:
		return true
	}
	return false
}

const DefaultTextColor = "#ffffff"

// Item 是首页轮播条目（top_slider_items）。
// image_url / youtube_url / media_id 至多一个非空，否则使用 background_color。
type Item struct {
	ID              uint    `json:"id"`
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	ImageURL        *string `json:"image_url"`
	YouTubeURL      *string `json:"youtube_url"`
	MediaID         *uint   `json:"media_id"`
	BackgroundColor string  `json:"background_color"`
	LinkURL         string  `json:"link_url"`
	TextColor       string  `json:"text_color"`
	Visible         bool    `json:"visible"`
	DisplayOrder    int     `json:"display_order"`
}

// BackgroundType 返回当前生效的背景类型。
func (it Item) BackgroundType() BackgroundType {
	switch {
	case it.YouTubeURL != nil:
		return BackgroundYouTube
	case it.MediaID != nil:
		return BackgroundMedia
	case it.ImageURL != nil:
		return BackgroundImage
	default:
		return BackgroundColor
	}
}

// ApplyBackground 按选择器设置背景，并清空其余来源。color 会清空全部三个来源。
func ApplyBackground(it *Item, t BackgroundType, value string) error {
	value = strings.TrimSpace(value)
	switch t {
	case BackgroundImage:
		if !isHTTPURL(value) {
			return fmt.Errorf("%w: image url %q", ErrInvalidBackground, value)
		}
		it.ImageURL, it.YouTubeURL, it.MediaID = &value, nil, nil
	case BackgroundYouTube:
		if _, ok := YouTubeID(value); !ok {
			return fmt.Errorf("%w: youtube url %q", ErrInvalidBackground, value)
		}
		it.ImageURL, it.YouTubeURL, it.MediaID = nil, &value, nil
	case BackgroundMedia:
		id, err := strconv.ParseUint(value, 10, 64)
		if err != nil || id == 0 {
			return fmt.Errorf("%w: media id %q", ErrInvalidBackground, value)
		}
		mediaID := uint(id)
		it.ImageURL, it.YouTubeURL, it.MediaID = nil, nil, &mediaID
	case BackgroundColor:
		if value != "" {
			if !slide.IsHexColor(value) {
				return fmt.Errorf("%w: color %q", ErrInvalidBackground, value)
			}
			it.BackgroundColor = value
		}
		it.ImageURL, it.YouTubeURL, it.MediaID = nil, nil, nil
	default:
		return fmt.Errorf("%w: unsupported type %q", ErrInvalidBackground, t)
	}
	return nil
}

// Validate 检查条目在保存前是否满足约束。
func (it Item) Validate() error {
	if strings.TrimSpace(it.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidItem)
	}
	sources := 0
	for _, set := range []bool{it.ImageURL != nil, it.YouTubeURL != nil, it.MediaID != nil} {
		if set {
			sources++
		}
	}
	if sources > 1 {
		return fmt.Errorf("%w: only one of image_url, youtube_url, media_id may be set", ErrInvalidItem)
	}
	if it.BackgroundColor != "" && !slide.IsHexColor(it.BackgroundColor) {
		return fmt.Errorf("%w: background color %q", ErrInvalidItem, it.BackgroundColor)
	}
	if it.TextColor != "" && !slide.IsHexColor(it.TextColor) {
		return fmt.Errorf("%w: text color %q", ErrInvalidItem, it.TextColor)
	}
	if it.LinkURL != "" && !isHTTPURL(it.LinkURL) && !strings.HasPrefix(it.LinkURL, "/") {
		return fmt.Errorf("%w: link url %q", ErrInvalidItem, it.LinkURL)
	}
	return nil
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

var youtubeIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// YouTubeID 从 watch / embed / shorts / youtu.be 链接中提取视频 ID。
func YouTubeID(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return "", false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	host = strings.TrimPrefix(host, "m.")

	var id string
	switch host {
	case "youtu.be":
		id = strings.Trim(u.Path, "/")
	case "youtube.com", "youtube-nocookie.com":
		switch {
		case u.Path == "/watch":
			id = u.Query().Get("v")
		case strings.HasPrefix(u.Path, "/embed/"):
			id = strings.TrimPrefix(u.Path, "/embed/")
		case strings.HasPrefix(u.Path, "/shorts/"):
			id = strings.TrimPrefix(u.Path, "/shorts/")
		}
	}
	if !youtubeIDPattern.MatchString(id) {
		return "", false
	}
	return id, true
}

// EmbedURL 返回自动播放、静音、循环的嵌入地址。
func EmbedURL(id string) string {
	return "https://www.youtube.com/embed/" + id + "?autoplay=1&mute=1&loop=1&controls=0&playlist=" + id
}

// Sort 按 display_order、ID 排序。
func Sort(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].DisplayOrder != items[j].DisplayOrder {
			return items[i].DisplayOrder < items[j].DisplayOrder
		}
		return items[i].ID < items[j].ID
	})
}

// Visible 返回按顺序排列的可见条目。visible 与 display_order 相互独立。
func Visible(items []Item) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if it.Visible {
			out = append(out, it)
		}
	}
	Sort(out)
	return out
}

// Direction 是调整顺序的方向。
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

func (d Direction) Valid() bool {
	return d == Up || d == Down
}

// Move 与相邻条目交换位置，返回 display_order 发生变化的条目。
// 存在相同的 display_order 时先按当前顺序重新编号，保证交换只影响这两项的相对位置。
// 已在边界时 ok 为 false。
func Move(items []Item, id uint, dir Direction) (changed []Item, ok bool) {
	ordered := make([]Item, len(items))
	copy(ordered, items)
	Sort(ordered)

	i := -1
	for k := range ordered {
		if ordered[k].ID == id {
			i = k
			break
		}
	}
	if i < 0 {
		return nil, false
	}
	j := i - 1
	if dir == Down {
		j = i + 1
	}
	if j < 0 || j >= len(ordered) {
		return nil, false
	}

	original := make(map[uint]int, len(ordered))
	for _, it := range ordered {
		original[it.ID] = it.DisplayOrder
	}
	if hasTies(ordered) {
		for k := range ordered {
			ordered[k].DisplayOrder = k
		}
	}
	ordered[i].DisplayOrder, ordered[j].DisplayOrder = ordered[j].DisplayOrder, ordered[i].DisplayOrder

	for _, it := range ordered {
		if it.DisplayOrder != original[it.ID] {
			changed = append(changed, it)
		}
	}
	return changed, true
}

// hasTies 要求 items 已排序。
func hasTies(items []Item) bool {
	for k := 1; k < len(items); k++ {
		if items[k].DisplayOrder == items[k-1].DisplayOrder {
			return true
		}
	}
	return false
}
