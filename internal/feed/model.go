package feed

import "time"

// 占位文案：规范化后的条目任何字段都不允许为空
const (
	PlaceholderTitle       = "بدون عنوان"
	PlaceholderLink        = "#"
	PlaceholderAuthor      = "غير محدد"
	PlaceholderDescription = "لا يوجد وصف"
	PlaceholderFeedTitle   = "خلاصة بدون عنوان"
)

// Source 描述一个订阅源，进程启动时由配置生成，之后只读
type Source struct {
	ID   string `json:"id" toml:"id"`
	Name string `json:"name" toml:"name"`
	URL  string `json:"url" toml:"url"`

	// 展示用元数据，管道本身不使用
	Color     string `json:"color,omitempty" toml:"color"`
	BgColor   string `json:"bgColor,omitempty" toml:"bg_color"`
	TextColor string `json:"textColor,omitempty" toml:"text_color"`
}

// Item 是规范化后的一条内容
type Item struct {
	ID          string    `json:"id"`
	GUID        string    `json:"guid,omitempty"`
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	PublishedAt time.Time `json:"publishedAt"`
	Author      string    `json:"author"`
	Description string    `json:"description"`
	Content     string    `json:"content"`
	Categories  []string  `json:"categories"`
	ImageURL    string    `json:"imageUrl"`
}

// Feed 每次抓取整体重建，不做增量合并；Items 保持源顺序
type Feed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Link        string `json:"link"`
	Items       []Item `json:"items"`
}

// PayloadKind 标记 provider 返回的原始数据形态
type PayloadKind int

const (
	PayloadJSON PayloadKind = iota + 1
	PayloadXML
)

func (k PayloadKind) String() string {
	switch k {
	case PayloadJSON:
		return "json"
	case PayloadXML:
		return "xml"
	default:
		return "unknown"
	}
}

// Payload 是一次抓取得到的原始数据，交给 Normalizer 消费一次后丢弃
type Payload struct {
	Kind     PayloadKind
	Provider string
	Body     []byte
}
