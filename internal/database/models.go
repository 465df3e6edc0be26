package database

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"slidestudio/internal/slide"
)

// User 表示后台账号。只有 admin 角色可以编辑幻灯片。
type User struct {
	gorm.Model
	Username           string `gorm:"uniqueIndex;size:64"`
	PasswordHash       string `gorm:"size:255"`
	Role               string `gorm:"size:16;default:member"`
	MustChangePassword bool   `gorm:"default:false"`
}

// SlideTemplate 是只读的起始布局（slide_templates）。
type SlideTemplate struct {
	gorm.Model
	Name            string                                    `gorm:"size:255"`
	Description     string                                    `gorm:"size:1024"`
	LayoutType      string                                    `gorm:"size:32"`
	TemplateData    datatypes.JSONType[slide.TemplateData]    `gorm:"type:jsonb"`
	DesignableAreas datatypes.JSONSlice[slide.DesignableArea] `gorm:"type:jsonb"`
	DefaultStyles   datatypes.JSONType[slide.DefaultStyles]   `gorm:"type:jsonb"`
}

// SlideDesign 是保存后的幻灯片设计（slide_designs）。
// TemplateID 只是弱引用，删除模板不会影响已有设计。
type SlideDesign struct {
	gorm.Model
	Title              string                                      `gorm:"size:255"`
	Description        string                                      `gorm:"size:2048"`
	TemplateID         *uint                                       `gorm:"index"`
	LayoutType         string                                      `gorm:"size:32"`
	DesignData         datatypes.JSONType[slide.DesignData]        `gorm:"type:jsonb"`
	BackgroundColor    string                                      `gorm:"size:16"`
	BackgroundImageURL string                                      `gorm:"size:1024"`
	BackgroundMediaID  *uint                                       `gorm:"index"`
	AnimationSettings  datatypes.JSONType[slide.AnimationSettings] `gorm:"type:jsonb"`
	LinkURL            string                                      `gorm:"size:1024"`
	IsActive           bool                                        `gorm:"index"`
	DisplayOrder       int                                         `gorm:"default:0;index"`
	PreviewImageURL    string                                      `gorm:"size:1024"`
	CreatedBy          uint                                        `gorm:"index"`
}

// TopSliderItem 是首页顶部轮播条目，背景来源互斥。
type TopSliderItem struct {
	gorm.Model
	Title           string  `gorm:"size:255"`
	Description     string  `gorm:"size:2048"`
	ImageURL        *string `gorm:"size:1024"`
	YouTubeURL      *string `gorm:"column:youtube_url;size:1024"`
	MediaID         *uint   `gorm:"index"`
	BackgroundColor string  `gorm:"size:16"`
	LinkURL         string  `gorm:"size:1024"`
	TextColor       string  `gorm:"size:16"`
	IsVisible       bool    `gorm:"index"`
	DisplayOrder    int     `gorm:"default:0;index"`
}

// MediaItem 是媒体库中上传的图片或视频（media_library）。
type MediaItem struct {
	gorm.Model
	Kind        string `gorm:"size:16;index"`
	FileName    string `gorm:"size:255"`
	ObjectKey   string `gorm:"uniqueIndex;size:512"`
	ContentType string `gorm:"size:64"`
	Size        int64
	UploadedBy  uint `gorm:"index"`
}

func (MediaItem) TableName() string { return "media_library" }
