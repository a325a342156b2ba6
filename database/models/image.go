package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// 变体尺寸标签，固定阶梯
const (
	VariantOriginal = "original"
	VariantXXS      = "xxs"
	VariantXS       = "xs"
	VariantSM       = "sm"
	VariantMD       = "md"
	VariantLG       = "lg"
)

// VariantSize 阶梯中的一档
type VariantSize struct {
	Name  string
	Width int
}

// VariantLadder 缩放阶梯，宽度严格递增
var VariantLadder = []VariantSize{
	{Name: VariantXXS, Width: 160},
	{Name: VariantXS, Width: 320},
	{Name: VariantSM, Width: 640},
	{Name: VariantMD, Width: 1024},
	{Name: VariantLG, Width: 1920},
}

// Variant 单个缩放变体，整组随图片一起重建
type Variant struct {
	Size     string `json:"size"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Pathname string `json:"pathname"`
}

// Image 一张已上传的图片及其网格占位
type Image struct {
	ID          uint   `gorm:"primarykey" json:"id"`
	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`
	Slug        string `gorm:"uniqueIndex;not null" json:"slug"`

	// 原图所在的存储前缀，变体路径均由它派生
	Pathname string `gorm:"uniqueIndex;not null" json:"pathname"`

	// 网格占位（语义坐标，单位为格）
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`

	// (x, y) 的只读投影，仅用于默认排序，由 BeforeSave 维护
	Sum    int `gorm:"index" json:"-"`
	SumAbs int `gorm:"index" json:"-"`

	StatsViews     int64 `gorm:"default:0;not null" json:"stats_views"`
	StatsDownloads int64 `gorm:"default:0;not null" json:"stats_downloads"`
	StatsLikes     int64 `gorm:"default:0;not null" json:"stats_likes"`

	Variants datatypes.JSON `json:"variants"`

	UserID uint `gorm:"index" json:"user_id"`

	Tags []*Tag `gorm:"many2many:image_tags;" json:"tags,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SetVariants 序列化变体列表到存储字段
func (i *Image) SetVariants(variants []Variant) error {
	data, err := json.Marshal(variants)
	if err != nil {
		return err
	}
	i.Variants = datatypes.JSON(data)
	return nil
}

// VariantList 反序列化存储字段中的变体列表
func (i *Image) VariantList() ([]Variant, error) {
	if len(i.Variants) == 0 {
		return nil, nil
	}
	var variants []Variant
	if err := json.Unmarshal(i.Variants, &variants); err != nil {
		return nil, err
	}
	return variants, nil
}

// BeforeSave 维护派生排序列
func (i *Image) BeforeSave(tx *gorm.DB) error {
	i.Sum = i.X + i.Y
	i.SumAbs = abs(i.X) + abs(i.Y)
	return nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
