package images

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/zimablue/zima-blue/database/models"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.Image{}, &models.Tag{}, &models.CollectionImage{}))
	return NewRepository(db)
}

func seedImage(t *testing.T, repo *Repository, slug string, x, y int) *models.Image {
	t.Helper()
	img := &models.Image{
		Name:     slug,
		Slug:     slug,
		Pathname: slug + "-ab12c",
		X:        x,
		Y:        y,
		W:        1,
		H:        1,
	}
	require.NoError(t, repo.Create(img))
	return img
}

// TestCreateMaintainsDerivedColumns 创建时派生排序列由钩子维护
func TestCreateMaintainsDerivedColumns(t *testing.T) {
	repo := newTestRepo(t)
	img := seedImage(t, repo, "first", 2, 3)

	got, err := repo.GetByID(img.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Sum)
	assert.Equal(t, 5, got.SumAbs)
}

// TestUpdatePlacementSyncsDerivedColumns map 更新绕过钩子，派生列需显式写入
func TestUpdatePlacementSyncsDerivedColumns(t *testing.T) {
	repo := newTestRepo(t)
	img := seedImage(t, repo, "moved", 0, 0)

	require.NoError(t, repo.UpdatePlacement(img.ID, -2, 4, 2, 2))

	got, err := repo.GetByID(img.ID)
	require.NoError(t, err)
	assert.Equal(t, -2, got.X)
	assert.Equal(t, 4, got.Y)
	assert.Equal(t, 2, got.W)
	assert.Equal(t, 2, got.Sum)
	assert.Equal(t, 6, got.SumAbs)
}

// TestUpdatePlacementMissingID 更新不存在的行返回 record not found
func TestUpdatePlacementMissingID(t *testing.T) {
	repo := newTestRepo(t)

	err := repo.UpdatePlacement(9999, 0, 0, 1, 1)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

// TestListOrdering 列表按 (x+y) 投影排序，平局按 id
func TestListOrdering(t *testing.T) {
	repo := newTestRepo(t)
	a := seedImage(t, repo, "a", 2, 2) // sum 4
	b := seedImage(t, repo, "b", 0, 0) // sum 0
	c := seedImage(t, repo, "c", 1, 0) // sum 1
	d := seedImage(t, repo, "d", 0, 1) // sum 1

	images, total, err := repo.List("", 1, 50)
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)

	ids := make([]uint, 0, len(images))
	for _, img := range images {
		ids = append(ids, img.ID)
	}
	assert.Equal(t, []uint{b.ID, c.ID, d.ID, a.ID}, ids)
}

// TestListSearch 搜索命中 name/description/slug
func TestListSearch(t *testing.T) {
	repo := newTestRepo(t)
	seedImage(t, repo, "sunset-beach", 0, 0)
	seedImage(t, repo, "city-night", 1, 0)

	images, total, err := repo.List("sunset", 1, 50)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, images, 1)
	assert.Equal(t, "sunset-beach", images[0].Slug)
}

// TestExistingIDs 只返回真实存在的 id
func TestExistingIDs(t *testing.T) {
	repo := newTestRepo(t)
	img := seedImage(t, repo, "real", 0, 0)

	existing, err := repo.ExistingIDs([]uint{img.ID, 9999})
	require.NoError(t, err)
	assert.True(t, existing[img.ID])
	assert.False(t, existing[9999])

	empty, err := repo.ExistingIDs(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

// TestIncrementCounter 计数自增与缺失行
func TestIncrementCounter(t *testing.T) {
	repo := newTestRepo(t)
	img := seedImage(t, repo, "counted", 0, 0)

	require.NoError(t, repo.IncrementCounter(img.ID, CounterViews))
	require.NoError(t, repo.IncrementCounter(img.ID, CounterViews))
	require.NoError(t, repo.IncrementCounter(img.ID, CounterLikes))

	got, err := repo.GetByID(img.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.StatsViews)
	assert.Equal(t, int64(1), got.StatsLikes)
	assert.Equal(t, int64(0), got.StatsDownloads)

	err = repo.IncrementCounter(9999, CounterViews)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

// TestSlugAndPathnameExists 唯一性检查
func TestSlugAndPathnameExists(t *testing.T) {
	repo := newTestRepo(t)
	seedImage(t, repo, "taken", 0, 0)

	exists, err := repo.SlugExists("taken")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.SlugExists("free")
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = repo.PathnameExists("taken-ab12c")
	require.NoError(t, err)
	assert.True(t, exists)
}

// TestDeleteClearsAssociations 删除时清理标签关联与合集成员关系
func TestDeleteClearsAssociations(t *testing.T) {
	repo := newTestRepo(t)
	img := seedImage(t, repo, "tagged", 0, 0)

	tag := &models.Tag{Name: "landscape", Slug: "landscape"}
	require.NoError(t, repo.db.Create(tag).Error)
	require.NoError(t, repo.ReplaceTags(img, []*models.Tag{tag}))

	require.NoError(t, repo.db.Create(&models.CollectionImage{
		CollectionID: 1,
		ImageID:      img.ID,
	}).Error)

	require.NoError(t, repo.Delete(img))

	_, err := repo.GetByID(img.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	var memberships int64
	require.NoError(t, repo.db.Model(&models.CollectionImage{}).
		Where("image_id = ?", img.ID).Count(&memberships).Error)
	assert.Zero(t, memberships)

	// 标签本身保留，只解除关联
	var tagCount int64
	require.NoError(t, repo.db.Model(&models.Tag{}).Count(&tagCount).Error)
	assert.Equal(t, int64(1), tagCount)
}
