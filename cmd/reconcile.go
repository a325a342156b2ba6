package cmd

import (
	"context"
	"log"

	"github.com/spf13/cobra"

	"github.com/zimablue/zima-blue/database/models"
	"github.com/zimablue/zima-blue/internal/grid"
)

var reconcileFix bool

// reconcileCmd represents the reconcile command
// 对账数据库行与存储 blob：汇报缺失的变体和无主的存储前缀，
// 并用数据库真实状态重写网格缓存文档，清掉指向已删图片的陈旧条目
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Verify stored blobs against database rows and rebuild the grid cache",
	Run: func(cmd *cobra.Command, args []string) {
		app, err := bootstrap()
		if err != nil {
			log.Fatalf("Failed to bootstrap: %v", err)
		}
		defer app.close()

		ctx := context.Background()

		all, err := app.deps.ImagesRepo.All()
		if err != nil {
			log.Fatalf("Failed to list images: %v", err)
		}

		missing := 0
		for _, image := range all {
			variantList, err := image.VariantList()
			if err != nil {
				log.Printf("Image %d has unreadable variants: %v", image.ID, err)
				continue
			}

			broken := false
			for _, v := range variantList {
				exists, err := app.storage.Exists(ctx, v.Pathname)
				if err != nil {
					log.Printf("Image %d: failed to check %s: %v", image.ID, v.Pathname, err)
					continue
				}
				if !exists {
					log.Printf("Image %d: missing blob %s (%s)", image.ID, v.Pathname, v.Size)
					broken = true
				}
			}
			if !broken {
				continue
			}
			missing++

			if reconcileFix {
				if _, err := app.deps.ImageService.Regenerate(ctx, image.ID); err != nil {
					log.Printf("Image %d: regeneration failed: %v", image.ID, err)
				} else {
					log.Printf("Image %d: regenerated", image.ID)
				}
			}
		}

		// 反向对账：存储里有前缀、数据库里没有对应行的孤儿
		owned := make(map[string]bool, len(all))
		for _, image := range all {
			owned[image.Pathname] = true
		}
		orphans := 0
		prefixes, err := app.storage.ListPrefixes(ctx)
		if err != nil {
			log.Printf("Failed to list storage prefixes: %v", err)
		}
		for _, prefix := range prefixes {
			if owned[prefix] {
				continue
			}
			orphans++
			log.Printf("Orphan prefix with no owning row: %s", prefix)

			if reconcileFix {
				// 变体名和扩展名都来自固定集合，逐一尝试删除
				names := []string{models.VariantOriginal}
				for _, step := range models.VariantLadder {
					names = append(names, step.Name)
				}
				for _, name := range names {
					for _, ext := range []string{"jpg", "png", "gif", "bmp", "tiff"} {
						_ = app.storage.DeleteWithContext(ctx, prefix+"/"+name+"."+ext)
					}
				}
				log.Printf("Orphan prefix removed: %s", prefix)
			}
		}

		// 用数据库状态重写缓存文档
		records := make([]grid.LayoutRecord, 0, len(all))
		for _, image := range all {
			records = append(records, grid.RecordFromImage(image))
		}
		grid.SortByPlacement(records)
		if err := app.deps.GridStore.PersistRecords(ctx, records); err != nil {
			log.Printf("Failed to rewrite grid cache: %v", err)
		}

		log.Printf("Reconcile finished: %d images checked, %d with missing blobs, %d orphan prefixes", len(all), missing, orphans)
	},
}

func init() {
	reconcileCmd.Flags().BoolVar(&reconcileFix, "fix", false, "regenerate variants for images with missing blobs")
	rootCmd.AddCommand(reconcileCmd)
}
