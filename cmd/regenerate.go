package cmd

import (
	"context"
	"log"
	"strconv"

	"github.com/spf13/cobra"
)

// regenerateCmd represents the regenerate command
// 不带参数时重建全部图片的变体阶梯，带 id 参数时只处理指定图片
var regenerateCmd = &cobra.Command{
	Use:   "regenerate [id...]",
	Short: "Rebuild the resize ladder for stored images",
	Run: func(cmd *cobra.Command, args []string) {
		app, err := bootstrap()
		if err != nil {
			log.Fatalf("Failed to bootstrap: %v", err)
		}
		defer app.close()

		var ids []uint
		if len(args) > 0 {
			for _, arg := range args {
				id, err := strconv.ParseUint(arg, 10, 64)
				if err != nil {
					log.Fatalf("Invalid image id: %s", arg)
				}
				ids = append(ids, uint(id))
			}
		} else {
			all, err := app.deps.ImagesRepo.All()
			if err != nil {
				log.Fatalf("Failed to list images: %v", err)
			}
			for _, image := range all {
				ids = append(ids, image.ID)
			}
		}

		ctx := context.Background()
		succeeded, failed := 0, 0
		for _, id := range ids {
			if _, err := app.deps.ImageService.Regenerate(ctx, id); err != nil {
				log.Printf("Failed to regenerate image %d: %v", id, err)
				failed++
				continue
			}
			succeeded++
		}

		log.Printf("Regeneration finished: %d succeeded, %d failed", succeeded, failed)
	},
}

func init() {
	rootCmd.AddCommand(regenerateCmd)
}
