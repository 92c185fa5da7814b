package media

import (
	"fmt"
	"path"
	"strings"
)

const defaultExt = ".bin"

func ItemObjectKey(pageID int64, itemID, fileName string) string {
	ext := strings.ToLower(path.Ext(strings.TrimSpace(fileName)))
	if ext == "" || len(ext) > 8 {
		ext = defaultExt
	}
	return fmt.Sprintf("pages/%d/items/%s%s", pageID, itemID, ext)
}

func ThumbnailObjectKey(pageID int64, itemID string) string {
	return fmt.Sprintf("pages/%d/thumbs/%s.jpg", pageID, itemID)
}
