package ingest

import (
	"fmt"
	"os"
	"time"

	exiflib "github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".tif":  true,
	".tiff": true,
}

// IsImageExtension reports whether a lowercased file extension belongs to a
// format that can carry EXIF data.
func IsImageExtension(ext string) bool {
	return imageExtensions[ext]
}

// CaptureTime returns the EXIF capture timestamp for an image file. On any
// error (non-image data, missing EXIF block, read failure) it returns the
// zero time.
func CaptureTime(path string) time.Time {
	f, err := os.Open(path)
	if err != nil {
		return time.Time{}
	}
	defer f.Close()

	x, err := exiflib.Decode(f)
	if err != nil {
		return time.Time{}
	}

	taken, err := x.DateTime()
	if err != nil {
		return time.Time{}
	}
	return taken
}

// ExtractTags returns a flat map of EXIF tag names to their string values
// for an image file, or nil if the file carries no readable EXIF data.
func ExtractTags(path string) map[string]string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	x, err := exiflib.Decode(f)
	if err != nil {
		return nil
	}

	tags := make(map[string]string)
	if err := x.Walk(exifWalker{tags}); err != nil {
		return nil
	}
	return tags
}

type exifWalker struct {
	tags map[string]string
}

func (w exifWalker) Walk(name exiflib.FieldName, tag *tiff.Tag) error {
	w.tags[fmt.Sprint(name)] = tag.String()
	return nil
}
