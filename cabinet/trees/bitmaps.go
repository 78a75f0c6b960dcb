package trees

import (
	"strings"

	roaring "github.com/RoaringBitmap/roaring"
)

// ExtensionBitmaps holds roaring bitmaps keyed by lowercase file extension.
// Example: ".txt" -> bitmap of entry ids with that extension. The type is
// not self-synchronized; the coordinator mutates it only under its write
// lock.
type ExtensionBitmaps struct {
	Ext map[string]*roaring.Bitmap
}

func NewExtensionBitmaps() *ExtensionBitmaps {
	return &ExtensionBitmaps{Ext: make(map[string]*roaring.Bitmap)}
}

// Add marks entry id as carrying ext.
func (eb *ExtensionBitmaps) Add(ext string, id uint32) {
	ext = strings.ToLower(ext)
	bm, ok := eb.Ext[ext]
	if !ok {
		bm = roaring.New()
		eb.Ext[ext] = bm
	}
	bm.Add(id)
}

// Remove clears entry id from ext's bitmap, dropping the bitmap when it
// empties. Needed when an update-in-place changes an entry's extension.
func (eb *ExtensionBitmaps) Remove(ext string, id uint32) {
	ext = strings.ToLower(ext)
	bm, ok := eb.Ext[ext]
	if !ok {
		return
	}
	bm.Remove(id)
	if bm.IsEmpty() {
		delete(eb.Ext, ext)
	}
}

// Query returns a copy of the id bitmap for one extension.
func (eb *ExtensionBitmaps) Query(ext string) *roaring.Bitmap {
	return eb.clone(eb.Ext[strings.ToLower(ext)])
}

// Union returns the ids carrying any of the given extensions. An entry has
// exactly one extension, so unions answer "any image file" style filters.
func (eb *ExtensionBitmaps) Union(exts ...string) *roaring.Bitmap {
	res := roaring.New()
	for _, ext := range exts {
		if bm, ok := eb.Ext[strings.ToLower(ext)]; ok {
			res.Or(bm)
		}
	}
	return res
}

// Extensions returns the distinct extensions recorded so far.
func (eb *ExtensionBitmaps) Extensions() []string {
	exts := make([]string, 0, len(eb.Ext))
	for ext := range eb.Ext {
		exts = append(exts, ext)
	}
	return exts
}

// Clear drops all recorded bitmaps.
func (eb *ExtensionBitmaps) Clear() {
	eb.Ext = make(map[string]*roaring.Bitmap)
}

func (eb *ExtensionBitmaps) clone(b *roaring.Bitmap) *roaring.Bitmap {
	if b == nil {
		return roaring.New()
	}
	c := roaring.New()
	c.Or(b) // copy
	return c
}
