package blob

import (
	"mime"
	"path"
	"strings"
)

// rasterTypes are the picture formats browsers render inline without
// running any embedded markup.
var rasterTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/bmp":  ".bmp",
	"image/avif": ".avif",
}

// opaqueExt marks stored files whose declared type is not a raster image.
const opaqueExt = ".bin"

// extFor returns the extension a picture is stored under. It depends only on
// the declared type, never on the uploaded file name.
func extFor(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return opaqueExt
	}
	if ext, ok := rasterTypes[mt]; ok {
		return ext
	}
	return opaqueExt
}

// storedType is the Content-Type written next to a stored object.
func storedType(ext string) string {
	for t, e := range rasterTypes {
		if e == ext {
			return t
		}
	}
	return "application/octet-stream"
}

// ServedType reports the Content-Type a stored file name is served with and
// whether it may be displayed inline.
func ServedType(name string) (string, bool) {
	ct := storedType(strings.ToLower(path.Ext(name)))
	return ct, ct != "application/octet-stream"
}

// storedName keeps a readable stem of the uploaded name and swaps its
// extension for the one derived from contentType.
func storedName(name, contentType string) string {
	n := cleanName(name)
	stem := strings.TrimSuffix(n, path.Ext(n))
	if stem == "" {
		stem = "upload"
	}
	return stem + extFor(contentType)
}
