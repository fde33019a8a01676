package s3io

import (
	"path"
	"strings"

	"github.com/google/uuid"
)

// Content types accepted for uploaded forms; these are the formats the text
// extraction service reads synchronously.
var contentTypes = map[string]string{
	".pdf":  "application/pdf",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
}

// DefaultUploadPrefix is where uploaded forms land and where the intake trigger listens.
const DefaultUploadPrefix = "uploads/"

// UploadKey builds the object key for an uploaded file: <prefix><base filename>.
// Directory components of the client-supplied name are dropped.
func UploadKey(prefix, filename string) string {
	if prefix == "" {
		prefix = DefaultUploadPrefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(filename), `\`, "/"))
	return prefix + name
}

// ContentTypeFor returns the content type for a form filename, or "" when the
// extension is not an accepted form format.
func ContentTypeFor(filename string) string {
	return contentTypes[strings.ToLower(path.Ext(filename))]
}

// FormID derives the stable record id for an object location. The same
// bucket/key always yields the same id, so re-ingestion addresses the same record.
func FormID(bucket, key string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("s3://"+bucket+"/"+key)).String()
}

// Filename returns the original filename portion of an upload key.
func Filename(key string) string {
	return path.Base(key)
}
