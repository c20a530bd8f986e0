package converter

import (
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

// IsImageType reports whether a declared content type is an image type.
func IsImageType(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/")
}

// GetContentTypeFromFilename guesses a content type from the file extension.
// It is used when a file arrives without a declared type.
func GetContentTypeFromFilename(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".jpg", ".jpeg", ".jfif":
		return mimeJPEG
	case ".png":
		return mimePNG
	case ".webp":
		return mimeWebP
	case ".gif":
		return mimeGIF
	case ".bmp":
		return mimeBMP
	case ".tif", ".tiff":
		return mimeTIFF
	case "":
		return ""
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return NormalizeMIME(t)
	}
	return ""
}

// DetectContentType resolves the type of a file: the declared type wins unless it
// is empty or generic, then the extension, then content sniffing.
func DetectContentType(declared, filename string, head []byte) string {
	declared = NormalizeMIME(declared)
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if t := GetContentTypeFromFilename(filename); t != "" {
		return t
	}
	if len(head) > 0 {
		return NormalizeMIME(http.DetectContentType(head))
	}
	return declared
}

// EmbedFormat names the image type passed to the document writer. The produced
// bitmap's subtype wins; an indeterminate subtype falls back to the original's,
// and finally to JPEG.
func EmbedFormat(outputType, originalType string) string {
	for _, t := range []string{outputType, originalType} {
		_, sub, ok := strings.Cut(NormalizeMIME(t), "/")
		if !ok || sub == "" {
			continue
		}
		switch sub {
		case "jpeg":
			return "JPEG"
		case "png":
			return "PNG"
		case "gif":
			return "GIF"
		}
	}
	return "JPEG"
}
