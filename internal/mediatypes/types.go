package mediatypes

// ImageExtensions maps file extensions to whether they are supported
// image formats for scanning and fingerprinting.
var ImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".tiff": true,
	".tif":  true,
	".webp": true,
	".heic": true,
	".heif": true,
}

// IgnoredExtensions maps file extensions that must never be scanned, even
// if one accidentally shows up in ImageExtensions as well. Covers videos,
// audio, documents, archives, and code.
var IgnoredExtensions = map[string]bool{
	// Video formats
	".mp4": true, ".mov": true, ".avi": true, ".mkv": true, ".wmv": true,
	".flv": true, ".webm": true, ".m4v": true, ".mpg": true, ".mpeg": true,
	".3gp": true, ".3g2": true, ".mts": true, ".m2ts": true, ".ts": true,
	".vob": true, ".ogv": true, ".divx": true, ".xvid": true,

	// Audio formats
	".mp3": true, ".wav": true, ".flac": true, ".aac": true, ".ogg": true,
	".wma": true, ".m4a": true, ".aiff": true, ".alac": true,

	// Document formats
	".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true,
	".ppt": true, ".pptx": true, ".txt": true, ".rtf": true,

	// Archives, executables, code, and other noise
	".zip": true, ".rar": true, ".7z": true, ".tar": true, ".gz": true,
	".dmg": true, ".iso": true, ".exe": true, ".app": true,
	".json": true, ".xml": true, ".html": true, ".css": true, ".js": true,
	".py": true, ".md": true, ".csv": true,
}

// MimeTypes maps image extensions to their MIME types.
var MimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".tiff": "image/tiff",
	".tif":  "image/tiff",
	".webp": "image/webp",
	".heic": "image/heic",
	".heif": "image/heif",
}

// IsScanCandidate reports whether a file with the given extension should be
// picked up by the discoverer. The extension should be lowercase and include
// the leading dot (e.g., ".jpg"). The ignore set is authoritative: an
// extension present in both sets is rejected.
func IsScanCandidate(ext string) bool {
	if IgnoredExtensions[ext] {
		return false
	}
	return ImageExtensions[ext]
}

// GetMimeType returns the MIME type for a given image extension.
// Returns "application/octet-stream" if the extension is not recognized.
func GetMimeType(ext string) string {
	if mime, ok := MimeTypes[ext]; ok {
		return mime
	}
	return "application/octet-stream"
}
