package handler

import (
	"mime"
	"path"
	"strings"
)

func builtinMimeTypes() map[string]string {
	return map[string]string{
		"js": "application/javascript",
	}
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// contentType picks the media type by extension of the request path. The
// default content type is used as is, a resolved type gets the default
// charset unless it names one.
func (h *Handler) contentType(requestPath string) string {
	ext := normalizeExt(path.Ext(requestPath))
	if ext == "" {
		return h.defaultContentType
	}

	mediaType, ok := h.mimeTypes[ext]
	if !ok {
		mediaType = mime.TypeByExtension("." + ext)
	}
	if mediaType == "" {
		return h.defaultContentType
	}

	base, params, err := mime.ParseMediaType(mediaType)
	if err != nil {
		return h.defaultContentType
	}
	if _, ok := params["charset"]; !ok && h.defaultCharset != "" {
		params["charset"] = h.defaultCharset
	}
	return mime.FormatMediaType(base, params)
}
