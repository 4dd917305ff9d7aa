// Package ui provides the embedded phone upload page.
//
// The page is served unauthenticated; it reads the session token from
// its own query string and sends it with each upload.
package ui

import (
	_ "embed"
	"mime"
	"path"
)

// UploadHTML is the upload page served at / and /upload.
//
//go:embed upload.html
var UploadHTML []byte

// UploadJS drives file selection and the multipart upload.
//
//go:embed upload.js
var UploadJS []byte

// UploadCSS styles the upload page.
//
//go:embed upload.css
var UploadCSS []byte

var assets = map[string][]byte{
	"upload.html": UploadHTML,
	"upload.js":   UploadJS,
	"upload.css":  UploadCSS,
}

// Asset returns an embedded file by name and its content type.
func Asset(name string) ([]byte, string, bool) {
	data, ok := assets[name]
	if !ok {
		return nil, "", false
	}
	ctype := mime.TypeByExtension(path.Ext(name))
	if ctype == "" {
		ctype = "application/octet-stream"
	}
	return data, ctype, true
}
