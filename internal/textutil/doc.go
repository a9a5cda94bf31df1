// Package textutil sanitizes podcast and episode titles into filesystem-safe
// path components shared by the exporter and the downloader.
package textutil
