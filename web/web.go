// web/web.go
package web

import "embed"

// FS 页面模板和静态资源，编译进二进制
//
//go:embed templates static
var FS embed.FS
