package render

import (
	"path/filepath"
	"strconv"
	"strings"
)

// RelativePath shortens file for display: relative to root when inside it,
// else from a vendor/ segment or the module cache onward, else without the
// leading separator.
func RelativePath(file, root string) string {
	if file == "" {
		return ""
	}
	f := filepath.ToSlash(file)
	if root != "" {
		r := strings.TrimRight(filepath.ToSlash(root), "/")
		if strings.HasPrefix(f, r+"/") {
			return f[len(r)+1:]
		}
	}
	if i := strings.Index(f, "/vendor/"); i >= 0 {
		return f[i+1:]
	}
	if i := strings.Index(f, "/pkg/mod/"); i >= 0 {
		return f[i+len("/pkg/mod/"):]
	}
	return strings.TrimLeft(f, "/")
}

// EditorLink fills the %file and %line placeholders of tmpl. A file under
// root is remapped to hostRoot when one is set; any other file is used
// unchanged. Returns "" when tmpl, file or line is missing.
func EditorLink(tmpl, file string, line int, root, hostRoot string) string {
	if tmpl == "" || file == "" || line <= 0 {
		return ""
	}
	path := file
	if root != "" && hostRoot != "" {
		r := strings.TrimRight(root, "/")
		if path == r || strings.HasPrefix(path, r+"/") {
			path = strings.TrimRight(hostRoot, "/") + path[len(r):]
		}
	}
	return strings.NewReplacer("%file", path, "%line", strconv.Itoa(line)).Replace(tmpl)
}
