package hook

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
)

var textExtensions = map[string]bool{
	".ts": true, ".tsx": true, ".js": true, ".jsx": true, ".mjs": true, ".cjs": true,
	".py": true, ".pyi": true, ".pyw": true,
	".java": true, ".go": true, ".rs": true, ".dart": true, ".kt": true, ".kts": true,
	".swift": true, ".cs": true, ".php": true, ".rb": true,
	".json": true, ".jsonl": true, ".yaml": true, ".yml": true, ".toml": true, ".xml": true,
	".html": true, ".htm": true, ".css": true, ".scss": true, ".sass": true, ".less": true,
	".md": true, ".mdx": true, ".txt": true, ".rst": true, ".tex": true,
	".sh": true, ".bash": true, ".zsh": true, ".fish": true, ".bat": true, ".cmd": true, ".ps1": true,
	".sql": true, ".graphql": true, ".gql": true,
	".c": true, ".h": true, ".cpp": true, ".hpp": true, ".cc": true, ".hh": true, ".cxx": true, ".hxx": true,
	".m": true, ".mm": true, ".r": true,
	".lua": true, ".vim": true, ".el": true, ".ex": true, ".exs": true, ".erl": true, ".hrl": true,
	".hs": true, ".lhs": true, ".ml": true, ".mli": true, ".fs": true, ".fsi": true, ".fsx": true,
	".scala": true, ".sbt": true, ".clj": true, ".cljs": true, ".cljc": true,
	".tf": true, ".tfvars": true, ".hcl": true,
	".env": true, ".ini": true, ".cfg": true, ".conf": true, ".properties": true,
	".csv": true, ".tsv": true,
}

var binaryExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".bmp": true, ".ico": true, ".svg": true, ".webp": true,
	".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true, ".ppt": true, ".pptx": true,
	".zip": true, ".tar": true, ".gz": true, ".bz2": true, ".xz": true, ".7z": true, ".rar": true,
	".exe": true, ".dll": true, ".so": true, ".dylib": true, ".a": true, ".o": true, ".obj": true,
	".wasm": true, ".class": true, ".pyc": true, ".pyo": true,
	".mp3": true, ".mp4": true, ".wav": true, ".avi": true, ".mkv": true, ".mov": true,
	".woff": true, ".woff2": true, ".ttf": true, ".otf": true, ".eot": true,
	".lock": true,
}

var textBaseNames = map[string]bool{
	"makefile": true, "dockerfile": true, "rakefile": true, "gemfile": true,
	"procfile": true, "brewfile": true, "vagrantfile": true,
	"license": true, "licence": true, "readme": true, "changelog": true,
	"authors": true, "contributors": true, "todo": true, "news": true,
}

// IsTextFile guesses whether path holds text: first by extension, then by
// well-known base name, and finally by looking for a NUL byte in the first
// 512 bytes. Unreadable files are not text.
func IsTextFile(path string) bool {
	base := strings.ToLower(filepath.Base(path))
	if strings.HasSuffix(base, ".min.js") || strings.HasSuffix(base, ".min.css") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(path))
	if textExtensions[ext] {
		return true
	}
	if binaryExtensions[ext] {
		return false
	}
	if textBaseNames[base] {
		return true
	}

	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	buf := make([]byte, 512)
	n, _ := f.Read(buf)
	return !bytes.Contains(buf[:n], []byte{0})
}
