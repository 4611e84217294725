package watcher

import "path/filepath"

// defaultExcludeDirNames mirrors the scanner's default directory exclusions
// so a live watch never registers notifiers inside build artifacts.
var defaultExcludeDirNames = map[string]bool{
	"node_modules": true, ".git": true, "dist": true, "build": true,
	"coverage": true, ".next": true, ".nuxt": true, ".cache": true,
	"vendor": true, "__pycache__": true, "target": true, "bin": true, "obj": true,
}

var sensitiveFileGlobs = []string{
	".env", ".env.*", "credentials.json", "secrets.json",
	"id_rsa", "id_rsa.pub", "id_ed25519", "id_ed25519.pub",
	"*.key", "*.pem", "*.p12",
}

func isDefaultExcludedDir(name string) bool { return defaultExcludeDirNames[name] }

func isSensitiveFile(name string) bool {
	for _, pat := range sensitiveFileGlobs {
		if matched, _ := filepath.Match(pat, name); matched {
			return true
		}
	}
	return false
}

func matchesGlobs(relPath, name string, patterns []string) bool {
	for _, p := range patterns {
		if matched, _ := filepath.Match(p, name); matched {
			return true
		}
		if matched, _ := filepath.Match(p, relPath); matched {
			return true
		}
	}
	return false
}
