package utils

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/charmbracelet/log"
)

// PathResolver locates the corpus and config files relative to the places a user is
// likely to keep them.
type PathResolver struct {
	appName       string
	executableDir string
	homeDir       string
	configDir     string
}

// NewPathResolver creates a new path resolver that determines the executable location
func NewPathResolver(appName string) (*PathResolver, error) {
	execDir, err := executableDir()
	if err != nil {
		return nil, err
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Warnf("Could not determine home directory: %v", err)
		homeDir = os.TempDir()
	}

	pr := &PathResolver{
		appName:       appName,
		executableDir: execDir,
		homeDir:       homeDir,
		configDir:     getConfigDir(homeDir, appName),
	}
	log.Debugf("PathResolver initialized: execDir=%s, configDir=%s", execDir, pr.configDir)
	return pr, nil
}

// getConfigDir returns the appropriate config directory for the platform
func getConfigDir(homeDir, appName string) string {
	switch runtime.GOOS {
	case "linux":
		if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
			return filepath.Join(configHome, appName)
		}
		return filepath.Join(homeDir, ".config", appName)
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, appName)
		}
		return filepath.Join(homeDir, "AppData", "Roaming", appName)
	default:
		return filepath.Join(homeDir, ".config", appName)
	}
}

// GetCorpusPath resolves the corpus file. It tries, in order:
// 1. the path as given (absolute, or relative to the working directory)
// 2. relative to the executable directory
// 3. inside the config directory
// If none exists the path is returned unchanged so the loader can report it.
func (pr *PathResolver) GetCorpusPath(userSpecifiedPath string) string {
	candidates := []string{userSpecifiedPath}
	if !filepath.IsAbs(userSpecifiedPath) {
		candidates = append(candidates,
			filepath.Join(pr.executableDir, userSpecifiedPath),
			filepath.Join(pr.configDir, userSpecifiedPath),
		)
	}

	for _, path := range candidates {
		if FileExists(path) {
			log.Debugf("Found corpus: %s", path)
			return path
		}
		log.Debugf("Corpus candidate not found: %s", path)
	}
	return userSpecifiedPath
}

// GetConfigPath returns the default location for a config file.
func (pr *PathResolver) GetConfigPath(filename string) string {
	return filepath.Join(pr.configDir, filename)
}

// GetConfigDir returns the config directory
func (pr *PathResolver) GetConfigDir() string {
	return pr.configDir
}

// FileExists reports whether path is an existing regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func EnsureDir(dirPath string) error {
	return os.MkdirAll(dirPath, 0755)
}

// AbsPath returns path made absolute, or path itself if that fails.
func AbsPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

func executableDir() (string, error) {
	execPath, err := os.Executable()
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(execPath); err == nil {
		execPath = resolved
	}
	return filepath.Dir(execPath), nil
}
