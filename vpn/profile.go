// Package vpn supervises OpenVPN client connections.
// This file contains profile discovery, validation, and import.
package vpn

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/yllada/ovpnctl/common"
)

// Profile describes an OpenVPN configuration file discovered on disk.
// Profiles are identified by their file name without extension.
type Profile struct {
	// Name is the file name without its extension.
	Name string
	// Path is the absolute path to the configuration file.
	Path string
	// Size is the file size in bytes.
	Size int64
	// ModTime is the file's last modification time.
	ModTime time.Time
}

// Validate checks that the profile's file still looks like an OpenVPN
// client configuration.
func (p Profile) Validate() error {
	return validateConfigFile(p.Path)
}

// DiscoverProfiles lists the OpenVPN configuration files (.ovpn or
// .conf) in dir, sorted by name. A missing directory yields an empty
// list rather than an error.
func DiscoverProfiles(dir string) ([]Profile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read profile directory: %w", err)
	}

	var profiles []Profile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".ovpn" && ext != ".conf" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		profiles = append(profiles, Profile{
			Name:    strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name())),
			Path:    filepath.Join(dir, entry.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(profiles, func(i, j int) bool {
		return profiles[i].Name < profiles[j].Name
	})
	return profiles, nil
}

// FindProfile locates a profile by name. Matching is case-insensitive;
// an exact match wins, otherwise the first prefix match is used.
func FindProfile(profiles []Profile, name string) (Profile, error) {
	query := strings.ToLower(strings.TrimSpace(name))
	if query == "" {
		return Profile{}, common.ErrProfileNotFound
	}

	for _, p := range profiles {
		if strings.ToLower(p.Name) == query {
			return p, nil
		}
	}
	for _, p := range profiles {
		if strings.HasPrefix(strings.ToLower(p.Name), query) {
			return p, nil
		}
	}
	return Profile{}, common.ErrProfileNotFound
}

// ImportProfile validates src and copies it into dir, returning the
// imported profile. An existing file with the same name is overwritten.
func ImportProfile(dir, src string) (Profile, error) {
	if err := validateConfigFile(src); err != nil {
		return Profile{}, err
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return Profile{}, fmt.Errorf("failed to create profile directory: %w", err)
	}

	dest := filepath.Join(dir, filepath.Base(src))
	if err := copyFile(src, dest); err != nil {
		return Profile{}, err
	}

	info, err := os.Stat(dest)
	if err != nil {
		return Profile{}, fmt.Errorf("failed to stat imported profile: %w", err)
	}

	return Profile{
		Name:    strings.TrimSuffix(filepath.Base(dest), filepath.Ext(dest)),
		Path:    dest,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// validateConfigFile checks if the given file is a valid OpenVPN configuration.
func validateConfigFile(path string) error {
	// Check file exists
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("file not found: %w", err)
	}

	// Check it's a regular file
	if info.IsDir() {
		return common.ErrInvalidConfig
	}

	// Check file extension
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".ovpn" && ext != ".conf" {
		return fmt.Errorf("%w: expected .ovpn or .conf extension", common.ErrInvalidConfig)
	}

	// Read and validate file content
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	content := string(data)
	// Check for common OpenVPN directives
	requiredDirectives := []string{"remote", "client"}
	hasRequired := false
	for _, directive := range requiredDirectives {
		if strings.Contains(content, directive) {
			hasRequired = true
			break
		}
	}

	if !hasRequired {
		return fmt.Errorf("%w: missing required OpenVPN directives", common.ErrInvalidConfig)
	}

	return nil
}

// copyFile copies a file from src to dst with secure permissions.
func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("failed to read source file: %w", err)
	}
	if err := os.WriteFile(dst, data, 0600); err != nil {
		return fmt.Errorf("failed to write destination file: %w", err)
	}
	return nil
}
