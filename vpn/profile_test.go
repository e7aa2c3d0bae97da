package vpn

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/yllada/ovpnctl/common"
)

const sampleOVPN = `client
dev tun
proto udp
remote vpn.example.com 1194
auth-user-pass
`

func writeProfile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDiscoverProfiles(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "work.ovpn", sampleOVPN)
	writeProfile(t, dir, "home.conf", sampleOVPN)
	writeProfile(t, dir, "notes.txt", "not a profile")
	if err := os.Mkdir(filepath.Join(dir, "sub.ovpn"), 0700); err != nil {
		t.Fatal(err)
	}

	profiles, err := DiscoverProfiles(dir)
	if err != nil {
		t.Fatalf("DiscoverProfiles() error = %v", err)
	}

	if len(profiles) != 2 {
		t.Fatalf("DiscoverProfiles() returned %d profiles, want 2", len(profiles))
	}
	// Sorted by name
	if profiles[0].Name != "home" || profiles[1].Name != "work" {
		t.Errorf("profiles = [%s %s], want [home work]", profiles[0].Name, profiles[1].Name)
	}
	if profiles[1].Path != filepath.Join(dir, "work.ovpn") {
		t.Errorf("Path = %v, want %v", profiles[1].Path, filepath.Join(dir, "work.ovpn"))
	}
	if profiles[0].Size == 0 {
		t.Error("Size should be populated")
	}
}

func TestDiscoverProfiles_MissingDir(t *testing.T) {
	profiles, err := DiscoverProfiles(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("DiscoverProfiles() error = %v, want nil for missing dir", err)
	}
	if len(profiles) != 0 {
		t.Errorf("DiscoverProfiles() = %v, want empty", profiles)
	}
}

func TestFindProfile(t *testing.T) {
	profiles := []Profile{
		{Name: "homelab"},
		{Name: "office"},
		{Name: "office-backup"},
	}

	tests := []struct {
		query    string
		expected string
		wantErr  bool
	}{
		{"office", "office", false},
		{"OFFICE", "office", false},
		{"home", "homelab", false},
		{"office-b", "office-backup", false},
		{"  homelab  ", "homelab", false},
		{"nowhere", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			p, err := FindProfile(profiles, tt.query)
			if tt.wantErr {
				if !errors.Is(err, common.ErrProfileNotFound) {
					t.Errorf("FindProfile(%q) error = %v, want %v", tt.query, err, common.ErrProfileNotFound)
				}
				return
			}
			if err != nil {
				t.Fatalf("FindProfile(%q) error = %v", tt.query, err)
			}
			if p.Name != tt.expected {
				t.Errorf("FindProfile(%q) = %v, want %v", tt.query, p.Name, tt.expected)
			}
		})
	}
}

func TestImportProfile(t *testing.T) {
	srcDir := t.TempDir()
	destDir := filepath.Join(t.TempDir(), "profiles")
	src := writeProfile(t, srcDir, "corp.ovpn", sampleOVPN)

	profile, err := ImportProfile(destDir, src)
	if err != nil {
		t.Fatalf("ImportProfile() error = %v", err)
	}

	if profile.Name != "corp" {
		t.Errorf("Name = %v, want corp", profile.Name)
	}
	if profile.Path != filepath.Join(destDir, "corp.ovpn") {
		t.Errorf("Path = %v, want file inside destination dir", profile.Path)
	}
	if !common.FileExists(profile.Path) {
		t.Error("imported file should exist")
	}

	info, err := os.Stat(profile.Path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("imported file mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestImportProfile_RejectsInvalid(t *testing.T) {
	srcDir := t.TempDir()
	destDir := t.TempDir()

	badExt := writeProfile(t, srcDir, "config.txt", sampleOVPN)
	if _, err := ImportProfile(destDir, badExt); !errors.Is(err, common.ErrInvalidConfig) {
		t.Errorf("ImportProfile(bad extension) error = %v, want %v", err, common.ErrInvalidConfig)
	}

	noDirectives := writeProfile(t, srcDir, "empty.ovpn", "# nothing useful\n")
	if _, err := ImportProfile(destDir, noDirectives); !errors.Is(err, common.ErrInvalidConfig) {
		t.Errorf("ImportProfile(no directives) error = %v, want %v", err, common.ErrInvalidConfig)
	}

	if _, err := ImportProfile(destDir, filepath.Join(srcDir, "missing.ovpn")); err == nil {
		t.Error("ImportProfile(missing file) should fail")
	}
}

func TestProfile_Validate(t *testing.T) {
	dir := t.TempDir()
	good := Profile{Name: "good", Path: writeProfile(t, dir, "good.ovpn", sampleOVPN)}
	if err := good.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	bad := Profile{Name: "bad", Path: writeProfile(t, dir, "bad.ovpn", "nonsense\n")}
	if err := bad.Validate(); !errors.Is(err, common.ErrInvalidConfig) {
		t.Errorf("Validate() error = %v, want %v", err, common.ErrInvalidConfig)
	}
}
