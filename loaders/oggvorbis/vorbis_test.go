package oggvorbis_test

import (
	"testing"

	"golang.org/x/tools/godoc/vfs/mapfs"

	"github.com/Lundis/go-audioperf/loaders/oggvorbis"
)

func TestLoadGarbage(t *testing.T) {
	if _, err := oggvorbis.Load([]byte("not an ogg stream"), 48000); err == nil {
		t.Fatal("should not load garbage without error")
	}
	if _, err := oggvorbis.Load(nil, 48000); err == nil {
		t.Fatal("should not load empty data without error")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := oggvorbis.LoadFile("does_not_exist.ogg", 48000); err == nil {
		t.Fatal("missing file should error")
	}

	fs := mapfs.New(map[string]string{})
	if _, err := oggvorbis.LoadVFSFile(fs, "/missing.ogg", 48000); err == nil {
		t.Fatal("missing vfs file should error")
	}
}
