package controllers

import (
	"context"
	"errors"
	"testing"
)

type fakeFileRemover struct {
	removed []string
	fail    map[string]bool
}

func (f *fakeFileRemover) Delete(_ context.Context, key string) error {
	if f.fail[key] {
		return errors.New("remove failed")
	}
	f.removed = append(f.removed, key)
	return nil
}

func withFileStore(t *testing.T, s fileRemover) {
	t.Helper()
	prev := fileStore
	fileStore = s
	t.Cleanup(func() { fileStore = prev })
}

func TestRemoveStoredFilesSkipsEmptyKeys(t *testing.T) {
	fake := &fakeFileRemover{}
	withFileStore(t, fake)

	removeStoredFiles(context.Background(), []string{"", "t1/b1/a.jpg", "", "t1/b1/b.pdf"})

	if len(fake.removed) != 2 || fake.removed[0] != "t1/b1/a.jpg" || fake.removed[1] != "t1/b1/b.pdf" {
		t.Errorf("removed = %v", fake.removed)
	}
}

func TestRemoveStoredFilesContinuesPastFailures(t *testing.T) {
	fake := &fakeFileRemover{fail: map[string]bool{"t1/b1/a.jpg": true}}
	withFileStore(t, fake)

	removeStoredFiles(context.Background(), []string{"t1/b1/a.jpg", "t1/b1/b.pdf"})

	if len(fake.removed) != 1 || fake.removed[0] != "t1/b1/b.pdf" {
		t.Errorf("removed = %v, want the non-failing key only", fake.removed)
	}
}

func TestRemoveStoredFilesNoStoreConfigured(t *testing.T) {
	withFileStore(t, nil)
	removeStoredFiles(context.Background(), []string{"t1/b1/a.jpg"})
}

func TestPageWindow(t *testing.T) {
	cases := []struct {
		name       string
		limit      string
		offset     string
		wantLimit  int
		wantOffset int
	}{
		{"defaults", "", "", 50, 0},
		{"explicit", "25", "100", 25, 100},
		{"zero limit falls back", "0", "", 50, 0},
		{"oversized limit clamped", "5000", "", 50, 0},
		{"junk falls back", "abc", "-3", 50, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			limit, offset := pageWindow(tc.limit, tc.offset)
			if limit != tc.wantLimit || offset != tc.wantOffset {
				t.Errorf("pageWindow(%q, %q) = %d/%d, want %d/%d",
					tc.limit, tc.offset, limit, offset, tc.wantLimit, tc.wantOffset)
			}
		})
	}
}
