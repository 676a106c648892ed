package stamp_test

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/zatca-qr/internal/render"
	"github.com/rezonia/zatca-qr/internal/stamp"
)

var pngMagic = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

func TestOptions_Description(t *testing.T) {
	tests := []struct {
		name     string
		opts     stamp.Options
		expected string
	}{
		{
			name:     "defaults",
			opts:     stamp.DefaultOptions(),
			expected: "position:br, scalefactor:0.5 abs, offset:-20 20, rotation:0",
		},
		{
			name:     "relative top left",
			opts:     stamp.Options{Position: "tl", Scale: 0.25, Relative: true, OffsetX: 12.5},
			expected: "position:tl, scalefactor:0.25 rel, offset:12.5 0, rotation:0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.opts.Description())
		})
	}
}

func TestOptions_Validate(t *testing.T) {
	require.NoError(t, stamp.DefaultOptions().Validate())

	tests := []struct {
		name string
		opts stamp.Options
	}{
		{"unknown position", stamp.Options{Position: "middle", Scale: 1}},
		{"zero scale", stamp.Options{Position: "br"}},
		{"negative scale", stamp.Options{Position: "br", Scale: -1}},
		{"relative above one", stamp.Options{Position: "br", Scale: 1.5, Relative: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.opts.Validate(), stamp.ErrInvalidOption)
		})
	}
}

func TestNewStamper_FillsDefaults(t *testing.T) {
	s, err := stamp.NewStamper(stamp.Options{Pages: []string{"2-3"}})
	require.NoError(t, err)

	opts := s.Options()
	assert.Equal(t, "br", opts.Position)
	assert.Equal(t, 0.5, opts.Scale)
	assert.Equal(t, []string{"2-3"}, opts.Pages)

	// Zero options stamp the first page only, like DefaultOptions
	s, err = stamp.NewStamper(stamp.Options{})
	require.NoError(t, err)
	assert.Equal(t, stamp.DefaultOptions().Pages, s.Options().Pages)
	assert.Equal(t, []string{"1"}, s.Options().Pages)

	_, err = stamp.NewStamper(stamp.Options{Position: "nowhere"})
	require.ErrorIs(t, err, stamp.ErrInvalidOption)
}

func TestStamp_RejectsBadImageBeforeReadingPDF(t *testing.T) {
	s, err := stamp.NewStamper(stamp.DefaultOptions())
	require.NoError(t, err)

	var out bytes.Buffer
	err = s.Stamp(context.Background(), bytes.NewReader(nil), &out, nil)
	require.ErrorIs(t, err, stamp.ErrEmptyImage)

	err = s.Stamp(context.Background(), bytes.NewReader(nil), &out, []byte("GIF89a"))
	require.ErrorIs(t, err, stamp.ErrInvalidImage)
	assert.Zero(t, out.Len())
}

func TestStamp_CancelledContext(t *testing.T) {
	s, err := stamp.NewStamper(stamp.DefaultOptions())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = s.Stamp(ctx, bytes.NewReader(nil), &bytes.Buffer{}, pngMagic)
	require.ErrorIs(t, err, context.Canceled)
}

func TestStampFile_Validation(t *testing.T) {
	s, err := stamp.NewStamper(stamp.DefaultOptions())
	require.NoError(t, err)

	ctx := context.Background()
	require.ErrorIs(t, s.StampFile(ctx, "", "out.pdf", pngMagic), stamp.ErrEmptyPath)
	require.ErrorIs(t, s.StampFile(ctx, "in.pdf", "", pngMagic), stamp.ErrEmptyPath)
	require.ErrorIs(t, s.StampFile(ctx, "in.pdf", "out.pdf", nil), stamp.ErrEmptyImage)

	err = s.StampFile(ctx, t.TempDir()+"/missing.pdf", t.TempDir()+"/out.pdf", pngMagic)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open")
}

func TestPageCount_InvalidPDF(t *testing.T) {
	s, err := stamp.NewStamper(stamp.DefaultOptions())
	require.NoError(t, err)

	_, err = s.PageCount(bytes.NewReader([]byte("not a pdf")))
	require.Error(t, err)
}

// minimalPDF builds a blank A4 document with the given number of pages
func minimalPDF(pages int) []byte {
	var buf bytes.Buffer
	offsets := make([]int, 0, pages+2)

	buf.WriteString("%PDF-1.4\n")
	offsets = append(offsets, buf.Len())
	buf.WriteString("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")

	kids := ""
	for i := 0; i < pages; i++ {
		kids += fmt.Sprintf("%d 0 R ", 3+i)
	}
	offsets = append(offsets, buf.Len())
	fmt.Fprintf(&buf, "2 0 obj\n<< /Type /Pages /Kids [%s] /Count %d >>\nendobj\n", kids, pages)

	for i := 0; i < pages; i++ {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 595 842] /Resources << >> >>\nendobj\n", 3+i)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

func qrImage(t *testing.T) []byte {
	t.Helper()
	img, err := render.EncodePNG("AQlBY21lIENvcnA=", render.Options{Size: 128})
	require.NoError(t, err)
	return img
}

func TestStamp_WritesPDF(t *testing.T) {
	s, err := stamp.NewStamper(stamp.Options{})
	require.NoError(t, err)

	n, err := s.PageCount(bytes.NewReader(minimalPDF(2)))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var out bytes.Buffer
	require.NoError(t, s.Stamp(context.Background(), bytes.NewReader(minimalPDF(2)), &out, qrImage(t)))
	assert.True(t, bytes.HasPrefix(out.Bytes(), []byte("%PDF")))

	n, err = s.PageCount(bytes.NewReader(out.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestStampFile_InPlaceKeepsPermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permission bits")
	}

	path := filepath.Join(t.TempDir(), "invoice.pdf")
	require.NoError(t, os.WriteFile(path, minimalPDF(1), 0o644))
	require.NoError(t, os.Chmod(path, 0o640))

	s, err := stamp.NewStamper(stamp.DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, s.StampFile(context.Background(), path, path, qrImage(t)))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Greater(t, len(data), len(minimalPDF(1)))

	// No temp files are left next to the output
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
