package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"sync"
	"testing"

	"github.com/ironsheep/pnid-topology/internal/pnid"
)

// createTestImage creates a simple test image file and returns its path.
// The caller is responsible for removing the file.
func createTestImage(t *testing.T, width, height int, c color.Color) string {
	t.Helper()
	img := createInMemoryImage(width, height, c)

	tmpFile, err := os.CreateTemp("", "test-image-*.png")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer tmpFile.Close()

	if err := png.Encode(tmpFile, img); err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("failed to encode image: %v", err)
	}

	return tmpFile.Name()
}

// createInMemoryImage returns a solid-color RGBA image.
func createInMemoryImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestNewImageCache(t *testing.T) {
	cache := NewImageCache(0)
	if cache == nil {
		t.Fatal("NewImageCache returned nil")
	}
	if cache.images == nil {
		t.Fatal("NewImageCache did not initialize the LRU")
	}
	if cache.Len() != 0 {
		t.Errorf("new cache Len: got %d, want 0", cache.Len())
	}
}

func TestImageCache_Load(t *testing.T) {
	cache := NewImageCache(4)
	imgPath := createTestImage(t, 100, 100, color.RGBA{255, 0, 0, 255})
	defer os.Remove(imgPath)

	img1, err := cache.Load(imgPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if img1 == nil {
		t.Fatal("Load returned nil image")
	}

	bounds := img1.Bounds()
	if bounds.Dx() != 100 || bounds.Dy() != 100 {
		t.Errorf("unexpected dimensions: got %dx%d, want 100x100", bounds.Dx(), bounds.Dy())
	}

	// Second load should return cached image
	img2, err := cache.Load(imgPath)
	if err != nil {
		t.Fatalf("second Load failed: %v", err)
	}
	if img1 != img2 {
		t.Error("second Load did not return cached image")
	}
}

func TestImageCache_Load_NonExistent(t *testing.T) {
	cache := NewImageCache(4)
	_, err := cache.Load("/nonexistent/path/to/image.png")
	if err == nil {
		t.Fatal("Load should fail for non-existent file")
	}
	if pnid.IsInputError(err) {
		t.Errorf("a missing file is an I/O failure, not an input error: %v", err)
	}
}

func TestImageCache_Load_InvalidImage(t *testing.T) {
	cache := NewImageCache(4)

	tmpFile, err := os.CreateTemp("", "invalid-image-*.png")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpFile.WriteString("not an image")
	tmpFile.Close()
	defer os.Remove(tmpFile.Name())

	_, err = cache.Load(tmpFile.Name())
	if err == nil {
		t.Fatal("Load should fail for invalid image data")
	}
	if !pnid.IsInputError(err) {
		t.Errorf("undecodable content should be an input error, got %T: %v", err, err)
	}
	if cache.Len() != 0 {
		t.Error("a failed load must not be cached")
	}
}

func TestImageCache_EvictsLeastRecentlyUsed(t *testing.T) {
	cache := NewImageCache(2)
	paths := make([]string, 3)
	for i := range paths {
		paths[i] = createTestImage(t, 10, 10, color.White)
		defer os.Remove(paths[i])
		if _, err := cache.Load(paths[i]); err != nil {
			t.Fatalf("Load(%d) failed: %v", i, err)
		}
	}

	if cache.Len() != 2 {
		t.Fatalf("Len: got %d, want 2", cache.Len())
	}
	if cache.images.Contains(paths[0]) {
		t.Error("oldest image should have been evicted")
	}
}

func TestImageCache_ClearAndEvict(t *testing.T) {
	cache := NewImageCache(4)
	imgPath := createTestImage(t, 50, 50, color.RGBA{0, 255, 0, 255})
	defer os.Remove(imgPath)

	if _, err := cache.Load(imgPath); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	cache.Evict(imgPath)
	if cache.Len() != 0 {
		t.Errorf("Evict did not remove image: %d remain", cache.Len())
	}

	if _, err := cache.Load(imgPath); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	cache.Clear()
	if cache.Len() != 0 {
		t.Errorf("Clear did not empty cache: %d remain", cache.Len())
	}

	// Should not panic
	cache.Evict("/nonexistent/path")
}

func TestImageCache_ConcurrentAccess(t *testing.T) {
	cache := NewImageCache(4)
	imgPath := createTestImage(t, 50, 50, color.RGBA{128, 128, 128, 255})
	defer os.Remove(imgPath)

	var wg sync.WaitGroup
	errs := make(chan error, 100)

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.Load(imgPath); err != nil {
				errs <- err
			}
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent Load error: %v", err)
	}
}

func TestDecodeBytes(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, createInMemoryImage(12, 7, color.Black)); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}

	img, err := DecodeBytes(buf.Bytes())
	if err != nil {
		t.Fatalf("DecodeBytes failed: %v", err)
	}
	if img.Bounds().Dx() != 12 || img.Bounds().Dy() != 7 {
		t.Errorf("dimensions: got %dx%d, want 12x7", img.Bounds().Dx(), img.Bounds().Dy())
	}

	_, err = DecodeBytes([]byte("garbage"))
	if err == nil {
		t.Fatal("DecodeBytes should fail for invalid data")
	}
	var ie *pnid.InputError
	if !errors.As(err, &ie) || ie.Field != "image" {
		t.Errorf("expected an image input error, got %T: %v", err, err)
	}
}

func TestFitWithin(t *testing.T) {
	img := createInMemoryImage(400, 200, color.White)

	tests := []struct {
		name       string
		maxDim     int
		wantW      int
		wantFactor float64
	}{
		{"disabled", 0, 400, 1},
		{"already within", 500, 400, 1},
		{"downscaled", 100, 100, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, factor := FitWithin(img, tt.maxDim)
			if out.Bounds().Dx() != tt.wantW {
				t.Errorf("width: got %d, want %d", out.Bounds().Dx(), tt.wantW)
			}
			if factor != tt.wantFactor {
				t.Errorf("factor: got %g, want %g", factor, tt.wantFactor)
			}
		})
	}
}
