package camera

import (
	"image"
	"testing"
)

func TestDecodeYUYV(t *testing.T) {
	// 2x1 frame: Y0=10 Cb=20 Y1=30 Cr=40.
	frame := []byte{10, 20, 30, 40}
	img, err := decodeYUYV(frame, 2, 1)
	if err != nil {
		t.Fatalf("decodeYUYV failed: %v", err)
	}

	ycbcr, ok := img.(*image.YCbCr)
	if !ok {
		t.Fatalf("expected *image.YCbCr, got %T", img)
	}
	if ycbcr.SubsampleRatio != image.YCbCrSubsampleRatio422 {
		t.Errorf("expected 4:2:2 subsampling, got %v", ycbcr.SubsampleRatio)
	}
	if ycbcr.Bounds().Dx() != 2 || ycbcr.Bounds().Dy() != 1 {
		t.Errorf("expected 2x1 bounds, got %v", ycbcr.Bounds())
	}
	if ycbcr.Y[0] != 10 || ycbcr.Y[1] != 30 {
		t.Errorf("expected luma [10 30], got [%d %d]", ycbcr.Y[0], ycbcr.Y[1])
	}
	if ycbcr.Cb[0] != 20 || ycbcr.Cr[0] != 40 {
		t.Errorf("expected chroma Cb=20 Cr=40, got Cb=%d Cr=%d", ycbcr.Cb[0], ycbcr.Cr[0])
	}
}

func TestDecodeYUYVMultipleRows(t *testing.T) {
	// 2x2 frame, distinct luma per pixel.
	frame := []byte{
		1, 100, 2, 200,
		3, 110, 4, 210,
	}
	img, err := decodeYUYV(frame, 2, 2)
	if err != nil {
		t.Fatalf("decodeYUYV failed: %v", err)
	}
	ycbcr := img.(*image.YCbCr)

	want := []uint8{1, 2, 3, 4}
	for row := 0; row < 2; row++ {
		for col := 0; col < 2; col++ {
			expected := want[row*2+col]
			if got := ycbcr.Y[row*ycbcr.YStride+col]; got != expected {
				t.Errorf("row %d col %d: expected luma %d, got %d", row, col, expected, got)
			}
		}
	}
	if ycbcr.Cb[1*ycbcr.CStride] != 110 {
		t.Errorf("expected second row Cb=110, got %d", ycbcr.Cb[1*ycbcr.CStride])
	}
}

func TestDecodeYUYVRejectsOddWidth(t *testing.T) {
	if _, err := decodeYUYV(make([]byte, 6), 3, 1); err == nil {
		t.Error("expected error for odd width")
	}
}

func TestDecodeYUYVRejectsShortFrame(t *testing.T) {
	if _, err := decodeYUYV(make([]byte, 7), 2, 2); err == nil {
		t.Error("expected error for short frame")
	}
}
