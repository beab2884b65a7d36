package camera

import (
	"fmt"
	"image"
)

// decodeYUYV converts a packed YUYV 4:2:2 frame into an image.YCbCr.
// Every four bytes encode two horizontally adjacent pixels sharing one
// chroma pair: Y0 Cb Y1 Cr.
func decodeYUYV(frame []byte, width, height int) (image.Image, error) {
	if width <= 0 || height <= 0 || width%2 != 0 {
		return nil, fmt.Errorf("invalid YUYV dimensions %dx%d", width, height)
	}
	if len(frame) < width*height*2 {
		return nil, fmt.Errorf("short YUYV frame: got %d bytes, need %d", len(frame), width*height*2)
	}

	img := image.NewYCbCr(image.Rect(0, 0, width, height), image.YCbCrSubsampleRatio422)
	for y := 0; y < height; y++ {
		row := frame[y*width*2:]
		for x := 0; x < width; x += 2 {
			i := x * 2
			yOff := y*img.YStride + x
			cOff := y*img.CStride + x/2
			img.Y[yOff] = row[i]
			img.Cb[cOff] = row[i+1]
			img.Y[yOff+1] = row[i+2]
			img.Cr[cOff] = row[i+3]
		}
	}
	return img, nil
}
